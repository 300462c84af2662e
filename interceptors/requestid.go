package interceptors

import (
	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/contextx"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDHeader is the metadata key read from requests and echoed in
// response headers.
const RequestIDHeader = "x-request-id"

// RequestID returns a handler that makes sure the call's context carries a
// request ID. An ID already in the context wins, then one sent by the client
// in RequestIDHeader, then a fresh UUID.
func RequestID[T RPC]() onion.Handler[T] {
	return func(c T, next onion.Next) error {
		ctx := c.Context()
		if contextx.RequestIDFromContext(ctx) == "" {
			id := ""
			if md, ok := metadata.FromIncomingContext(ctx); ok {
				if vals := md.Get(RequestIDHeader); len(vals) > 0 {
					id = vals[0]
				}
			}
			if id == "" {
				id = uuid.NewString()
			}
			ctx = contextx.WithRequestID(ctx, id)
			c.SetContext(ctx)
		}

		// Fails outside a real RPC; the header is best effort.
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, contextx.RequestIDFromContext(ctx)))
		return next()
	}
}
