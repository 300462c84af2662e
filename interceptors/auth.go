package interceptors

import (
	"context"

	"github.com/Keksclan/onion"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthFunc authenticates an RPC from its context, full method name and
// incoming metadata. On success it returns the context the rest of the chain
// should use, typically enriched with contextx.WithActor. Token parsing is
// entirely up to the implementation.
type AuthFunc func(ctx context.Context, fullMethod string, md metadata.MD) (context.Context, error)

// errUnauthenticated is allocated once to avoid per-request allocations on the hot path.
var errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")

// authError keeps gRPC status errors and maps everything else to
// codes.Unauthenticated.
func authError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return errUnauthenticated
}

// Auth returns a handler that stops the chain unless fn accepts the call.
func Auth[T RPC](fn AuthFunc) onion.Handler[T] {
	return func(c T, next onion.Next) error {
		md, _ := metadata.FromIncomingContext(c.Context())
		ctx, err := fn(c.Context(), c.FullMethod(), md)
		if err != nil {
			return authError(err)
		}
		if ctx != nil {
			c.SetContext(ctx)
		}
		return next()
	}
}
