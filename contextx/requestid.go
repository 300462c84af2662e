package contextx

import "context"

type requestID string

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestID(id))
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := from[requestID](ctx)
	return string(id)
}
