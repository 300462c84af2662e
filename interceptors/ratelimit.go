package interceptors

import (
	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/ratelimit"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errRateLimited is allocated once to avoid per-request allocations on the hot path.
var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// RateLimit returns a handler that rejects calls with codes.ResourceExhausted
// once l runs out of tokens. All calls share one bucket.
func RateLimit[T RPC](l *ratelimit.Limiter) onion.Handler[T] {
	return ratelimit.Handler[T](l, nil, func(T) error { return errRateLimited })
}

// RateLimitPerMethod is RateLimit with a separate bucket per full method name.
func RateLimitPerMethod[T RPC](l *ratelimit.Limiter) onion.Handler[T] {
	return ratelimit.Handler[T](l, func(c T) string { return c.FullMethod() }, func(T) error { return errRateLimited })
}
