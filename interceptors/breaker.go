package interceptors

import (
	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/breaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errBreakerOpen is allocated once to avoid per-request allocations on the hot path.
var errBreakerOpen = status.Error(codes.Unavailable, "circuit breaker open")

// Breaker returns a handler that fails fast with codes.Unavailable while b is
// open. Only server-side faults count against b; client errors such as
// InvalidArgument or NotFound do not trip it.
func Breaker[T RPC](b *breaker.Breaker) onion.Handler[T] {
	return breaker.Handler[T](b, func(T) error { return errBreakerOpen }, serverFault)
}

func serverFault(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Internal, codes.Unavailable, codes.DeadlineExceeded,
		codes.Unknown, codes.DataLoss, codes.Unimplemented:
		return true
	}
	return false
}
