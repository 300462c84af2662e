package interceptors

import (
	"errors"
	"log/slog"

	"github.com/Keksclan/onion"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusInternal is allocated once to avoid per-request allocations on the hot path.
var statusInternal = status.New(codes.Internal, "internal server error")

// panicError reports codes.Internal to gRPC while still unwrapping to the
// recovered panic for errors.As.
type panicError struct {
	pe *onion.PanicError
}

func (e *panicError) Error() string { return statusInternal.Err().Error() }

func (e *panicError) GRPCStatus() *status.Status { return statusInternal }

func (e *panicError) Unwrap() error { return e.pe }

// Recovery returns a handler that hides panics raised further down the chain
// behind codes.Internal. The chain itself already turns panics into
// *onion.PanicError; without Recovery that error reaches the client as
// codes.Unknown with the panic message. log may be nil.
func Recovery[T RPC](log *slog.Logger) onion.Handler[T] {
	return func(c T, next onion.Next) error {
		err := next()

		var pe *onion.PanicError
		if !errors.As(err, &pe) {
			return err
		}
		if log != nil {
			log.ErrorContext(c.Context(), "handler panicked",
				slog.String("method", c.FullMethod()),
				slog.Int("step", pe.Step),
				slog.Any("panic", pe.Value),
				slog.String("stack", string(pe.Stack)),
			)
		}
		return &panicError{pe: pe}
	}
}
