package interceptors

import (
	"log/slog"
	"time"

	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/contextx"
	"google.golang.org/grpc/status"
)

// Logging returns a handler that writes one record per call once the rest of
// the chain has finished. A nil logger means slog.Default().
func Logging[T RPC](logger *slog.Logger) onion.Handler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c T, next onion.Next) error {
		start := time.Now()
		err := next()

		ctx := c.Context()
		attrs := []slog.Attr{
			slog.String("method", c.FullMethod()),
			slog.Duration("duration", time.Since(start)),
			slog.String("code", status.Code(err).String()),
		}
		if id := contextx.RequestIDFromContext(ctx); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.LogAttrs(ctx, slog.LevelError, "rpc failed", attrs...)
			return err
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "rpc completed", attrs...)
		return nil
	}
}
