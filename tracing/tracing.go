// Package tracing adds OpenTelemetry spans to onion chains. It is optional:
// a nil *TracingConfig turns every handler in this package into a
// passthrough.
package tracing

import (
	"context"
	"strings"

	"github.com/Keksclan/onion"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"
	grpcStatus "google.golang.org/grpc/status"
)

const instrumentationName = "github.com/Keksclan/onion/tracing"

// Carrier is a call value whose context can be replaced, so the span started
// by one handler becomes the parent of spans started further down the chain.
type Carrier interface {
	Context() context.Context
	SetContext(ctx context.Context)
}

// RPC is a Carrier that knows the full gRPC method it serves.
type RPC interface {
	Carrier
	FullMethod() string
}

// TracingConfig holds the OpenTelemetry configuration.
type TracingConfig struct {
	// TracerProvider supplies the Tracer. Nil means otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Propagators extracts trace context from incoming metadata. Nil means
	// otel.GetTextMapPropagator().
	Propagators propagation.TextMapPropagator
}

func (c *TracingConfig) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

func (c *TracingConfig) propagators() propagation.TextMapPropagator {
	if c.Propagators != nil {
		return c.Propagators
	}
	return otel.GetTextMapPropagator()
}

func passthrough[T any](_ T, next onion.Next) error { return next() }

// Server returns a handler that opens a server span for the RPC, continuing
// any trace found in the incoming gRPC metadata. Place it first in the chain
// so the span covers every other handler.
func Server[T RPC](cfg *TracingConfig) onion.Handler[T] {
	if cfg == nil {
		return passthrough[T]
	}
	return func(c T, next onion.Next) error {
		method := c.FullMethod()
		ctx := extract(c.Context(), cfg)
		ctx, span := cfg.tracer().Start(ctx, method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		service, name := splitFullMethod(method)
		span.SetAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", name),
		)

		c.SetContext(ctx)
		err := next()
		recordStatus(span, err)
		return err
	}
}

// Step wraps h in an internal span called name. The span stays open while
// the rest of the chain runs, so spans of later steps become its children.
func Step[T Carrier](cfg *TracingConfig, name string, h onion.Handler[T]) onion.Handler[T] {
	if cfg == nil {
		return h
	}
	return func(c T, next onion.Next) error {
		parent := c.Context()
		ctx, span := cfg.tracer().Start(parent, name, trace.WithSpanKind(trace.SpanKindInternal))
		defer span.End()

		c.SetContext(ctx)
		err := h(c, next)
		c.SetContext(parent)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// metadataCarrier adapts gRPC metadata to propagation.TextMapCarrier.
type metadataCarrier metadata.MD

func (mc metadataCarrier) Get(key string) string {
	vals := metadata.MD(mc).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

func (mc metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(mc))
	for k := range mc {
		keys = append(keys, k)
	}
	return keys
}

func extract(ctx context.Context, cfg *TracingConfig) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	return cfg.propagators().Extract(ctx, metadataCarrier(md))
}

// splitFullMethod splits "/service/method" into ("service", "method").
func splitFullMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(fullMethod, "/")
	if !ok {
		return fullMethod, ""
	}
	return service, method
}

func recordStatus(span trace.Span, err error) {
	st, _ := grpcStatus.FromError(err)
	span.SetAttributes(attribute.String("rpc.grpc.status_code", st.Code().String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, st.Message())
		return
	}
	span.SetStatus(codes.Ok, "")
}
