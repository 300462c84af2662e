package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/Keksclan/onion"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcStatus "google.golang.org/grpc/status"
)

// newTestConfig returns a TracingConfig backed by an in-memory span recorder.
func newTestConfig(t *testing.T) (*TracingConfig, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return &TracingConfig{
		TracerProvider: tp,
		Propagators:    propagation.TraceContext{},
	}, rec
}

type testCall struct {
	ctx    context.Context
	method string
}

func (c *testCall) Context() context.Context { return c.ctx }
func (c *testCall) SetContext(ctx context.Context) { c.ctx = ctx }
func (c *testCall) FullMethod() string { return c.method }

func okTail(*testCall, onion.Next) error { return nil }

// ---------- Server ----------------------------------------------------------

func TestServer_CreatesSpan(t *testing.T) {
	cfg, rec := newTestConfig(t)
	chain := onion.MustCompose(Server[*testCall](cfg))

	var inner trace.SpanContext
	c := &testCall{ctx: t.Context(), method: "/onion.Ping/Ping"}
	err := chain(c, func(c *testCall, _ onion.Next) error {
		inner = trace.SpanContextFromContext(c.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "/onion.Ping/Ping" {
		t.Fatalf("expected span name %q, got %q", "/onion.Ping/Ping", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Fatalf("expected SpanKindServer, got %v", span.SpanKind())
	}
	if inner.SpanID() != span.SpanContext().SpanID() {
		t.Fatal("downstream handlers did not see the server span in their context")
	}

	assertAttr(t, span.Attributes(), "rpc.system", "grpc")
	assertAttr(t, span.Attributes(), "rpc.service", "onion.Ping")
	assertAttr(t, span.Attributes(), "rpc.method", "Ping")
	assertAttr(t, span.Attributes(), "rpc.grpc.status_code", "OK")
}

func TestServer_RecordsError(t *testing.T) {
	cfg, rec := newTestConfig(t)
	chain := onion.MustCompose(Server[*testCall](cfg))

	err := chain(&testCall{ctx: t.Context(), method: "/svc/Method"}, func(*testCall, onion.Next) error {
		return grpcStatus.Error(grpcCodes.NotFound, "not found")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("expected Error status, got %v", spans[0].Status().Code)
	}
	assertAttr(t, spans[0].Attributes(), "rpc.grpc.status_code", "NotFound")
}

func TestServer_NilConfigPassthrough(t *testing.T) {
	chain := onion.MustCompose(Server[*testCall](nil))

	called := false
	err := chain(&testCall{ctx: t.Context()}, func(*testCall, onion.Next) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("tail was not called")
	}
}

func TestServer_ExtractsTraceContext(t *testing.T) {
	cfg, rec := newTestConfig(t)
	chain := onion.MustCompose(Server[*testCall](cfg))

	md := metadata.Pairs("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	ctx := metadata.NewIncomingContext(t.Context(), md)

	if err := chain(&testCall{ctx: ctx, method: "/svc/Method"}, okTail); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace context not extracted; traceID = %s", got)
	}
}

// ---------- Step ------------------------------------------------------------

func TestStep_SpansNestLikeHandlers(t *testing.T) {
	cfg, rec := newTestConfig(t)
	pass := func(_ *testCall, next onion.Next) error { return next() }

	chain := onion.MustCompose(
		Server[*testCall](cfg),
		Step[*testCall](cfg, "outer", pass),
		Step[*testCall](cfg, "inner", pass),
	)
	if err := chain(&testCall{ctx: t.Context(), method: "/svc/M"}, okTail); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range rec.Ended() {
		byName[s.Name()] = s
	}
	server, outer, inner := byName["/svc/M"], byName["outer"], byName["inner"]
	if server == nil || outer == nil || inner == nil {
		t.Fatalf("missing spans: %v", byName)
	}
	if outer.Parent().SpanID() != server.SpanContext().SpanID() {
		t.Fatal("outer step should be a child of the server span")
	}
	if inner.Parent().SpanID() != outer.SpanContext().SpanID() {
		t.Fatal("inner step should be a child of the outer step")
	}
	if inner.SpanKind() != trace.SpanKindInternal {
		t.Fatalf("expected SpanKindInternal, got %v", inner.SpanKind())
	}
}

func TestStep_RestoresContextAndRecordsError(t *testing.T) {
	cfg, rec := newTestConfig(t)
	boom := errors.New("boom")

	var after context.Context
	c := &testCall{ctx: t.Context()}
	chain := onion.MustCompose(
		func(c *testCall, next onion.Next) error {
			err := next()
			after = c.Context()
			return err
		},
		Step[*testCall](cfg, "failing", func(*testCall, onion.Next) error { return boom }),
	)

	if err := chain.Run(c); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if after != t.Context() {
		t.Fatal("step did not restore the caller's context")
	}

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one errored span, got %d", len(spans))
	}
}

func TestStep_NilConfigReturnsHandler(t *testing.T) {
	called := false
	h := Step[*testCall](nil, "x", func(_ *testCall, next onion.Next) error {
		called = true
		return next()
	})
	if err := onion.MustCompose(h).Run(&testCall{ctx: t.Context()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}
}

// ---------- helpers ---------------------------------------------------------

func TestSplitFullMethod(t *testing.T) {
	tests := []struct {
		input   string
		service string
		method  string
	}{
		{"/onion.Ping/Ping", "onion.Ping", "Ping"},
		{"/service/method", "service", "method"},
		{"noSlash", "noSlash", ""},
	}
	for _, tt := range tests {
		svc, meth := splitFullMethod(tt.input)
		if svc != tt.service || meth != tt.method {
			t.Errorf("splitFullMethod(%q) = (%q, %q), want (%q, %q)", tt.input, svc, meth, tt.service, tt.method)
		}
	}
}

func assertAttr(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if a.Value.AsString() != want {
				t.Errorf("attribute %q = %q, want %q", key, a.Value.AsString(), want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found", key)
}
