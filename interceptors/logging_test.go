package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/contextx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

func logRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return rec
}

func TestLogging_Success(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	ic := Unary(onion.MustCompose(Logging[*Call](log)))
	ctx := contextx.WithRequestID(t.Context(), "req-1")
	if _, err := ic(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"}, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := logRecord(t, &buf)
	if rec["msg"] != "rpc completed" || rec["level"] != "INFO" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["method"] != "/svc/M" || rec["request_id"] != "req-1" || rec["code"] != "OK" {
		t.Fatalf("unexpected attributes: %v", rec)
	}
}

func TestLogging_Failure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	ic := Unary(onion.MustCompose(Logging[*Call](log)))
	_, err := ic(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"}, failing(codes.NotFound))
	if codeOf(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", codeOf(err))
	}

	rec := logRecord(t, &buf)
	if rec["msg"] != "rpc failed" || rec["level"] != "ERROR" || rec["code"] != "NotFound" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if _, ok := rec["request_id"]; ok {
		t.Fatalf("unexpected request_id: %v", rec)
	}
}

func TestLogging_SeesRequestIDSetDownstream(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	chain := onion.MustCompose(Logging[*Call](log), RequestID[*Call]())
	ic := Unary(chain)
	var seen string
	_, _ = ic(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, _ any) (any, error) {
			seen = contextx.RequestIDFromContext(ctx)
			return "ok", nil
		})

	if rec := logRecord(t, &buf); rec["request_id"] != seen {
		t.Fatalf("logged request_id %v, handler saw %q", rec["request_id"], seen)
	}
}
