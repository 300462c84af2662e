package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Keksclan/onion"
)

type lookup struct {
	ctx    context.Context
	query  string
	answer string
}

func (l *lookup) Context() context.Context { return l.ctx }

type lookupCodec struct{}

func (lookupCodec) Key(l *lookup) (string, bool) { return "q:" + l.query, l.query != "" }

func (lookupCodec) Encode(l *lookup) ([]byte, error) { return []byte(l.answer), nil }

func (lookupCodec) Decode(l *lookup, data []byte) error {
	l.answer = string(data)
	return nil
}

func TestHandler_HitSkipsDownstream(t *testing.T) {
	store := mustNewL1(t)
	chain := onion.MustCompose(Handler[*lookup](store, time.Minute, lookupCodec{}))

	var computed int
	resolve := func(l *lookup, _ onion.Next) error {
		computed++
		l.answer = "answer-to-" + l.query
		return nil
	}

	for i := range 3 {
		l := &lookup{ctx: t.Context(), query: "x"}
		if err := chain(l, resolve); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if l.answer != "answer-to-x" {
			t.Fatalf("call %d: got %q", i, l.answer)
		}
	}
	if computed != 1 {
		t.Fatalf("downstream ran %d times, want 1", computed)
	}
}

func TestHandler_BypassWithoutKey(t *testing.T) {
	store := mustNewL1(t)
	chain := onion.MustCompose(Handler[*lookup](store, time.Minute, lookupCodec{}))

	var computed int
	for range 2 {
		err := chain(&lookup{ctx: t.Context()}, func(*lookup, onion.Next) error {
			computed++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if computed != 2 {
		t.Fatalf("downstream ran %d times, want 2", computed)
	}
}

func TestHandler_DownstreamErrorPropagatesAndIsNotCached(t *testing.T) {
	store := mustNewL1(t)
	chain := onion.MustCompose(Handler[*lookup](store, time.Minute, lookupCodec{}))
	boom := errors.New("boom")

	err := chain(&lookup{ctx: t.Context(), query: "y"}, func(*lookup, onion.Next) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok, _ := store.Get(t.Context(), "q:y"); ok {
		t.Fatal("failed result must not be cached")
	}
}
