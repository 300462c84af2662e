package core

import (
	"cmp"
	"slices"

	"github.com/Keksclan/onion"
)

// middleware is one unary/stream handler pair with a deterministic position
// in the chain. Lower Order values run first, which puts them further out in
// the onion.
type middleware[U, S any] struct {
	Unary  onion.Handler[U]
	Stream onion.Handler[S]
	Order  int
}

// MiddlewareBuilder collects handler pairs and produces ordered handler
// slices ready for onion.Compose.
type MiddlewareBuilder[U, S any] struct {
	entries []middleware[U, S]
}

// Add registers a handler pair at the given order. Either handler may be nil
// if only one kind of RPC is affected.
func (b *MiddlewareBuilder[U, S]) Add(order int, unary onion.Handler[U], stream onion.Handler[S]) {
	b.entries = append(b.entries, middleware[U, S]{
		Unary:  unary,
		Stream: stream,
		Order:  order,
	})
}

// Build sorts the collected entries by Order (stable) and returns the
// separated unary and stream handler slices.
func (b *MiddlewareBuilder[U, S]) Build() ([]onion.Handler[U], []onion.Handler[S]) {
	slices.SortStableFunc(b.entries, func(a, c middleware[U, S]) int {
		return cmp.Compare(a.Order, c.Order)
	})

	var unary []onion.Handler[U]
	var stream []onion.Handler[S]

	for _, m := range b.entries {
		if m.Unary != nil {
			unary = append(unary, m.Unary)
		}
		if m.Stream != nil {
			stream = append(stream, m.Stream)
		}
	}

	return unary, stream
}
