package onion

import (
	"runtime/debug"
	"slices"
	"sync/atomic"
)

// Compose validates handlers and returns a function that runs them in order.
// A nil element yields a *NotCallableError naming its index.
//
// The slice is copied, so later changes by the caller do not affect the
// composed chain. Every call of the returned function keeps its own progress
// state, which makes it safe for concurrent use.
func Compose[T any](handlers []Handler[T]) (Composed[T], error) {
	for i, h := range handlers {
		if h == nil {
			return nil, &NotCallableError{Index: i}
		}
	}
	return compose(slices.Clone(handlers)), nil
}

// MustCompose is like Compose but panics if a handler is nil. It is meant for
// package-level chains built from handlers known at compile time.
func MustCompose[T any](handlers ...Handler[T]) Composed[T] {
	c, err := Compose(handlers)
	if err != nil {
		panic(err)
	}
	return c
}

func compose[T any](handlers []Handler[T]) Composed[T] {
	return func(c T, tail Handler[T]) error {
		d := &dispatcher[T]{handlers: handlers, tail: tail, call: c}
		d.last.Store(-1)
		return d.dispatch(0)
	}
}

// dispatcher holds the progress of a single invocation.
type dispatcher[T any] struct {
	handlers []Handler[T]
	tail     Handler[T]
	call     T
	// last is the highest step started so far.
	last atomic.Int64
}

func (d *dispatcher[T]) dispatch(i int) (err error) {
	for {
		last := d.last.Load()
		if int64(i) <= last {
			return ErrNextCalledMultiple
		}
		if d.last.CompareAndSwap(last, int64(i)) {
			break
		}
	}

	var h Handler[T]
	switch {
	case i < len(d.handlers):
		h = d.handlers[i]
	case i == len(d.handlers):
		h = d.tail
	}
	if h == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Step: i, Value: r, Stack: debug.Stack()}
		}
	}()
	return h(d.call, func() error {
		return d.dispatch(i + 1)
	})
}
