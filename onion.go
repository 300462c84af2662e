// Package onion composes an ordered list of handlers into a single handler
// with nested, onion-style control flow.
//
// Each [Handler] receives the call value and a [Next] function. Calling next
// runs the rest of the chain and returns its outcome; code placed after the
// call runs once everything downstream has finished:
//
//	chain, err := onion.Compose([]onion.Handler[*Req]{
//		func(r *Req, next onion.Next) error {
//			start := time.Now()
//			err := next()
//			log.Printf("took %s", time.Since(start))
//			return err
//		},
//		func(r *Req, next onion.Next) error {
//			if r.User == "" {
//				return errUnauthorized // short-circuit
//			}
//			return next()
//		},
//	})
//
//	err = chain(req, serve)
//
// The call value is opaque to the package and is passed unchanged to every
// handler. A handler may call next at most once; a second call returns
// [ErrNextCalledMultiple]. Panics raised by handlers are recovered and
// returned as [*PanicError], so callers only ever handle errors.
package onion

// Next runs the remainder of the chain and returns its outcome.
type Next func() error

// Handler is a single layer of the onion.
type Handler[T any] func(c T, next Next) error

// Composed is the result of [Compose]. tail, when non-nil, runs after the
// last composed handler and receives a next that completes immediately.
type Composed[T any] func(c T, tail Handler[T]) error

// Handler adapts the composed chain into a single handler so that chains can
// be nested inside other chains. The outer next becomes the inner tail.
func (fn Composed[T]) Handler() Handler[T] {
	return func(c T, next Next) error {
		return fn(c, func(_ T, _ Next) error {
			return next()
		})
	}
}

// Run invokes the chain without a tail.
func (fn Composed[T]) Run(c T) error {
	return fn(c, nil)
}
