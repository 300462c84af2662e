// Package contextx stores request-scoped values that harness handlers attach
// to a call's context.Context.
package contextx

import "context"

// key is parameterised by the stored type, so every value type gets its own
// collision-free key without a shared enum.
type key[T any] struct{}

func with[T any](ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, key[T]{}, v)
}

func from[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(key[T]{}).(T)
	return v, ok
}
