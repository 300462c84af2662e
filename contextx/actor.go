package contextx

import (
	"context"
	"slices"
)

// Actor is the authenticated caller, set by an authentication handler.
type Actor struct {
	Subject  string
	Tenant   string
	ClientID string
	Scopes   []string
}

// HasScope reports whether the actor was granted scope.
func (a Actor) HasScope(scope string) bool {
	return slices.Contains(a.Scopes, scope)
}

// WithActor returns ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return with(ctx, a)
}

// ActorFromContext returns the actor stored in ctx and whether one was set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	return from[Actor](ctx)
}
