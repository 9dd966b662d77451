package auth

import "context"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ActorContextKey is the key for storing ActorContext in request context
	ActorContextKey ContextKey = "actorContext"
)

// ActorContext carries the acting user's identity and department for a
// request. Both values are opaque strings supplied by the upstream identity
// layer; the workflow core only records them on history entries.
type ActorContext struct {
	ActorID    string
	Department string
}

// FromContext returns the ActorContext stored in ctx, or nil when the
// request carried no identity headers.
func FromContext(ctx context.Context) *ActorContext {
	ac, ok := ctx.Value(ActorContextKey).(*ActorContext)
	if !ok {
		return nil
	}
	return ac
}

// WithActor returns a copy of ctx carrying the given actor identity.
func WithActor(ctx context.Context, ac *ActorContext) context.Context {
	return context.WithValue(ctx, ActorContextKey, ac)
}
