package auditctx

import "context"

// Actor identifies the authenticated caller of a request. Services read it to
// authorize operations and to attribute audit entries.
type Actor struct {
	UserID    uint
	Username  string
	IPAddress string
	UserAgent string
	RequestID string
}

type actorContextKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext returns the actor stored in ctx. ok is false for anonymous
// contexts and for actors without a user id.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.UserID == 0 {
		return Actor{}, false
	}
	return actor, true
}
