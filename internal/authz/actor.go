package authz

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
