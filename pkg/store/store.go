// Package store defines the contract of the backing rollout store consumed by
// the provider. The store owns every activation decision; callers only ask
// whether a flag is active for an actor.
package store

import (
	"context"
)

// Actor identifies who an activation query is made for. The zero value is the
// absent actor, used when no targeting key was supplied.
type Actor struct {
	ID    string
	Valid bool
}

// NewActor returns a present actor with the given id.
func NewActor(id string) Actor {
	return Actor{ID: id, Valid: true}
}

// NoActor returns the absent actor.
func NoActor() Actor {
	return Actor{}
}

// String returns the actor id, or "<none>" for the absent actor.
func (a Actor) String() string {
	if !a.Valid {
		return "<none>"
	}
	return a.ID
}

// Store answers "is flag active for actor?".
//
// Implementations must be safe for repeated calls; the provider calls them
// concurrently when its host SDK does.
type Store interface {
	IsActive(ctx context.Context, flag string, actor Actor) (bool, error)
}

// HealthChecker is implemented by stores able to verify their backend is
// reachable. The provider runs it during initialization.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Func adapts an ordinary function to the Store interface.
type Func func(ctx context.Context, flag string, actor Actor) (bool, error)

// IsActive calls f(ctx, flag, actor).
func (f Func) IsActive(ctx context.Context, flag string, actor Actor) (bool, error) {
	return f(ctx, flag, actor)
}
