package circuit

import (
	"context"
	"io"

	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/store"
)

// GuardedStore is a store.Store whose activation queries pass through a
// Breaker.
type GuardedStore struct {
	next    store.Store
	breaker *Breaker
}

// Store wraps s so that activation queries fail fast with a CircuitOpenError
// while b is open.
func Store(s store.Store, b *Breaker) *GuardedStore {
	return &GuardedStore{next: s, breaker: b}
}

// IsActive forwards the query through the breaker.
func (g *GuardedStore) IsActive(ctx context.Context, flag string, actor store.Actor) (bool, error) {
	var active bool
	err := g.breaker.Call(ctx, func() error {
		var err error
		active, err = g.next.IsActive(ctx, flag, actor)
		return err
	})
	if err != nil {
		return false, err
	}
	return active, nil
}

// HealthCheck delegates to the wrapped store when it supports health checks.
// Health probes bypass the breaker.
func (g *GuardedStore) HealthCheck(ctx context.Context) error {
	if hc, ok := g.next.(store.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Close closes the wrapped store when it is an io.Closer.
func (g *GuardedStore) Close() error {
	if c, ok := g.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Breaker returns the breaker guarding the store.
func (g *GuardedStore) Breaker() *Breaker {
	return g.breaker
}
