package store

import (
	"context"
	"sync"
)

// Call records one activation query received by a Mock.
type Call struct {
	Flag  string
	Actor Actor
}

// Mock is a Store for testing. Without IsActiveFunc it answers from the
// per-flag values registered with SetActive, false otherwise.
type Mock struct {
	mu     sync.RWMutex
	active map[string]bool
	calls  []Call

	// Mock behaviors
	IsActiveFunc    func(ctx context.Context, flag string, actor Actor) (bool, error)
	HealthCheckFunc func(ctx context.Context) error
	CloseFunc       func() error

	// Call tracking
	HealthCheckCalls int
	CloseCalls       int
}

// NewMock creates a new mock store
func NewMock() *Mock {
	return &Mock{
		active: make(map[string]bool),
	}
}

// SetActive fixes the answer for a flag regardless of actor.
func (m *Mock) SetActive(flag string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[flag] = active
}

// IsActive records the call and answers it.
func (m *Mock) IsActive(ctx context.Context, flag string, actor Actor) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Flag: flag, Actor: actor})
	m.mu.Unlock()

	if m.IsActiveFunc != nil {
		return m.IsActiveFunc(ctx, flag, actor)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[flag], nil
}

// HealthCheck reports healthy unless HealthCheckFunc says otherwise.
func (m *Mock) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.HealthCheckCalls++
	m.mu.Unlock()

	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}

// Close implements io.Closer.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns a copy of the recorded activation queries.
func (m *Mock) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and registered answers.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = make(map[string]bool)
	m.calls = nil
	m.HealthCheckCalls = 0
	m.CloseCalls = 0
}
