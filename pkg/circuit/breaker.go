// Package circuit provides a circuit breaker that lets the provider fail fast
// while the backing rollout store is unreachable.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed - circuit is closed, requests pass through
	StateClosed State = iota
	// StateOpen - circuit is open, requests fail fast
	StateOpen
	// StateHalfOpen - circuit lets probe requests through
	StateHalfOpen
)

// String returns string representation of state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	// MaxFailures is the number of consecutive failures before opening
	MaxFailures int

	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration

	// HalfOpenSuccesses is the number of probe successes needed to close
	HalfOpenSuccesses int

	// OnStateChange is called asynchronously when state changes
	OnStateChange func(from, to State)
}

// DefaultConfig returns default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures:       3,
		Timeout:           30 * time.Second,
		HalfOpenSuccesses: 2,
	}
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	mu sync.Mutex

	maxFailures       int
	timeout           time.Duration
	halfOpenSuccesses int
	onStateChange     func(from, to State)

	state           State
	failures        int
	successes       int
	lastFailureTime time.Time
	lastStateChange time.Time

	totalRequests   int64
	totalSuccesses  int64
	totalFailures   int64
	totalRejections int64
}

// New creates a new circuit breaker. Non-positive settings fall back to
// DefaultConfig values.
func New(config Config) *Breaker {
	def := DefaultConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = def.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = def.HalfOpenSuccesses
	}

	return &Breaker{
		maxFailures:       config.MaxFailures,
		timeout:           config.Timeout,
		halfOpenSuccesses: config.HalfOpenSuccesses,
		onStateChange:     config.OnStateChange,
		state:             StateClosed,
		lastStateChange:   time.Now(),
	}
}

// Call executes fn unless the circuit is open. Context cancellation is not
// counted as a failure of the protected service.
func (b *Breaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.beforeCall(); err != nil {
		return err
	}

	err := fn()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			b.release()
			return err
		}
	}

	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	switch b.state {
	case StateClosed, StateHalfOpen:
		return nil

	case StateOpen:
		if time.Since(b.lastStateChange) >= b.timeout {
			b.setState(StateHalfOpen)
			return nil
		}

		b.totalRejections++
		return &CircuitOpenError{
			State:           b.state,
			Failures:        b.failures,
			LastFailureTime: b.lastFailureTime,
		}

	default:
		return fmt.Errorf("unknown circuit breaker state: %d", b.state)
	}
}

// release undoes the accounting of a call that was abandoned by its caller.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalRequests--
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
	} else {
		b.onSuccess()
	}
}

func (b *Breaker) onSuccess() {
	b.totalSuccesses++
	b.failures = 0

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.halfOpenSuccesses {
			b.setState(StateClosed)
			b.successes = 0
		}

	case StateOpen:
		b.setState(StateClosed)
	}
}

func (b *Breaker) onFailure() {
	b.totalFailures++
	b.failures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.maxFailures {
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		// a single failed probe reopens
		b.setState(StateOpen)
		b.successes = 0

	case StateOpen:
		b.lastStateChange = time.Now()
	}
}

// setState must be called with b.mu held.
func (b *Breaker) setState(newState State) {
	oldState := b.state
	if oldState == newState {
		return
	}

	b.state = newState
	b.lastStateChange = time.Now()

	if b.onStateChange != nil {
		go b.onStateChange(oldState, newState)
	}
}

// GetState returns the current state
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to the closed state
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setState(StateClosed)
	b.failures = 0
	b.successes = 0
}

// Stats represents circuit breaker statistics
type Stats struct {
	State           State
	Failures        int
	Successes       int
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRejections int64
	LastFailureTime time.Time
	LastStateChange time.Time
}

// GetStats returns circuit breaker statistics
func (b *Breaker) GetStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:           b.state,
		Failures:        b.failures,
		Successes:       b.successes,
		TotalRequests:   b.totalRequests,
		TotalSuccesses:  b.totalSuccesses,
		TotalFailures:   b.totalFailures,
		TotalRejections: b.totalRejections,
		LastFailureTime: b.lastFailureTime,
		LastStateChange: b.lastStateChange,
	}
}

// CircuitOpenError is returned when the circuit is open
type CircuitOpenError struct {
	State           State
	Failures        int
	LastFailureTime time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is %s (failures: %d, last failure: %s)",
		e.State.String(), e.Failures, e.LastFailureTime.Format(time.RFC3339))
}

// IsCircuitOpen reports whether err is, or wraps, a CircuitOpenError
func IsCircuitOpen(err error) bool {
	var target *CircuitOpenError
	return errors.As(err, &target)
}
