package telemetry

import (
	"context"
	"time"
)

// NoOpProvider is a telemetry provider that does nothing.
// It is the default when telemetry is disabled.
type NoOpProvider struct{}

// NewNoOp creates a new no-op telemetry provider
func NewNoOp() *NoOpProvider {
	return &NoOpProvider{}
}

func (n *NoOpProvider) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	return ctx, &NoOpSpan{}
}

func (n *NoOpProvider) RecordResolution(ctx context.Context, flag string, kind string, reason string, errorCode string) {
}

func (n *NoOpProvider) RecordStoreCall(ctx context.Context, flag string, success bool, duration time.Duration) {
}

func (n *NoOpProvider) RecordCircuitState(ctx context.Context, state string) {}

func (n *NoOpProvider) Shutdown(ctx context.Context) error {
	return nil
}

// NoOpSpan is a span that does nothing
type NoOpSpan struct{}

func (n *NoOpSpan) End()                                     {}
func (n *NoOpSpan) SetAttributes(attrs ...Attribute)         {}
func (n *NoOpSpan) RecordError(err error)                    {}
func (n *NoOpSpan) AddEvent(name string, attrs ...Attribute) {}
