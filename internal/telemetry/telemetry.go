// Package telemetry instruments flag resolutions and backing-store calls.
package telemetry

import (
	"context"
	"time"
)

// Provider defines the interface for telemetry providers
type Provider interface {
	// Tracer operations
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)

	// Metrics operations
	RecordResolution(ctx context.Context, flag string, kind string, reason string, errorCode string)
	RecordStoreCall(ctx context.Context, flag string, success bool, duration time.Duration)
	RecordCircuitState(ctx context.Context, state string)

	// Lifecycle
	Shutdown(ctx context.Context) error
}

// Span represents a trace span
type Span interface {
	End()
	SetAttributes(attrs ...Attribute)
	RecordError(err error)
	AddEvent(name string, attrs ...Attribute)
}

// SpanOption configures span creation
type SpanOption func(*SpanConfig)

// SpanConfig holds span configuration
type SpanConfig struct {
	Attributes []Attribute
}

// Attribute represents a key-value attribute
type Attribute struct {
	Key   string
	Value interface{}
}

// WithAttributes adds attributes to a span
func WithAttributes(attrs ...Attribute) SpanOption {
	return func(c *SpanConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// String creates a string attribute
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a bool attribute
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}
