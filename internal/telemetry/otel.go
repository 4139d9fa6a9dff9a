package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/OrlandoBitencourt/openfeature-rollout"

// OTelProvider implements Provider using OpenTelemetry
type OTelProvider struct {
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	resolutions   metric.Int64Counter
	storeCalls    metric.Int64Counter
	storeFailures metric.Int64Counter
	storeDuration metric.Float64Histogram
	circuitState  metric.Int64ObservableGauge

	// Current circuit state (for gauge)
	currentCircuitState atomic.Int64
}

// NewOTel creates a provider on the global tracer and meter providers.
func NewOTel() (*OTelProvider, error) {
	return NewOTelWith(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// NewOTelWith creates a provider on explicit tracer and meter providers.
func NewOTelWith(tp trace.TracerProvider, mp metric.MeterProvider) (*OTelProvider, error) {
	provider := &OTelProvider{
		tracer: tp.Tracer(instrumentationName),
		meter:  mp.Meter(instrumentationName),
	}

	if err := provider.initMetrics(); err != nil {
		return nil, err
	}

	return provider, nil
}

// initMetrics initializes all metrics
func (o *OTelProvider) initMetrics() error {
	var err error

	o.resolutions, err = o.meter.Int64Counter(
		"rollout.provider.resolutions",
		metric.WithDescription("Number of flag resolutions"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return err
	}

	o.storeCalls, err = o.meter.Int64Counter(
		"rollout.store.calls",
		metric.WithDescription("Number of activation queries sent to the rollout store"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	o.storeFailures, err = o.meter.Int64Counter(
		"rollout.store.failures",
		metric.WithDescription("Number of failed activation queries"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	o.storeDuration, err = o.meter.Float64Histogram(
		"rollout.store.duration",
		metric.WithDescription("Duration of activation queries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	o.circuitState, err = o.meter.Int64ObservableGauge(
		"rollout.circuit.state",
		metric.WithDescription("Circuit breaker state (0=closed, 1=open, 2=half-open)"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			observer.Observe(o.currentCircuitState.Load())
			return nil
		}),
	)
	return err
}

func circuitStateValue(state string) int64 {
	switch state {
	case "open":
		return 1
	case "half-open":
		return 2
	default:
		return 0
	}
}

// StartSpan creates a new trace span
func (o *OTelProvider) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	config := &SpanConfig{}
	for _, opt := range opts {
		opt(config)
	}

	ctx, otelSpan := o.tracer.Start(ctx, name,
		trace.WithAttributes(convertAttributes(config.Attributes)...))

	return ctx, &OTelSpan{span: otelSpan}
}

func convertAttribute(attr Attribute) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case float64:
		return attribute.Float64(attr.Key, v)
	default:
		return attribute.String(attr.Key, "")
	}
}

func convertAttributes(attrs []Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(attrs))
	for i, attr := range attrs {
		out[i] = convertAttribute(attr)
	}
	return out
}

// RecordResolution counts one resolution by kind and outcome.
func (o *OTelProvider) RecordResolution(ctx context.Context, flag string, kind string, reason string, errorCode string) {
	attrs := []attribute.KeyValue{
		attribute.String("feature_flag.key", flag),
		attribute.String("feature_flag.kind", kind),
		attribute.String("feature_flag.reason", reason),
	}
	if errorCode != "" {
		attrs = append(attrs, attribute.String("error.type", errorCode))
	}
	o.resolutions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStoreCall records one activation query against the store.
func (o *OTelProvider) RecordStoreCall(ctx context.Context, flag string, success bool, duration time.Duration) {
	flagAttr := attribute.String("feature_flag.key", flag)

	o.storeCalls.Add(ctx, 1, metric.WithAttributes(flagAttr))
	o.storeDuration.Record(ctx, float64(duration.Microseconds())/1000,
		metric.WithAttributes(attribute.Bool("success", success)))

	if !success {
		o.storeFailures.Add(ctx, 1, metric.WithAttributes(flagAttr))
	}
}

// RecordCircuitState records the circuit breaker state
func (o *OTelProvider) RecordCircuitState(ctx context.Context, state string) {
	o.currentCircuitState.Store(circuitStateValue(state))
}

// Shutdown is a no-op; SDK providers are owned by the application.
func (o *OTelProvider) Shutdown(ctx context.Context) error {
	return nil
}

// OTelSpan wraps an OpenTelemetry span
type OTelSpan struct {
	span trace.Span
}

func (s *OTelSpan) End() {
	s.span.End()
}

func (s *OTelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(convertAttributes(attrs)...)
}

// RecordError records the error and marks the span as failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *OTelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(convertAttributes(attrs)...))
}
