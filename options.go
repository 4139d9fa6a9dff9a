package rollout

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Provider.
type Option func(*providerConfig) error

// providerConfig holds internal configuration.
type providerConfig struct {
	logger zerolog.Logger

	telemetryEnabled bool
	tracerProvider   trace.TracerProvider
	meterProvider    metric.MeterProvider

	actorExpr   string
	initTimeout time.Duration

	circuitThreshold int
	circuitTimeout   time.Duration
}

func defaultProviderConfig() *providerConfig {
	return &providerConfig{
		logger:      zerolog.Nop(),
		initTimeout: DefaultConfig().InitTimeout,
	}
}

// WithLogger sets the structured logger. Providers log nothing by default.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *providerConfig) error {
		c.logger = logger
		return nil
	}
}

// WithTelemetry enables OpenTelemetry spans and metrics on the global
// tracer and meter providers.
func WithTelemetry(enabled bool) Option {
	return func(c *providerConfig) error {
		c.telemetryEnabled = enabled
		return nil
	}
}

// WithOTel enables telemetry on explicit tracer and meter providers.
func WithOTel(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *providerConfig) error {
		if tp == nil || mp == nil {
			return &ConfigError{Field: "telemetry", Message: "tracer and meter providers are required"}
		}
		c.telemetryEnabled = true
		c.tracerProvider = tp
		c.meterProvider = mp
		return nil
	}
}

// WithActorExpr derives the actor from the evaluation context when it carries
// no targeting key. The expression is evaluated against the flattened
// context, e.g. "userId" or "account?.owner".
func WithActorExpr(source string) Option {
	return func(c *providerConfig) error {
		c.actorExpr = source
		return nil
	}
}

// WithInitTimeout bounds the store health check run by Init.
func WithInitTimeout(timeout time.Duration) Option {
	return func(c *providerConfig) error {
		if timeout <= 0 {
			return &ConfigError{Field: "init_timeout", Message: "timeout must be positive"}
		}
		c.initTimeout = timeout
		return nil
	}
}

// WithCircuitBreaker guards store queries with a circuit breaker that opens
// after threshold consecutive failures and probes again after timeout.
// A zero threshold disables the breaker.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *providerConfig) error {
		if threshold < 0 {
			return &ConfigError{Field: "circuit.threshold", Message: "threshold cannot be negative"}
		}
		if threshold > 0 && timeout <= 0 {
			return &ConfigError{Field: "circuit.timeout", Message: "timeout must be positive"}
		}
		c.circuitThreshold = threshold
		c.circuitTimeout = timeout
		return nil
	}
}
