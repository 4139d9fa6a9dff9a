// Package rollout provides an OpenFeature provider backed by a rollout store,
// a flag store that can only answer whether a flag is active for an actor.
//
// Boolean flags are resolved by asking the store. Every other flag kind is
// rejected with TYPE_MISMATCH and the caller's default.
//
// Basic usage:
//
//	provider, err := rollout.Build(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	openfeature.SetProviderAndWait(provider)
//	client := openfeature.NewClient("app")
//	enabled, _ := client.BooleanValue(ctx, "new-checkout", false, evalCtx)
package rollout

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/open-feature/go-sdk/openfeature"
	"github.com/rs/zerolog"

	"github.com/OrlandoBitencourt/openfeature-rollout/internal/domain"
	"github.com/OrlandoBitencourt/openfeature-rollout/internal/remote"
	"github.com/OrlandoBitencourt/openfeature-rollout/internal/resolver"
	"github.com/OrlandoBitencourt/openfeature-rollout/internal/telemetry"
	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/circuit"
	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/store"
)

// ProviderName is reported in the provider metadata.
const ProviderName = "rollout Provider"

// shutdownTimeout bounds telemetry shutdown.
const shutdownTimeout = 5 * time.Second

// Provider is an OpenFeature provider over a boolean-only rollout store.
type Provider struct {
	metadata  openfeature.Metadata
	store     store.Store
	resolver  *resolver.Resolver
	telemetry telemetry.Provider
	breaker   *circuit.Breaker
	logger    zerolog.Logger

	initTimeout time.Duration

	// owned is set when the provider built its store and must close it
	owned io.Closer
}

var (
	_ openfeature.FeatureProvider = (*Provider)(nil)
	_ openfeature.StateHandler    = (*Provider)(nil)
)

// New creates a provider over an injected store. The caller keeps ownership
// of s; Shutdown never closes it.
func New(s store.Store, opts ...Option) (*Provider, error) {
	if s == nil {
		return nil, &ConfigError{Field: "store", Message: "rollout store is required"}
	}

	cfg := defaultProviderConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	tel, err := newTelemetry(cfg)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		metadata:    openfeature.Metadata{Name: ProviderName},
		telemetry:   tel,
		logger:      cfg.logger.With().Str("component", "rollout").Logger(),
		initTimeout: cfg.initTimeout,
	}

	if cfg.circuitThreshold > 0 {
		p.breaker = circuit.New(circuit.Config{
			MaxFailures:   cfg.circuitThreshold,
			Timeout:       cfg.circuitTimeout,
			OnStateChange: p.onCircuitStateChange,
		})
		s = circuit.Store(s, p.breaker)
	}
	p.store = s

	r, err := resolver.New(s,
		resolver.WithActorExpr(cfg.actorExpr),
		resolver.WithTelemetry(tel),
		resolver.WithLogger(p.logger),
	)
	if err != nil {
		return nil, &ConfigError{Field: "actor_expr", Message: err.Error()}
	}
	p.resolver = r

	return p, nil
}

// NewFromConfig creates a provider that queries the rollout service described
// by cfg. The provider owns the store it builds. Options override the
// matching cfg fields.
func NewFromConfig(cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpStore := remote.NewHTTPStore(remote.Config{
		Endpoint:       cfg.Store.URL(),
		APIKey:         cfg.Store.APIKey,
		Timeout:        cfg.Store.Timeout,
		MaxRetries:     cfg.Store.MaxRetries,
		InitialBackoff: cfg.Store.InitialBackoff,
	})

	base := []Option{
		WithTelemetry(cfg.Telemetry),
		WithActorExpr(cfg.ActorExpr),
		WithCircuitBreaker(cfg.CircuitBreaker.Threshold, cfg.CircuitBreaker.Timeout),
	}
	if cfg.InitTimeout > 0 {
		base = append(base, WithInitTimeout(cfg.InitTimeout))
	}

	p, err := New(httpStore, append(base, opts...)...)
	if err != nil {
		_ = httpStore.Close()
		return nil, err
	}
	p.owned = httpStore

	p.logger.Debug().Str("endpoint", httpStore.Endpoint()).Msg("rollout store configured")
	return p, nil
}

// Build creates a provider over s, or over a rollout service configured from
// the environment when s is nil. See LoadConfig for the variables read.
func Build(s store.Store, opts ...Option) (*Provider, error) {
	if s != nil {
		return New(s, opts...)
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

func newTelemetry(cfg *providerConfig) (telemetry.Provider, error) {
	if !cfg.telemetryEnabled {
		return telemetry.NewNoOp(), nil
	}

	var (
		tel *telemetry.OTelProvider
		err error
	)
	if cfg.tracerProvider != nil {
		tel, err = telemetry.NewOTelWith(cfg.tracerProvider, cfg.meterProvider)
	} else {
		tel, err = telemetry.NewOTel()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}
	return tel, nil
}

func (p *Provider) onCircuitStateChange(from, to circuit.State) {
	p.telemetry.RecordCircuitState(context.Background(), to.String())
	p.logger.Warn().
		Stringer("from", from).
		Stringer("to", to).
		Msg("rollout store circuit changed state")
}

// Metadata returns the provider metadata.
func (p *Provider) Metadata() openfeature.Metadata {
	return p.metadata
}

// Hooks returns no provider hooks.
func (p *Provider) Hooks() []openfeature.Hook {
	return nil
}

// Init checks that the store is reachable when it supports health checks.
// A failure keeps the provider out of the READY state.
func (p *Provider) Init(evaluationContext openfeature.EvaluationContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.initTimeout)
	defer cancel()

	if err := p.HealthCheck(ctx); err != nil {
		p.logger.Error().Err(err).Msg("rollout store is not healthy")
		return err
	}

	p.logger.Info().Msg("rollout provider ready")
	return nil
}

// Shutdown closes the store when the provider built it.
func (p *Provider) Shutdown() {
	if p.owned != nil {
		if err := p.owned.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to close rollout store")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := p.telemetry.Shutdown(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("failed to shut down telemetry")
	}
}

// HealthCheck runs the store health check. Stores without one are healthy.
func (p *Provider) HealthCheck(ctx context.Context) error {
	hc, ok := p.store.(store.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("rollout store health check: %w", err)
	}
	return nil
}

// CircuitStats returns the breaker statistics, or false when no circuit
// breaker is configured.
func (p *Provider) CircuitStats() (circuit.Stats, bool) {
	if p.breaker == nil {
		return circuit.Stats{}, false
	}
	return p.breaker.GetStats(), true
}

// ResolveBoolean asks the store whether flag is active for the context's
// targeting key.
func (p *Provider) ResolveBoolean(ctx context.Context, flag string, defaultValue bool, flatCtx map[string]any) Details[bool] {
	return p.resolver.Boolean(ctx, flag, defaultValue, flatCtx)
}

// ResolveNumber always fails with TYPE_MISMATCH.
func (p *Provider) ResolveNumber(ctx context.Context, flag string, defaultValue float64, flatCtx map[string]any) Details[float64] {
	return resolver.Unsupported(ctx, p.resolver, domain.KindNumber, flag, defaultValue)
}

// ResolveInteger always fails with TYPE_MISMATCH.
func (p *Provider) ResolveInteger(ctx context.Context, flag string, defaultValue int64, flatCtx map[string]any) Details[int64] {
	return resolver.Unsupported(ctx, p.resolver, domain.KindInteger, flag, defaultValue)
}

// ResolveFloat always fails with TYPE_MISMATCH.
func (p *Provider) ResolveFloat(ctx context.Context, flag string, defaultValue float64, flatCtx map[string]any) Details[float64] {
	return resolver.Unsupported(ctx, p.resolver, domain.KindFloat, flag, defaultValue)
}

// ResolveString always fails with TYPE_MISMATCH.
func (p *Provider) ResolveString(ctx context.Context, flag string, defaultValue string, flatCtx map[string]any) Details[string] {
	return resolver.Unsupported(ctx, p.resolver, domain.KindString, flag, defaultValue)
}

// ResolveObject always fails with TYPE_MISMATCH. The default is returned
// as is, nested structures included.
func (p *Provider) ResolveObject(ctx context.Context, flag string, defaultValue any, flatCtx map[string]any) Details[any] {
	return resolver.Unsupported(ctx, p.resolver, domain.KindObject, flag, defaultValue)
}

// BooleanEvaluation implements openfeature.FeatureProvider.
func (p *Provider) BooleanEvaluation(ctx context.Context, flag string, defaultValue bool, flatCtx openfeature.FlattenedContext) openfeature.BoolResolutionDetail {
	d := p.ResolveBoolean(ctx, flag, defaultValue, flatCtx)
	return openfeature.BoolResolutionDetail{
		Value:                    d.Value,
		ProviderResolutionDetail: resolutionDetail(d),
	}
}

// StringEvaluation implements openfeature.FeatureProvider.
func (p *Provider) StringEvaluation(ctx context.Context, flag string, defaultValue string, flatCtx openfeature.FlattenedContext) openfeature.StringResolutionDetail {
	d := p.ResolveString(ctx, flag, defaultValue, flatCtx)
	return openfeature.StringResolutionDetail{
		Value:                    d.Value,
		ProviderResolutionDetail: resolutionDetail(d),
	}
}

// FloatEvaluation implements openfeature.FeatureProvider.
func (p *Provider) FloatEvaluation(ctx context.Context, flag string, defaultValue float64, flatCtx openfeature.FlattenedContext) openfeature.FloatResolutionDetail {
	d := p.ResolveFloat(ctx, flag, defaultValue, flatCtx)
	return openfeature.FloatResolutionDetail{
		Value:                    d.Value,
		ProviderResolutionDetail: resolutionDetail(d),
	}
}

// IntEvaluation implements openfeature.FeatureProvider.
func (p *Provider) IntEvaluation(ctx context.Context, flag string, defaultValue int64, flatCtx openfeature.FlattenedContext) openfeature.IntResolutionDetail {
	d := p.ResolveInteger(ctx, flag, defaultValue, flatCtx)
	return openfeature.IntResolutionDetail{
		Value:                    d.Value,
		ProviderResolutionDetail: resolutionDetail(d),
	}
}

// ObjectEvaluation implements openfeature.FeatureProvider.
func (p *Provider) ObjectEvaluation(ctx context.Context, flag string, defaultValue any, flatCtx openfeature.FlattenedContext) openfeature.InterfaceResolutionDetail {
	d := p.ResolveObject(ctx, flag, defaultValue, flatCtx)
	return openfeature.InterfaceResolutionDetail{
		Value:                    d.Value,
		ProviderResolutionDetail: resolutionDetail(d),
	}
}

// resolutionDetail converts Details into the SDK's provider detail.
func resolutionDetail[T any](d Details[T]) openfeature.ProviderResolutionDetail {
	detail := openfeature.ProviderResolutionDetail{
		Reason:  openfeature.Reason(d.Reason),
		Variant: d.Variant,
	}
	if d.FlagMetadata != nil {
		detail.FlagMetadata = openfeature.FlagMetadata(d.FlagMetadata)
	}
	if d.IsError() {
		detail.ResolutionError = resolutionError(d.ErrorCode, d.ErrorMessage)
	}
	return detail
}

func resolutionError(code ErrorCode, msg string) openfeature.ResolutionError {
	switch code {
	case domain.ErrorTypeMismatch:
		return openfeature.NewTypeMismatchResolutionError(msg)
	case domain.ErrorInvalidContext:
		return openfeature.NewInvalidContextResolutionError(msg)
	case domain.ErrorFlagNotFound:
		return openfeature.NewFlagNotFoundResolutionError(msg)
	case domain.ErrorParse:
		return openfeature.NewParseErrorResolutionError(msg)
	case domain.ErrorProviderNotReady:
		return openfeature.NewProviderNotReadyResolutionError(msg)
	case domain.ErrorTargetingKeyMissing:
		return openfeature.NewTargetingKeyMissingResolutionError(msg)
	default:
		return openfeature.NewGeneralResolutionError(msg)
	}
}
