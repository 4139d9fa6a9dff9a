package rollout

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/open-feature/go-sdk/openfeature"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/circuit"
	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/store"
)

// newTestStore returns the store used by the reference scenarios: every
// flag is off except color-palette-experiment for actor 123.
func newTestStore() *store.Mock {
	mock := store.NewMock()
	mock.IsActiveFunc = func(ctx context.Context, flag string, actor store.Actor) (bool, error) {
		return flag == "color-palette-experiment" && actor.Valid && actor.ID == "123", nil
	}
	return mock
}

func newTestProvider(t *testing.T, s store.Store, opts ...Option) *Provider {
	t.Helper()
	p, err := New(s, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)
	return p
}

// TestNew_RequiresStore tests constructor validation
func TestNew_RequiresStore(t *testing.T) {
	p, err := New(nil)
	assert.Nil(t, p)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

// TestNew_InvalidActorExpr tests that a broken expression fails construction
func TestNew_InvalidActorExpr(t *testing.T) {
	_, err := New(store.NewMock(), WithActorExpr("user.("))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

// TestProvider_Metadata tests the provider name
func TestProvider_Metadata(t *testing.T) {
	p := newTestProvider(t, store.NewMock())

	assert.Equal(t, "rollout Provider", p.Metadata().Name)
	assert.Equal(t, p.Metadata(), p.Metadata())
	assert.Nil(t, p.Hooks())
}

// TestProvider_ResolveBoolean tests the reference boolean scenarios
func TestProvider_ResolveBoolean(t *testing.T) {
	p := newTestProvider(t, newTestStore())
	ctx := context.Background()

	t.Run("inactive flag without context", func(t *testing.T) {
		details := p.ResolveBoolean(ctx, "boolean-flag", true, nil)
		assert.False(t, details.Value)
		assert.Equal(t, ReasonUnknown, details.Reason)
		assert.Empty(t, details.ErrorCode)
		assert.Empty(t, details.Variant)
	})

	t.Run("active for targeted actor", func(t *testing.T) {
		details := p.ResolveBoolean(ctx, "color-palette-experiment", false,
			map[string]any{openfeature.TargetingKey: "123"})
		assert.True(t, details.Value)
		assert.Equal(t, ReasonUnknown, details.Reason)
	})

	t.Run("inactive for other context", func(t *testing.T) {
		details := p.ResolveBoolean(ctx, "color-palette-experiment", true,
			map[string]any{"context": "dummy"})
		assert.False(t, details.Value)
		assert.Equal(t, ReasonUnknown, details.Reason)
	})
}

// TestProvider_TypeMismatch tests every unsupported kind
func TestProvider_TypeMismatch(t *testing.T) {
	mock := store.NewMock()
	p := newTestProvider(t, mock)
	ctx := context.Background()
	flatCtx := map[string]any{openfeature.TargetingKey: "123"}

	number := p.ResolveNumber(ctx, "number-flag", 1.0, flatCtx)
	assert.Equal(t, 1.0, number.Value)
	assert.Equal(t, ReasonError, number.Reason)
	assert.Equal(t, ErrorTypeMismatch, number.ErrorCode)
	assert.Equal(t, "Rollout does not support numeric flag values", number.ErrorMessage)

	integer := p.ResolveInteger(ctx, "integer-flag", 1, flatCtx)
	assert.Equal(t, int64(1), integer.Value)
	assert.Equal(t, ErrorTypeMismatch, integer.ErrorCode)
	assert.Equal(t, "Rollout does not support numeric flag values", integer.ErrorMessage)

	float := p.ResolveFloat(ctx, "float-flag", 1.1, flatCtx)
	assert.Equal(t, 1.1, float.Value)
	assert.Equal(t, ErrorTypeMismatch, float.ErrorCode)
	assert.Equal(t, "Rollout does not support numeric flag values", float.ErrorMessage)

	str := p.ResolveString(ctx, "string-flag", "default", flatCtx)
	assert.Equal(t, "default", str.Value)
	assert.Equal(t, ErrorTypeMismatch, str.ErrorCode)
	assert.Equal(t, "Rollout does not support string flag values", str.ErrorMessage)

	def := map[string]any{"a": "b", "nested": map[string]any{"list": []any{1, 2}}}
	object := p.ResolveObject(ctx, "object-flag", def, flatCtx)
	assert.Equal(t, def, object.Value)
	assert.Equal(t, ErrorTypeMismatch, object.ErrorCode)
	assert.Equal(t, "Rollout does not support object flag values", object.ErrorMessage)
	assert.Empty(t, object.Variant)

	assert.Empty(t, mock.Calls(), "unsupported kinds never reach the store")
}

// TestProvider_StoreFailure tests that store errors surface as GENERAL
func TestProvider_StoreFailure(t *testing.T) {
	mock := store.NewMock()
	mock.IsActiveFunc = func(ctx context.Context, flag string, actor store.Actor) (bool, error) {
		return false, errors.New("connection reset")
	}

	var logs bytes.Buffer
	p := newTestProvider(t, mock, WithLogger(zerolog.New(&logs)))

	details := p.ResolveBoolean(context.Background(), "boolean-flag", true, nil)
	assert.True(t, details.Value)
	assert.Equal(t, ReasonError, details.Reason)
	assert.Equal(t, ErrorGeneral, details.ErrorCode)
	assert.Contains(t, details.ErrorMessage, "connection reset")
	assert.Contains(t, logs.String(), `"component":"rollout"`)

	sdk := p.BooleanEvaluation(context.Background(), "boolean-flag", true, nil)
	assert.True(t, sdk.Value)
	assert.Equal(t, openfeature.ErrorReason, sdk.Reason)
	assert.Equal(t, openfeature.GeneralCode, sdk.ResolutionDetail().ErrorCode)
}

// TestProvider_SDKEvaluations tests the FeatureProvider methods directly
func TestProvider_SDKEvaluations(t *testing.T) {
	p := newTestProvider(t, newTestStore())
	ctx := context.Background()
	flatCtx := openfeature.FlattenedContext{openfeature.TargetingKey: "123"}

	b := p.BooleanEvaluation(ctx, "color-palette-experiment", false, flatCtx)
	assert.True(t, b.Value)
	assert.Equal(t, openfeature.UnknownReason, b.Reason)
	assert.Empty(t, b.Variant)
	assert.Empty(t, b.ResolutionDetail().ErrorCode)

	tests := []struct {
		name    string
		detail  openfeature.ProviderResolutionDetail
		message string
	}{
		{"string", p.StringEvaluation(ctx, "f", "d", flatCtx).ProviderResolutionDetail, "Rollout does not support string flag values"},
		{"float", p.FloatEvaluation(ctx, "f", 1.5, flatCtx).ProviderResolutionDetail, "Rollout does not support numeric flag values"},
		{"int", p.IntEvaluation(ctx, "f", 3, flatCtx).ProviderResolutionDetail, "Rollout does not support numeric flag values"},
		{"object", p.ObjectEvaluation(ctx, "f", nil, flatCtx).ProviderResolutionDetail, "Rollout does not support object flag values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution := tt.detail.ResolutionDetail()
			assert.Equal(t, openfeature.ErrorReason, resolution.Reason)
			assert.Equal(t, openfeature.TypeMismatchCode, resolution.ErrorCode)
			assert.Equal(t, tt.message, resolution.ErrorMessage)
			assert.Empty(t, resolution.Variant)
		})
	}

	assert.Equal(t, "d", p.StringEvaluation(ctx, "f", "d", flatCtx).Value)
	assert.Equal(t, 1.5, p.FloatEvaluation(ctx, "f", 1.5, flatCtx).Value)
	assert.Equal(t, int64(3), p.IntEvaluation(ctx, "f", 3, flatCtx).Value)
	assert.Nil(t, p.ObjectEvaluation(ctx, "f", nil, flatCtx).Value)
}

// TestProvider_OpenFeatureClient tests the provider through the SDK client
func TestProvider_OpenFeatureClient(t *testing.T) {
	p, err := New(newTestStore())
	require.NoError(t, err)

	require.NoError(t, openfeature.SetNamedProviderAndWait("rollout-client-test", p))
	client := openfeature.NewClient("rollout-client-test")
	ctx := context.Background()

	evalCtx := openfeature.NewEvaluationContext("123", map[string]any{"country": "BR"})

	enabled, err := client.BooleanValueDetails(ctx, "color-palette-experiment", false, evalCtx)
	require.NoError(t, err)
	assert.True(t, enabled.Value)
	assert.Equal(t, openfeature.UnknownReason, enabled.Reason)

	disabled, err := client.BooleanValueDetails(ctx, "boolean-flag", true, openfeature.EvaluationContext{})
	require.NoError(t, err)
	assert.False(t, disabled.Value)

	str, err := client.StringValueDetails(ctx, "string-flag", "fallback", evalCtx)
	assert.Error(t, err)
	assert.Equal(t, "fallback", str.Value)
	assert.Equal(t, openfeature.ErrorReason, str.Reason)
	assert.Equal(t, openfeature.TypeMismatchCode, str.ErrorCode)

	num, err := client.IntValueDetails(ctx, "integer-flag", 42, evalCtx)
	assert.Error(t, err)
	assert.Equal(t, int64(42), num.Value)
	assert.Equal(t, openfeature.TypeMismatchCode, num.ErrorCode)
}

// TestProvider_InitHealthCheck tests that Init health-checks the store
func TestProvider_InitHealthCheck(t *testing.T) {
	mock := store.NewMock()
	p := newTestProvider(t, mock)

	require.NoError(t, p.Init(openfeature.EvaluationContext{}))
	assert.Equal(t, 1, mock.HealthCheckCalls)

	mock.HealthCheckFunc = func(ctx context.Context) error {
		return errors.New("unreachable")
	}
	err := p.Init(openfeature.EvaluationContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

// TestProvider_InitWithoutHealthChecker tests stores without health checks
func TestProvider_InitWithoutHealthChecker(t *testing.T) {
	s := store.Func(func(ctx context.Context, flag string, actor store.Actor) (bool, error) {
		return true, nil
	})
	p := newTestProvider(t, s)

	assert.NoError(t, p.Init(openfeature.EvaluationContext{}))
	assert.True(t, p.ResolveBoolean(context.Background(), "f", false, nil).Value)
}

// TestProvider_ShutdownKeepsInjectedStore tests store ownership
func TestProvider_ShutdownKeepsInjectedStore(t *testing.T) {
	mock := store.NewMock()
	p, err := New(mock)
	require.NoError(t, err)

	p.Shutdown()
	assert.Equal(t, 0, mock.CloseCalls, "injected stores belong to the caller")
}

// TestProvider_CircuitBreaker tests that an open circuit fails fast
func TestProvider_CircuitBreaker(t *testing.T) {
	mock := store.NewMock()
	mock.IsActiveFunc = func(ctx context.Context, flag string, actor store.Actor) (bool, error) {
		return false, errors.New("store down")
	}

	p := newTestProvider(t, mock, WithCircuitBreaker(2, time.Minute))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		details := p.ResolveBoolean(ctx, "f", true, nil)
		assert.Equal(t, ErrorGeneral, details.ErrorCode)
	}

	details := p.ResolveBoolean(ctx, "f", true, nil)
	assert.True(t, details.Value)
	assert.Equal(t, ErrorGeneral, details.ErrorCode)
	assert.Contains(t, details.ErrorMessage, "circuit breaker is open")
	assert.Len(t, mock.Calls(), 2, "open circuit does not reach the store")

	stats, ok := p.CircuitStats()
	require.True(t, ok)
	assert.Equal(t, circuit.StateOpen, stats.State)
	assert.Equal(t, int64(1), stats.TotalRejections)
}

// TestProvider_CircuitStatsDisabled tests the accessor without a breaker
func TestProvider_CircuitStatsDisabled(t *testing.T) {
	p := newTestProvider(t, store.NewMock())

	_, ok := p.CircuitStats()
	assert.False(t, ok)
}

// TestProvider_ActorExpr tests actor derivation without a targeting key
func TestProvider_ActorExpr(t *testing.T) {
	p := newTestProvider(t, newTestStore(), WithActorExpr("user.id"))
	ctx := context.Background()

	details := p.ResolveBoolean(ctx, "color-palette-experiment", false,
		map[string]any{"user": map[string]any{"id": 123}})
	assert.True(t, details.Value)

	details = p.ResolveBoolean(ctx, "color-palette-experiment", true,
		map[string]any{"user": map[string]any{"id": 456}})
	assert.False(t, details.Value)
}

// TestProvider_Telemetry tests spans and metrics on explicit OTel providers
func TestProvider_Telemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	p := newTestProvider(t, newTestStore(), WithOTel(tp, mp))
	ctx := context.Background()

	p.ResolveBoolean(ctx, "color-palette-experiment", false, map[string]any{openfeature.TargetingKey: "123"})
	p.ResolveString(ctx, "string-flag", "d", nil)

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "rollout.resolve", recorder.Ended()[0].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["rollout.provider.resolutions"])
	assert.True(t, names["rollout.store.calls"])
}

// TestWithOTel_RequiresProviders tests option validation
func TestWithOTel_RequiresProviders(t *testing.T) {
	_, err := New(store.NewMock(), WithOTel(nil, nil))
	assert.True(t, IsConfigError(err))
}

// TestProvider_ConcurrentResolutions tests concurrent use of one provider
func TestProvider_ConcurrentResolutions(t *testing.T) {
	p := newTestProvider(t, newTestStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			details := p.ResolveBoolean(ctx, "color-palette-experiment", false,
				map[string]any{openfeature.TargetingKey: "123"})
			assert.True(t, details.Value)
		}()
		go func() {
			defer wg.Done()
			details := p.ResolveObject(ctx, "object-flag", map[string]any{"k": i}, nil)
			assert.Equal(t, ErrorTypeMismatch, details.ErrorCode)
		}()
	}
	wg.Wait()
}
