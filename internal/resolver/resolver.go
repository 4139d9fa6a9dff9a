// Package resolver translates flag-resolution requests onto a boolean-only
// rollout store.
package resolver

import (
	"context"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/open-feature/go-sdk/openfeature"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/OrlandoBitencourt/openfeature-rollout/internal/domain"
	"github.com/OrlandoBitencourt/openfeature-rollout/internal/telemetry"
	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/store"
)

// Resolver holds no mutable state; every method is safe for concurrent use
// as long as the store is.
type Resolver struct {
	store     store.Store
	actorExpr *vm.Program
	telemetry telemetry.Provider
	logger    zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithActorExpr derives the actor from the evaluation context when no
// targeting key is present. The expression sees the flattened context as its
// environment, e.g. "userId" or "account?.owner".
func WithActorExpr(source string) Option {
	return func(r *Resolver) error {
		if source == "" {
			return nil
		}
		program, err := expr.Compile(source, expr.AllowUndefinedVariables())
		if err != nil {
			return domain.NewValidationErrorWithCause("invalid actor expression", err)
		}
		r.actorExpr = program
		return nil
	}
}

// WithTelemetry sets the telemetry provider.
func WithTelemetry(p telemetry.Provider) Option {
	return func(r *Resolver) error {
		if p != nil {
			r.telemetry = p
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) error {
		r.logger = l
		return nil
	}
}

// New creates a resolver over s.
func New(s store.Store, opts ...Option) (*Resolver, error) {
	if s == nil {
		return nil, domain.NewValidationError("rollout store is required")
	}

	r := &Resolver{
		store:     s,
		telemetry: telemetry.NewNoOp(),
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Boolean asks the store whether flag is active for the context's actor. The
// answer is returned verbatim with reason UNKNOWN, since a single boolean
// cannot tell a targeting match from a static or disabled flag. The default
// is only used on the error paths.
func (r *Resolver) Boolean(ctx context.Context, flag string, defaultValue bool, flatCtx map[string]any) domain.Details[bool] {
	ctx, span := r.telemetry.StartSpan(ctx, "rollout.resolve",
		telemetry.WithAttributes(
			telemetry.String("feature_flag.key", flag),
			telemetry.String("feature_flag.kind", domain.KindBoolean.String()),
		))
	defer span.End()

	actor, err := r.Actor(flatCtx)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn().Err(err).Str("flag", flag).Msg("invalid targeting key")
		return r.booleanResult(ctx, flag, ErrorResponse(defaultValue, domain.ErrorInvalidContext, err.Error()))
	}

	start := time.Now()
	active, err := r.store.IsActive(ctx, flag, actor)
	elapsed := time.Since(start)
	r.telemetry.RecordStoreCall(ctx, flag, err == nil, elapsed)

	if err != nil {
		storeErr := domain.NewStoreError(flag, err)
		span.RecordError(storeErr)
		r.logger.Warn().
			Err(err).
			Str("flag", flag).
			Stringer("actor", actor).
			Dur("elapsed", elapsed).
			Msg("rollout store query failed")
		return r.booleanResult(ctx, flag, ErrorResponse(defaultValue, domain.ErrorGeneral, storeErr.Error()))
	}

	span.SetAttributes(telemetry.Bool("feature_flag.active", active))
	r.logger.Debug().
		Str("flag", flag).
		Stringer("actor", actor).
		Bool("active", active).
		Dur("elapsed", elapsed).
		Msg("resolved boolean flag")

	return r.booleanResult(ctx, flag, domain.Details[bool]{
		Value:  active,
		Reason: domain.ReasonUnknown,
	})
}

func (r *Resolver) booleanResult(ctx context.Context, flag string, details domain.Details[bool]) domain.Details[bool] {
	r.record(ctx, flag, domain.KindBoolean, details.Reason, details.ErrorCode)
	return details
}

// Unsupported returns the capability rejection for kind and records it.
func Unsupported[T any](ctx context.Context, r *Resolver, kind domain.Kind, flag string, defaultValue T) domain.Details[T] {
	details := Reject(kind, defaultValue)

	r.logger.Debug().
		Str("flag", flag).
		Stringer("kind", kind).
		Msg("rejected unsupported flag kind")
	r.record(ctx, flag, kind, details.Reason, details.ErrorCode)

	return details
}

func (r *Resolver) record(ctx context.Context, flag string, kind domain.Kind, reason domain.Reason, code domain.ErrorCode) {
	r.telemetry.RecordResolution(ctx, flag, kind.String(), string(reason), string(code))
}

// Actor extracts the actor from the flattened context. Any scalar targeting
// key is accepted and normalized to a string; an empty or missing key is the
// absent actor unless an actor expression yields one. The context is never
// modified.
func (r *Resolver) Actor(flatCtx map[string]any) (store.Actor, error) {
	if raw, ok := flatCtx[openfeature.TargetingKey]; ok && raw != nil {
		id, err := cast.ToStringE(raw)
		if err != nil {
			return store.NoActor(), domain.NewValidationErrorWithCause("targeting key is not a scalar", err)
		}
		if id != "" {
			return store.NewActor(id), nil
		}
	}

	if r.actorExpr == nil || flatCtx == nil {
		return store.NoActor(), nil
	}

	out, err := expr.Run(r.actorExpr, flatCtx)
	if err != nil || out == nil {
		r.logger.Debug().Err(err).Msg("actor expression produced no actor")
		return store.NoActor(), nil
	}

	id, err := cast.ToStringE(out)
	if err != nil || id == "" {
		return store.NoActor(), nil
	}
	return store.NewActor(id), nil
}
