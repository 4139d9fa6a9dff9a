package rollout

import (
	"github.com/OrlandoBitencourt/openfeature-rollout/internal/domain"
)

// Details is the uniform resolution result returned by the Resolve* methods.
type Details[T any] = domain.Details[T]

// Reason explains how a resolution outcome was produced.
type Reason = domain.Reason

// ErrorCode classifies a failed resolution.
type ErrorCode = domain.ErrorCode

// Kind is the value type a resolution was requested for.
type Kind = domain.Kind

const (
	KindBoolean = domain.KindBoolean
	KindNumber  = domain.KindNumber
	KindInteger = domain.KindInteger
	KindFloat   = domain.KindFloat
	KindString  = domain.KindString
	KindObject  = domain.KindObject
)

const (
	ReasonStatic         = domain.ReasonStatic
	ReasonDefault        = domain.ReasonDefault
	ReasonTargetingMatch = domain.ReasonTargetingMatch
	ReasonSplit          = domain.ReasonSplit
	ReasonCached         = domain.ReasonCached
	ReasonDisabled       = domain.ReasonDisabled
	ReasonUnknown        = domain.ReasonUnknown
	ReasonStale          = domain.ReasonStale
	ReasonError          = domain.ReasonError
)

const (
	ErrorTypeMismatch   = domain.ErrorTypeMismatch
	ErrorGeneral        = domain.ErrorGeneral
	ErrorInvalidContext = domain.ErrorInvalidContext
)

// ParseKind maps a kind name ("boolean", "number", "integer", "float",
// "string", "object") to its Kind.
func ParseKind(name string) (Kind, error) {
	return domain.ParseKind(name)
}
