package domain

// Kind is the value type a resolution was requested for. It is decided by the
// operation the caller invoked, never by the runtime type of the default.
type Kind int

const (
	KindBoolean Kind = iota
	KindNumber
	KindInteger
	KindFloat
	KindString
	KindObject
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "boolean", "bool":
		return KindBoolean, nil
	case "number":
		return KindNumber, nil
	case "integer", "int":
		return KindInteger, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "object":
		return KindObject, nil
	default:
		return 0, NewValidationError("unknown flag kind: " + name)
	}
}

// Reason explains how a resolution outcome was produced.
type Reason string

const (
	ReasonStatic         Reason = "STATIC"
	ReasonDefault        Reason = "DEFAULT"
	ReasonTargetingMatch Reason = "TARGETING_MATCH"
	ReasonSplit          Reason = "SPLIT"
	ReasonCached         Reason = "CACHED"
	ReasonDisabled       Reason = "DISABLED"
	ReasonUnknown        Reason = "UNKNOWN"
	ReasonStale          Reason = "STALE"
	ReasonError          Reason = "ERROR"
)

// ErrorCode classifies a failed resolution.
type ErrorCode string

const (
	ErrorProviderNotReady    ErrorCode = "PROVIDER_NOT_READY"
	ErrorFlagNotFound        ErrorCode = "FLAG_NOT_FOUND"
	ErrorParse               ErrorCode = "PARSE_ERROR"
	ErrorTypeMismatch        ErrorCode = "TYPE_MISMATCH"
	ErrorTargetingKeyMissing ErrorCode = "TARGETING_KEY_MISSING"
	ErrorInvalidContext      ErrorCode = "INVALID_CONTEXT"
	ErrorGeneral             ErrorCode = "GENERAL"
)

// Details is the uniform result of a resolution, parametrized over the value
// type. Every field except Value is type independent.
type Details[T any] struct {
	Value        T
	Reason       Reason
	Variant      string
	ErrorCode    ErrorCode
	ErrorMessage string
	FlagMetadata map[string]any
}

// IsError reports whether the resolution fell back to the caller's default.
func (d Details[T]) IsError() bool {
	return d.ErrorCode != ""
}
