package resolver

import (
	"fmt"

	"github.com/OrlandoBitencourt/openfeature-rollout/internal/domain"
)

// capability describes what the backing store can do for a value kind.
type capability struct {
	supported bool
	label     string
}

// capabilities is the negotiation table. The store only answers on/off
// questions, so booleans are the single supported kind.
var capabilities = map[domain.Kind]capability{
	domain.KindBoolean: {supported: true, label: "boolean"},
	domain.KindNumber:  {label: "numeric"},
	domain.KindInteger: {label: "numeric"},
	domain.KindFloat:   {label: "numeric"},
	domain.KindString:  {label: "string"},
	domain.KindObject:  {label: "object"},
}

// Supported reports whether the backing store can serve kind.
func Supported(kind domain.Kind) bool {
	return capabilities[kind].supported
}

// UnsupportedMessage is the fixed explanation returned when kind is rejected.
func UnsupportedMessage(kind domain.Kind) string {
	label := capabilities[kind].label
	if label == "" {
		label = kind.String()
	}
	return fmt.Sprintf("Rollout does not support %s flag values", label)
}

// ErrorResponse builds the uniform error-shaped result: the caller's default,
// reason ERROR, no variant and no metadata.
func ErrorResponse[T any](defaultValue T, code domain.ErrorCode, message string) domain.Details[T] {
	return domain.Details[T]{
		Value:        defaultValue,
		Reason:       domain.ReasonError,
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

// Reject returns the capability rejection for kind. It never consults the
// store and depends on neither the flag key nor the context.
func Reject[T any](kind domain.Kind, defaultValue T) domain.Details[T] {
	return ErrorResponse(defaultValue, domain.ErrorTypeMismatch, UnsupportedMessage(kind))
}
