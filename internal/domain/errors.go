package domain

import (
	"errors"
	"fmt"
)

// -----------------------------
// StoreError
// -----------------------------

// StoreError wraps a failure of the backing rollout store while answering an
// activation query.
type StoreError struct {
	Flag string
	Err  error
}

func NewStoreError(flag string, err error) *StoreError {
	return &StoreError{Flag: flag, Err: err}
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rollout store: flag %s: %v", e.Flag, e.Err)
	}
	return fmt.Sprintf("rollout store: flag %s", e.Flag)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsStoreError(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// -----------------------------
// ValidationError
// -----------------------------

type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		Message: message,
	}
}

func NewValidationErrorWithCause(message string, cause error) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
	}
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
