package rollout

import (
	"errors"
	"fmt"

	"github.com/OrlandoBitencourt/openfeature-rollout/internal/domain"
	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/circuit"
)

// ConfigError indicates invalid configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Field, e.Message)
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsStoreError reports whether err is a failure of the backing rollout store.
func IsStoreError(err error) bool {
	return domain.IsStoreError(err)
}

// IsCircuitOpen reports whether err was caused by an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return circuit.IsCircuitOpen(err)
}
