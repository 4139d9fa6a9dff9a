package rollout

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OrlandoBitencourt/openfeature-rollout/internal/domain"
	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/circuit"
)

// TestConfigError_Error tests ConfigError formatting
func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "store.port", Message: "invalid port 0"}
	assert.Equal(t, "configuration error [store.port]: invalid port 0", err.Error())
}

// TestErrorHelpers tests the Is* helpers through wrapping
func TestErrorHelpers(t *testing.T) {
	cfgErr := fmt.Errorf("setup: %w", &ConfigError{Field: "f", Message: "m"})
	storeErr := fmt.Errorf("resolve: %w", domain.NewStoreError("flag", errors.New("boom")))
	openErr := fmt.Errorf("query: %w", &circuit.CircuitOpenError{State: circuit.StateOpen})

	assert.True(t, IsConfigError(cfgErr))
	assert.False(t, IsConfigError(storeErr))

	assert.True(t, IsStoreError(storeErr))
	assert.False(t, IsStoreError(cfgErr))

	assert.True(t, IsCircuitOpen(openErr))
	assert.False(t, IsCircuitOpen(errors.New("other")))
}
