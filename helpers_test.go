package rollout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockRolloutServer is a mock rollout service for testing
type MockRolloutServer struct {
	*httptest.Server

	mu       sync.RWMutex
	features map[string]map[string]bool // feature -> actor -> active
	global   map[string]bool
	healthy  bool
	requests int
}

// NewMockRolloutServer creates a new mock rollout service
func NewMockRolloutServer(t *testing.T) *MockRolloutServer {
	t.Helper()

	mock := &MockRolloutServer{
		features: make(map[string]map[string]bool),
		global:   make(map[string]bool),
		healthy:  true,
	}

	mux := http.NewServeMux()

	// GET /api/v1/features/{feature}/active - Activation query
	mux.HandleFunc("/api/v1/features/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		feature := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/features/"), "/active")
		actor := r.URL.Query().Get("actor")

		mock.mu.Lock()
		mock.requests++
		active := mock.global[feature]
		if actors, ok := mock.features[feature]; ok && actor != "" {
			active = active || actors[actor]
		}
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"feature": feature,
			"actor":   actor,
			"active":  active,
		})
	})

	// GET /api/v1/health - Health check
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		healthy := mock.healthy
		mock.mu.RUnlock()

		if !healthy {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
	})

	mock.Server = httptest.NewServer(mux)
	t.Cleanup(mock.Close)
	return mock
}

// Activate turns feature on for every actor
func (m *MockRolloutServer) Activate(feature string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global[feature] = true
}

// ActivateFor turns feature on for a single actor
func (m *MockRolloutServer) ActivateFor(feature, actor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.features[feature] == nil {
		m.features[feature] = make(map[string]bool)
	}
	m.features[feature][actor] = true
}

// SetHealthy controls the health endpoint
func (m *MockRolloutServer) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

// Requests returns the number of activation queries received
func (m *MockRolloutServer) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests
}

// testConfig returns a configuration pointing at server
func testConfig(server *MockRolloutServer) Config {
	cfg := DefaultConfig()
	cfg.Store.Endpoint = server.URL
	cfg.Store.MaxRetries = 0
	cfg.CircuitBreaker.Threshold = 0
	return cfg
}
