package remote

import "time"

// Config configures the connection to a rollout service.
type Config struct {
	// Endpoint is the base URL of the rollout service
	// Example: "http://localhost:6380"
	Endpoint string

	// APIKey is an optional bearer token
	APIKey string

	// Timeout bounds a single HTTP request
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// InitialBackoff is the first retry delay; later delays grow exponentially
	InitialBackoff time.Duration
}

// ActivationResponse is the body returned by the activation endpoint.
type ActivationResponse struct {
	Feature string `json:"feature"`
	Actor   string `json:"actor,omitempty"`
	Active  bool   `json:"active"`
}

// HealthResponse is the body returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
