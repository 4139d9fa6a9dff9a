// Package remote implements store.Store against a rollout service reachable
// over HTTP. The service owns every activation decision.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/OrlandoBitencourt/openfeature-rollout/pkg/store"
)

const (
	activationPath = "/api/v1/features/%s/active"
	healthPath     = "/api/v1/health"

	defaultInitialBackoff = 100 * time.Millisecond
	maxBackoff            = 2 * time.Second
)

// HTTPStore implements store.Store using HTTP
type HTTPStore struct {
	endpoint       string
	apiKey         string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
}

var (
	_ store.Store         = (*HTTPStore)(nil)
	_ store.HealthChecker = (*HTTPStore)(nil)
)

// NewHTTPStore creates a new rollout service client
func NewHTTPStore(config Config) *HTTPStore {
	initial := config.InitialBackoff
	if initial <= 0 {
		initial = defaultInitialBackoff
	}

	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &HTTPStore{
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		apiKey:   config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		maxRetries:     maxRetries,
		initialBackoff: initial,
	}
}

// Endpoint returns the service base URL.
func (c *HTTPStore) Endpoint() string {
	return c.endpoint
}

// IsActive asks the service whether flag is active for actor. The actor query
// parameter is omitted for the absent actor.
func (c *HTTPStore) IsActive(ctx context.Context, flag string, actor store.Actor) (bool, error) {
	u := c.endpoint + fmt.Sprintf(activationPath, url.PathEscape(flag))
	if actor.Valid {
		u += "?" + url.Values{"actor": []string{actor.ID}}.Encode()
	}

	var resp ActivationResponse
	if err := c.doRequest(ctx, http.MethodGet, u, &resp); err != nil {
		return false, fmt.Errorf("activation query for %s failed: %w", flag, err)
	}

	return resp.Active, nil
}

// HealthCheck verifies the rollout service is reachable
func (c *HTTPStore) HealthCheck(ctx context.Context) error {
	var health HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, c.endpoint+healthPath, &health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if health.Status != "OK" {
		return fmt.Errorf("unhealthy status: %s", health.Status)
	}

	return nil
}

// Close releases idle connections.
func (c *HTTPStore) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// doRequest performs the request, retrying transient failures with
// exponential backoff.
func (c *HTTPStore) doRequest(ctx context.Context, method, target string, result interface{}) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = maxBackoff

	operation := func() (struct{}, error) {
		err := c.doSingleRequest(ctx, method, target, result)
		if err != nil && (ctx.Err() != nil || !shouldRetry(err)) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
	)
	return err
}

// doSingleRequest performs a single HTTP request
func (c *HTTPStore) doSingleRequest(ctx context.Context, method, target string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &DecodeError{Body: string(respBody), Err: err}
	}

	return nil
}

// shouldRetry retries network errors, 5xx and 429. Malformed bodies and other
// statuses are permanent.
func shouldRetry(err error) bool {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}

	return true
}

// HTTPError represents an HTTP error response
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// DecodeError reports a response body that is not the expected JSON.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to unmarshal response: %v (body: %s)", e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
