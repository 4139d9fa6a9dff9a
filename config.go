package rollout

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces every environment variable read by LoadConfig,
// e.g. ROLLOUT_HOST or ROLLOUT_API_KEY.
const envPrefix = "ROLLOUT"

// Config holds the configuration used when the provider builds its own store.
type Config struct {
	// Store configures the connection to the rollout service
	Store StoreConfig

	// CircuitBreaker guards store queries; a zero Threshold disables it
	CircuitBreaker CircuitBreakerConfig

	// Telemetry enables OpenTelemetry spans and metrics on the global providers
	Telemetry bool

	// ActorExpr derives the actor from the context when no targeting key is set
	ActorExpr string

	// InitTimeout bounds the store health check run when the provider is registered
	InitTimeout time.Duration
}

// StoreConfig configures the connection to the rollout service.
type StoreConfig struct {
	// Endpoint is the full base URL; when set it overrides Scheme, Host and Port
	Endpoint string

	Scheme string
	Host   string
	Port   int

	// APIKey is an optional bearer token
	APIKey string

	// Timeout for a single HTTP request
	Timeout time.Duration

	// MaxRetries for transient failures
	MaxRetries int

	// InitialBackoff is the first retry delay
	InitialBackoff time.Duration
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before opening
	Threshold int

	// Timeout is how long to wait before probing the store again
	Timeout time.Duration
}

// DefaultConfig returns recommended default configuration.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Scheme:         "http",
			Host:           "localhost",
			Port:           8080,
			Timeout:        2 * time.Second,
			MaxRetries:     2,
			InitialBackoff: 100 * time.Millisecond,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Threshold: 5,
			Timeout:   30 * time.Second,
		},
		InitTimeout: 5 * time.Second,
	}
}

// URL returns the base URL of the rollout service.
func (c StoreConfig) URL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("%s://%s", c.Scheme, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Store.Endpoint == "" {
		if c.Store.Host == "" {
			return &ConfigError{Field: "store.host", Message: "host cannot be empty"}
		}
		if c.Store.Port <= 0 || c.Store.Port > 65535 {
			return &ConfigError{Field: "store.port", Message: fmt.Sprintf("invalid port %d", c.Store.Port)}
		}
		if c.Store.Scheme != "http" && c.Store.Scheme != "https" {
			return &ConfigError{Field: "store.scheme", Message: fmt.Sprintf("unsupported scheme %q", c.Store.Scheme)}
		}
	}
	if c.Store.Timeout < 0 {
		return &ConfigError{Field: "store.timeout", Message: "timeout cannot be negative"}
	}
	if c.Store.MaxRetries < 0 {
		return &ConfigError{Field: "store.max_retries", Message: "max retries cannot be negative"}
	}
	if c.CircuitBreaker.Threshold < 0 {
		return &ConfigError{Field: "circuit.threshold", Message: "threshold cannot be negative"}
	}
	return nil
}

// LoadConfig reads configuration from ROLLOUT_* environment variables and,
// when ROLLOUT_CONFIG_FILE names one, a config file. Environment variables
// take precedence over the file, the file over DefaultConfig.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	setConfigDefaults(v)

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Store: StoreConfig{
			Endpoint:       v.GetString("endpoint"),
			Scheme:         v.GetString("scheme"),
			Host:           v.GetString("host"),
			Port:           v.GetInt("port"),
			APIKey:         v.GetString("api_key"),
			Timeout:        v.GetDuration("timeout"),
			MaxRetries:     v.GetInt("max_retries"),
			InitialBackoff: v.GetDuration("initial_backoff"),
		},
		CircuitBreaker: CircuitBreakerConfig{
			Threshold: v.GetInt("circuit_threshold"),
			Timeout:   v.GetDuration("circuit_timeout"),
		},
		Telemetry:   v.GetBool("telemetry"),
		ActorExpr:   v.GetString("actor_expr"),
		InitTimeout: v.GetDuration("init_timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("endpoint", "")
	v.SetDefault("scheme", def.Store.Scheme)
	v.SetDefault("host", def.Store.Host)
	v.SetDefault("port", def.Store.Port)
	v.SetDefault("api_key", "")
	v.SetDefault("timeout", def.Store.Timeout)
	v.SetDefault("max_retries", def.Store.MaxRetries)
	v.SetDefault("initial_backoff", def.Store.InitialBackoff)
	v.SetDefault("circuit_threshold", def.CircuitBreaker.Threshold)
	v.SetDefault("circuit_timeout", def.CircuitBreaker.Timeout)
	v.SetDefault("telemetry", def.Telemetry)
	v.SetDefault("actor_expr", "")
	v.SetDefault("init_timeout", def.InitTimeout)
	v.SetDefault("config_file", "")
}
