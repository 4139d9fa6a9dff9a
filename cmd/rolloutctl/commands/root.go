package commands

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	rollout "github.com/OrlandoBitencourt/openfeature-rollout"
	"github.com/OrlandoBitencourt/openfeature-rollout/internal/cli"
)

var (
	// Global flags
	endpoint string
	apiKey   string
	timeout  time.Duration
	format   string
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rolloutctl",
	Short: "Evaluate rollout flags through the OpenFeature provider",
	Long: `rolloutctl resolves feature flags against a rollout service using the
same OpenFeature provider applications embed.

Connection settings default to the ROLLOUT_* environment variables.

Examples:
  rolloutctl eval boolean new-checkout --targeting-key 123
  rolloutctl eval string banner-text --default hello --format json
  rolloutctl health --endpoint http://localhost:6380`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Base URL of the rollout service")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// loadConfig reads the environment configuration and applies flag overrides
func loadConfig() (rollout.Config, error) {
	cfg, err := rollout.LoadConfig()
	if err != nil {
		return rollout.Config{}, err
	}

	if endpoint != "" {
		cfg.Store.Endpoint = endpoint
	}
	if apiKey != "" {
		cfg.Store.APIKey = apiKey
	}
	if timeout > 0 {
		cfg.Store.Timeout = timeout
	}
	return cfg, nil
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(format)
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// newProvider builds a provider from the effective configuration
func newProvider() (*rollout.Provider, rollout.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, rollout.Config{}, err
	}

	p, err := rollout.NewFromConfig(cfg, rollout.WithLogger(newLogger()))
	if err != nil {
		return nil, rollout.Config{}, err
	}
	return p, cfg, nil
}
