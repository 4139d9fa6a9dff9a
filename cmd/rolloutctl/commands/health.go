package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrlandoBitencourt/openfeature-rollout/internal/cli"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the rollout service",
	Long: `Check that the rollout service is reachable and healthy.

Examples:
  rolloutctl health
  rolloutctl health --endpoint http://localhost:6380 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}

		p, cfg, err := newProvider()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		defer p.Shutdown()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.InitTimeout)
		defer cancel()

		h := cli.Health{Endpoint: cfg.Store.URL(), Status: "ok"}
		checkErr := p.HealthCheck(ctx)
		if checkErr != nil {
			h.Status = "unhealthy"
			h.Error = checkErr.Error()
		}

		if err := cli.PrintHealth(cmd.OutOrStdout(), h, f); err != nil {
			return err
		}
		return checkErr
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
