package commands

import (
	"context"
	"fmt"

	"github.com/open-feature/go-sdk/openfeature"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	rollout "github.com/OrlandoBitencourt/openfeature-rollout"
	"github.com/OrlandoBitencourt/openfeature-rollout/internal/cli"
)

// clientDomain is the OpenFeature domain the provider is registered under
const clientDomain = "rolloutctl"

var (
	targetingKey string
	defaultValue string
	attributes   map[string]string
	strict       bool
)

var evalCmd = &cobra.Command{
	Use:   "eval <kind> <flag>",
	Short: "Evaluate a feature flag",
	Long: `Evaluate a feature flag through the OpenFeature SDK.

Kind is one of boolean, number, integer, float, string or object. Only
boolean flags are backed by the rollout service; other kinds resolve to the
default with TYPE_MISMATCH.

Examples:
  rolloutctl eval boolean new-checkout --targeting-key 123
  rolloutctl eval boolean new-checkout --attr country=BR --default true
  rolloutctl eval object layout --default '{"columns": 2}' --format yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := rollout.ParseKind(args[0])
		if err != nil {
			return err
		}
		flag := args[1]

		f, err := outputFormat()
		if err != nil {
			return err
		}

		p, _, err := newProvider()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		defer p.Shutdown()

		if err := openfeature.SetNamedProviderAndWait(clientDomain, p); err != nil {
			return fmt.Errorf("failed to register provider: %w", err)
		}

		client := openfeature.NewClient(clientDomain)
		evalCtx := openfeature.NewEvaluationContext(targetingKey, contextAttributes(attributes))

		result, err := evaluate(cmd.Context(), client, kind, flag, defaultValue, evalCtx)
		if err != nil {
			return err
		}

		if err := cli.PrintResolution(cmd.OutOrStdout(), result, f); err != nil {
			return err
		}

		if strict && result.ErrorCode != "" {
			return fmt.Errorf("flag %s resolved with error %s", flag, result.ErrorCode)
		}
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&targetingKey, "targeting-key", "", "Targeting key identifying the actor")
	evalCmd.Flags().StringVar(&defaultValue, "default", "", "Default value returned on errors")
	evalCmd.Flags().StringToStringVar(&attributes, "attr", nil, "Additional context attributes (key=value)")
	evalCmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when the resolution fails")
	rootCmd.AddCommand(evalCmd)
}

func contextAttributes(attrs map[string]string) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// evaluate resolves flag with the client method matching kind. A resolution
// error is part of the result, not a command failure.
func evaluate(ctx context.Context, client *openfeature.Client, kind rollout.Kind, flag, raw string, evalCtx openfeature.EvaluationContext) (cli.Resolution, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	switch kind {
	case rollout.KindBoolean:
		def, err := parseDefault(raw, false, cast.ToBoolE)
		if err != nil {
			return cli.Resolution{}, err
		}
		d, _ := client.BooleanValueDetails(ctx, flag, def, evalCtx)
		return resolution(flag, kind, d.Value, d.EvaluationDetails), nil

	case rollout.KindString:
		d, _ := client.StringValueDetails(ctx, flag, raw, evalCtx)
		return resolution(flag, kind, d.Value, d.EvaluationDetails), nil

	case rollout.KindNumber, rollout.KindFloat:
		def, err := parseDefault(raw, 0, cast.ToFloat64E)
		if err != nil {
			return cli.Resolution{}, err
		}
		d, _ := client.FloatValueDetails(ctx, flag, def, evalCtx)
		return resolution(flag, kind, d.Value, d.EvaluationDetails), nil

	case rollout.KindInteger:
		def, err := parseDefault(raw, 0, cast.ToInt64E)
		if err != nil {
			return cli.Resolution{}, err
		}
		d, _ := client.IntValueDetails(ctx, flag, def, evalCtx)
		return resolution(flag, kind, d.Value, d.EvaluationDetails), nil

	case rollout.KindObject:
		var def any
		if raw != "" {
			if err := yaml.Unmarshal([]byte(raw), &def); err != nil {
				return cli.Resolution{}, fmt.Errorf("invalid object default: %w", err)
			}
		}
		d, _ := client.ObjectValueDetails(ctx, flag, def, evalCtx)
		return resolution(flag, kind, d.Value, d.EvaluationDetails), nil

	default:
		return cli.Resolution{}, fmt.Errorf("unsupported kind: %s", kind)
	}
}

func parseDefault[T any](raw string, zero T, parse func(any) (T, error)) (T, error) {
	if raw == "" {
		return zero, nil
	}
	v, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("invalid default %q: %w", raw, err)
	}
	return v, nil
}

func resolution(flag string, kind rollout.Kind, value any, d openfeature.EvaluationDetails) cli.Resolution {
	return cli.Resolution{
		Flag:         flag,
		Kind:         kind.String(),
		Value:        value,
		Reason:       string(d.Reason),
		Variant:      d.Variant,
		ErrorCode:    string(d.ErrorCode),
		ErrorMessage: d.ErrorMessage,
	}
}
