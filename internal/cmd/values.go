package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
)

var (
	valuesFiles []string
	valuesSet   []string
	valuesEnv   string
)

// valuesCmd shows the effective merged values for a chart.
var valuesCmd = &cobra.Command{
	Use:   "values <chart>",
	Short: "Show the effective merged values",
	Long: `Merge a chart's default values with environment files, -f
overlays, and --set pairs, and print the result as YAML. The output is
exactly what .Values resolves to during a render with the same flags.

Examples:
  chartroom values mysql
  chartroom values -e prod -f local.yaml mysql
  chartroom values --set image.tag=8.4.0 mysql`,
	Args: cobra.ExactArgs(1),
	RunE: runValues,
}

func init() {
	valuesCmd.Flags().StringArrayVarP(&valuesFiles, "values", "f", nil, "Values overlay file (repeatable, later wins)")
	valuesCmd.Flags().StringArrayVar(&valuesSet, "set", nil, "Set a value (key.path=value, repeatable)")
	valuesCmd.Flags().StringVarP(&valuesEnv, "env", "e", "", "Environment value files to apply")

	rootCmd.AddCommand(valuesCmd)
}

func runValues(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	name := args[0]
	c, err := chart.Load(cfg.ChartDir(name))
	if err != nil {
		return err
	}

	opts, err := buildChartOptions(cfg, name, valuesEnv, valuesFiles, valuesSet)
	if err != nil {
		return err
	}

	merged, err := chart.MergeValues(c, opts)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
