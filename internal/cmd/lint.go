package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/ui"
)

var (
	lintValues []string
	lintSet    []string
	lintEnv    string
)

// lintCmd validates charts before they ship.
var lintCmd = &cobra.Command{
	Use:     "lint [chart...]",
	Aliases: []string{"inspect"},
	Short:   "Check every template and manifest before it ships",
	Long: `Render every template of the named charts (or all charts) and
parse the resulting manifests, reporting every problem found rather
than stopping at the first.

Examples:
  chartroom lint                 # Lint every chart
  chartroom lint mysql           # Lint one chart
  chartroom lint -e prod mysql   # Lint with environment values applied`,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringArrayVarP(&lintValues, "values", "f", nil, "Values overlay file (repeatable, later wins)")
	lintCmd.Flags().StringArrayVar(&lintSet, "set", nil, "Set a value (key.path=value, repeatable)")
	lintCmd.Flags().StringVarP(&lintEnv, "env", "e", "", "Environment value files to apply")

	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	names, err := resolveCharts(cfg, args)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		ui.Warning("No charts found in %s", cfg.ChartsDir)
		return nil
	}

	ui.Spyglass("Inspecting %d chart(s)...", len(names))

	failures := 0
	for _, name := range names {
		c, err := chart.Load(cfg.ChartDir(name))
		if err != nil {
			ui.Error("%s: %v", name, err)
			failures++
			continue
		}

		opts, err := buildChartOptions(cfg, name, lintEnv, lintValues, lintSet)
		if err != nil {
			ui.Error("%s: %v", name, err)
			failures++
			continue
		}

		if err := chart.Lint(c, opts); err != nil {
			ui.Error("%s:\n%v", name, err)
			failures++
			continue
		}
		ui.Success("%s", name)
	}

	if failures > 0 {
		return fmt.Errorf("%d chart(s) failed lint", failures)
	}
	ui.Success("All charts are seaworthy")
	return nil
}
