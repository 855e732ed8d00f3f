package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/ui"
)

// chartsCmd lists the charts in the project.
var chartsCmd = &cobra.Command{
	Use:     "charts",
	Aliases: []string{"atlas"},
	Short:   "List charts in the project",
	RunE:    runCharts,
}

func init() {
	rootCmd.AddCommand(chartsCmd)
}

func runCharts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	names, err := chart.List(cfg.ChartsDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		ui.Warning("No charts found in %s", cfg.ChartsDir)
		return nil
	}

	ui.Header("%-24s %-12s %-12s %s", "CHART", "VERSION", "APP VERSION", "TEMPLATES")
	for _, name := range names {
		c, err := chart.Load(cfg.ChartDir(name))
		if err != nil {
			ui.Error("%-24s %v", name, err)
			continue
		}
		fmt.Printf("%-24s %-12s %-12s %d\n",
			c.Metadata.Name, c.Metadata.Version, c.Metadata.AppVersion, len(c.Templates))
	}
	return nil
}
