package cmd

import (
	"fmt"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/values"
)

// buildChartOptions assembles render options from the common flag set:
// environment files first, then explicit -f overlays, then --set pairs.
func buildChartOptions(cfg *config.Config, chartName, env string, valueFiles, setPairs []string) (chart.Options, error) {
	opts := chart.Options{Set: setPairs}

	if env != "" {
		for _, file := range cfg.EnvironmentFiles(env, chartName) {
			layer, err := values.LoadFile(file)
			if err != nil {
				return opts, fmt.Errorf("load %s: %w", file, err)
			}
			opts.Overlays = append(opts.Overlays, layer)
		}
	}

	for _, file := range valueFiles {
		layer, err := values.LoadFile(file)
		if err != nil {
			return opts, fmt.Errorf("load %s: %w", file, err)
		}
		opts.Overlays = append(opts.Overlays, layer)
	}

	return opts, nil
}

// resolveCharts expands the command arguments into chart names: the
// named charts, or every chart in the project when none are given.
func resolveCharts(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	return chart.List(cfg.ChartsDir)
}
