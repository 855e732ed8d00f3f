package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/snapshot"
)

// completeChartNames completes chart directory names.
func completeChartNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	charts, err := chart.List(cfg.ChartsDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, name := range charts {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeSingleChartName completes a chart name only for the first argument.
func completeSingleChartName(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeChartNames(cmd, args, toComplete)
}

// completeSnapshotNames completes snapshot names.
func completeSnapshotNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	snapshots, err := snapshot.List(cfg.Root)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, snap := range snapshots {
		if strings.HasPrefix(snap.Name, toComplete) {
			names = append(names, snap.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeEnvironmentNames completes environment names from the
// environments directory.
func completeEnvironmentNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	entries, err := os.ReadDir(cfg.EnvironmentsDir())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			// environments/<env>/<chart>.yaml layout
		} else if strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".sops.yaml") {
			name = strings.TrimSuffix(name, ".yaml")
		} else {
			continue
		}
		if seen[name] || !strings.HasPrefix(name, toComplete) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// registerCompletions registers all dynamic completions for commands.
// This is called after all commands are defined.
func registerCompletions() {
	renderCmd.ValidArgsFunction = completeChartNames
	lintCmd.ValidArgsFunction = completeChartNames
	valuesCmd.ValidArgsFunction = completeSingleChartName
	rollbackCmd.ValidArgsFunction = completeSnapshotNames

	for _, c := range []*cobra.Command{renderCmd, lintCmd, valuesCmd, syncCmd} {
		if err := c.RegisterFlagCompletionFunc("env", completeEnvironmentNames); err != nil {
			// Completions are optional.
			_ = err
		}
	}
}

// init registers completions after all commands are set up.
func init() {
	// cobra.OnInitialize runs after every command init has registered
	// its flags, so the env flag exists by the time we attach to it.
	cobra.OnInitialize(registerCompletions)
}
