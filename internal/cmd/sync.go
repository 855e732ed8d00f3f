package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/config"
	chartsync "github.com/cameronsjo/chartroom/internal/sync"
	"github.com/cameronsjo/chartroom/internal/ui"
)

var (
	syncEnv    string
	syncRepo   string
	syncBranch string
	syncForce  bool
	syncDryRun bool
)

// syncCmd runs the full GitOps workflow.
var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"voyage"},
	Short:   "Pull the repo, decrypt secrets, render everything",
	Long: `Run the full workflow: pull the chart repository, decrypt the
environment's SOPS secrets, and render every chart into rendered/.

When --repo is given and the remote has no new commits, rendering is
skipped unless --force is set. Secrets are read from
environments/<env>.sops.yaml when the file exists.

Examples:
  chartroom sync -e prod
  chartroom sync -e prod --repo git@example.com:fleet/charts.git
  chartroom sync -e prod --force
  chartroom sync -n -e prod     # dry run, render without writing`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncEnv, "env", "e", "", "Environment value files to apply")
	syncCmd.Flags().StringVar(&syncRepo, "repo", "", "Git repository to pull before rendering")
	syncCmd.Flags().StringVar(&syncBranch, "branch", "main", "Branch to track")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Render even when the repository is unchanged")
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "Render without writing output or snapshots")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ui.Compass("Setting course...")

	s := chartsync.New(cfg, chartsync.Options{
		Environment: syncEnv,
		RepoURL:     syncRepo,
		Branch:      syncBranch,
		Force:       syncForce,
		DryRun:      syncDryRun,
	})

	result, runErr := s.Run(context.Background())

	if result.Commit != "" {
		ui.Info("At commit %s", result.Commit)
	}
	if result.Skipped {
		ui.Success("Already up to date, nothing to render")
		return nil
	}
	if result.Snapshot != "" {
		ui.Snapshot("Saved snapshot %s", result.Snapshot)
	}

	for _, res := range result.Charts {
		if res.Err != nil {
			ui.Error("%s: %v", res.Chart, res.Err)
			continue
		}
		ui.Scroll("%s: %d documents", res.Chart, res.Documents)
	}

	if runErr != nil {
		return runErr
	}
	ui.Success("Synced %d chart(s)", len(result.Charts))
	return nil
}
