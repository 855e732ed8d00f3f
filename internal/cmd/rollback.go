package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/lock"
	"github.com/cameronsjo/chartroom/internal/snapshot"
	"github.com/cameronsjo/chartroom/internal/ui"
)

var rollbackList bool

// rollbackCmd restores a previous render from a snapshot.
var rollbackCmd = &cobra.Command{
	Use:     "rollback [snapshot]",
	Aliases: []string{"mayday"},
	Short:   "Restore a previous render",
	Long: `Restore the rendered output directory from a snapshot.

Snapshots are taken automatically before every render and sync. The
current output is backed up before the restore, so a rollback can
itself be rolled back.

With no argument, the most recent snapshot is restored.

Examples:
  chartroom rollback --list
  chartroom rollback
  chartroom rollback snapshot-20260830-120000.000000000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVarP(&rollbackList, "list", "l", false, "List available snapshots")

	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if rollbackList {
		return showSnapshots(cfg)
	}

	snapshots, err := snapshot.List(cfg.Root)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		ui.Warning("No snapshots available")
		return nil
	}

	name := snapshots[0].Name
	if len(args) > 0 {
		name = args[0]
	}

	return lock.WithLock(cfg.Root, "rollback", func() error {
		ui.Snapshot("Restoring %s...", name)

		if err := snapshot.Restore(cfg.Root, name); err != nil {
			return err
		}

		files, err := snapshot.GetRestoredFiles(cfg.Root)
		if err != nil {
			return fmt.Errorf("list restored files: %w", err)
		}

		ui.Success("Restored %d file(s) from %s", len(files), name)
		for _, file := range files {
			fmt.Printf("  %s\n", file)
		}
		return nil
	})
}

func showSnapshots(cfg *config.Config) error {
	snapshots, err := snapshot.List(cfg.Root)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		ui.Warning("No snapshots available")
		fmt.Println("Snapshots are created automatically before each render")
		return nil
	}

	ui.Header("%-42s %-22s %s", "SNAPSHOT", "CREATED", "FILES")
	for _, snap := range snapshots {
		fmt.Printf("%-42s %-22s %d\n",
			snap.Name, snap.Created.Format("2006-01-02 15:04:05"), snap.FileCount)
	}
	return nil
}
