package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/ui"
	"github.com/cameronsjo/chartroom/internal/update"
)

var updateCheck bool

// updateCmd updates chartroom to the latest release.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update chartroom to the latest release",
	Long: `Download and install the latest chartroom release from GitHub.

Use --check to see whether an update is available without installing.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "Check for updates without installing")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if updateCheck {
		release, available, err := update.CheckForUpdate(version)
		if err != nil {
			return fmt.Errorf("check for update: %w", err)
		}
		if !available {
			ui.Success("chartroom %s is up to date (%s)", version, update.GetPlatformInfo())
			return nil
		}
		ui.Info("Update available: %s (released %s)", release.Version, release.PublishedAt)
		fmt.Printf("  %s\n", release.ReleaseURL)
		return nil
	}

	ui.Compass("Checking for updates...")
	release, err := update.Update(version)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if release == nil {
		ui.Success("chartroom %s is already up to date", version)
		return nil
	}

	ui.Success("Updated to chartroom %s", release.Version)
	return nil
}
