// Package cmd provides the CLI commands for chartroom.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/ui"
)

const version = "0.3.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chartroom",
	Short: "The navigator's chart room - render Kubernetes manifests from charts",
	Long: `chartroom - the navigator's chart room

A nautical-themed chart renderer: layered values, helper templates,
and deterministic Kubernetes manifests, without a cluster in sight.

SETUP
  init <name>           Draft a new chart (starter templates included)

CHART COMMANDS
  render [chart]        Render charts to Kubernetes manifests
    --values, -f <file> Apply values overlay (repeatable)
    --set key=value     Override a single value (repeatable)
    --env, -e <env>     Apply environment value files
    --dry-run, -n       Print to stdout without writing
  lint [chart...]       Check every template and manifest before it ships
  values <chart>        Show the effective merged values
  charts                List charts in the project

WORKFLOW
  sync                  Pull the repo, decrypt secrets, render everything
  rollback [snapshot]   Restore a previous render
    --list, -l          List available snapshots

MAINTENANCE
  update                Update chartroom to the latest release`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// yarrCmd is the hidden easter egg command.
var yarrCmd = &cobra.Command{
	Use:    "yarr",
	Hidden: true,
	Short:  "Pirate mode",
	Run: func(cmd *cobra.Command, args []string) {
		ui.Yellow.Println("🏴‍☠️ Ahoy! Ye found the secret pirate mode!")
		fmt.Println("")
		fmt.Println("Command aliases for true pirates:")
		fmt.Println("  init      → draft")
		fmt.Println("  render    → plot")
		fmt.Println("  lint      → inspect")
		fmt.Println("  charts    → atlas")
		fmt.Println("  sync      → voyage")
		fmt.Println("  rollback  → mayday")
		fmt.Println("")
		ui.Blue.Println("Run 'chartroom --help' for all commands.")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(yarrCmd)

	rootCmd.SetVersionTemplate("chartroom version {{.Version}}\n")
}
