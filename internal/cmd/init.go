package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/ui"
)

// initCmd scaffolds a new chart.
var initCmd = &cobra.Command{
	Use:     "init [name]",
	Aliases: []string{"draft"},
	Short:   "Draft a new chart",
	Long: `Create a new chart under charts/<name> with starter templates:

  Chart.yaml               Chart metadata
  values.yaml              Default values
  templates/_helpers.tpl   Named helpers (fullname, labels)
  templates/deployment.yaml
  templates/service.yaml
  templates/ingress.yaml   Disabled until ingress.enabled is set

If no name is given and the session is interactive, you are prompted
for one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("chart name required (e.g. 'chartroom init mysql')")
		}
		fmt.Print("Chart name: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read chart name: %w", err)
		}
		name = strings.TrimSpace(line)
	}

	if err := validateChartName(name); err != nil {
		return err
	}

	ui.Compass("Drafting chart %s...", name)

	dir, err := chart.Scaffold(cfg.ChartsDir, name)
	if err != nil {
		return err
	}

	ui.Success("Chart created at %s", dir)
	fmt.Println()
	ui.Info("Next steps:")
	fmt.Printf("  chartroom render -n %s     # preview the manifests\n", name)
	fmt.Printf("  chartroom lint %s          # check before shipping\n", name)
	return nil
}

// validateChartName enforces DNS-label style chart names, since the
// name flows into Kubernetes resource names.
func validateChartName(name string) error {
	if name == "" {
		return fmt.Errorf("chart name cannot be empty")
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return fmt.Errorf("invalid chart name %q: use lowercase letters, digits, and dashes", name)
		}
	}
	if name[0] == '-' || name[len(name)-1] == '-' {
		return fmt.Errorf("invalid chart name %q: cannot start or end with a dash", name)
	}
	return nil
}
