package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/fileutil"
	"github.com/cameronsjo/chartroom/internal/lock"
	"github.com/cameronsjo/chartroom/internal/snapshot"
	"github.com/cameronsjo/chartroom/internal/ui"
)

var (
	renderValues    []string
	renderSet       []string
	renderEnv       string
	renderRelease   string
	renderNamespace string
	renderOutput    string
	renderDryRun    bool
	renderSplit     bool
)

// renderCmd renders charts into Kubernetes manifests.
var renderCmd = &cobra.Command{
	Use:     "render [chart...]",
	Aliases: []string{"plot"},
	Short:   "Render charts to Kubernetes manifests",
	Long: `Render one or more charts into Kubernetes manifests.

Values are merged in layers: chart defaults, then environment files,
then -f overlays in order, then --set pairs. With no chart argument,
every chart in the project is rendered.

Examples:
  chartroom render mysql                  # Render one chart
  chartroom render                        # Render every chart
  chartroom render -n mysql               # Dry run - print to stdout
  chartroom render -f prod.yaml mysql     # Apply a values overlay
  chartroom render --set image.tag=8.4.0 mysql
  chartroom render -e prod --split mysql  # One file per document`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringArrayVarP(&renderValues, "values", "f", nil, "Values overlay file (repeatable, later wins)")
	renderCmd.Flags().StringArrayVar(&renderSet, "set", nil, "Set a value (key.path=value, repeatable)")
	renderCmd.Flags().StringVarP(&renderEnv, "env", "e", "", "Environment value files to apply")
	renderCmd.Flags().StringVar(&renderRelease, "release", "", "Release name (defaults to the chart name)")
	renderCmd.Flags().StringVar(&renderNamespace, "namespace", "", "Release namespace")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output directory (defaults to rendered/)")
	renderCmd.Flags().BoolVarP(&renderDryRun, "dry-run", "n", false, "Print manifests to stdout without writing")
	renderCmd.Flags().BoolVar(&renderSplit, "split", false, "Write one file per manifest document")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
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

	if renderDryRun {
		return renderToStdout(cfg, names)
	}

	return lock.WithLock(cfg.Root, "render", func() error {
		// Preserve the previous output before overwriting it.
		snapName, err := snapshot.Create(cfg.Root)
		if err != nil {
			return fmt.Errorf("snapshot output: %w", err)
		}
		if snapName != "" {
			ui.Snapshot("Saved snapshot %s", snapName)
		}

		outDir := renderOutput
		if outDir == "" {
			outDir = cfg.OutputDir()
		}

		failures := 0
		for _, name := range names {
			out, err := renderOne(cfg, name)
			if err != nil {
				ui.Error("%s: %v", name, err)
				failures++
				continue
			}

			if err := writeOutput(outDir, name, out); err != nil {
				ui.Error("%s: %v", name, err)
				failures++
				continue
			}
			ui.Scroll("%s: %d documents", name, len(out.Docs))
		}

		if failures > 0 {
			return fmt.Errorf("%d chart(s) failed to render", failures)
		}
		ui.Success("Rendered %d chart(s) to %s", len(names), outDir)
		return nil
	})
}

func renderOne(cfg *config.Config, name string) (*chart.Output, error) {
	c, err := chart.Load(cfg.ChartDir(name))
	if err != nil {
		return nil, err
	}

	opts, err := buildChartOptions(cfg, name, renderEnv, renderValues, renderSet)
	if err != nil {
		return nil, err
	}
	opts.ReleaseName = renderRelease
	opts.Namespace = renderNamespace

	return chart.Render(c, opts)
}

func renderToStdout(cfg *config.Config, names []string) error {
	failures := 0
	for _, name := range names {
		out, err := renderOne(cfg, name)
		if err != nil {
			ui.Error("%s: %v", name, err)
			failures++
			continue
		}
		fmt.Print(out.Text)
		if len(out.Text) > 0 && out.Text[len(out.Text)-1] != '\n' {
			fmt.Println()
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d chart(s) failed to render", failures)
	}
	return nil
}

// writeOutput writes a chart's manifests: one combined file, or one
// file per document with --split.
func writeOutput(outDir, name string, out *chart.Output) error {
	if !renderSplit {
		path := filepath.Join(outDir, name+".yaml")
		return fileutil.WriteFileAtomic(path, []byte(out.Text), 0644)
	}

	chartDir := filepath.Join(outDir, name)
	if err := fileutil.ClearDir(chartDir); err != nil {
		return err
	}
	if err := os.MkdirAll(chartDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, doc := range out.Docs {
		fileName := fmt.Sprintf("%02d-%s.yaml", doc.Index, doc.FileStem())
		path := filepath.Join(chartDir, fileName)
		if err := fileutil.WriteFileAtomic(path, []byte(doc.Source), 0644); err != nil {
			return err
		}
	}
	return nil
}
