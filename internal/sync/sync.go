package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/cameronsjo/chartroom/internal/chart"
	"github.com/cameronsjo/chartroom/internal/config"
	"github.com/cameronsjo/chartroom/internal/fileutil"
	"github.com/cameronsjo/chartroom/internal/lock"
	"github.com/cameronsjo/chartroom/internal/snapshot"
	"github.com/cameronsjo/chartroom/internal/values"
)

// GitSyncer defines the git operations the workflow needs.
type GitSyncer interface {
	// Sync clones or pulls depending on whether repo exists.
	// Returns (changed, beforeCommit, afterCommit, error).
	Sync(ctx context.Context) (changed bool, before, after string, err error)
}

// SecretsDecryptor decrypts SOPS values files into a values layer.
type SecretsDecryptor interface {
	DecryptMultiple(ctx context.Context, files []string) (map[string]any, error)
}

// Options holds the sync workflow configuration.
type Options struct {
	// Environment selects the environments/<env> value files.
	Environment string

	// RepoURL is the git repository to pull before rendering.
	// Empty means render the working tree as-is.
	RepoURL string

	// Branch is the branch to track. Defaults to main.
	Branch string

	// Force renders even when the repository reported no changes.
	Force bool

	// DryRun renders without writing output or snapshots.
	DryRun bool
}

// ChartResult reports the outcome for one chart.
type ChartResult struct {
	Chart     string
	Documents int
	Path      string
	Err       error
}

// Result summarizes a sync run.
type Result struct {
	Changed  bool
	Commit   string
	Snapshot string
	Skipped  bool
	Charts   []ChartResult
}

// Syncer orchestrates the pull-decrypt-render workflow.
type Syncer struct {
	cfg  *config.Config
	opts Options
	git  GitSyncer
	sops SecretsDecryptor
}

// New creates a Syncer for the project.
func New(cfg *config.Config, opts Options, options ...Option) *Syncer {
	if opts.Branch == "" {
		opts.Branch = "main"
	}

	s := &Syncer{
		cfg:  cfg,
		opts: opts,
		sops: NewSOPSOps(),
	}
	if opts.RepoURL != "" {
		s.git = NewGitOps(opts.RepoURL, opts.Branch, cfg.Root)
	}

	for _, opt := range options {
		opt(s)
	}
	return s
}

// Option is a functional option for configuring the Syncer.
type Option func(*Syncer)

// WithGit sets the GitSyncer implementation.
func WithGit(git GitSyncer) Option {
	return func(s *Syncer) {
		s.git = git
	}
}

// WithSecretsDecryptor sets the SecretsDecryptor implementation.
func WithSecretsDecryptor(sops SecretsDecryptor) Option {
	return func(s *Syncer) {
		s.sops = sops
	}
}

// Run executes the workflow under the sync lock: pull the repository,
// snapshot current output, then render every chart. Chart failures do
// not stop the run; they are collected per chart and aggregated in the
// returned error.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	err := lock.WithLock(s.cfg.Root, "sync", func() error {
		if s.git != nil {
			changed, _, after, err := s.git.Sync(ctx)
			if err != nil {
				return fmt.Errorf("sync repository: %w", err)
			}
			result.Changed = changed
			result.Commit = after

			if !changed && !s.opts.Force {
				result.Skipped = true
				return nil
			}
		}

		if !s.opts.DryRun {
			name, err := snapshot.Create(s.cfg.Root)
			if err != nil {
				return fmt.Errorf("snapshot output: %w", err)
			}
			result.Snapshot = name
		}

		return s.renderAll(ctx, result)
	})
	return result, err
}

// renderAll renders every chart in the project and writes one manifest
// file per chart.
func (s *Syncer) renderAll(ctx context.Context, result *Result) error {
	names, err := chart.List(s.cfg.ChartsDir)
	if err != nil {
		return err
	}

	secrets, err := s.loadSecrets(ctx)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	for _, name := range names {
		res := s.renderChart(name, secrets)
		result.Charts = append(result.Charts, res)
		if res.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, res.Err))
		}
	}
	return errs.ErrorOrNil()
}

func (s *Syncer) renderChart(name string, secrets map[string]any) ChartResult {
	res := ChartResult{Chart: name}

	c, err := chart.Load(s.cfg.ChartDir(name))
	if err != nil {
		res.Err = err
		return res
	}

	overlays, err := s.loadOverlays(name)
	if err != nil {
		res.Err = err
		return res
	}
	if len(secrets) > 0 {
		overlays = append(overlays, secrets)
	}

	out, err := chart.Render(c, chart.Options{
		ReleaseName: name,
		Overlays:    overlays,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Documents = len(out.Docs)

	if s.opts.DryRun {
		return res
	}

	path := filepath.Join(s.cfg.OutputDir(), name+".yaml")
	if err := fileutil.WriteFileAtomic(path, []byte(out.Text), 0644); err != nil {
		res.Err = err
		return res
	}
	res.Path = path
	return res
}

// loadOverlays reads the environment value files for one chart.
func (s *Syncer) loadOverlays(chartName string) ([]map[string]any, error) {
	if s.opts.Environment == "" {
		return nil, nil
	}

	var overlays []map[string]any
	for _, file := range s.cfg.EnvironmentFiles(s.opts.Environment, chartName) {
		layer, err := values.LoadFile(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		overlays = append(overlays, layer)
	}
	return overlays, nil
}

// loadSecrets decrypts the environment's SOPS file when present.
func (s *Syncer) loadSecrets(ctx context.Context) (map[string]any, error) {
	if s.opts.Environment == "" {
		return nil, nil
	}

	file := filepath.Join(s.cfg.EnvironmentsDir(), s.opts.Environment+".sops.yaml")
	if !fileExists(file) {
		return nil, nil
	}

	secrets, err := s.sops.DecryptMultiple(ctx, []string{file})
	if err != nil {
		return nil, fmt.Errorf("decrypt secrets: %w", err)
	}
	return secrets, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
