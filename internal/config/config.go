// Package config handles project discovery and configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the chartroom project configuration.
type Config struct {
	// Root is the project root directory (contains charts/ or chartroom.yml).
	Root string

	// ChartsDir is the path to the charts directory.
	ChartsDir string

	// SnapshotsDir is the path to the snapshots directory.
	SnapshotsDir string
}

// FindRoot searches upward from the current directory to find the project root.
// The project root is identified by a charts/ directory or a chartroom.yml file.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for dir != "/" {
		chartsDir := filepath.Join(dir, "charts")
		if info, err := os.Stat(chartsDir); err == nil && info.IsDir() {
			return dir, nil
		}

		if _, err := os.Stat(filepath.Join(dir, "chartroom.yml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("project root not found (no charts/ directory or chartroom.yml)")
}

// Load finds the project root and returns a Config.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Root:         root,
		ChartsDir:    filepath.Join(root, "charts"),
		SnapshotsDir: filepath.Join(root, ".chartroom", "snapshots"),
	}

	return cfg, nil
}

// EnvironmentsDir returns the path to the environment values directory.
func (c *Config) EnvironmentsDir() string {
	return filepath.Join(c.Root, "environments")
}

// OutputDir returns the path to the rendered manifest output directory.
func (c *Config) OutputDir() string {
	return filepath.Join(c.Root, "rendered")
}

// LocksDir returns the path to the lock file directory.
func (c *Config) LocksDir() string {
	return filepath.Join(c.Root, ".chartroom", "locks")
}

// ChartDir returns the directory for a single named chart.
func (c *Config) ChartDir(name string) string {
	return filepath.Join(c.ChartsDir, name)
}

// EnvironmentFiles returns the values files for an environment, in
// merge order: environments/<env>.yaml first, then any chart-specific
// environments/<env>/<chart>.yaml.
func (c *Config) EnvironmentFiles(env, chart string) []string {
	var files []string
	base := filepath.Join(c.EnvironmentsDir(), env+".yaml")
	if _, err := os.Stat(base); err == nil {
		files = append(files, base)
	}
	perChart := filepath.Join(c.EnvironmentsDir(), env, chart+".yaml")
	if _, err := os.Stat(perChart); err == nil {
		files = append(files, perChart)
	}
	return files
}
