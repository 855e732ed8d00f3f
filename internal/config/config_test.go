package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalSymlinks resolves symlinks for path comparison (macOS /var -> /private/var).
func evalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// chdir moves into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(originalWd) })
	require.NoError(t, os.Chdir(dir))
}

func TestFindRoot_WithChartsDir(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "charts"), 0755))

	subDir := filepath.Join(tmpDir, "sub", "deep")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	chdir(t, subDir)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindRoot_WithMarkerFile(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "chartroom.yml"), []byte(""), 0644))

	subDir := filepath.Join(tmpDir, "sub")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	chdir(t, subDir)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindRoot_NotFound(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	chdir(t, tmpDir)

	_, err := FindRoot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project root not found")
}

func TestLoad(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "charts"), 0755))
	chdir(t, tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, tmpDir, cfg.Root)
	assert.Equal(t, filepath.Join(tmpDir, "charts"), cfg.ChartsDir)
	assert.Equal(t, filepath.Join(tmpDir, ".chartroom", "snapshots"), cfg.SnapshotsDir)
	assert.Equal(t, filepath.Join(tmpDir, "rendered"), cfg.OutputDir())
	assert.Equal(t, filepath.Join(tmpDir, "environments"), cfg.EnvironmentsDir())
	assert.Equal(t, filepath.Join(tmpDir, "charts", "mysql"), cfg.ChartDir("mysql"))
}

func TestEnvironmentFiles(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	cfg := &Config{Root: tmpDir, ChartsDir: filepath.Join(tmpDir, "charts")}

	envDir := filepath.Join(tmpDir, "environments")
	require.NoError(t, os.MkdirAll(filepath.Join(envDir, "prod"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "prod.yaml"), []byte("a: 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "prod", "mysql.yaml"), []byte("b: 2\n"), 0644))

	t.Run("base then per-chart", func(t *testing.T) {
		files := cfg.EnvironmentFiles("prod", "mysql")
		assert.Equal(t, []string{
			filepath.Join(envDir, "prod.yaml"),
			filepath.Join(envDir, "prod", "mysql.yaml"),
		}, files)
	})

	t.Run("missing files are skipped", func(t *testing.T) {
		files := cfg.EnvironmentFiles("prod", "nginx")
		assert.Equal(t, []string{filepath.Join(envDir, "prod.yaml")}, files)
	})

	t.Run("unknown environment", func(t *testing.T) {
		assert.Empty(t, cfg.EnvironmentFiles("staging", "mysql"))
	})
}
