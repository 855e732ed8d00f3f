package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/chartroom/internal/config"
)

type stubGit struct {
	changed bool
	commit  string
	err     error
}

func (s *stubGit) Sync(ctx context.Context) (bool, string, string, error) {
	return s.changed, "", s.commit, s.err
}

type stubSops struct {
	secrets map[string]any
	err     error
	files   []string
}

func (s *stubSops) DecryptMultiple(ctx context.Context, files []string) (map[string]any, error) {
	s.files = files
	return s.secrets, s.err
}

// writeProject builds a project root with one renderable chart.
func writeProject(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	dir := filepath.Join(root, "charts", "whoami")
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(templates, 0755))

	files := map[string]string{
		filepath.Join(dir, "Chart.yaml"):  "name: whoami\nversion: 0.1.0\n",
		filepath.Join(dir, "values.yaml"): "port: 8080\ngreeting: hello\n",
		filepath.Join(templates, "configmap.yaml"): "apiVersion: v1\n" +
			"kind: ConfigMap\n" +
			"metadata:\n  name: {{ .Release.Name }}\n" +
			"data:\n  port: {{ .Values.port | quote }}\n  greeting: {{ .Values.greeting }}\n",
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	return &config.Config{
		Root:         root,
		ChartsDir:    filepath.Join(root, "charts"),
		SnapshotsDir: filepath.Join(root, ".chartroom", "snapshots"),
	}
}

func TestRun_RendersCharts(t *testing.T) {
	cfg := writeProject(t)

	s := New(cfg, Options{})
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Charts, 1)
	assert.Equal(t, "whoami", result.Charts[0].Chart)
	assert.Equal(t, 1, result.Charts[0].Documents)

	content, err := os.ReadFile(filepath.Join(cfg.Root, "rendered", "whoami.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: whoami")
	assert.Contains(t, string(content), `port: "8080"`)
}

func TestRun_SkipsWhenUnchanged(t *testing.T) {
	cfg := writeProject(t)

	s := New(cfg, Options{RepoURL: "https://example.com/repo.git"},
		WithGit(&stubGit{changed: false, commit: "abc123"}))
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Empty(t, result.Charts)

	_, statErr := os.Stat(filepath.Join(cfg.Root, "rendered"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ForceRendersWhenUnchanged(t *testing.T) {
	cfg := writeProject(t)

	s := New(cfg, Options{RepoURL: "https://example.com/repo.git", Force: true},
		WithGit(&stubGit{changed: false, commit: "abc123"}))
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, "abc123", result.Commit)
	require.Len(t, result.Charts, 1)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	cfg := writeProject(t)

	s := New(cfg, Options{DryRun: true})
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Charts, 1)
	assert.Equal(t, 1, result.Charts[0].Documents)
	assert.Empty(t, result.Charts[0].Path)

	_, statErr := os.Stat(filepath.Join(cfg.Root, "rendered"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_EnvironmentOverlay(t *testing.T) {
	cfg := writeProject(t)

	envDir := filepath.Join(cfg.Root, "environments")
	require.NoError(t, os.MkdirAll(envDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "prod.yaml"), []byte("greeting: ahoy\n"), 0644))

	s := New(cfg, Options{Environment: "prod"})
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(cfg.Root, "rendered", "whoami.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "greeting: ahoy")
}

func TestRun_SecretsOverlay(t *testing.T) {
	cfg := writeProject(t)

	envDir := filepath.Join(cfg.Root, "environments")
	require.NoError(t, os.MkdirAll(envDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "prod.sops.yaml"), []byte("encrypted"), 0644))

	sops := &stubSops{secrets: map[string]any{"greeting": "secret-ahoy"}}
	s := New(cfg, Options{Environment: "prod"}, WithSecretsDecryptor(sops))
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sops.files, 1)
	assert.Contains(t, sops.files[0], "prod.sops.yaml")

	content, err := os.ReadFile(filepath.Join(cfg.Root, "rendered", "whoami.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "greeting: secret-ahoy")
}

func TestRun_ChartFailureDoesNotStopOthers(t *testing.T) {
	cfg := writeProject(t)

	// A second chart with a reference that cannot resolve.
	dir := filepath.Join(cfg.ChartsDir, "broken")
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(templates, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Chart.yaml"), []byte("name: broken\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "bad.yaml"),
		[]byte("x: {{ .Values.missing.key }}\n"), 0644))

	s := New(cfg, Options{})
	result, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	// The healthy chart still rendered.
	require.Len(t, result.Charts, 2)
	_, statErr := os.Stat(filepath.Join(cfg.Root, "rendered", "whoami.yaml"))
	assert.NoError(t, statErr)
}

func TestRun_SnapshotsExistingOutput(t *testing.T) {
	cfg := writeProject(t)

	outDir := filepath.Join(cfg.Root, "rendered")
	require.NoError(t, os.MkdirAll(outDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "whoami.yaml"), []byte("old\n"), 0644))

	s := New(cfg, Options{})
	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.Snapshot)
	_, statErr := os.Stat(filepath.Join(cfg.Root, ".chartroom", "snapshots", result.Snapshot, "whoami.yaml"))
	assert.NoError(t, statErr)
}
