package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// resetRootCmd resets the root command state for test isolation.
// Cobra command state leaks between executions otherwise.
func resetRootCmd(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetArgs([]string{})
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	for _, cmd := range rootCmd.Commands() {
		cmd.SetContext(context.TODO())
	}
	return buf
}

// executeCmd executes the root command with the given args and returns the output.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

// chdirProject creates a minimal project with one chart and enters it.
func chdirProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	dir := filepath.Join(root, "charts", "whoami")
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(templates, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Chart.yaml"),
		[]byte("name: whoami\nversion: 0.1.0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "values.yaml"),
		[]byte("port: 8080\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "configmap.yaml"),
		[]byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: {{ .Release.Name }}\ndata:\n  port: {{ .Values.port | quote }}\n"), 0644))

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(originalWd) })
	require.NoError(t, os.Chdir(root))
	return root
}
