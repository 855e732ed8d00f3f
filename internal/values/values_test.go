package values

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	vals := map[string]any{
		"image": map[string]any{
			"repository": "bitnami/mysql",
			"tag":        "8.0",
		},
		"replicas": 3,
	}

	tests := []struct {
		path      string
		want      any
		wantFound bool
	}{
		{"replicas", 3, true},
		{"image.repository", "bitnami/mysql", true},
		{"image.tag", "8.0", true},
		{"image.missing", nil, false},
		{"missing", nil, false},
		{"replicas.deeper", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, found := Lookup(vals, tt.path)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"zero int", 0, false},
		{"int", 1, true},
		{"zero float", 0.0, false},
		{"float", 0.5, true},
		{"empty mapping", map[string]any{}, false},
		{"mapping", map[string]any{"k": "v"}, true},
		{"empty sequence", []any{}, false},
		{"sequence", []any{1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.val))
		})
	}
}

func TestSet(t *testing.T) {
	vals := map[string]any{}

	require.NoError(t, Set(vals, "image.tag=9.1"))
	require.NoError(t, Set(vals, "image.pullPolicy=Always"))
	require.NoError(t, Set(vals, "replicas=3"))
	require.NoError(t, Set(vals, "ingress.enabled=true"))

	assert.Equal(t, map[string]any{
		"image": map[string]any{
			"tag":        9.1,
			"pullPolicy": "Always",
		},
		"replicas": 3,
		"ingress":  map[string]any{"enabled": true},
	}, vals)
}

func TestSetErrors(t *testing.T) {
	t.Run("missing equals", func(t *testing.T) {
		err := Set(map[string]any{}, "no-value-here")
		assert.Error(t, err)
	})

	t.Run("scalar in the middle of the path", func(t *testing.T) {
		vals := map[string]any{"replicas": 3}
		err := Set(vals, "replicas.max=5")

		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
	})

	t.Run("scalar over populated mapping", func(t *testing.T) {
		vals := map[string]any{"service": map[string]any{"port": 80}}
		err := Set(vals, "service=off")

		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid values file", func(t *testing.T) {
		path := filepath.Join(dir, "values.yaml")
		content := "image:\n  repository: nginx\n  tag: \"1.27\"\nreplicas: 2\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		vals, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, vals["replicas"])
		assert.Equal(t, "nginx", vals["image"].(map[string]any)["repository"])
	})

	t.Run("empty file yields empty mapping", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		vals, err := LoadFile(path)
		require.NoError(t, err)
		assert.NotNil(t, vals)
		assert.Empty(t, vals)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("a: [unclosed"), 0644))

		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}
