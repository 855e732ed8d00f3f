package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render is a test helper: parse + render in one go against a bare
// registry.
func render(t *testing.T, source string, ctx any) (string, error) {
	t.Helper()
	frag, err := Parse("test", source)
	require.NoError(t, err)
	return NewRenderer(nil).Render(frag, ctx)
}

func TestRenderReferences(t *testing.T) {
	ctx := map[string]any{
		"Values": map[string]any{
			"image": map[string]any{
				"repository": "bitnami/mysql",
				"tag":        "8.0.36",
			},
			"replicas": 3,
			"debug":    false,
		},
		"Release": map[string]any{"Name": "db"},
	}

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "no references is passthrough",
			source: "apiVersion: v1\nkind: Service\n",
			want:   "apiVersion: v1\nkind: Service\n",
		},
		{
			name:   "simple reference",
			source: "image: {{ .Values.image.repository }}",
			want:   "image: bitnami/mysql",
		},
		{
			name:   "adjacent references",
			source: "image: {{ .Values.image.repository }}:{{ .Values.image.tag }}",
			want:   "image: bitnami/mysql:8.0.36",
		},
		{
			name:   "integer renders bare",
			source: "replicas: {{ .Values.replicas }}",
			want:   "replicas: 3",
		},
		{
			name:   "bool renders bare",
			source: "debug: {{ .Values.debug }}",
			want:   "debug: false",
		},
		{
			name:   "release metadata",
			source: "name: {{ .Release.Name }}",
			want:   "name: db",
		},
		{
			name:   "quote pipe",
			source: "tag: {{ .Values.image.tag | quote }}",
			want:   `tag: "8.0.36"`,
		},
		{
			name:   "default on absent path",
			source: "pullPolicy: {{ .Values.image.pullPolicy | default \"IfNotPresent\" }}",
			want:   "pullPolicy: IfNotPresent",
		},
		{
			name:   "default ignored when present",
			source: "tag: {{ .Values.image.tag | default \"latest\" }}",
			want:   "tag: 8.0.36",
		},
		{
			name:   "default in call form",
			source: "tag: {{ default \"latest\" .Values.image.nope }}",
			want:   "tag: latest",
		},
		{
			name:   "chained pipes",
			source: "repo: {{ .Values.image.repository | upper | quote }}",
			want:   `repo: "BITNAMI/MYSQL"`,
		},
		{
			name:   "parenthesized expression",
			source: "v: {{ (printf \"%s-%d\" .Release.Name .Values.replicas) | quote }}",
			want:   `v: "db-3"`,
		},
		{
			name:   "string literal action",
			source: "note: {{ \"plain\" }}",
			want:   "note: plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.source, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderConditionals(t *testing.T) {
	ctx := map[string]any{
		"Values": map[string]any{
			"ingress":     map[string]any{"enabled": true, "host": "db.example.com"},
			"persistence": map[string]any{"enabled": false},
			"mode":        "standalone",
		},
	}

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "true branch",
			source: "{{ if .Values.ingress.enabled }}host: {{ .Values.ingress.host }}{{ end }}",
			want:   "host: db.example.com",
		},
		{
			name:   "false branch empty",
			source: "{{ if .Values.persistence.enabled }}pvc: yes{{ end }}",
			want:   "",
		},
		{
			name:   "else branch",
			source: "{{ if .Values.persistence.enabled }}pvc{{ else }}emptyDir{{ end }}",
			want:   "emptyDir",
		},
		{
			name:   "else if chain",
			source: `{{ if eq .Values.mode "replication" }}r{{ else if eq .Values.mode "standalone" }}s{{ else }}?{{ end }}`,
			want:   "s",
		},
		{
			name:   "absent path is falsy not an error",
			source: "{{ if .Values.metrics.enabled }}metrics{{ else }}none{{ end }}",
			want:   "none",
		},
		{
			name:   "not function",
			source: "{{ if not .Values.persistence.enabled }}ephemeral{{ end }}",
			want:   "ephemeral",
		},
		{
			name:   "and short result",
			source: "{{ if and .Values.ingress.enabled .Values.ingress.host }}routed{{ end }}",
			want:   "routed",
		},
		{
			name:   "or with absent reference",
			source: "{{ if or .Values.missing .Values.ingress.enabled }}yes{{ end }}",
			want:   "yes",
		},
		{
			name:   "with rebinds dot",
			source: "{{ with .Values.ingress }}{{ .host }}{{ end }}",
			want:   "db.example.com",
		},
		{
			name:   "with on absent path renders else",
			source: "{{ with .Values.sidecar }}{{ .image }}{{ else }}no sidecar{{ end }}",
			want:   "no sidecar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.source, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderRange(t *testing.T) {
	ctx := map[string]any{
		"Values": map[string]any{
			"hosts": []any{"a.example.com", "b.example.com"},
			"labels": map[string]any{
				"team": "data",
				"app":  "mysql",
			},
			"empty": []any{},
		},
	}

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "sequence elements",
			source: "{{ range .Values.hosts }}- {{ . }}\n{{ end }}",
			want:   "- a.example.com\n- b.example.com\n",
		},
		{
			name:   "mapping values in sorted key order",
			source: "{{ range .Values.labels }}{{ . }},{{ end }}",
			want:   "mysql,data,",
		},
		{
			name:   "empty sequence takes else",
			source: "{{ range .Values.empty }}x{{ else }}none{{ end }}",
			want:   "none",
		},
		{
			name:   "absent path takes else",
			source: "{{ range .Values.nothing }}x{{ else }}none{{ end }}",
			want:   "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.source, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderWhitespaceTrim(t *testing.T) {
	ctx := map[string]any{
		"Values": map[string]any{"enabled": true, "name": "web"},
	}

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "left trim eats preceding whitespace",
			source: "a:\n  {{- .Values.name }}",
			want:   "a:web",
		},
		{
			name:   "right trim eats following newline",
			source: "{{ .Values.name -}}\n  b",
			want:   "webb",
		},
		{
			name:   "trimmed conditional leaves no blank lines",
			source: "kind: Service\n{{- if .Values.enabled }}\nname: {{ .Values.name }}\n{{- end }}\n",
			want:   "kind: Service\nname: web\n",
		},
		{
			name:   "negative number is not a trim marker",
			source: "n: {{ -3 }}",
			want:   "n: -3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.source, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderHelpers(t *testing.T) {
	helperSource := `{{ define "app.labels" }}app: {{ .Values.name }}
tier: backend{{ end }}
{{ define "app.fullname" }}{{ .Values.name }}-{{ .Values.suffix | default "svc" }}{{ end }}`

	ctx := map[string]any{
		"Values": map[string]any{"name": "mysql"},
	}

	newRenderer := func(t *testing.T) *Renderer {
		t.Helper()
		helpers, err := Parse("_helpers.tpl", helperSource)
		require.NoError(t, err)
		registry := NewRegistry()
		registry.Add(helpers)
		return NewRenderer(registry)
	}

	t.Run("include by name", func(t *testing.T) {
		frag, err := Parse("t", `{{ include "app.fullname" . }}`)
		require.NoError(t, err)

		got, err := newRenderer(t).Render(frag, ctx)
		require.NoError(t, err)
		assert.Equal(t, "mysql-svc", got)
	})

	t.Run("indentation preserving include", func(t *testing.T) {
		frag, err := Parse("t", "metadata:\n  labels:\n    {{- include \"app.labels\" . | nindent 4 }}\n")
		require.NoError(t, err)

		got, err := newRenderer(t).Render(frag, ctx)
		require.NoError(t, err)
		assert.Equal(t, "metadata:\n  labels:\n    app: mysql\n    tier: backend\n", got)
	})

	t.Run("unknown helper", func(t *testing.T) {
		frag, err := Parse("t", `{{ include "app.nope" . }}`)
		require.NoError(t, err)

		_, err = newRenderer(t).Render(frag, ctx)
		require.Error(t, err)

		var unknown *UnknownHelperError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "app.nope", unknown.Name)
		assert.Contains(t, unknown.Known, "app.labels")
	})

	t.Run("define bodies render nothing at definition site", func(t *testing.T) {
		helpers, err := Parse("_helpers.tpl", helperSource)
		require.NoError(t, err)

		got, err := NewRenderer(nil).Render(helpers, ctx)
		require.NoError(t, err)
		assert.Equal(t, "\n", got)
	})
}

func TestRenderErrors(t *testing.T) {
	ctx := map[string]any{
		"Values": map[string]any{"present": "yes"},
	}

	t.Run("undefined reference names the exact path", func(t *testing.T) {
		_, err := render(t, "v: {{ .Values.image.tag }}", ctx)
		require.Error(t, err)

		var undef *UndefinedReferenceError
		require.ErrorAs(t, err, &undef)
		assert.Equal(t, "Values.image.tag", undef.Path)
	})

	t.Run("undefined reference through a pipe", func(t *testing.T) {
		_, err := render(t, "v: {{ .Values.absent | quote }}", ctx)

		var undef *UndefinedReferenceError
		require.ErrorAs(t, err, &undef)
		assert.Equal(t, "Values.absent", undef.Path)
	})

	t.Run("default suppresses the error", func(t *testing.T) {
		got, err := render(t, "v: {{ .Values.absent | default \"d\" | quote }}", ctx)
		require.NoError(t, err)
		assert.Equal(t, `v: "d"`, got)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := render(t, "{{ nonesuch .Values.present }}", ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nonesuch")
	})

	t.Run("required fails on absent value", func(t *testing.T) {
		_, err := render(t, `{{ required "tag is required" .Values.tag }}`, map[string]any{
			"Values": map[string]any{"tag": nil},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tag is required")
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unclosed action", "a: {{ .Values.x"},
		{"unclosed if", "{{ if .Values.x }}body"},
		{"stray end", "text {{ end }}"},
		{"stray else", "{{ else }}"},
		{"unterminated string", `{{ "oops }}`},
		{"empty action", "{{ }}"},
		{"define without name", "{{ define }}x{{ end }}"},
		{"unclosed paren", "{{ (quote .Values.x }}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad", tt.source)
			require.Error(t, err)

			var parseErr *ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestRenderDeterminism(t *testing.T) {
	source := "{{ range .Values.labels }}{{ . }}\n{{ end }}replicas: {{ .Values.replicas }}"
	ctx := map[string]any{
		"Values": map[string]any{
			"labels":   map[string]any{"a": 1, "b": 2, "c": 3, "d": 4},
			"replicas": 2,
		},
	}

	frag, err := Parse("t", source)
	require.NoError(t, err)
	renderer := NewRenderer(nil)

	first, err := renderer.Render(frag, ctx)
	require.NoError(t, err)

	// Same fragment, same values: byte-identical output every time.
	for i := 0; i < 10; i++ {
		again, err := renderer.Render(frag, ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFuncsOverride(t *testing.T) {
	frag, err := Parse("t", "{{ shout .Values.word }}")
	require.NoError(t, err)

	renderer := NewRenderer(nil).Funcs(map[string]any{
		"shout": func(s string) string { return s + "!" },
	})

	got, err := renderer.Render(frag, map[string]any{
		"Values": map[string]any{"word": "ahoy"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ahoy!", got)
}
