// Package template implements the chart template engine: a small
// action language embedded in literal text, rendered against a merged
// values tree.
//
// Fragments are parsed once and are immutable afterwards; a single
// parsed Fragment can be rendered concurrently against different value
// trees. The action syntax is the familiar chart dialect:
//
//	image: {{ .Values.image.repository }}:{{ .Values.image.tag | default "latest" }}
//	{{- if .Values.ingress.enabled }}
//	host: {{ .Values.ingress.host | quote }}
//	{{- end }}
//	labels:
//	  {{- include "app.labels" . | nindent 4 }}
//
// Supported constructs: {{ ... }} actions with {{- and -}} whitespace
// trimming, pipelines with sprig's function set plus chart helpers
// (include, toYaml, fromYaml, required), if/else if/else, with, range,
// and define blocks for named helpers.
//
// A reference to an absent path fails the render with
// UndefinedReferenceError unless the pipeline routes it through
// default. Guard positions (if/with/range) treat absent paths as
// falsy instead, so `if .Values.ingress.enabled` works on charts that
// never mention ingress.
//
// Named helpers live in an explicit Registry passed to the Renderer,
// not in process-wide state.
package template
