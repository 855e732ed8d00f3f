package chart

import (
	"fmt"
	"os"
	"path/filepath"
)

const scaffoldChartYAML = `apiVersion: v2
name: %[1]s
version: 0.1.0
appVersion: "1.0.0"
description: A chartroom chart for %[1]s
`

const scaffoldValuesYAML = `replicaCount: 1

image:
  repository: nginx
  tag: "1.27"
  pullPolicy: IfNotPresent

service:
  type: ClusterIP
  port: 80

ingress:
  enabled: false
  host: ""
`

const scaffoldHelpersTpl = `{{- define "%[1]s.fullname" -}}
{{ .Release.Name }}-{{ .Chart.Name }}
{{- end -}}

{{- define "%[1]s.labels" -}}
app.kubernetes.io/name: {{ .Chart.Name }}
app.kubernetes.io/instance: {{ .Release.Name }}
app.kubernetes.io/managed-by: chartroom
{{- end -}}
`

const scaffoldDeploymentYAML = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: {{ include "%[1]s.fullname" . }}
  labels:
    {{- include "%[1]s.labels" . | nindent 4 }}
spec:
  replicas: {{ .Values.replicaCount }}
  selector:
    matchLabels:
      app.kubernetes.io/name: {{ .Chart.Name }}
  template:
    metadata:
      labels:
        {{- include "%[1]s.labels" . | nindent 8 }}
    spec:
      containers:
        - name: {{ .Chart.Name }}
          image: {{ .Values.image.repository }}:{{ .Values.image.tag }}
          imagePullPolicy: {{ .Values.image.pullPolicy }}
          ports:
            - containerPort: {{ .Values.service.port }}
`

const scaffoldServiceYAML = `apiVersion: v1
kind: Service
metadata:
  name: {{ include "%[1]s.fullname" . }}
  labels:
    {{- include "%[1]s.labels" . | nindent 4 }}
spec:
  type: {{ .Values.service.type }}
  ports:
    - port: {{ .Values.service.port }}
      targetPort: {{ .Values.service.port }}
  selector:
    app.kubernetes.io/name: {{ .Chart.Name }}
`

const scaffoldIngressYAML = `{{- if .Values.ingress.enabled }}
apiVersion: networking.k8s.io/v1
kind: Ingress
metadata:
  name: {{ include "%[1]s.fullname" . }}
  labels:
    {{- include "%[1]s.labels" . | nindent 4 }}
spec:
  rules:
    - host: {{ required "ingress.host is required when ingress is enabled" .Values.ingress.host }}
      http:
        paths:
          - path: /
            pathType: Prefix
            backend:
              service:
                name: {{ include "%[1]s.fullname" . }}
                port:
                  number: {{ .Values.service.port }}
{{- end }}
`

// Scaffold writes a starter chart named name under chartsDir. It
// refuses to touch a directory that already exists.
func Scaffold(chartsDir, name string) (string, error) {
	dir := filepath.Join(chartsDir, name)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("chart %s already exists at %s", name, dir)
	}

	templates := filepath.Join(dir, "templates")
	if err := os.MkdirAll(templates, 0755); err != nil {
		return "", fmt.Errorf("create chart directory: %w", err)
	}

	files := map[string]string{
		filepath.Join(dir, "Chart.yaml"):              fmt.Sprintf(scaffoldChartYAML, name),
		filepath.Join(dir, "values.yaml"):             scaffoldValuesYAML,
		filepath.Join(templates, "_helpers.tpl"):      fmt.Sprintf(scaffoldHelpersTpl, name),
		filepath.Join(templates, "deployment.yaml"):   fmt.Sprintf(scaffoldDeploymentYAML, name),
		filepath.Join(templates, "service.yaml"):      fmt.Sprintf(scaffoldServiceYAML, name),
		filepath.Join(templates, "ingress.yaml"):      fmt.Sprintf(scaffoldIngressYAML, name),
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	return dir, nil
}
