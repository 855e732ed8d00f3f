package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/chartroom/internal/template"
	"github.com/cameronsjo/chartroom/internal/values"
)

// Metadata holds the Chart.yaml fields.
type Metadata struct {
	APIVersion  string `yaml:"apiVersion,omitempty"`
	Name        string `yaml:"name"`
	Version     string `yaml:"version,omitempty"`
	AppVersion  string `yaml:"appVersion,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// File is one parsed template file of a chart.
type File struct {
	// Name is the path relative to the chart dir, e.g. templates/service.yaml.
	Name string

	// Fragment is the parsed template, reused across renders.
	Fragment *template.Fragment
}

// Chart is a loaded chart: metadata, default values, parsed templates,
// and the helper registry built from its underscore files.
type Chart struct {
	Dir       string
	Metadata  *Metadata
	Values    map[string]any
	Templates []*File
	Registry  *template.Registry
}

// templateExtensions lists the file suffixes rendered as templates.
var templateExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".tpl":  true,
}

// Load reads a chart directory and parses every template once.
// Files under templates/ whose base name starts with an underscore
// contribute helpers only; they produce no manifest output themselves.
func Load(dir string) (*Chart, error) {
	meta, err := loadMetadata(dir)
	if err != nil {
		return nil, err
	}

	defaults, err := loadDefaults(dir)
	if err != nil {
		return nil, err
	}

	c := &Chart{
		Dir:      dir,
		Metadata: meta,
		Values:   defaults,
		Registry: template.NewRegistry(),
	}

	templatesDir := filepath.Join(dir, "templates")
	entries, err := os.ReadDir(templatesDir)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read templates directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !templateExtensions[filepath.Ext(name)] {
			continue
		}

		content, err := os.ReadFile(filepath.Join(templatesDir, name))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}

		relName := filepath.Join("templates", name)
		frag, err := template.Parse(relName, string(content))
		if err != nil {
			return nil, fmt.Errorf("chart %s: %w", meta.Name, err)
		}

		// Helpers register; only regular files emit manifests.
		c.Registry.Add(frag)
		if !strings.HasPrefix(name, "_") {
			c.Templates = append(c.Templates, &File{Name: relName, Fragment: frag})
		}
	}

	// Deterministic render order regardless of directory iteration.
	sort.Slice(c.Templates, func(i, j int) bool {
		return c.Templates[i].Name < c.Templates[j].Name
	})

	return c, nil
}

func loadMetadata(dir string) (*Metadata, error) {
	content, err := os.ReadFile(filepath.Join(dir, "Chart.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("not a chart directory (no Chart.yaml): %s", dir)
		}
		return nil, fmt.Errorf("read Chart.yaml: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(content, &meta); err != nil {
		return nil, fmt.Errorf("parse Chart.yaml: %w", err)
	}
	if meta.Name == "" {
		return nil, fmt.Errorf("Chart.yaml is missing the chart name")
	}
	return &meta, nil
}

func loadDefaults(dir string) (map[string]any, error) {
	path := filepath.Join(dir, "values.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return make(map[string]any), nil
	}
	return values.LoadFile(path)
}

// List returns the chart directory names under chartsDir, sorted.
// A directory counts as a chart when it carries a Chart.yaml.
func List(chartsDir string) ([]string, error) {
	entries, err := os.ReadDir(chartsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("charts directory not found: %s", chartsDir)
		}
		return nil, fmt.Errorf("read charts directory: %w", err)
	}

	var charts []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(chartsDir, entry.Name(), "Chart.yaml")); err == nil {
			charts = append(charts, entry.Name())
		}
	}
	sort.Strings(charts)
	return charts, nil
}
