package chart

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/cameronsjo/chartroom/internal/emit"
	"github.com/cameronsjo/chartroom/internal/template"
	"github.com/cameronsjo/chartroom/internal/values"
)

// Options controls one render invocation.
type Options struct {
	// ReleaseName becomes .Release.Name; defaults to the chart name.
	ReleaseName string

	// Namespace becomes .Release.Namespace; defaults to "default".
	Namespace string

	// Overlays are value layers applied over the chart defaults, in
	// order (environment files, then user files, then secrets).
	Overlays []map[string]any

	// Set holds --set pairs applied last, over every file layer.
	Set []string
}

// Output is the result of one render: the manifest text and its parsed
// documents. ID identifies the render invocation.
type Output struct {
	ID        string
	ChartName string
	Release   string
	Text      string
	Docs      []emit.Document
}

// Render executes the full pipeline for one chart: merge value layers,
// render every template in declared order, and parse the combined
// manifest stream. Template failures abort the render; document parse
// failures are aggregated and returned alongside the successfully
// parsed documents.
func Render(c *Chart, opts Options) (*Output, error) {
	merged, err := MergeValues(c, opts)
	if err != nil {
		return nil, err
	}

	release := opts.ReleaseName
	if release == "" {
		release = c.Metadata.Name
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "default"
	}

	out := &Output{
		ID:        uuid.New().String(),
		ChartName: c.Metadata.Name,
		Release:   release,
	}

	ctx := map[string]any{
		"Values": merged,
		"Release": map[string]any{
			"Name":      release,
			"Namespace": namespace,
			"Service":   "chartroom",
		},
		"Chart": map[string]any{
			"Name":       c.Metadata.Name,
			"Version":    c.Metadata.Version,
			"AppVersion": c.Metadata.AppVersion,
		},
	}

	renderer := template.NewRenderer(c.Registry)

	var sections []string
	for _, file := range c.Templates {
		text, err := renderer.Render(file.Fragment, ctx)
		if err != nil {
			return nil, fmt.Errorf("chart %s: %w", c.Metadata.Name, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		header := fmt.Sprintf("# Source: %s/%s\n", c.Metadata.Name, file.Name)
		sections = append(sections, header+strings.TrimRight(text, "\n")+"\n")
	}
	out.Text = strings.Join(sections, "---\n")

	docs, err := emit.Parse(out.Text)
	out.Docs = docs
	if err != nil {
		return out, fmt.Errorf("chart %s: %w", c.Metadata.Name, err)
	}
	return out, nil
}

// MergeValues builds the effective values for a render: chart defaults,
// then overlays in order, then --set pairs.
func MergeValues(c *Chart, opts Options) (map[string]any, error) {
	layers := append([]map[string]any{c.Values}, opts.Overlays...)
	merged, err := values.Merge(layers...)
	if err != nil {
		return nil, fmt.Errorf("merge values for %s: %w", c.Metadata.Name, err)
	}

	for _, pair := range opts.Set {
		if err := values.Set(merged, pair); err != nil {
			return nil, fmt.Errorf("apply --set %s: %w", pair, err)
		}
	}
	return merged, nil
}

// Lint renders every template of a chart against its defaults (plus
// any overlays) and aggregates all failures instead of stopping at the
// first, so one pass reports everything a chart author has to fix.
func Lint(c *Chart, opts Options) error {
	var result *multierror.Error

	merged, err := MergeValues(c, opts)
	if err != nil {
		return err
	}

	ctx := map[string]any{
		"Values": merged,
		"Release": map[string]any{
			"Name":      c.Metadata.Name,
			"Namespace": "default",
			"Service":   "chartroom",
		},
		"Chart": map[string]any{
			"Name":       c.Metadata.Name,
			"Version":    c.Metadata.Version,
			"AppVersion": c.Metadata.AppVersion,
		},
	}

	renderer := template.NewRenderer(c.Registry)
	for _, file := range c.Templates {
		text, err := renderer.Render(file.Fragment, ctx)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, err := emit.Parse(text); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", file.Name, err))
		}
	}

	return result.ErrorOrNil()
}
