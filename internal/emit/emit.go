// Package emit turns rendered template text into structured manifest
// documents. The text is split on YAML document separators and each
// document is parsed independently; parse failures are collected per
// document rather than aborting at the first bad one, so a lint run
// reports every broken document in a single pass.
package emit

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Document is one parsed manifest: a single target-system object.
// Index counts non-blank documents in render order.
type Document struct {
	Index      int
	APIVersion string
	Kind       string
	Name       string
	Object     map[string]any
	Source     string
}

// MalformedDocumentError reports a document that failed to parse,
// identified by its index in the rendered stream.
type MalformedDocumentError struct {
	Index int
	Err   error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("document %d: %v", e.Index, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// FileStem returns a filename-friendly slug for the document, built
// from its kind and name.
func (d Document) FileStem() string {
	kind := strings.ToLower(d.Kind)
	if kind == "" {
		kind = "manifest"
	}
	if d.Name == "" {
		return kind
	}
	return kind + "-" + strings.ToLower(d.Name)
}

// Split divides rendered text into raw documents on "---" separator
// lines. A separator must have nothing but whitespace after the dashes;
// a line that merely starts with "---" stays content. Blank documents
// (a conditional that rendered nothing, or a leading separator) are
// dropped.
func Split(text string) []string {
	var docs []string
	for i, raw := range strings.Split("\n"+text, "\n---") {
		doc := raw
		if i == 0 {
			doc = strings.TrimPrefix(raw, "\n")
		} else if head, rest, _ := strings.Cut(raw, "\n"); strings.TrimSpace(head) == "" {
			doc = rest
		} else {
			doc = "---" + raw
		}
		if !isBlank(doc) {
			docs = append(docs, doc)
		}
	}
	return docs
}

// isBlank reports whether a document holds nothing but whitespace and
// comments.
func isBlank(doc string) bool {
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			return false
		}
	}
	return true
}

// Parse splits rendered text and parses every document. Malformed
// documents are skipped and their errors aggregated; the returned
// slice holds everything that did parse. The error, when non-nil,
// wraps one MalformedDocumentError per bad document.
func Parse(text string) ([]Document, error) {
	var (
		docs   []Document
		result *multierror.Error
	)

	for i, source := range Split(text) {
		var obj map[string]any
		if err := yaml.Unmarshal([]byte(source), &obj); err != nil {
			result = multierror.Append(result, &MalformedDocumentError{Index: i, Err: err})
			continue
		}

		docs = append(docs, Document{
			Index:      i,
			APIVersion: stringAt(obj, "apiVersion"),
			Kind:       stringAt(obj, "kind"),
			Name:       nameOf(obj),
			Object:     obj,
			Source:     source,
		})
	}

	return docs, result.ErrorOrNil()
}

func stringAt(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func nameOf(obj map[string]any) string {
	meta, _ := obj["metadata"].(map[string]any)
	return stringAt(meta, "name")
}
