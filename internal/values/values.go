package values

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lookup resolves a dotted path (e.g. "image.tag") into a value tree.
// Returns false if any segment is absent or an intermediate value is not
// a mapping.
func Lookup(vals map[string]any, path string) (any, bool) {
	current := any(vals)
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Truthy reports whether a value counts as true in a template conditional.
// Nil, false, zero numbers, and empty strings/mappings/sequences are
// falsy; everything else is truthy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case uint64:
		return val != 0
	case float64:
		return val != 0
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	default:
		return true
	}
}

// Set applies a "path.to.key=value" override in place, creating
// intermediate mappings as needed. Values are coerced the YAML way:
// true/false, null, integers, and floats become typed scalars,
// everything else stays a string.
func Set(vals map[string]any, pair string) error {
	path, raw, found := strings.Cut(pair, "=")
	if !found || path == "" {
		return fmt.Errorf("invalid set pair %q (want path.to.key=value)", pair)
	}

	segments := strings.Split(path, ".")
	current := vals
	for _, segment := range segments[:len(segments)-1] {
		next, exists := current[segment]
		if !exists || next == nil {
			child := make(map[string]any)
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return &TypeMismatchError{Path: path, Base: KindOf(next), Overlay: "mapping"}
		}
		current = child
	}

	last := segments[len(segments)-1]
	if existing, ok := current[last].(map[string]any); ok && len(existing) > 0 {
		return &TypeMismatchError{Path: path, Base: "mapping", Overlay: KindOf(coerceScalar(raw))}
	}
	current[last] = coerceScalar(raw)
	return nil
}

// coerceScalar parses a --set value string into a typed scalar.
func coerceScalar(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null", "~":
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// LoadFile reads a plain YAML values file into a mapping.
// An empty file yields an empty mapping, not nil.
func LoadFile(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values file: %w", err)
	}
	return ParseBytes(path, content)
}

// ParseBytes parses YAML values content. The name is used in errors only.
func ParseBytes(name string, content []byte) (map[string]any, error) {
	var vals map[string]any
	if err := yaml.Unmarshal(content, &vals); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", name, err)
	}
	if vals == nil {
		vals = make(map[string]any)
	}
	return vals, nil
}
