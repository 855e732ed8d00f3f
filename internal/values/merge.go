package values

import "fmt"

// TypeMismatchError reports a merge that tried to replace a mapping with a
// scalar/sequence or vice versa. Path is the dotted location of the
// offending key.
type TypeMismatchError struct {
	Path    string
	Base    string
	Overlay string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch at %s: cannot merge %s over %s", e.Path, e.Overlay, e.Base)
}

// Merge combines a sequence of value layers into a single tree.
// Later layers take precedence. Inputs are never mutated and the result
// shares no structure with them, so a merged tree is safe to hand to
// concurrent renders.
func Merge(layers ...map[string]any) (map[string]any, error) {
	result := make(map[string]any)
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		merged, err := mergeMaps(result, layer, "")
		if err != nil {
			return nil, err
		}
		result = merged
	}
	return result, nil
}

func mergeMaps(base, overlay map[string]any, path string) (map[string]any, error) {
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}

	for key, overlayValue := range overlay {
		currentPath := key
		if path != "" {
			currentPath = path + "." + key
		}

		baseValue, exists := result[key]
		if !exists || baseValue == nil {
			result[key] = deepCopy(overlayValue)
			continue
		}

		baseMap, baseIsMap := baseValue.(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)

		switch {
		case baseIsMap && overlayIsMap:
			merged, err := mergeMaps(baseMap, overlayMap, currentPath)
			if err != nil {
				return nil, err
			}
			result[key] = merged
		case baseIsMap != overlayIsMap:
			// Explicit null in an overlay removes the key regardless of
			// what it was before.
			if overlayValue == nil {
				delete(result, key)
				continue
			}
			return nil, &TypeMismatchError{
				Path:    currentPath,
				Base:    KindOf(baseValue),
				Overlay: KindOf(overlayValue),
			}
		default:
			// Scalars and sequences replace, never merge.
			result[key] = deepCopy(overlayValue)
		}
	}

	return result, nil
}

// KindOf names the variant of a value for error messages and truthiness.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "mapping"
	case []any, []string:
		return "sequence"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// deepCopy creates a deep copy of any value.
func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = deepCopy(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = deepCopy(val)
		}
		return result
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	default:
		// Scalars are immutable, return as-is.
		return value
	}
}
