// Package values implements the layered configuration model behind chart
// rendering. Values are plain mapping/sequence/scalar trees as produced by
// YAML unmarshalling:
//
//   - mappings are map[string]any
//   - sequences are []any
//   - scalars are string, bool, int, float64, or nil
//
// Layers merge depth-first with later layers winning. Mappings merge
// key-wise; scalars and sequences in a later layer replace the earlier
// value outright. A layer that puts a scalar where a mapping already
// lives (or the reverse) is a configuration mistake and fails with
// TypeMismatchError rather than silently clobbering the subtree.
package values
