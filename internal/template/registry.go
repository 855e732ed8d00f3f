package template

import (
	"fmt"
	"sort"
)

// UndefinedReferenceError reports a reference to a values path that is
// absent with no inline default to fall back on.
type UndefinedReferenceError struct {
	Path string
}

func (e *UndefinedReferenceError) Error() string {
	return fmt.Sprintf("undefined reference: .%s", e.Path)
}

// UnknownHelperError reports an include of a helper name that was never
// registered.
type UnknownHelperError struct {
	Name  string
	Known []string
}

func (e *UnknownHelperError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown helper %q (no helpers registered)", e.Name)
	}
	return fmt.Sprintf("unknown helper %q (registered: %v)", e.Name, e.Known)
}

// Registry holds named helper fragments for include. It is an explicit
// value handed to the Renderer; there is no process-wide helper state.
type Registry struct {
	helpers map[string]*Fragment
}

// NewRegistry creates an empty helper registry.
func NewRegistry() *Registry {
	return &Registry{helpers: make(map[string]*Fragment)}
}

// Register adds a single named helper, replacing any previous one with
// the same name.
func (r *Registry) Register(name string, f *Fragment) {
	r.helpers[name] = f
}

// Add registers every define block of a parsed fragment.
func (r *Registry) Add(f *Fragment) {
	for name, helper := range f.Defines() {
		r.Register(name, helper)
	}
}

// Lookup finds a helper by name.
func (r *Registry) Lookup(name string) (*Fragment, bool) {
	f, ok := r.helpers[name]
	return f, ok
}

// Names returns the registered helper names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
