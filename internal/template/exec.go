package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cameronsjo/chartroom/internal/values"
)

// maxIncludeDepth bounds helper recursion so a self-including helper
// fails instead of hanging the render.
const maxIncludeDepth = 50

// Renderer executes parsed fragments against a context value. It holds
// the helper registry and the function map and carries no per-render
// state, so one Renderer serves concurrent renders.
type Renderer struct {
	registry *Registry
	funcs    map[string]any
}

// NewRenderer creates a renderer backed by the given helper registry.
// A nil registry acts as an empty one.
func NewRenderer(registry *Registry) *Renderer {
	if registry == nil {
		registry = NewRegistry()
	}
	r := &Renderer{registry: registry}
	r.funcs = baseFuncs()
	return r
}

// Registry returns the helper registry the renderer resolves include
// calls against.
func (r *Renderer) Registry() *Registry {
	return r.registry
}

// Funcs adds or overrides template functions.
func (r *Renderer) Funcs(extra map[string]any) *Renderer {
	for name, fn := range extra {
		r.funcs[name] = fn
	}
	return r
}

// Render executes a fragment against a context. Rendering the same
// (fragment, context) pair twice yields byte-identical output.
func (r *Renderer) Render(f *Fragment, ctx any) (string, error) {
	s := &state{r: r}
	var sb strings.Builder
	if err := s.walk(&sb, f.nodes, ctx); err != nil {
		return "", fmt.Errorf("render %s: %w", f.Name, err)
	}
	return sb.String(), nil
}

// missingValue marks an unresolved reference flowing through a
// pipeline. It either gets absorbed by default, treated as falsy in a
// guard, or surfaces as UndefinedReferenceError at output.
type missingValue struct {
	path string
}

// state carries per-render bookkeeping (include depth).
type state struct {
	r     *Renderer
	depth int
}

func (s *state) walk(sb *strings.Builder, nodes []node, dot any) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *textNode:
			sb.WriteString(n.text)

		case *actionNode:
			v, err := s.evalPipeline(n.pipe, dot, false)
			if err != nil {
				return err
			}
			if m, ok := v.(missingValue); ok {
				return &UndefinedReferenceError{Path: m.path}
			}
			sb.WriteString(formatValue(v))

		case *ifNode:
			v, err := s.evalPipeline(n.pipe, dot, true)
			if err != nil {
				return err
			}
			if truthy(v) {
				if err := s.walk(sb, n.then, dot); err != nil {
					return err
				}
			} else if err := s.walk(sb, n.els, dot); err != nil {
				return err
			}

		case *withNode:
			v, err := s.evalPipeline(n.pipe, dot, true)
			if err != nil {
				return err
			}
			if truthy(v) {
				if err := s.walk(sb, n.body, v); err != nil {
					return err
				}
			} else if err := s.walk(sb, n.els, dot); err != nil {
				return err
			}

		case *rangeNode:
			if err := s.walkRange(sb, n, dot); err != nil {
				return err
			}

		default:
			return fmt.Errorf("internal: unknown node %T", n)
		}
	}
	return nil
}

// walkRange iterates sequences element-wise and mappings value-wise in
// sorted key order, so ranged output is deterministic.
func (s *state) walkRange(sb *strings.Builder, n *rangeNode, dot any) error {
	v, err := s.evalPipeline(n.pipe, dot, true)
	if err != nil {
		return err
	}

	switch seq := v.(type) {
	case []any:
		if len(seq) == 0 {
			return s.walk(sb, n.els, dot)
		}
		for _, item := range seq {
			if err := s.walk(sb, n.body, item); err != nil {
				return err
			}
		}
		return nil

	case []string:
		if len(seq) == 0 {
			return s.walk(sb, n.els, dot)
		}
		for _, item := range seq {
			if err := s.walk(sb, n.body, item); err != nil {
				return err
			}
		}
		return nil

	case map[string]any:
		if len(seq) == 0 {
			return s.walk(sb, n.els, dot)
		}
		keys := make([]string, 0, len(seq))
		for k := range seq {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := s.walk(sb, n.body, seq[k]); err != nil {
				return err
			}
		}
		return nil

	case nil, missingValue:
		return s.walk(sb, n.els, dot)

	default:
		return fmt.Errorf("range over %s", values.KindOf(v))
	}
}

// evalPipeline evaluates a pipeline. In lenient mode (guards), absent
// references flow as nil into functions and resolve falsy; in strict
// mode (output actions) they fail unless default absorbs them.
func (s *state) evalPipeline(pipe *pipeline, dot any, lenient bool) (any, error) {
	var cur any
	have := false
	for _, cmd := range pipe.cmds {
		v, err := s.evalCommand(cmd, dot, cur, have, lenient)
		if err != nil {
			return nil, err
		}
		cur = v
		have = true
	}
	return cur, nil
}

func (s *state) evalCommand(cmd *command, dot, piped any, havePiped, lenient bool) (any, error) {
	if ident, ok := cmd.args[0].(*identExpr); ok {
		return s.callFunction(ident, cmd.args[1:], dot, piped, havePiped, lenient)
	}

	if len(cmd.args) > 1 {
		return nil, fmt.Errorf("extra arguments after value in pipeline stage")
	}
	if havePiped {
		return nil, fmt.Errorf("can only pipe into a function")
	}
	return s.evalArg(cmd.args[0], dot, lenient)
}

func (s *state) callFunction(ident *identExpr, argExprs []expr, dot, piped any, havePiped, lenient bool) (any, error) {
	args := make([]any, 0, len(argExprs)+1)
	for _, e := range argExprs {
		v, err := s.evalArg(e, dot, lenient)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if havePiped {
		args = append(args, piped)
	}

	// default absorbs unresolved references; everything else either
	// refuses them (strict) or sees nil (lenient).
	for i, a := range args {
		m, isMissing := a.(missingValue)
		if !isMissing {
			continue
		}
		if ident.name == "default" || lenient {
			args[i] = nil
		} else {
			return nil, &UndefinedReferenceError{Path: m.path}
		}
	}

	if ident.name == "include" {
		return s.include(args)
	}

	fn, ok := s.r.funcs[ident.name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", ident.name)
	}
	result, err := callFunc(fn, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ident.name, err)
	}
	return result, nil
}

// include renders a registered helper by name against an explicit
// context. Indentation is the caller's business, via indent/nindent.
func (s *state) include(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("include expects a helper name and a context")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("include helper name must be a string")
	}

	helper, found := s.r.registry.Lookup(name)
	if !found {
		return nil, &UnknownHelperError{Name: name, Known: s.r.registry.Names()}
	}

	if s.depth >= maxIncludeDepth {
		return nil, fmt.Errorf("include %q: helper nesting exceeds %d levels", name, maxIncludeDepth)
	}
	s.depth++
	defer func() { s.depth-- }()

	var sb strings.Builder
	if err := s.walk(&sb, helper.nodes, args[1]); err != nil {
		return nil, fmt.Errorf("include %q: %w", name, err)
	}
	return sb.String(), nil
}

func (s *state) evalArg(e expr, dot any, lenient bool) (any, error) {
	switch e := e.(type) {
	case *pathExpr:
		return resolvePath(dot, e), nil
	case *literalExpr:
		return e.val, nil
	case *parenExpr:
		return s.evalPipeline(e.pipe, dot, lenient)
	case *identExpr:
		return nil, fmt.Errorf("function %q in argument position must be parenthesized", e.name)
	default:
		return nil, fmt.Errorf("internal: unknown expression %T", e)
	}
}

// resolvePath walks a dotted reference from the current context.
// An absent or untraversable path yields a missingValue marker; the
// pipeline decides whether that is an error.
func resolvePath(dot any, pe *pathExpr) any {
	cur := dot
	for _, seg := range pe.segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return missingValue{path: pe.raw}
		}
		cur, ok = m[seg]
		if !ok {
			return missingValue{path: pe.raw}
		}
	}
	return cur
}

// truthy extends the values predicate to the missing marker.
func truthy(v any) bool {
	if _, ok := v.(missingValue); ok {
		return false
	}
	return values.Truthy(v)
}

// formatValue renders a pipeline result into output text. Nil renders
// as nothing, matching chart expectations for optional scalars.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
