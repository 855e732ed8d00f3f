package template

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/chartroom/internal/values"
)

// baseFuncs builds the default function map: sprig's text functions,
// the handful of text/template builtins charts lean on (eq, and, not,
// printf), and the chart-specific helpers. include is not here; it is
// dispatched by the executor because it needs the helper registry and
// per-render depth tracking.
func baseFuncs() map[string]any {
	funcs := map[string]any(sprig.TxtFuncMap())

	// Comparison and logic builtins.
	funcs["eq"] = equalFunc
	funcs["ne"] = func(a, b any) bool { return !equalFunc(a, b) }
	funcs["lt"] = compareFunc("lt")
	funcs["le"] = compareFunc("le")
	funcs["gt"] = compareFunc("gt")
	funcs["ge"] = compareFunc("ge")
	funcs["and"] = andFunc
	funcs["or"] = orFunc
	funcs["not"] = func(v any) bool { return !values.Truthy(v) }
	funcs["printf"] = fmt.Sprintf
	funcs["len"] = lengthFunc

	// Chart helpers.
	funcs["toYaml"] = toYAML
	funcs["fromYaml"] = fromYAML
	funcs["required"] = requiredFunc

	return funcs
}

// toYAML marshals a value to YAML without the trailing newline, so the
// result composes with indent/nindent.
func toYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("toYaml: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func fromYAML(s string) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("fromYaml: %w", err)
	}
	return out, nil
}

// requiredFunc fails the render with the given message when the value
// is absent or empty.
func requiredFunc(msg string, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%s", msg)
	}
	if s, ok := v.(string); ok && s == "" {
		return nil, fmt.Errorf("%s", msg)
	}
	return v, nil
}

func equalFunc(a, b any) bool {
	if an, ok := toFloat(a); ok {
		if bn, bok := toFloat(b); bok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareFunc builds an ordering predicate over numbers or strings.
func compareFunc(op string) func(a, b any) (bool, error) {
	return func(a, b any) (bool, error) {
		var cmp int
		an, aok := toFloat(a)
		bn, bok := toFloat(b)
		switch {
		case aok && bok:
			switch {
			case an < bn:
				cmp = -1
			case an > bn:
				cmp = 1
			}
		default:
			as, aIsStr := a.(string)
			bs, bIsStr := b.(string)
			if !aIsStr || !bIsStr {
				return false, fmt.Errorf("cannot compare %s with %s", values.KindOf(a), values.KindOf(b))
			}
			cmp = strings.Compare(as, bs)
		}

		switch op {
		case "lt":
			return cmp < 0, nil
		case "le":
			return cmp <= 0, nil
		case "gt":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}
}

// andFunc returns the first falsy argument, or the last argument.
func andFunc(args ...any) any {
	var last any
	for _, a := range args {
		if !values.Truthy(a) {
			return a
		}
		last = a
	}
	return last
}

// orFunc returns the first truthy argument, or the last argument.
func orFunc(args ...any) any {
	var last any
	for _, a := range args {
		if values.Truthy(a) {
			return a
		}
		last = a
	}
	return last
}

func lengthFunc(v any) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return len(val), nil
	case []any:
		return len(val), nil
	case []string:
		return len(val), nil
	case map[string]any:
		return len(val), nil
	default:
		return 0, fmt.Errorf("len of %s", values.KindOf(v))
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return float64(n), true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// callFunc invokes a template function through reflection, converting
// arguments to the parameter types and unwrapping a trailing error
// return.
func callFunc(fn any, args []any) (any, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("not a function")
	}

	numIn := t.NumIn()
	if t.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("want at least %d arguments, got %d", numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("want %d arguments, got %d", numIn, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var paramType reflect.Type
		if t.IsVariadic() && i >= numIn-1 {
			paramType = t.In(numIn - 1).Elem()
		} else {
			paramType = t.In(i)
		}
		converted, err := convertArg(arg, paramType)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in[i] = converted
	}

	out := v.Call(in)
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if err, ok := out[1].Interface().(error); ok && err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("function returns %d values", len(out))
	}
}

func convertArg(arg any, typ reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return reflect.Zero(typ), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot pass null as %s", typ)
	}

	av := reflect.ValueOf(arg)
	if av.Type().AssignableTo(typ) {
		return av, nil
	}

	// Numeric widening/narrowing between int and float kinds, so that
	// template integers reach float parameters and vice versa.
	if isNumericKind(av.Kind()) && isNumericKind(typ.Kind()) {
		return av.Convert(typ), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", values.KindOf(arg), typ)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
