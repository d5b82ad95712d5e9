// Package logic evaluates a JSON logic-tree DSL over a data view, the way
// the teacher engine's extensibility.ExpressionGuardEvaluator evaluates
// "key op value" guard strings against a *primitives.Context — generalized
// here from single-operator string expressions to a full operator tree so
// guards can express and/or/not compositions and arithmetic, not just one
// comparison.
//
// A Node is one of:
//
//	{"var": "dotted.path"}
//	{"==": [a, b]}, {"!=": [a, b]}, {"===": [a, b]}, {"!==": [a, b]}
//	{"<": [a, b]}, {"<=": [a, b]}, {">": [a, b]}, {">=": [a, b]}
//	{"and": [a, b, ...]}, {"or": [a, b, ...]}, {"!": [a]}
//	{"+": [a, b, ...]}, {"-": [a, b]}, {"*": [a, b, ...]}, {"/": [a, b]}, {"%": [a, b]}
//	{"in": [needle, haystack]}
//
// Any value that is not a single-key map with an operator name is a literal
// and evaluates to itself. Strings beginning with "${" are NOT special here
// (token expansion is the render package's job); literal strings are
// compared as-is.
package logic

import (
	"fmt"

	"github.com/comalice/roomforge/internal/pathresolve"
)

// Node is one logic-tree node: either a literal value or a single-key
// operator map such as map[string]any{"==": []any{...}}.
type Node any

// View is the data the tree is evaluated against, the same shape as
// render.View: {event, state, context, data}. state may be the live
// replicated graph: every value a var node reads that exposes a ToJSON
// conversion (a schema Instance, Collection or Sequence) is converted to its
// plain form before any operator sees it, so operators only ever work on
// plain data.
type View map[string]any

// Eval evaluates node against view and returns the resulting primitive. Eval
// never panics: a malformed tree yields an error instead, so callers
// evaluating a guard can fail it closed without crashing the interpreter.
func Eval(node Node, view View) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		if len(n) != 1 {
			return nil, fmt.Errorf("logic: operator node must have exactly one key, got %d", len(n))
		}
		for op, args := range n {
			return evalOp(op, args, view)
		}
		return nil, nil // unreachable
	default:
		return n, nil
	}
}

// Bool evaluates node and coerces the result to a boolean for guard use. A
// malformed tree or evaluation error is treated as false, per the spec's
// "guard error -> treat as false" policy; the caller is responsible for
// logging the error if it wants visibility.
func Bool(node Node, view View) (bool, error) {
	v, err := Eval(node, view)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

func evalOp(op string, args any, view View) (any, error) {
	if op == "var" {
		path, ok := args.(string)
		if !ok {
			return nil, fmt.Errorf("logic: var argument must be a string path, got %T", args)
		}
		v, _ := pathresolve.Get(map[string]any(view), path)
		switch t := v.(type) {
		case interface{ ToJSON() map[string]any }:
			return t.ToJSON(), nil
		case interface{ ToJSON() []any }:
			return t.ToJSON(), nil
		}
		return v, nil
	}

	list, ok := args.([]any)
	if !ok {
		return nil, fmt.Errorf("logic: operator %q requires an argument array, got %T", op, args)
	}
	vals := make([]any, len(list))
	for i, a := range list {
		v, err := Eval(a, view)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	switch op {
	case "==":
		return arg2Ok(vals, op, func(a, b any) (any, error) { return looseEqual(a, b), nil })
	case "!=":
		return arg2Ok(vals, op, func(a, b any) (any, error) { return !looseEqual(a, b), nil })
	case "===":
		return arg2Ok(vals, op, func(a, b any) (any, error) { return strictEqual(a, b), nil })
	case "!==":
		return arg2Ok(vals, op, func(a, b any) (any, error) { return !strictEqual(a, b), nil })
	case "<", "<=", ">", ">=":
		return compare(op, vals)
	case "and":
		for _, v := range vals {
			if !truthy(v) {
				return false, nil
			}
		}
		return true, nil
	case "or":
		for _, v := range vals {
			if truthy(v) {
				return true, nil
			}
		}
		return false, nil
	case "!":
		if len(vals) != 1 {
			return nil, fmt.Errorf("logic: '!' requires exactly one argument")
		}
		return !truthy(vals[0]), nil
	case "+", "-", "*", "/", "%":
		return arithmetic(op, vals)
	case "in":
		if len(vals) != 2 {
			return nil, fmt.Errorf("logic: 'in' requires exactly two arguments")
		}
		return membership(vals[0], vals[1]), nil
	default:
		return nil, fmt.Errorf("logic: unknown operator %q", op)
	}
}

func arg2Ok(vals []any, op string, f func(a, b any) (any, error)) (any, error) {
	if len(vals) != 2 {
		return nil, fmt.Errorf("logic: %q requires exactly two arguments", op)
	}
	return f(vals[0], vals[1])
}

func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func strictEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		return as == bs
	}
	ab, abok := a.(bool)
	bb, bbok := b.(bool)
	if abok && bbok {
		return ab == bb
	}
	return a == nil && b == nil
}

func compare(op string, vals []any) (any, error) {
	if len(vals) != 2 {
		return nil, fmt.Errorf("logic: %q requires exactly two arguments", op)
	}
	a, aok := toFloat(vals[0])
	b, bok := toFloat(vals[1])
	if !aok || !bok {
		return nil, fmt.Errorf("logic: %q requires numeric operands", op)
	}
	switch op {
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	}
	return nil, fmt.Errorf("logic: unreachable comparison operator %q", op)
}

func arithmetic(op string, vals []any) (any, error) {
	if len(vals) == 0 {
		return nil, fmt.Errorf("logic: %q requires at least one argument", op)
	}
	acc, ok := toFloat(vals[0])
	if !ok {
		return nil, fmt.Errorf("logic: %q operand is not numeric: %v", op, vals[0])
	}
	if len(vals) == 1 {
		if op == "-" {
			return -acc, nil
		}
		return acc, nil
	}
	for _, v := range vals[1:] {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("logic: %q operand is not numeric: %v", op, v)
		}
		switch op {
		case "+":
			acc += f
		case "-":
			acc -= f
		case "*":
			acc *= f
		case "/":
			if f == 0 {
				return nil, fmt.Errorf("logic: division by zero")
			}
			acc /= f
		case "%":
			if f == 0 {
				return nil, fmt.Errorf("logic: modulo by zero")
			}
			acc = float64(int64(acc) % int64(f))
		}
	}
	return acc, nil
}

func membership(needle, haystack any) bool {
	switch h := haystack.(type) {
	case []any:
		for _, v := range h {
			if looseEqual(v, needle) {
				return true
			}
		}
		return false
	case string:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		return indexOf(h, s) >= 0
	default:
		return false
	}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	if needle == "" {
		return 0
	}
	return -1
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
