// Package render expands ${dotted.path} placeholders in action parameters
// against a view record of {event, state, context, data}.
//
// The recursive traverse-and-rebuild shape follows the same pattern the
// teacher engine uses for context snapshots (primitives.Context.Snapshot):
// walk the structure once, producing a same-shaped copy with leaves
// transformed.
package render

import (
	"fmt"
	"strings"

	"github.com/comalice/roomforge/internal/pathresolve"
)

// View is the data a token expression is resolved against: {event, state,
// context, data}. Callers pass a map[string]any with exactly those top-level
// keys (some may be nil/omitted).
type View map[string]any

// Value recursively renders every string leaf of v. Arrays and maps are
// traversed; non-string, non-container leaves pass through unchanged.
func Value(v any, view View) any {
	switch t := v.(type) {
	case string:
		return String(t, view)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e, view)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Value(e, view)
		}
		return out
	default:
		return v
	}
}

// String renders every ${expr} placeholder in s. A placeholder whose
// resolved value is not found renders as the empty string. A string that is
// exactly one placeholder ("${expr}") and resolves to a non-string value
// renders via fmt.Sprint of that value; templating a leaf that is itself an
// object is undefined behavior left to the author per the token-renderer
// contract, but we still produce a stable, non-panicking result.
func String(s string, view View) string {
	if !strings.Contains(s, "${") {
		return s
	}

	var b strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start == -1 {
			b.WriteString(s[i:])
			break
		}
		start += i
		b.WriteString(s[i:start])

		end := strings.Index(s[start:], "}")
		if end == -1 {
			// Unterminated placeholder: emit verbatim and stop.
			b.WriteString(s[start:])
			break
		}
		end += start

		expr := strings.TrimSpace(s[start+2 : end])
		resolved, ok := pathresolve.Get(map[string]any(view), expr)
		if ok {
			b.WriteString(stringify(resolved))
		}
		i = end + 1
	}
	return b.String()
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
