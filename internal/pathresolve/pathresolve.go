// Package pathresolve reads and writes values through dotted paths, descending
// through both ordinary records (map[string]any / struct-like instances) and
// keyed collections (maps, sequences).
//
// The traversal rule mirrors how comalice/statechartx's MachineConfig.FindState
// walks a dot-separated hierarchical path segment by segment: at each hop,
// decide how to descend based on what the current container exposes, rather
// than on the path syntax itself.
package pathresolve

import (
	"fmt"
	"strings"
)

// Keyed is implemented by any container that exposes keyed-collection
// semantics: maps of instances, player rosters, and the like. Schema Builder
// collections and sequences implement it; a plain map[string]any does not,
// and is handled by its own case in Get and Set.
type Keyed interface {
	PathGet(key string) (any, bool)
	PathSet(key string, value any) error
	// PathEnsure returns the value at key, creating an empty record and
	// storing it there first if absent. Used by Set() to materialize
	// intermediate segments.
	PathEnsure(key string) (any, error)
}

// Fielded is implemented by schema-built instances: a record with a fixed,
// declared set of named fields.
type Fielded interface {
	FieldGet(name string) (any, bool)
	FieldSet(name string, value any) error
	// FieldEnsure behaves like PathEnsure but against a declared field.
	FieldEnsure(name string) (any, error)
}

// splitPath splits a dotted path into segments, discarding empty segments
// produced by a leading, trailing, or doubled separator.
func splitPath(path string) []string {
	raw := strings.Split(path, ".")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Get reads the value at path under root. It returns (nil, false) if any
// segment cannot be resolved.
func Get(root any, path string) (any, bool) {
	segs := splitPath(path)
	cur := root
	for _, seg := range segs {
		next, ok := descend(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func descend(cur any, seg string) (any, bool) {
	switch c := cur.(type) {
	case Keyed:
		return c.PathGet(seg)
	case Fielded:
		return c.FieldGet(seg)
	case map[string]any:
		v, ok := c[seg]
		return v, ok
	default:
		return nil, false
	}
}

// Set writes value at path under root, creating intermediate records as
// needed. Set on an empty path is a no-op. Writing a field on a container
// that supports neither Keyed nor Fielded nor map[string]any semantics is an
// error identifying the offending segment.
func Set(root any, path string, value any) error {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil
	}

	cur := root
	for i := 0; i < len(segs)-1; i++ {
		seg := segs[i]
		next, err := ensure(cur, seg)
		if err != nil {
			return fmt.Errorf("pathresolve: set %q: %w", path, err)
		}
		cur = next
	}

	last := segs[len(segs)-1]
	switch c := cur.(type) {
	case Keyed:
		return c.PathSet(last, value)
	case Fielded:
		return c.FieldSet(last, value)
	case map[string]any:
		c[last] = value
		return nil
	default:
		return fmt.Errorf("pathresolve: set %q: segment %q has no writable container (%T)", path, last, cur)
	}
}

// ensure descends into seg, materializing an empty record at seg if one is
// not already present.
func ensure(cur any, seg string) (any, error) {
	switch c := cur.(type) {
	case Keyed:
		return c.PathEnsure(seg)
	case Fielded:
		return c.FieldEnsure(seg)
	case map[string]any:
		v, ok := c[seg]
		if !ok || v == nil {
			v = map[string]any{}
			c[seg] = v
		}
		return v, nil
	default:
		return nil, fmt.Errorf("segment %q: container of type %T does not support descent", seg, cur)
	}
}
