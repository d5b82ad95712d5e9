package schema

import "fmt"

// Instance is a generic, descriptor-driven record: replication metadata
// lives on the Descriptor, not on the instance, matching the re-architecture
// pointer in spec.md §9 ("generic records keyed by field name; field kinds
// are primitive|ref|map|array... in the descriptor, not on the instance").
//
// Instance implements pathresolve.Fielded so dotted paths navigate through
// it uniformly with plain maps and Collections.
type Instance struct {
	class  *Descriptor
	table  *ClassTable
	values map[string]any
}

// ClassName returns the name of the class this instance was built from.
func (i *Instance) ClassName() string { return i.class.Name }

// FieldGet implements pathresolve.Fielded. Only declared fields are
// visible; an unset ref field reads as (nil, true) — present but empty,
// distinguishing it from a typo'd field name which reads as (nil, false).
func (i *Instance) FieldGet(name string) (any, bool) {
	if _, declared := i.class.Fields[name]; !declared {
		return nil, false
	}
	return i.values[name], true
}

// FieldSet implements pathresolve.Fielded. The set of declared fields is
// fixed at schema-build time (§4.D invariant): FieldSet never adds an
// unknown field, it only ever writes to one already in the descriptor.
func (i *Instance) FieldSet(name string, value any) error {
	if _, declared := i.class.Fields[name]; !declared {
		return fmt.Errorf("schema: class %q has no declared field %q", i.class.Name, name)
	}
	i.values[name] = value
	return nil
}

// FieldEnsure implements pathresolve.Fielded: if a declared field is unset,
// descent materializes a plain empty record there (the generic "ordinary
// record" fallback from the path resolver's contract), not a schema-typed
// instance — explicit createInstance-family actions are the only way to
// place a typed Instance in the graph.
func (i *Instance) FieldEnsure(name string) (any, error) {
	if _, declared := i.class.Fields[name]; !declared {
		return nil, fmt.Errorf("schema: class %q has no declared field %q", i.class.Name, name)
	}
	v := i.values[name]
	if v == nil {
		v = map[string]any{}
		i.values[name] = v
	}
	return v, nil
}

// Get returns the raw stored value of a declared field.
func (i *Instance) Get(name string) (any, bool) {
	return i.FieldGet(name)
}

// Fields returns the instance's descriptor, for callers (e.g. ToJSON) that
// need to enumerate the fixed field set.
func (i *Instance) Fields() map[string]FieldSpec {
	return i.class.Fields
}

// ToJSON converts the instance (recursively) into a plain
// map[string]any/[]any/primitive tree with no Instance/Collection/Sequence
// types left in it. The logic evaluator applies this conversion to every
// class-backed value a guard reads, since its operators only understand
// plain data.
func (i *Instance) ToJSON() map[string]any {
	out := make(map[string]any, len(i.values))
	for name, v := range i.values {
		out[name] = toJSONValue(v)
	}
	return out
}

func toJSONValue(v any) any {
	switch t := v.(type) {
	case *Instance:
		return t.ToJSON()
	case *Collection:
		return t.ToJSON()
	case *Sequence:
		return t.ToJSON()
	default:
		return v
	}
}
