package schema

import "fmt"

// FieldSpec is the resolved, pointer-linked form of a FieldType: forward
// references to other classes are live *Descriptor pointers rather than
// bare names, so navigation never has to re-resolve a class name at
// runtime.
type FieldSpec struct {
	Kind Kind

	Primitive string // KindPrimitive / KindArray-of-primitive

	RefClass   *Descriptor // KindRef
	MapClass   *Descriptor // KindMap
	ArrayClass *Descriptor // KindArray-of-class (nil if Primitive set)
}

// Descriptor is a class's runtime field table: the fixed set of fields an
// Instance of this class may ever hold.
type Descriptor struct {
	Name   string
	Fields map[string]FieldSpec
}

// ClassTable is the built class catalogue for one definition. It is
// immutable once built and is the table the Action Runtime's createInstance
// family look classes up in by name.
type ClassTable struct {
	schema      *Schema
	descriptors map[string]*Descriptor
}

// Build builds a ClassTable from a validated Schema, in two passes: first
// every class name is declared as an empty Descriptor (so forward and
// mutually-recursive references resolve), then each class's fields are
// populated against the now-complete descriptor set.
func Build(s *Schema) (*ClassTable, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	t := &ClassTable{schema: s, descriptors: make(map[string]*Descriptor, len(s.Classes))}

	// Pass 1: declare.
	for name := range s.Classes {
		t.descriptors[name] = &Descriptor{Name: name, Fields: map[string]FieldSpec{}}
	}

	// Pass 2: resolve.
	for name, class := range s.Classes {
		desc := t.descriptors[name]
		for fieldName, ft := range class.Fields {
			spec, err := t.resolve(ft)
			if err != nil {
				return nil, fmt.Errorf("schema: class %q field %q: %w", name, fieldName, err)
			}
			desc.Fields[fieldName] = spec
		}
	}

	return t, nil
}

func (t *ClassTable) resolve(ft FieldType) (FieldSpec, error) {
	switch ft.kind() {
	case KindPrimitive:
		return FieldSpec{Kind: KindPrimitive, Primitive: ft.Type}, nil
	case KindRef:
		d, ok := t.descriptors[ft.Ref]
		if !ok {
			return FieldSpec{}, fmt.Errorf("undeclared ref class %q", ft.Ref)
		}
		return FieldSpec{Kind: KindRef, RefClass: d}, nil
	case KindMap:
		d, ok := t.descriptors[ft.Map]
		if !ok {
			return FieldSpec{}, fmt.Errorf("undeclared map class %q", ft.Map)
		}
		return FieldSpec{Kind: KindMap, MapClass: d}, nil
	case KindArray:
		if primitiveNames[ft.Array] {
			return FieldSpec{Kind: KindArray, Primitive: ft.Array}, nil
		}
		d, ok := t.descriptors[ft.Array]
		if !ok {
			return FieldSpec{}, fmt.Errorf("undeclared array element class %q", ft.Array)
		}
		return FieldSpec{Kind: KindArray, ArrayClass: d}, nil
	default:
		return FieldSpec{}, fmt.Errorf("malformed field type")
	}
}

// Descriptor looks up a declared class by name.
func (t *ClassTable) Descriptor(className string) (*Descriptor, bool) {
	d, ok := t.descriptors[className]
	return d, ok
}

// RootClass returns the schema's declared root class name.
func (t *ClassTable) RootClass() string {
	return t.schema.Root
}

// NewInstance constructs a fresh instance of className. map fields start as
// an empty Collection and array fields as an empty Sequence; ref and
// primitive fields start unset.
func (t *ClassTable) NewInstance(className string) (*Instance, error) {
	desc, ok := t.descriptors[className]
	if !ok {
		return nil, fmt.Errorf("schema: unknown class %q", className)
	}
	inst := &Instance{class: desc, table: t, values: map[string]any{}}
	for name, spec := range desc.Fields {
		switch spec.Kind {
		case KindMap:
			inst.values[name] = newCollection(spec, t)
		case KindArray:
			inst.values[name] = newSequence(spec, t)
		}
	}
	return inst, nil
}

// NewInstanceWithDefaults builds an instance of className and assigns
// primitive defaults from schema.Defaults[className]. Nested (non-
// primitive) defaults are ignored at this layer: per the schema builder's
// contract, explicit actions create nested instances later.
//
// Used for the room's root instance and for the room's player roster, so
// both start with their author-declared defaults rather than unset fields.
// The createInstance family of actions uses NewInstance and applies no
// defaults.
func (t *ClassTable) NewInstanceWithDefaults(className string) (*Instance, error) {
	inst, err := t.NewInstance(className)
	if err != nil {
		return nil, err
	}

	defaults := t.schema.Defaults[className]
	desc := inst.class
	for name, val := range defaults {
		spec, ok := desc.Fields[name]
		if !ok || spec.Kind != KindPrimitive {
			continue
		}
		inst.values[name] = val
	}
	return inst, nil
}

// InstantiateWithDefaults builds the root instance seeded with
// schema.Defaults[rootClass].
func (t *ClassTable) InstantiateWithDefaults() (*Instance, error) {
	return t.NewInstanceWithDefaults(t.schema.Root)
}
