// Package schema builds live replicated-state classes and their defaults
// from a class/field DSL, the runtime analogue of how the teacher engine's
// primitives.StateConfig/MachineConfig describe a statechart: a declarative,
// JSON/YAML-tagged struct tree that is built once, validated for dangling
// references, and then driven at runtime.
//
// The DSL:
//
//	schema = { root, classes: {Name: {field: FieldType, ...}, ...}, defaults?: {Name: {...}} }
//	FieldType =
//	   {type: "string"|"number"|"boolean"}  // primitive
//	 | {ref: ClassName}                     // single nested instance
//	 | {map: ClassName}                     // keyed collection of instances
//	 | {array: ClassName|primitiveName}     // ordered collection
package schema

import (
	"fmt"
)

// Kind identifies how a declared field is stored and navigated.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindRef       Kind = "ref"
	KindMap       Kind = "map"
	KindArray     Kind = "array"
)

// Primitive names allowed for {type: ...} fields and {array: primitiveName}
// element types.
const (
	PrimitiveString  = "string"
	PrimitiveNumber  = "number"
	PrimitiveBoolean = "boolean"
)

var primitiveNames = map[string]bool{
	PrimitiveString:  true,
	PrimitiveNumber:  true,
	PrimitiveBoolean: true,
}

// FieldType is one field's declared type, as authored in a definition file.
type FieldType struct {
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Ref   string `json:"ref,omitempty" yaml:"ref,omitempty"`
	Map   string `json:"map,omitempty" yaml:"map,omitempty"`
	Array string `json:"array,omitempty" yaml:"array,omitempty"`
}

// kind classifies the FieldType as authored. An empty/malformed FieldType
// (none of Type/Ref/Map/Array set) is reported by Validate, not here.
func (f FieldType) kind() Kind {
	switch {
	case f.Type != "":
		return KindPrimitive
	case f.Ref != "":
		return KindRef
	case f.Map != "":
		return KindMap
	case f.Array != "":
		return KindArray
	default:
		return ""
	}
}

// ClassDef declares one class's fields.
type ClassDef struct {
	Fields map[string]FieldType `json:"fields" yaml:"fields"`
}

// Schema is the root/classes/defaults DSL document.
type Schema struct {
	Root     string                       `json:"root" yaml:"root"`
	Classes  map[string]ClassDef          `json:"classes" yaml:"classes"`
	Defaults map[string]map[string]any   `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// Validate checks that root exists and every field type reference resolves
// to a declared class or a primitive, following the same
// cross-reference-resolution style as the teacher's MachineConfig.Validate.
func (s *Schema) Validate() error {
	if s.Root == "" {
		return fmt.Errorf("schema: root is required")
	}
	if _, ok := s.Classes[s.Root]; !ok {
		return fmt.Errorf("schema: root class %q not declared", s.Root)
	}

	for className, class := range s.Classes {
		for fieldName, ft := range class.Fields {
			switch ft.kind() {
			case KindPrimitive:
				if !primitiveNames[ft.Type] {
					return fmt.Errorf("schema: class %q field %q: unknown primitive type %q", className, fieldName, ft.Type)
				}
			case KindRef:
				if _, ok := s.Classes[ft.Ref]; !ok {
					return fmt.Errorf("schema: class %q field %q: ref to undeclared class %q", className, fieldName, ft.Ref)
				}
			case KindMap:
				if _, ok := s.Classes[ft.Map]; !ok {
					return fmt.Errorf("schema: class %q field %q: map to undeclared class %q", className, fieldName, ft.Map)
				}
			case KindArray:
				if primitiveNames[ft.Array] {
					continue
				}
				if _, ok := s.Classes[ft.Array]; !ok {
					return fmt.Errorf("schema: class %q field %q: array element class %q not declared (and not a primitive)", className, fieldName, ft.Array)
				}
			default:
				return fmt.Errorf("schema: class %q field %q: no type/ref/map/array set", className, fieldName)
			}
		}
	}
	return nil
}
