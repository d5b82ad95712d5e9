package schema

import (
	"errors"
	"strconv"
)

var errNotAClassCollection = errors.New("schema: collection elements are primitives, not a class")

// Sequence backs an `array` field: an ordered collection of instances or
// primitives. It implements pathresolve.Keyed with decimal-string indices
// so "data.questions.0.text"-style paths (and action params referencing an
// element by numeric index) navigate uniformly with everything else.
type Sequence struct {
	spec  FieldSpec
	table *ClassTable
	items []any
}

func newSequence(spec FieldSpec, table *ClassTable) *Sequence {
	return &Sequence{spec: spec, table: table}
}

// PathGet implements pathresolve.Keyed.
func (s *Sequence) PathGet(key string) (any, bool) {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= len(s.items) {
		return nil, false
	}
	return s.items[idx], true
}

// PathSet implements pathresolve.Keyed: writes an existing index, or
// appends when key equals the current length.
func (s *Sequence) PathSet(key string, value any) error {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx > len(s.items) {
		return errBadSequenceIndex(key)
	}
	if idx == len(s.items) {
		s.items = append(s.items, value)
		return nil
	}
	s.items[idx] = value
	return nil
}

// PathEnsure implements pathresolve.Keyed.
func (s *Sequence) PathEnsure(key string) (any, error) {
	idx, err := strconv.Atoi(key)
	if err != nil {
		return nil, errBadSequenceIndex(key)
	}
	if idx >= 0 && idx < len(s.items) && s.items[idx] != nil {
		return s.items[idx], nil
	}
	v := map[string]any{}
	if err := s.PathSet(key, v); err != nil {
		return nil, err
	}
	return v, nil
}

func errBadSequenceIndex(key string) error {
	return &sequenceIndexError{key: key}
}

type sequenceIndexError struct{ key string }

func (e *sequenceIndexError) Error() string {
	return "schema: invalid sequence index " + e.key
}

// Append adds value to the end of the sequence.
func (s *Sequence) Append(value any) {
	s.items = append(s.items, value)
}

// At returns the element at idx.
func (s *Sequence) At(idx int) (any, bool) {
	if idx < 0 || idx >= len(s.items) {
		return nil, false
	}
	return s.items[idx], true
}

// Len returns the number of elements.
func (s *Sequence) Len() int { return len(s.items) }

// ClassName returns the declared element class name, or "" for primitive
// element sequences.
func (s *Sequence) ClassName() string {
	if s.spec.ArrayClass != nil {
		return s.spec.ArrayClass.Name
	}
	return ""
}

// NewElement constructs a fresh Instance of the sequence's declared element
// class. It is an error to call this on a sequence of primitives.
func (s *Sequence) NewElement() (*Instance, error) {
	if s.spec.ArrayClass == nil {
		return nil, errNotAClassCollection
	}
	return s.table.NewInstance(s.spec.ArrayClass.Name)
}

// ToJSON converts the sequence into a plain slice, recursively converting
// any Instance/Collection/Sequence elements.
func (s *Sequence) ToJSON() []any {
	out := make([]any, len(s.items))
	for i, v := range s.items {
		out[i] = toJSONValue(v)
	}
	return out
}
