package schema

// Collection backs a `map` field: a keyed collection of instances (or
// primitives, in principle, though the DSL only declares map-of-class).
// It implements pathresolve.Keyed so `players.<sid>.score` navigates
// through it the same way it would through a plain map[string]any.
type Collection struct {
	spec  FieldSpec
	table *ClassTable

	order []string
	items map[string]any
}

func newCollection(spec FieldSpec, table *ClassTable) *Collection {
	return &Collection{spec: spec, table: table, items: map[string]any{}}
}

// PathGet implements pathresolve.Keyed.
func (c *Collection) PathGet(key string) (any, bool) {
	v, ok := c.items[key]
	return v, ok
}

// PathSet implements pathresolve.Keyed: a plain value write through the
// path resolver (e.g. setState targeting a map entry's primitive sub-field
// is handled one level down — this is the map-entry-itself assignment).
func (c *Collection) PathSet(key string, value any) error {
	c.set(key, value)
	return nil
}

// PathEnsure implements pathresolve.Keyed: an absent key gets a fresh empty
// record (not a typed class instance — see Instance.FieldEnsure for why).
func (c *Collection) PathEnsure(key string) (any, error) {
	if v, ok := c.items[key]; ok && v != nil {
		return v, nil
	}
	v := map[string]any{}
	c.set(key, v)
	return v, nil
}

func (c *Collection) set(key string, value any) {
	if _, existed := c.items[key]; !existed {
		c.order = append(c.order, key)
	}
	c.items[key] = value
}

// Get returns the typed value stored at key (usually an *Instance).
func (c *Collection) Get(key string) (any, bool) {
	v, ok := c.items[key]
	return v, ok
}

// Set stores a fully-typed value at key, used by createInstance and
// similar actions to place a new Instance into the collection.
func (c *Collection) Set(key string, value any) {
	c.set(key, value)
}

// Delete removes key from the collection. Used on player leave.
func (c *Collection) Delete(key string) {
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for idx, k := range c.order {
		if k == key {
			c.order = append(c.order[:idx], c.order[idx+1:]...)
			break
		}
	}
}

// Keys returns the collection's keys in insertion order.
func (c *Collection) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.items) }

// ClassName returns the declared element class name, or "" if the
// collection's elements are primitives.
func (c *Collection) ClassName() string {
	if c.spec.MapClass != nil {
		return c.spec.MapClass.Name
	}
	return ""
}

// NewElement constructs a fresh Instance of the collection's declared
// element class. It is an error to call this on a collection of
// primitives.
func (c *Collection) NewElement() (*Instance, error) {
	if c.spec.MapClass == nil {
		return nil, errNotAClassCollection
	}
	return c.table.NewInstance(c.spec.MapClass.Name)
}

// ToJSON converts the collection into a plain map, recursively converting
// any Instance/Collection/Sequence elements.
func (c *Collection) ToJSON() map[string]any {
	out := make(map[string]any, len(c.items))
	for _, k := range c.order {
		out[k] = toJSONValue(c.items[k])
	}
	return out
}
