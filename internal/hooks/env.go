package hooks

import (
	"slices"
	"strings"
)

// Classes is an ordered set of class names.
type Classes struct {
	names []string
}

func NewClasses(names ...string) *Classes {
	c := &Classes{}
	for _, n := range names {
		c.Add(n)
	}
	return c
}

// Add appends name unless it is already present or empty.
func (c *Classes) Add(name string) {
	if name == "" || c.Has(name) {
		return
	}
	c.names = append(c.names, name)
}

func (c *Classes) Remove(name string) {
	c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
}

func (c *Classes) Has(name string) bool {
	return slices.Contains(c.names, name)
}

func (c *Classes) List() []string {
	return slices.Clone(c.names)
}

func (c *Classes) String() string {
	return strings.Join(c.names, " ")
}

// Attributes is a string mapping that remembers insertion order, so rendered
// markup is deterministic.
type Attributes struct {
	keys   []string
	values map[string]string
}

func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]string)}
}

// Set adds or replaces key. A replaced key keeps its position.
func (a *Attributes) Set(key, value string) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a *Attributes) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

func (a *Attributes) Delete(key string) {
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
}

func (a *Attributes) Len() int {
	return len(a.keys)
}

// Each calls fn for every attribute in insertion order.
func (a *Attributes) Each(fn func(key, value string)) {
	for _, k := range a.keys {
		fn(k, a.values[k])
	}
}
