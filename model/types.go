package model

import (
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/markup"
)

// String is a string value.
type String string

func (String) Facets() Facet { return FacetScalar }

func (s String) AsString() (string, error) { return string(s), nil }

// Number is a number value.
type Number arith.Number

// Num returns n as a Value.
func Num(n arith.Number) Number { return Number(n) }

// Int returns an integer number value.
func Int(i int64) Number { return Number(arith.Int(i)) }

func (Number) Facets() Facet { return FacetNumber }

func (n Number) Number() arith.Number { return arith.Number(n) }

// Bool is a boolean value.
type Bool bool

// Boolean constants.
const (
	True  Bool = true
	False Bool = false
)

func (Bool) Facets() Facet { return FacetBoolean }

func (b Bool) Bool() bool { return bool(b) }

// Date is a date, time or date-time value.
type Date struct {
	T    time.Time
	Kind DateKind
}

func (Date) Facets() Facet { return FacetDate }

func (d Date) Time() time.Time { return d.T }

func (d Date) DateKind() DateKind { return d.Kind }

// List is a sequence held in memory.
type List []Value

func (List) Facets() Facet { return FacetSequence | FacetCollection }

func (l List) Len() int { return len(l) }

func (l List) Index(i int) (Value, error) {
	if i < 0 || i >= len(l) {
		return nil, nil
	}

	return l[i], nil
}

// Iterate lists the elements of l. A List can be listed any number of
// times.
func (l List) Iterate() (Iterator, error) {
	return pull(func(yield func(Value, error) bool) {
		for _, v := range l {
			if !yield(v, nil) {
				return
			}
		}
	}), nil
}

// Map is an extended hash that remembers insertion order.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty Map with room for n entries.
func NewMap(n int) *Map {
	return &Map{keys: make([]string, 0, n), vals: make(map[string]Value, n)}
}

// MapOf returns a Map holding the entries of m ordered by key.
func MapOf(m map[string]Value) *Map {
	h := NewMap(len(m))

	for _, k := range slices.Sorted(maps.Keys(m)) {
		h.Set(k, m[k])
	}

	return h
}

// Set stores v under key. A new key is appended to the key order; an
// existing key keeps its position.
func (m *Map) Set(key string, v Value) *Map {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.vals[key] = v

	return m
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}

	delete(m.vals, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

func (*Map) Facets() Facet { return FacetHash | FacetHashEx }

func (m *Map) Get(key string) (Value, error) { return m.vals[key], nil }

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) Keys() []string { return slices.Clone(m.keys) }

func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Func is a method implemented in Go.
type Func func(args []Value) (Value, error)

func (Func) Facets() Facet { return FacetMethod }

func (f Func) Call(args []Value) (Value, error) { return f(args) }

// Markup is a markup output value.
type Markup struct {
	*markup.Model
}

// MarkupOf returns m as a Value.
func MarkupOf(m *markup.Model) Markup { return Markup{Model: m} }

func (Markup) Facets() Facet { return FacetMarkup }

func (m Markup) Markup() *markup.Model { return m.Model }
