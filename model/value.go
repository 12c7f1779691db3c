package model

import (
	"iter"
	"strings"
	"time"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrUnsupportedType    = pkg.NewError("unsupported type")
	ErrCollectionConsumed = pkg.NewError("collection can only be listed once")
)

// Facet is a bitset of the capabilities a [Value] offers. A value may carry
// several facets at once, like a string that is also a method.
type Facet uint16

const (
	FacetScalar     Facet = 1 << iota // string
	FacetNumber                       // number
	FacetBoolean                      // boolean
	FacetDate                         // date
	FacetSequence                     // sequence
	FacetHash                         // hash
	FacetHashEx                       // extended hash
	FacetCollection                   // collection
	FacetMethod                       // method
	FacetMarkup                       // markup output
)

var facetName = [...]string{
	"string",
	"number",
	"boolean",
	"date",
	"sequence",
	"hash",
	"extended hash",
	"collection",
	"method",
	"markup output",
}

// Has reports whether f includes every facet of g.
func (f Facet) Has(g Facet) bool { return g != 0 && f&g == g }

// String lists the names of the facets in f separated by "+".
func (f Facet) String() string {
	if f == 0 {
		return "none"
	}

	var names []string

	for i, name := range facetName {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}

	return strings.Join(names, "+")
}

// Value is any template-language value. The facets returned by Facets tell
// which of the interfaces below the value implements.
//
// The absent value is nil.
type Value interface {
	Facets() Facet
}

// Scalar is a string value.
type Scalar interface {
	Value
	AsString() (string, error)
}

// Numeric is a number value.
type Numeric interface {
	Value
	Number() arith.Number
}

// Boolean is a boolean value.
type Boolean interface {
	Value
	Bool() bool
}

// DateKind tells which parts of a [DateValue] are meaningful.
type DateKind uint8

const (
	DateUnknown DateKind = iota // unknown
	DateOnly                    // date
	TimeOnly                    // time
	DateTime                    // datetime
)

// String returns the built-in name associated with k.
func (k DateKind) String() string {
	switch k {
	case DateOnly:
		return "date"
	case TimeOnly:
		return "time"
	case DateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// DateValue is a date, time or date-time value.
type DateValue interface {
	Value
	Time() time.Time
	DateKind() DateKind
}

// Sequence is an indexable list of values. Index returns nil for indices
// out of range.
type Sequence interface {
	Value
	Len() int
	Index(i int) (Value, error)
}

// Hash maps string keys to values. Get returns nil for missing keys.
type Hash interface {
	Value
	Get(key string) (Value, error)
}

// HashEx is a Hash that can enumerate its entries. Keys and All report the
// entries in the same stable order.
type HashEx interface {
	Hash
	Len() int
	Keys() []string
	All() iter.Seq2[string, Value]
}

// Enumerable is a value that can be listed but not indexed.
type Enumerable interface {
	Value
	Iterate() (Iterator, error)
}

// Iterator walks an [Enumerable]. Next reports false once the values are
// exhausted. Stop releases the iterator and must be called when listing
// ends early.
type Iterator interface {
	Next() (Value, bool, error)
	Stop()
}

// Method is a callable value.
type Method interface {
	Value
	Call(args []Value) (Value, error)
}

// MarkupValue is a markup output value.
type MarkupValue interface {
	Value
	Markup() *markup.Model
}

// Describe returns a human-readable type description of v for messages.
func Describe(v Value) string {
	if v == nil {
		return "missing"
	}

	return v.Facets().String()
}

// Is reports whether v is present and carries every facet of f.
func Is(v Value, f Facet) bool { return v != nil && v.Facets().Has(f) }
