package model

import (
	"cmp"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/big"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/markup"
)

// Adapter converts a host value of one registered type into a [Value]. The
// Wrapper is passed so that adapters can wrap nested values.
type Adapter func(w *Wrapper, v any) (Value, error)

// Wrapper adapts host Go values into template values.
//
// Built-in Go types are always supported; other types need an [Adapter]
// registered for them. Resolved adapters are memoized per type.
type Wrapper struct {
	mu       sync.Mutex
	adapters map[reflect.Type]Adapter
	memo     map[string]memoEntry
	gen      uint64
}

type memoEntry struct {
	typ   reflect.Type
	adapt Adapter
	gen   uint64
}

// DefaultWrapper is used by [Wrap] and by engines not configured with
// another Wrapper.
var DefaultWrapper = NewWrapper()

// NewWrapper returns a Wrapper with no registered adapters.
func NewWrapper() *Wrapper {
	return &Wrapper{
		adapters: make(map[reflect.Type]Adapter),
		memo:     make(map[string]memoEntry),
	}
}

// Register installs a for values of type t, replacing any adapter
// previously registered for t.
func (w *Wrapper) Register(t reflect.Type, a Adapter) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.adapters[t] = a
	w.gen++
}

// Adapt registers fn for values of type T.
func Adapt[T any](w *Wrapper, fn func(w *Wrapper, v T) (Value, error)) {
	w.Register(reflect.TypeFor[T](), func(w *Wrapper, v any) (Value, error) {
		return fn(w, v.(T))
	})
}

// Wrap adapts v using [DefaultWrapper].
func Wrap(v any) (Value, error) { return DefaultWrapper.Wrap(v) }

// Wrap adapts v into a Value. A v that already is a Value is returned as
// is, and nil wraps to the absent value.
func (w *Wrapper) Wrap(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case int32:
		return Int(int64(v)), nil
	case uint64:
		return uintValue(v), nil
	case float64:
		return Num(arith.Float(v)), nil
	case arith.Number:
		return Num(v), nil
	case *big.Int:
		return Num(arith.Big(v)), nil
	case decimal.Decimal:
		return Num(arith.Decimal(v)), nil
	case time.Time:
		return Date{T: v, Kind: DateTime}, nil
	case *markup.Model:
		return MarkupOf(v), nil
	case iter.Seq[any]:
		return w.collectionOf(v), nil
	case func(func(any) bool):
		return w.collectionOf(v), nil
	case func(...any) (any, error):
		return w.funcOf(v), nil
	}

	adapt, err := w.lookup(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}

	return adapt(w, v)
}

// lookup returns the adapter for t. The memo is keyed by the type's name
// and is cleared whenever it holds a different type under that name or was
// filled before the latest registration.
func (w *Wrapper) lookup(t reflect.Type) (Adapter, error) {
	name := typeName(t)

	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.memo[name]; ok {
		if e.typ == t && e.gen == w.gen {
			return e.adapt, nil
		}

		clear(w.memo)
	}

	adapt, err := w.resolve(t)
	if err != nil {
		return nil, err
	}

	w.memo[name] = memoEntry{typ: t, adapt: adapt, gen: w.gen}

	return adapt, nil
}

func typeName(t reflect.Type) string {
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}

	return t.String()
}

func (w *Wrapper) resolve(t reflect.Type) (Adapter, error) {
	if a, ok := w.adapters[t]; ok {
		return a, nil
	}

	switch t.Kind() {
	case reflect.String:
		return func(_ *Wrapper, v any) (Value, error) {
			return String(reflect.ValueOf(v).String()), nil
		}, nil
	case reflect.Bool:
		return func(_ *Wrapper, v any) (Value, error) {
			return Bool(reflect.ValueOf(v).Bool()), nil
		}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(_ *Wrapper, v any) (Value, error) {
			return Int(reflect.ValueOf(v).Int()), nil
		}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(_ *Wrapper, v any) (Value, error) {
			return uintValue(reflect.ValueOf(v).Uint()), nil
		}, nil
	case reflect.Float32, reflect.Float64:
		return func(_ *Wrapper, v any) (Value, error) {
			return Num(arith.Float(reflect.ValueOf(v).Float())), nil
		}, nil
	case reflect.Slice, reflect.Array:
		return func(w *Wrapper, v any) (Value, error) {
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Slice && rv.IsNil() {
				return nil, nil
			}

			return &sliceValue{w: w, v: rv}, nil
		}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			break
		}

		return func(w *Wrapper, v any) (Value, error) {
			rv := reflect.ValueOf(v)
			if rv.IsNil() {
				return nil, nil
			}

			return newMapValue(w, rv), nil
		}, nil
	case reflect.Pointer:
		if _, err := w.resolve(t.Elem()); err != nil {
			return nil, err
		}

		return func(w *Wrapper, v any) (Value, error) {
			rv := reflect.ValueOf(v)
			if rv.IsNil() {
				return nil, nil
			}

			return w.Wrap(rv.Elem().Interface())
		}, nil
	}

	return nil, ErrUnsupportedType.
		Wrap(fmt.Errorf("cannot wrap values of type %s", t)).
		With(slog.String("type", typeName(t)))
}

func uintValue(u uint64) Number {
	if u > math.MaxInt64 {
		return Num(arith.Big(new(big.Int).SetUint64(u)))
	}

	return Int(int64(u))
}

func (w *Wrapper) collectionOf(seq iter.Seq[any]) *Collection {
	return NewCollection(func(yield func(Value, error) bool) {
		for x := range seq {
			v, err := w.Wrap(x)
			if !yield(v, err) || err != nil {
				return
			}
		}
	})
}

func (w *Wrapper) funcOf(fn func(...any) (any, error)) Func {
	return func(args []Value) (Value, error) {
		host := make([]any, len(args))
		for i, a := range args {
			host[i] = Unwrap(a)
		}

		r, err := fn(host...)
		if err != nil {
			return nil, err
		}

		return w.Wrap(r)
	}
}

// Unwrapper is implemented by values adapted from a host value that can
// return it.
type Unwrapper interface {
	Unwrap() any
}

// Unwrap returns the host Go value represented by v.
func Unwrap(v Value) any {
	switch v := v.(type) {
	case nil:
		return nil
	case Unwrapper:
		return v.Unwrap()
	case String:
		return string(v)
	case Number:
		return hostNumber(v.Number())
	case Bool:
		return bool(v)
	case Date:
		return v.T
	case List:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Unwrap(e)
		}

		return out
	case *Map:
		out := make(map[string]any, v.Len())
		for k, e := range v.All() {
			out[k] = Unwrap(e)
		}

		return out
	case Markup:
		return v.Model
	default:
		return v
	}
}

func hostNumber(n arith.Number) any {
	switch n.Kind() {
	case arith.KindInt:
		return n.Int64()
	case arith.KindBig:
		return n.BigInt()
	case arith.KindFloat:
		return n.Float64()
	default:
		return n.Dec()
	}
}

type sliceValue struct {
	w *Wrapper
	v reflect.Value
}

func (*sliceValue) Facets() Facet { return FacetSequence | FacetCollection }

func (s *sliceValue) Len() int { return s.v.Len() }

func (s *sliceValue) Index(i int) (Value, error) {
	if i < 0 || i >= s.v.Len() {
		return nil, nil
	}

	return s.w.Wrap(s.v.Index(i).Interface())
}

func (s *sliceValue) Iterate() (Iterator, error) {
	return pull(func(yield func(Value, error) bool) {
		for i := range s.v.Len() {
			v, err := s.w.Wrap(s.v.Index(i).Interface())
			if !yield(v, err) || err != nil {
				return
			}
		}
	}), nil
}

func (s *sliceValue) Unwrap() any { return s.v.Interface() }

// mapValue adapts a map with string keys. Keys are enumerated in sorted
// order.
type mapValue struct {
	w    *Wrapper
	v    reflect.Value
	keys []reflect.Value
}

func newMapValue(w *Wrapper, v reflect.Value) *mapValue {
	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return cmp.Compare(a.String(), b.String())
	})

	return &mapValue{w: w, v: v, keys: keys}
}

func (*mapValue) Facets() Facet { return FacetHash | FacetHashEx }

func (m *mapValue) Get(key string) (Value, error) {
	e := m.v.MapIndex(reflect.ValueOf(key).Convert(m.v.Type().Key()))
	if !e.IsValid() {
		return nil, nil
	}

	return m.w.Wrap(e.Interface())
}

func (m *mapValue) Len() int { return len(m.keys) }

func (m *mapValue) Keys() []string {
	out := make([]string, len(m.keys))
	for i, k := range m.keys {
		out[i] = k.String()
	}

	return out
}

// All yields the entries of m. An entry that fails to wrap ends the
// sequence.
func (m *mapValue) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range m.keys {
			v, err := m.w.Wrap(m.v.MapIndex(k).Interface())
			if err != nil {
				return
			}

			if !yield(k.String(), v) {
				return
			}
		}
	}
}

func (m *mapValue) Unwrap() any { return m.v.Interface() }
