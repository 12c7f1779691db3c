package model

import (
	"errors"
	"iter"
	"math"
	"math/big"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/markup"
)

func TestFacetString(t *testing.T) {
	assert.Equal(t, "none", Facet(0).String())
	assert.Equal(t, "string", FacetScalar.String())
	assert.Equal(t, "sequence+collection", (FacetSequence | FacetCollection).String())
	assert.True(t, (FacetHash | FacetHashEx).Has(FacetHash))
	assert.False(t, FacetHash.Has(FacetHashEx))
	assert.False(t, FacetHash.Has(0))
	assert.Equal(t, "missing", Describe(nil))
	assert.Equal(t, "markup output", Describe(MarkupOf(markup.HTML.FromMarkup("x"))))
}

func TestWrapBuiltinTypes(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	type named string

	tests := []struct {
		name  string
		in    any
		facet Facet
	}{
		{"string", "x", FacetScalar},
		{"named string", named("x"), FacetScalar},
		{"bool", true, FacetBoolean},
		{"int", 1, FacetNumber},
		{"int8", int8(-1), FacetNumber},
		{"uint16", uint16(1), FacetNumber},
		{"uint64", uint64(math.MaxUint64), FacetNumber},
		{"float32", float32(1.5), FacetNumber},
		{"big", huge, FacetNumber},
		{"decimal", decimal.RequireFromString("1.25"), FacetNumber},
		{"time", now, FacetDate},
		{"slice", []any{1, "a"}, FacetSequence | FacetCollection},
		{"array", [2]int{1, 2}, FacetSequence},
		{"map", map[string]any{"a": 1}, FacetHash | FacetHashEx},
		{"typed map", map[string]int{"a": 1}, FacetHashEx},
		{"pointer", new(int), FacetNumber},
		{"markup", markup.HTML.FromMarkup("<b>"), FacetMarkup},
		{"seq", iter.Seq[any](func(func(any) bool) {}), FacetCollection},
		{"func", func(...any) (any, error) { return nil, nil }, FacetMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Wrap(tt.in)
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.True(t, v.Facets().Has(tt.facet), "facets %s", v.Facets())
		})
	}
}

func TestWrapNumbers(t *testing.T) {
	v, err := Wrap(uint64(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, arith.KindBig, v.(Numeric).Number().Kind())
	assert.Equal(t, "18446744073709551615", v.(Numeric).Number().String())

	v, err = Wrap(int16(-7))
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v.(Numeric).Number().Int64())
}

func TestWrapIdempotent(t *testing.T) {
	in := String("x")

	v, err := Wrap(in)
	require.NoError(t, err)
	assert.Equal(t, in, v)

	l := List{Int(1)}
	v, err = Wrap(l)
	require.NoError(t, err)
	assert.Equal(t, l, v)

	v, err = Wrap(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	var nilSlice []string

	v, err = Wrap(nilSlice)
	require.NoError(t, err)
	assert.Nil(t, v)
}

type point struct{ X, Y int }

func TestWrapUnsupported(t *testing.T) {
	w := NewWrapper()

	_, err := w.Wrap(point{1, 2})
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.Contains(t, err.Error(), "model.point")

	_, err = w.Wrap(map[int]string{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = w.Wrap(&point{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = w.Wrap([]point{{1, 2}})
	require.NoError(t, err, "elements wrap lazily")
}

func TestAdapt(t *testing.T) {
	w := NewWrapper()

	_, err := w.Wrap(point{})
	require.ErrorIs(t, err, ErrUnsupportedType)

	Adapt(w, func(_ *Wrapper, p point) (Value, error) {
		return NewMap(2).Set("x", Int(int64(p.X))).Set("y", Int(int64(p.Y))), nil
	})

	v, err := w.Wrap(point{3, 4})
	require.NoError(t, err)

	h := v.(HashEx)
	assert.Equal(t, []string{"x", "y"}, h.Keys())

	y, err := h.Get("y")
	require.NoError(t, err)
	assert.Equal(t, int64(4), y.(Numeric).Number().Int64())

	seq, err := w.Wrap([]point{{5, 6}})
	require.NoError(t, err)

	first, err := seq.(Sequence).Index(0)
	require.NoError(t, err)
	assert.True(t, Is(first, FacetHashEx))
}

func TestAdapterOverridesKind(t *testing.T) {
	type celsius float64

	w := NewWrapper()

	v, err := w.Wrap(celsius(21.5))
	require.NoError(t, err)
	assert.True(t, Is(v, FacetNumber))

	Adapt(w, func(_ *Wrapper, c celsius) (Value, error) {
		return String("warm"), nil
	})

	v, err = w.Wrap(celsius(21.5))
	require.NoError(t, err)
	assert.Equal(t, String("warm"), v)
}

func TestMemoInvalidation(t *testing.T) {
	w := NewWrapper()

	_, err := w.Wrap(point{})
	require.Error(t, err)

	_, err = w.Wrap(1.5)
	require.NoError(t, err)

	type local int

	_, err = w.Wrap(local(1))
	require.NoError(t, err)

	w.mu.Lock()
	gen := w.gen
	_, memoized := w.memo[typeName(reflect.TypeFor[local]())]
	w.mu.Unlock()

	assert.True(t, memoized)

	Adapt(w, func(*Wrapper, point) (Value, error) { return True, nil })

	_, err = w.Wrap(local(2))
	require.NoError(t, err)

	w.mu.Lock()
	assert.Equal(t, gen+1, w.gen)
	assert.Len(t, w.memo, 1, "stale entries are dropped")
	assert.Equal(t, w.gen, w.memo[typeName(reflect.TypeFor[local]())].gen)
	w.mu.Unlock()

	v, err := w.Wrap(point{})
	require.NoError(t, err)
	assert.Equal(t, True, v)
}

func TestWrapConcurrent(t *testing.T) {
	w := NewWrapper()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Go(func() {
			if i%8 == 0 {
				Adapt(w, func(*Wrapper, point) (Value, error) { return Int(int64(i)), nil })
			}

			v, err := w.Wrap(map[string]int{"a": i})
			assert.NoError(t, err)
			assert.True(t, Is(v, FacetHashEx))
		})
	}

	wg.Wait()
}

func TestMapValueOrder(t *testing.T) {
	v, err := Wrap(map[string]any{"b": 2, "a": 1, "c": []string{"x"}})
	require.NoError(t, err)

	h := v.(HashEx)
	assert.Equal(t, []string{"a", "b", "c"}, h.Keys())
	assert.Equal(t, 3, h.Len())

	var keys []string
	for k := range h.All() {
		keys = append(keys, k)
	}

	assert.Equal(t, h.Keys(), keys)

	missing, err := h.Get("z")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMap(t *testing.T) {
	m := NewMap(0).Set("z", Int(1)).Set("a", Int(2)).Set("z", Int(3))
	assert.Equal(t, []string{"z", "a"}, m.Keys())

	z, _ := m.Get("z")
	assert.Equal(t, Int(3), z)

	m.Delete("z")
	m.Delete("nope")
	assert.Equal(t, []string{"a"}, m.Keys())

	sorted := MapOf(map[string]Value{"b": True, "a": False})
	assert.Equal(t, []string{"a", "b"}, sorted.Keys())
}

func TestListIndex(t *testing.T) {
	l := List{String("a"), String("b")}

	v, err := l.Index(1)
	require.NoError(t, err)
	assert.Equal(t, String("b"), v)

	v, err = l.Index(2)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = l.Index(-1)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func count(t *testing.T, c Enumerable) int {
	t.Helper()

	vs, err := All(c)
	require.NoError(t, err)

	return len(vs)
}

func TestCollectionSinglePass(t *testing.T) {
	c := NewCollection(Values(func(yield func(Value) bool) {
		for i := range 3 {
			if !yield(Int(int64(i))) {
				return
			}
		}
	}))

	assert.Equal(t, 3, count(t, c))

	_, err := c.Iterate()
	assert.ErrorIs(t, err, ErrCollectionConsumed)
}

func TestCollectionRestart(t *testing.T) {
	opened := 0

	c := Restartable(func() iter.Seq2[Value, error] {
		opened++

		return Values(func(yield func(Value) bool) {
			_ = yield(String("x")) && yield(String("y"))
		})
	})

	assert.Equal(t, 2, count(t, c))
	assert.Equal(t, 2, count(t, c))
	assert.Equal(t, 2, opened)
}

func TestCollectionEarlyStop(t *testing.T) {
	stopped := false

	c := NewCollection(Values(func(yield func(Value) bool) {
		defer func() { stopped = true }()

		for i := 0; ; i++ {
			if !yield(Int(int64(i))) {
				return
			}
		}
	}))

	it, err := c.Iterate()
	require.NoError(t, err)

	v, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Int(0), v)

	it.Stop()
	assert.True(t, stopped)
}

func TestCollectionError(t *testing.T) {
	boom := errors.New("boom")

	c := NewCollection(func(yield func(Value, error) bool) {
		if yield(Int(1), nil) {
			yield(nil, boom)
		}
	})

	_, err := All(c)
	assert.ErrorIs(t, err, boom)
}

func TestWrapSeqElements(t *testing.T) {
	v, err := Wrap(iter.Seq[any](func(yield func(any) bool) {
		_ = yield(1) && yield(point{})
	}))
	require.NoError(t, err)

	_, err = All(v.(Enumerable))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestWrapFunc(t *testing.T) {
	v, err := Wrap(func(args ...any) (any, error) {
		return len(args[0].(string)) + int(args[1].(int64)), nil
	})
	require.NoError(t, err)

	r, err := v.(Method).Call([]Value{String("abc"), Int(2)})
	require.NoError(t, err)
	assert.Equal(t, Int(5), r)
}

func TestUnwrap(t *testing.T) {
	in := map[string]any{"a": []any{1, "x"}}

	v, err := Wrap(in)
	require.NoError(t, err)
	assert.Equal(t, in, Unwrap(v))

	assert.Equal(t, "s", Unwrap(String("s")))
	assert.Equal(t, int64(3), Unwrap(Int(3)))
	assert.Equal(t, 1.5, Unwrap(Num(arith.Float(1.5))))
	assert.Equal(t, true, Unwrap(True))
	assert.Equal(t, []any{int64(1), "b"}, Unwrap(List{Int(1), String("b")}))
	assert.Equal(t, map[string]any{"k": false}, Unwrap(NewMap(1).Set("k", False)))
	assert.Nil(t, Unwrap(nil))

	m := markup.HTML.FromMarkup("<p>")
	assert.Same(t, m, Unwrap(MarkupOf(m)))
}
