package model

import (
	"iter"
	"sync"
)

// Collection is an enumerable backed by a producer of values. Unless it was
// made with [Restartable], it can be listed only once: the second call to
// Iterate fails with [ErrCollectionConsumed].
type Collection struct {
	mu      sync.Mutex
	seq     iter.Seq2[Value, error]
	restart func() iter.Seq2[Value, error]
	used    bool
}

// NewCollection returns a single-pass collection over seq.
func NewCollection(seq iter.Seq2[Value, error]) *Collection {
	return &Collection{seq: seq}
}

// Restartable returns a collection that calls open each time it is listed.
func Restartable(open func() iter.Seq2[Value, error]) *Collection {
	return &Collection{restart: open}
}

// Values adapts a sequence that cannot fail.
func Values(seq iter.Seq[Value]) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (*Collection) Facets() Facet { return FacetCollection }

// Iterate starts listing the collection.
func (c *Collection) Iterate() (Iterator, error) {
	if c.restart != nil {
		return pull(c.restart()), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.used {
		return nil, ErrCollectionConsumed
	}

	c.used = true

	return pull(c.seq), nil
}

type iterator struct {
	next func() (Value, error, bool)
	stop func()
	err  error
}

func pull(seq iter.Seq2[Value, error]) *iterator {
	next, stop := iter.Pull2(seq)

	return &iterator{next: next, stop: stop}
}

func (it *iterator) Next() (Value, bool, error) {
	if it.err != nil {
		return nil, false, it.err
	}

	v, err, ok := it.next()
	if !ok {
		return nil, false, nil
	}

	if err != nil {
		it.err = err
		it.stop()

		return nil, false, err
	}

	return v, true, nil
}

func (it *iterator) Stop() { it.stop() }

// All returns the values of e in order. It reads e to the end.
func All(e Enumerable) ([]Value, error) {
	if s, ok := e.(Sequence); ok {
		out := make([]Value, 0, s.Len())

		for i := range s.Len() {
			v, err := s.Index(i)
			if err != nil {
				return nil, err
			}

			out = append(out, v)
		}

		return out, nil
	}

	it, err := e.Iterate()
	if err != nil {
		return nil, err
	}
	defer it.Stop()

	var out []Value

	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			return out, nil
		}

		out = append(out, v)
	}
}
