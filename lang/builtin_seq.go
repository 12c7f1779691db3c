package lang

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"

	"github.com/ardnew/ftl/model"
)

func sequenceBuiltins() []*builtin {
	return []*builtin{
		plain("size", seqSize),
		plain("first", seqFirst),
		plain("last", seqLast),
		plain("reverse", reverse),
		plain("sequence", sequence),
		plain("sort", sortItems),
		fixed("sort_by", 1, 1, sortBy),
		fixed("seq_contains", 1, 1, seqContains),
		fixed("seq_index_of", 1, 2, seqIndexOf(false)),
		fixed("seq_last_index_of", 1, 2, seqIndexOf(true)),
		fixed("join", 1, 3, join),
		fixed("chunk", 1, 2, chunk),
		plain("min", extreme(-1)),
		plain("max", extreme(1)),
		{name: "filter", minArgs: 1, maxArgs: 1, lambda: true, fn: filter(false)},
		{name: "take_while", minArgs: 1, maxArgs: 1, lambda: true, fn: filter(true)},
		{name: "drop_while", minArgs: 1, maxArgs: 1, lambda: true, fn: dropWhile},
		{name: "map", minArgs: 1, maxArgs: 1, lambda: true, fn: mapItems},
		plain("keys", hashKeys),
		plain("values", hashValues),
	}
}

func seqSize(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	switch x := target.(type) {
	case model.Sequence:
		return model.Int(int64(x.Len())), nil
	case model.HashEx:
		return model.Int(int64(x.Len())), nil
	case model.Enumerable:
		items, err := model.All(x)
		if err != nil {
			return nil, err
		}

		return model.Int(int64(len(items))), nil
	}

	return nil, targetError(b, "a sequence, collection or extended hash", target)
}

// seqFirst returns the first item, or nothing for an empty sequence.
func seqFirst(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	switch x := target.(type) {
	case model.Sequence:
		if x.Len() == 0 {
			return nil, nil
		}

		return x.Index(0)
	case model.Enumerable:
		it, err := x.Iterate()
		if err != nil {
			return nil, err
		}
		defer it.Stop()

		v, _, err := it.Next()

		return v, err
	}

	return nil, targetError(b, "a sequence or collection", target)
}

func seqLast(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	s, ok := target.(model.Sequence)
	if !ok {
		return nil, targetError(b, "a sequence", target)
	}

	if s.Len() == 0 {
		return nil, nil
	}

	return s.Index(s.Len() - 1)
}

func reverse(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	slices.Reverse(items)

	return model.List(items), nil
}

// sequence reads a collection into a sequence.
func sequence(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	if _, ok := target.(model.Sequence); ok {
		return target, nil
	}

	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	return model.List(items), nil
}

// sortKind is the common type of the sort keys.
type sortKind uint8

const (
	sortStrings sortKind = iota + 1
	sortNumbers
	sortDates
	sortBooleans
)

func kindOf(v model.Value) sortKind {
	switch v.(type) {
	case model.MarkupValue:
		return 0
	case model.Scalar:
		return sortStrings
	case model.Numeric:
		return sortNumbers
	case model.DateValue:
		return sortDates
	case model.Boolean:
		return sortBooleans
	}

	return 0
}

// sortValues orders items by the key that keyOf returns for each. Strings
// are compared with the collation of the locale.
func (env *Environment) sortValues(b *Builtin, items []model.Value, keyOf func(model.Value) (model.Value, error)) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]model.Value, len(items))

	var kind sortKind

	for i, item := range items {
		k, err := keyOf(item)
		if err != nil {
			return err
		}

		kk := kindOf(k)

		switch {
		case kk == 0:
			return ErrUnexpectedType.Wrap(fmt.Errorf(
				"?%s can only sort by strings, numbers, dates or booleans, but item %d is %s", b.Name, i, describe(k)))
		case i == 0:
			kind = kk
		case kk != kind:
			return ErrUnexpectedType.Wrap(fmt.Errorf(
				"?%s can't sort values of different types: item %d is %s, item 0 is %s",
				b.Name, i, describe(k), describe(keys[0])))
		}

		keys[i] = k
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}

	var (
		coll    = collate.New(env.set.locale)
		sortErr error
	)

	slices.SortStableFunc(idx, func(i, j int) int {
		a, c := keys[i], keys[j]

		switch kind {
		case sortStrings:
			x, _ := a.(model.Scalar).AsString()
			y, _ := c.(model.Scalar).AsString()

			return coll.CompareString(x, y)
		case sortNumbers:
			r, err := env.set.engine.Compare(a.(model.Numeric).Number(), c.(model.Numeric).Number())
			if err != nil && sortErr == nil {
				sortErr = err
			}

			return r
		case sortDates:
			if err := checkDateKinds(a.(model.DateValue), c.(model.DateValue)); err != nil && sortErr == nil {
				sortErr = err
			}

			return a.(model.DateValue).Time().Compare(c.(model.DateValue).Time())
		default:
			x, y := a.(model.Boolean).Bool(), c.(model.Boolean).Bool()

			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}

			return 1
		}
	})

	if sortErr != nil {
		return sortErr
	}

	sorted := make([]model.Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}

	copy(items, sorted)

	return nil
}

func sortItems(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	err = env.sortValues(b, items, func(v model.Value) (model.Value, error) { return v, nil })
	if err != nil {
		return nil, err
	}

	return model.List(items), nil
}

// sortBy sorts hashes by the value of a key, or of a path of keys given
// as a sequence.
func sortBy(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	var path []string

	switch k := args[0].(type) {
	case model.Sequence:
		for i := range k.Len() {
			v, err := k.Index(i)
			if err != nil {
				return nil, err
			}

			s, ok := v.(model.Scalar)
			if !ok {
				return nil, argError(b, 0, "a string or a sequence of strings", args[0])
			}

			name, err := s.AsString()
			if err != nil {
				return nil, err
			}

			path = append(path, name)
		}
	default:
		name, err := env.argString(b, args, 0)
		if err != nil {
			return nil, err
		}

		path = []string{name}
	}

	if len(path) == 0 {
		return model.List(items), nil
	}

	keyOf := func(v model.Value) (model.Value, error) {
		for _, name := range path {
			h, ok := v.(model.Hash)
			if !ok {
				return nil, ErrUnexpectedType.Wrap(fmt.Errorf(
					"?%s needs hashes to sort by %q, but found %s", b.Name, strings.Join(path, "."), describe(v)))
			}

			var err error
			if v, err = h.Get(name); err != nil {
				return nil, err
			}

			if v == nil {
				return nil, ErrUndefinedVariable.Wrap(fmt.Errorf(
					"?%s: an item has no %q key", b.Name, strings.Join(path, ".")))
			}
		}

		return v, nil
	}

	if err := env.sortValues(b, items, keyOf); err != nil {
		return nil, err
	}

	return model.List(items), nil
}

func seqContains(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		eq, ok, err := env.looseEqual(item, args[0])
		if err != nil {
			return nil, err
		}

		if ok && eq {
			return model.True, nil
		}
	}

	return model.False, nil
}

func seqIndexOf(last bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		items, err := sequenceOf(b, target)
		if err != nil {
			return nil, err
		}

		start, step, end := 0, 1, len(items)
		if last {
			start, step, end = len(items)-1, -1, -1
		}

		if len(args) > 1 {
			from, err := argInt(b, args, 1)
			if err != nil {
				return nil, err
			}

			if last {
				start = min(from, len(items)-1)
			} else {
				start = max(from, 0)
			}
		}

		for i := start; i != end && i >= 0 && i < len(items); i += step {
			eq, ok, err := env.looseEqual(items[i], args[0])
			if err != nil {
				return nil, err
			}

			if ok && eq {
				return model.Int(int64(i)), nil
			}
		}

		return model.Int(-1), nil
	}
}

// join concatenates the items formatted as interpolations would, skipping
// missing items. The optional arguments are the text for an empty list and
// a suffix for a non-empty one.
func join(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	sep, err := env.argString(b, args, 0)
	if err != nil {
		return nil, err
	}

	var (
		sb strings.Builder
		n  int
	)

	for i, item := range items {
		if item == nil {
			continue
		}

		s, err := env.plainText(b, item)
		if err != nil {
			return nil, ErrUnexpectedType.Wrap(fmt.Errorf("?%s: item %d: %w", b.Name, i, err))
		}

		if n > 0 {
			sb.WriteString(sep)
		}

		sb.WriteString(s)
		n++
	}

	if n == 0 {
		empty, err := env.argStringOr(b, args, 1, "")

		return model.String(empty), err
	}

	suffix, err := env.argStringOr(b, args, 2, "")
	if err != nil {
		return nil, err
	}

	return model.String(sb.String() + suffix), nil
}

// chunk splits the items into sequences of size items. The last one is
// padded with the fill value when given.
func chunk(_ *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	n, err := argInt(b, args, 0)
	if err != nil {
		return nil, err
	}

	if n < 1 {
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf("the chunk size of ?%s must be at least 1, but it was %d", b.Name, n))
	}

	var out model.List

	for c := range slices.Chunk(items, n) {
		row := model.List(slices.Clone(c))

		if len(args) > 1 {
			for len(row) < n {
				row = append(row, args[1])
			}
		}

		out = append(out, row)
	}

	if out == nil {
		out = model.List{}
	}

	return out, nil
}

// extreme returns the least (dir -1) or greatest (dir 1) of the numbers
// or dates, ignoring missing items. It returns nothing for no items.
func extreme(dir int) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		items, err := sequenceOf(b, target)
		if err != nil {
			return nil, err
		}

		var best model.Value

		for i, item := range items {
			if item == nil {
				continue
			}

			if best == nil {
				if k := kindOf(item); k != sortNumbers && k != sortDates {
					return nil, ErrUnexpectedType.Wrap(fmt.Errorf(
						"?%s needs numbers or dates, but item %d is %s", b.Name, i, describe(item)))
				}

				best = item

				continue
			}

			c, err := env.compare(&Binary{At: b.At, Op: "<", X: b.X, Y: b.X}, item, best)
			if err != nil {
				return nil, err
			}

			if c*dir > 0 {
				best = item
			}
		}

		return best, nil
	}
}

// predicate calls fn with v and requires a boolean result.
func predicate(b *Builtin, fn model.Method, v model.Value) (bool, error) {
	r, err := fn.Call([]model.Value{v})
	if err != nil {
		return false, err
	}

	p, ok := r.(model.Boolean)
	if !ok {
		return false, ErrUnexpectedType.Wrap(fmt.Errorf(
			"the lambda of ?%s must return a boolean, but it returned %s", b.Name, describe(r)))
	}

	return p.Bool(), nil
}

// filter keeps the items matching the predicate, or with whileTrue the
// leading items that match.
func filter(whileTrue bool) builtinFunc {
	return func(_ *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		items, err := sequenceOf(b, target)
		if err != nil {
			return nil, err
		}

		fn, err := argMethod(b, args, 0)
		if err != nil {
			return nil, err
		}

		out := model.List{}

		for _, item := range items {
			ok, err := predicate(b, fn, item)
			if err != nil {
				return nil, err
			}

			if ok {
				out = append(out, item)
			} else if whileTrue {
				break
			}
		}

		return out, nil
	}
}

func dropWhile(_ *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	fn, err := argMethod(b, args, 0)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		ok, err := predicate(b, fn, item)
		if err != nil {
			return nil, err
		}

		if !ok {
			return model.List(items[i:]), nil
		}
	}

	return model.List{}, nil
}

func mapItems(_ *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	items, err := sequenceOf(b, target)
	if err != nil {
		return nil, err
	}

	fn, err := argMethod(b, args, 0)
	if err != nil {
		return nil, err
	}

	out := make(model.List, len(items))

	for i, item := range items {
		if out[i], err = fn.Call([]model.Value{item}); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func hashKeys(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	h, ok := target.(model.HashEx)
	if !ok {
		return nil, targetError(b, "an extended hash", target)
	}

	keys := h.Keys()
	out := make(model.List, len(keys))

	for i, k := range keys {
		out[i] = model.String(k)
	}

	return out, nil
}

func hashValues(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	h, ok := target.(model.HashEx)
	if !ok {
		return nil, targetError(b, "an extended hash", target)
	}

	out := make(model.List, 0, h.Len())

	for _, v := range h.All() {
		out = append(out, v)
	}

	return out, nil
}
