package lang

import (
	"fmt"
	"slices"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/model"
)

// builtinFunc computes a built-in. target is the evaluated left-hand
// operand and args the evaluated arguments; lazy built-ins read b.Args
// instead.
type builtinFunc func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error)

type builtin struct {
	name    string
	minArgs int
	maxArgs int // -1 for no limit
	loopVar bool
	lambda  bool
	lenient bool // the target may be missing
	lazy    bool // arguments are evaluated by fn
	fn      builtinFunc
}

var builtins map[string]*builtin

func init() {
	groups := [][]*builtin{
		stringBuiltins(),
		numberBuiltins(),
		sequenceBuiltins(),
		miscBuiltins(),
	}

	builtins = make(map[string]*builtin)

	for _, g := range groups {
		for _, b := range g {
			builtins[b.name] = b
		}
	}
}

// Builtins returns the names of the built-ins in order.
func Builtins() []string { return builtinNames() }

func builtinNames() []string { return sortedKeys(builtins) }

// fixed declares a built-in that takes between lo and hi arguments.
func fixed(name string, lo, hi int, fn builtinFunc) *builtin {
	return &builtin{name: name, minArgs: lo, maxArgs: hi, fn: fn}
}

// plain declares a built-in without arguments.
func plain(name string, fn builtinFunc) *builtin { return fixed(name, 0, 0, fn) }

func (env *Environment) evalBuiltin(x *Builtin) (model.Value, error) {
	bi := builtins[x.Name]

	var (
		target model.Value
		err    error
	)

	switch {
	case bi.loopVar:
	case bi.lenient:
		target, err = env.optional(x.X)
	default:
		target, err = env.required(x.X)
	}

	if err != nil {
		return nil, err
	}

	var args []model.Value

	if !bi.lazy {
		args = make([]model.Value, len(x.Args))

		for i, a := range x.Args {
			if l, ok := a.(*Lambda); ok {
				args[i] = &lambdaValue{node: l, env: env}

				continue
			}

			if args[i], err = env.required(a); err != nil {
				return nil, err
			}
		}
	}

	v, err := bi.fn(env, x, target, args)
	if err != nil {
		return nil, env.fail(x, err)
	}

	return v, nil
}

// suggest returns a hint naming the candidate closest to name, or an
// empty string when none is close. A name that is not a subsequence of
// any candidate is retried with each one of its runes dropped, which
// catches a single wrong, extra or transposed character.
func suggest(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}

	if m := fuzzy.Find(name, candidates); len(m) > 0 {
		return fmt.Sprintf("; did you mean %q?", m[0].Str)
	}

	runes := []rune(name)
	if len(runes) < 3 {
		return ""
	}

	var best *fuzzy.Match

	for i := range runes {
		pattern := string(runes[:i]) + string(runes[i+1:])

		if m := fuzzy.Find(pattern, candidates); len(m) > 0 && (best == nil || m[0].Score > best.Score) {
			best = &m[0]
		}
	}

	if best == nil {
		return ""
	}

	return fmt.Sprintf("; did you mean %q?", best.Str)
}

// Argument helpers

func argError(b *Builtin, i int, want string, got model.Value) error {
	return ErrInvalidArgument.Wrap(fmt.Errorf(
		"argument %d of ?%s must be %s, but it is %s", i+1, b.Name, want, describe(got)))
}

func (env *Environment) argString(b *Builtin, args []model.Value, i int) (string, error) {
	switch v := args[i].(type) {
	case model.MarkupValue:
	case model.Scalar:
		return v.AsString()
	case model.Numeric, model.DateValue:
		return env.plainText(b, v)
	}

	return "", argError(b, i, "a string", args[i])
}

func (env *Environment) argStringOr(b *Builtin, args []model.Value, i int, def string) (string, error) {
	if i >= len(args) {
		return def, nil
	}

	return env.argString(b, args, i)
}

func argNumber(b *Builtin, args []model.Value, i int) (arith.Number, error) {
	n, ok := args[i].(model.Numeric)
	if !ok {
		return arith.Number{}, argError(b, i, "a number", args[i])
	}

	return n.Number(), nil
}

func argInt(b *Builtin, args []model.Value, i int) (int, error) {
	n, err := argNumber(b, args, i)
	if err != nil {
		return 0, err
	}

	v, err := intOf(n)
	if err != nil {
		return 0, ErrInvalidArgument.Wrap(fmt.Errorf("argument %d of ?%s: %w", i+1, b.Name, err))
	}

	return v, nil
}

func argBool(b *Builtin, args []model.Value, i int) (bool, error) {
	v, ok := args[i].(model.Boolean)
	if !ok {
		return false, argError(b, i, "a boolean", args[i])
	}

	return v.Bool(), nil
}

func argMethod(b *Builtin, args []model.Value, i int) (model.Method, error) {
	m, ok := args[i].(model.Method)
	if !ok {
		return nil, argError(b, i, "a lambda or function", args[i])
	}

	return m, nil
}

// targetError reports a left-hand operand of the wrong type.
func targetError(b *Builtin, want string, got model.Value) error {
	return ErrUnexpectedType.Wrap(fmt.Errorf(
		"?%s expects %s, but %s is %s", b.Name, want, b.X, describe(got)))
}

// str converts the target of a string built-in. Numbers and dates are
// formatted the way interpolations format them.
func (env *Environment) str(b *Builtin, v model.Value) (string, error) {
	switch x := v.(type) {
	case model.MarkupValue:
		return "", targetError(b, "a string", v)
	case model.Scalar:
		return x.AsString()
	case model.Numeric, model.DateValue:
		return env.plainText(b.X, v)
	}

	return "", targetError(b, "a string", v)
}

// stringFn adapts a string to string transformation.
func stringFn(fn func(env *Environment, s string) string) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		return model.String(fn(env, s)), nil
	}
}

// isTest adapts a type test.
func isTest(name string, test func(v model.Value) bool) *builtin {
	return plain(name, func(_ *Environment, _ *Builtin, v model.Value, _ []model.Value) (model.Value, error) {
		return model.Bool(test(v)), nil
	})
}

// sequenceOf returns the items of a sequence or collection.
func sequenceOf(b *Builtin, v model.Value) ([]model.Value, error) {
	switch s := v.(type) {
	case model.Sequence:
		out := make([]model.Value, 0, s.Len())

		for i := range s.Len() {
			item, err := s.Index(i)
			if err != nil {
				return nil, err
			}

			out = append(out, item)
		}

		return out, nil
	case model.Enumerable:
		return model.All(s)
	}

	return nil, targetError(b, "a sequence or collection", v)
}

// loopVarBuiltin declares a built-in applied to a loop variable.
func loopVarBuiltin(name string, lo, hi int, fn func(l *loopState, args []model.Value) (model.Value, error)) *builtin {
	return &builtin{
		name: name, minArgs: lo, maxArgs: hi, loopVar: true,
		fn: func(env *Environment, b *Builtin, _ model.Value, args []model.Value) (model.Value, error) {
			id, _ := b.X.(*Ident)

			l := env.loop(id.Name)
			if l == nil {
				return nil, ErrTemplate.Wrap(fmt.Errorf("?%s: %s is not a loop variable here", b.Name, id.Name))
			}

			return fn(l, args)
		},
	}
}

func loopVarBuiltins() []*builtin {
	return []*builtin{
		loopVarBuiltin("index", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.Int(int64(l.index)), nil
		}),
		loopVarBuiltin("counter", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.Int(int64(l.index + 1)), nil
		}),
		loopVarBuiltin("has_next", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.Bool(l.hasNext), nil
		}),
		loopVarBuiltin("is_first", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.Bool(l.index == 0), nil
		}),
		loopVarBuiltin("is_last", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.Bool(!l.hasNext), nil
		}),
		loopVarBuiltin("is_odd_item", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.Bool(l.index%2 == 0), nil
		}),
		loopVarBuiltin("is_even_item", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.Bool(l.index%2 == 1), nil
		}),
		loopVarBuiltin("item_parity", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.String([]string{"odd", "even"}[l.index%2]), nil
		}),
		loopVarBuiltin("item_parity_cap", 0, 0, func(l *loopState, _ []model.Value) (model.Value, error) {
			return model.String([]string{"Odd", "Even"}[l.index%2]), nil
		}),
		loopVarBuiltin("item_cycle", 1, -1, func(l *loopState, args []model.Value) (model.Value, error) {
			return args[l.index%len(args)], nil
		}),
	}
}

// hasContent reports whether v is present and not empty.
func hasContent(v model.Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case model.MarkupValue:
		return !x.Markup().IsEmpty()
	case model.Scalar:
		s, err := x.AsString()

		return err == nil && s != ""
	case model.Sequence:
		return x.Len() > 0
	case model.HashEx:
		return x.Len() > 0
	case model.Hash:
		return true
	}

	return true
}

// facetTests are the is_* built-ins.
func facetTests() []*builtin {
	isMacro := func(v model.Value) bool {
		m, ok := v.(*macroValue)

		return ok && !m.def.Function
	}

	return []*builtin{
		isTest("is_string", func(v model.Value) bool {
			_, markup := v.(model.MarkupValue)

			return model.Is(v, model.FacetScalar) && !markup
		}),
		isTest("is_number", func(v model.Value) bool { return model.Is(v, model.FacetNumber) }),
		isTest("is_boolean", func(v model.Value) bool { return model.Is(v, model.FacetBoolean) }),
		isTest("is_date", func(v model.Value) bool { return model.Is(v, model.FacetDate) }),
		isTest("is_date_like", func(v model.Value) bool { return model.Is(v, model.FacetDate) }),
		isTest("is_date_only", func(v model.Value) bool {
			d, ok := v.(model.DateValue)

			return ok && d.DateKind() == model.DateOnly
		}),
		isTest("is_time", func(v model.Value) bool {
			d, ok := v.(model.DateValue)

			return ok && d.DateKind() == model.TimeOnly
		}),
		isTest("is_datetime", func(v model.Value) bool {
			d, ok := v.(model.DateValue)

			return ok && d.DateKind() == model.DateTime
		}),
		isTest("is_unknown_date_like", func(v model.Value) bool {
			d, ok := v.(model.DateValue)

			return ok && d.DateKind() == model.DateUnknown
		}),
		isTest("is_sequence", func(v model.Value) bool { return model.Is(v, model.FacetSequence) }),
		isTest("is_hash", func(v model.Value) bool { return model.Is(v, model.FacetHash) }),
		isTest("is_hash_ex", func(v model.Value) bool { return model.Is(v, model.FacetHashEx) }),
		isTest("is_collection", func(v model.Value) bool { return model.Is(v, model.FacetCollection) }),
		isTest("is_enumerable", func(v model.Value) bool {
			return model.Is(v, model.FacetSequence) || model.Is(v, model.FacetCollection)
		}),
		isTest("is_method", func(v model.Value) bool {
			_, ok := v.(model.Method)

			return ok && !isMacro(v)
		}),
		isTest("is_function", func(v model.Value) bool {
			m, ok := v.(*macroValue)

			return ok && m.def.Function
		}),
		isTest("is_macro", isMacro),
		isTest("is_directive", func(v model.Value) bool {
			_, ok := v.(TemplateDirective)

			return ok || isMacro(v)
		}),
		isTest("is_markup_output", func(v model.Value) bool { return model.Is(v, model.FacetMarkup) }),
		{
			name: "has_content", lenient: true,
			fn: func(_ *Environment, _ *Builtin, v model.Value, _ []model.Value) (model.Value, error) {
				return model.Bool(hasContent(v)), nil
			},
		},
	}
}

// builtinsOf concatenates built-in groups.
func builtinsOf(groups ...[]*builtin) []*builtin { return slices.Concat(groups...) }
