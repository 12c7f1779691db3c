package lang

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/valuefmt"
)

func numberBuiltins() []*builtin {
	return []*builtin{
		plain("abs", numberFn(func(env *Environment, n arith.Number) (arith.Number, error) {
			if n.Sign() >= 0 || n.IsNaN() {
				return n, nil
			}

			return env.set.engine.Sub(arith.Int(0), n)
		})),
		plain("floor", numberFn(roundTo(arith.RoundFloor, false))),
		plain("ceiling", numberFn(roundTo(arith.RoundCeiling, false))),
		plain("int", numberFn(roundTo(arith.RoundDown, false))),
		plain("round", numberFn(roundTo(arith.RoundFloor, true))),
		plain("is_infinite", numberTest(func(n arith.Number) bool { return n.IsInf(0) })),
		plain("is_nan", numberTest(arith.Number.IsNaN)),
		plain("lower_abc", alphabetic(false)),
		plain("upper_abc", alphabetic(true)),
		plain("number_to_date", numberToDate(model.DateOnly)),
		plain("number_to_time", numberToDate(model.TimeOnly)),
		plain("number_to_datetime", numberToDate(model.DateTime)),
		plain("long", toLong),
		plain("iso", iso(false)),
		plain("iso_utc", iso(true)),
		plain("iso_local", iso(false)),
		{name: "then", minArgs: 2, maxArgs: 2, lazy: true, fn: then},
	}
}

func (env *Environment) number(b *Builtin, v model.Value) (arith.Number, error) {
	n, ok := v.(model.Numeric)
	if !ok {
		return arith.Number{}, targetError(b, "a number", v)
	}

	return n.Number(), nil
}

func numberFn(fn func(env *Environment, n arith.Number) (arith.Number, error)) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		n, err := env.number(b, target)
		if err != nil {
			return nil, err
		}

		r, err := fn(env, n)
		if err != nil {
			return nil, err
		}

		return model.Num(r), nil
	}
}

func numberTest(test func(n arith.Number) bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		n, err := env.number(b, target)
		if err != nil {
			return nil, err
		}

		return model.Bool(test(n)), nil
	}
}

var half = decimal.NewFromFloat(0.5)

// roundTo rounds to an integer with mode. Rounding half adds one half
// before rounding, so halves go toward positive infinity.
func roundTo(mode arith.Rounding, addHalf bool) func(*Environment, arith.Number) (arith.Number, error) {
	return func(_ *Environment, n arith.Number) (arith.Number, error) {
		if !n.IsFinite() || n.IsIntegral() {
			return n, nil
		}

		d := n.Dec()
		if addHalf {
			d = d.Add(half)
		}

		r, err := arith.Round(d, 0, mode)
		if err != nil {
			return arith.Number{}, err
		}

		return arith.Big(r.BigInt()), nil
	}
}

// alphabetic numbers 1, 2, ... as a, b, ..., z, aa, ab, ...
func alphabetic(upper bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		n, err := env.number(b, target)
		if err != nil {
			return nil, err
		}

		i, err := intOf(n)
		if err != nil {
			return nil, err
		}

		if i < 1 {
			return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s needs a number of at least 1, but it was %d", b.Name, i))
		}

		base := byte('a')
		if upper {
			base = 'A'
		}

		var out []byte

		for ; i > 0; i = (i - 1) / 26 {
			out = append([]byte{base + byte((i-1)%26)}, out...)
		}

		return model.String(out), nil
	}
}

func numberToDate(kind model.DateKind) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		n, err := env.number(b, target)
		if err != nil {
			return nil, err
		}

		return model.Date{T: time.UnixMilli(n.Int64()).In(env.set.zone), Kind: kind}, nil
	}
}

func toLong(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	switch x := target.(type) {
	case model.DateValue:
		return model.Int(x.Time().UnixMilli()), nil
	case model.Numeric:
		n, err := roundTo(arith.RoundDown, false)(env, x.Number())
		if err != nil {
			return nil, err
		}

		return model.Num(n), nil
	}

	return nil, targetError(b, "a number or date", target)
}

func iso(utc bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		d, ok := target.(model.DateValue)
		if !ok {
			return nil, targetError(b, "a date", target)
		}

		f := env.formats
		if utc {
			f = f.With(valuefmt.WithTimeZone(time.UTC))
		}

		s, err := f.FormatDate(d, "iso")
		if err != nil {
			return nil, err
		}

		return model.String(s), nil
	}
}

// then picks the first or second argument by the boolean target. Only
// the picked argument is evaluated.
func then(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	cond, ok := target.(model.Boolean)
	if !ok {
		return nil, targetError(b, "a boolean", target)
	}

	if cond.Bool() {
		return env.eval(b.Args[0])
	}

	return env.eval(b.Args[1])
}

func miscBuiltins() []*builtin {
	return builtinsOf(
		[]*builtin{
			fixed("string", 0, 2, toString),
			plain("c", computerString),
			{name: "cn", lenient: true, fn: func(env *Environment, b *Builtin, v model.Value, args []model.Value) (model.Value, error) {
				if v == nil {
					return model.String("null"), nil
				}

				return computerString(env, b, v, args)
			}},
			plain("number", toNumber),
			plain("boolean", toBoolean),
			fixed("date", 0, 1, toDate(model.DateOnly)),
			fixed("time", 0, 1, toDate(model.TimeOnly)),
			fixed("datetime", 0, 1, toDate(model.DateTime)),
			plain("esc", esc),
			plain("no_esc", noEsc),
			plain("markup_string", markupString),
			plain("eval", evalString),
			plain("eval_json", evalJSON),
			{name: "switch", minArgs: 2, maxArgs: -1, lazy: true, fn: switchValue},
		},
		facetTests(),
		loopVarBuiltins(),
	)
}

func toString(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	switch x := target.(type) {
	case model.Boolean:
		switch len(args) {
		case 0:
			return model.String(env.set.booleanFormat.Format(x.Bool())), nil
		case 2:
			i := 1
			if x.Bool() {
				i = 0
			}

			s, err := env.argString(b, args, i)

			return model.String(s), err
		}

		return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s on a boolean needs 0 or 2 arguments", b.Name))
	case model.Numeric:
		format, err := env.argStringOr(b, args, 0, env.set.numberFormat)
		if err != nil {
			return nil, err
		}

		s, err := env.formats.FormatNumber(x.Number(), format)

		return model.String(s), err
	case model.DateValue:
		format, err := env.argStringOr(b, args, 0, "")
		if err != nil {
			return nil, err
		}

		s, err := env.formatDate(x, format)

		return model.String(s), err
	case model.MarkupValue:
	case model.Scalar:
		if len(args) > 0 {
			return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s on a string has no arguments", b.Name))
		}

		return target, nil
	}

	return nil, targetError(b, "a string, number, date or boolean", target)
}

// computerString formats for computers: numbers in the computer format,
// booleans as true and false, strings as quoted literals.
func computerString(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	switch x := target.(type) {
	case model.Numeric:
		s, err := env.formats.FormatNumber(x.Number(), valuefmt.NumberComputer)

		return model.String(s), err
	case model.Boolean:
		return model.String(strconv.FormatBool(x.Bool())), nil
	case model.MarkupValue:
	case model.Scalar:
		s, err := x.AsString()

		return model.String(quoteString(s)), err
	}

	return nil, targetError(b, "a number, boolean or string", target)
}

func toNumber(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	if _, ok := target.(model.Numeric); ok {
		return target, nil
	}

	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	n, err := arith.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf("can't convert %q to a number: %w", s, err))
	}

	return model.Num(n), nil
}

func toBoolean(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	if _, ok := target.(model.Boolean); ok {
		return target, nil
	}

	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	switch s {
	case "true", env.set.booleanFormat.True:
		return model.True, nil
	case "false", env.set.booleanFormat.False:
		return model.False, nil
	}

	return nil, ErrInvalidArgument.Wrap(fmt.Errorf("can't convert %q to a boolean", s))
}

// toDate marks a date with kind, or parses a string as a value of kind
// with the given format or the setting for kind.
func toDate(kind model.DateKind) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		if d, ok := target.(model.DateValue); ok {
			if len(args) > 0 {
				return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s on a date has no arguments", b.Name))
			}

			return model.Date{T: d.Time(), Kind: kind}, nil
		}

		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		def := map[model.DateKind]string{
			model.DateOnly: env.set.dateFormat,
			model.TimeOnly: env.set.timeFormat,
			model.DateTime: env.set.datetimeFormat,
		}[kind]

		format, err := env.argStringOr(b, args, 0, def)
		if err != nil {
			return nil, err
		}

		t, err := env.formats.ParseDate(s, format, kind)
		if err != nil {
			return nil, err
		}

		return model.Date{T: t, Kind: kind}, nil
	}
}

// esc escapes a string with the current output format.
func esc(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	if _, ok := target.(model.MarkupValue); ok {
		return target, nil
	}

	if !env.format.IsMarkup() {
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf(
			"?%s needs a markup output format, but the current one is %q", b.Name, env.format.Name()))
	}

	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	return markupOf(env.format, s), nil
}

// noEsc trusts a string as markup of the current output format.
func noEsc(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	if _, ok := target.(model.MarkupValue); ok {
		return target, nil
	}

	if !env.format.IsMarkup() {
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf(
			"?%s needs a markup output format, but the current one is %q", b.Name, env.format.Name()))
	}

	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	return model.MarkupOf(env.format.FromMarkup(s)), nil
}

func markupString(_ *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	m, ok := target.(model.MarkupValue)
	if !ok {
		return nil, targetError(b, "markup", target)
	}

	mo := m.Markup()

	s, err := mo.Format().MarkupString(mo)
	if err != nil {
		return nil, err
	}

	return model.String(s), nil
}

// evalString evaluates a string as an expression in the current scope.
func evalString(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	name := env.tmpl.name + "?eval"

	toks, err := lexExpression(name, s, Position{})
	if err != nil {
		return nil, err
	}

	p := newParser(name, s, toks, env.cfg.maxParseDepth, log.Logger{})

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if t := p.peek(); t.kind != tokEOF {
		return nil, p.unexpected(t, "end of expression")
	}

	v, err := env.eval(x)
	if err != nil {
		var te *TemplateError
		if errors.As(err, &te) {
			te.Template, te.Source = name, s
		}

		return nil, err
	}

	return v, nil
}

// evalJSON parses a JSON document into a value of the data model.
func evalJSON(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	var doc any

	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s: %w", b.Name, err))
	}

	return env.cfg.wrapper.Wrap(doc)
}

// switchValue returns the result paired with the first case equal to the
// target, or the trailing default.
func switchValue(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	n := len(b.Args)

	for i := 0; i+1 < n; i += 2 {
		c, err := env.required(b.Args[i])
		if err != nil {
			return nil, err
		}

		eq, ok, err := env.looseEqual(target, c)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, ErrUnexpectedType.Wrap(fmt.Errorf(
				"?%s can't compare %s with %s", b.Name, describe(target), describe(c)))
		}

		if eq {
			return env.eval(b.Args[i+1])
		}
	}

	if n%2 == 1 {
		return env.eval(b.Args[n-1])
	}

	return nil, ErrInvalidArgument.Wrap(fmt.Errorf(
		"?%s found no case matching %s and has no default", b.Name, Inspect(target)))
}
