package lang

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/model"
)

// eval evaluates x. A missing value is nil without an error.
func (env *Environment) eval(x Expr) (model.Value, error) {
	v, err := env.evalNode(x)
	if err != nil {
		return nil, env.fail(x, err)
	}

	return v, nil
}

// required evaluates x and fails when the value is missing.
func (env *Environment) required(x Expr) (model.Value, error) {
	v, err := env.eval(x)
	if err == nil && v == nil {
		return nil, env.undefined(x)
	}

	return v, err
}

// optional evaluates the operand of a missing-value handler. A
// parenthesized operand also tolerates missing values in its inner steps.
func (env *Environment) optional(x Expr) (model.Value, error) {
	p, ok := x.(*Paren)
	if !ok {
		return env.eval(x)
	}

	v, err := env.eval(p.X)
	if errors.Is(err, ErrUndefinedVariable) {
		return nil, nil
	}

	return v, err
}

func (env *Environment) evalNode(x Expr) (model.Value, error) {
	switch x := x.(type) {
	case *StringLit:
		return model.String(x.Value), nil
	case *TemplateLit:
		return env.evalTemplateLit(x)
	case *NumberLit:
		return model.Num(x.Value), nil
	case *BoolLit:
		return model.Bool(x.Value), nil
	case *ListLit:
		l := make(model.List, len(x.Items))

		for i, item := range x.Items {
			v, err := env.required(item)
			if err != nil {
				return nil, err
			}

			l[i] = v
		}

		return l, nil
	case *HashLit:
		return env.evalHashLit(x)
	case *Ident:
		return env.lookup(x.Name)
	case *SpecialVar:
		return env.special(x)
	case *Dot:
		target, err := env.required(x.X)
		if err != nil {
			return nil, err
		}

		h, ok := target.(model.Hash)
		if !ok {
			return nil, env.errorf(x.X, ErrUnexpectedType,
				"expected a hash, but %s is %s", x.X, describe(target))
		}

		return h.Get(x.Name)
	case *Index:
		return env.evalIndex(x)
	case *Call:
		fn, err := env.required(x.Fn)
		if err != nil {
			return nil, err
		}

		args := make([]model.Value, len(x.Args))

		for i, a := range x.Args {
			if args[i], err = env.eval(a); err != nil {
				return nil, err
			}
		}

		return env.call(x, fn, args)
	case *Builtin:
		return env.evalBuiltin(x)
	case *Unary:
		return env.evalUnary(x)
	case *Binary:
		return env.evalBinary(x)
	case *Range:
		return env.evalRange(x)
	case *Default:
		v, err := env.optional(x.X)
		if err != nil || v != nil {
			return v, err
		}

		if x.Default == nil {
			return emptyValue{}, nil
		}

		return env.required(x.Default)
	case *Exists:
		v, err := env.optional(x.X)

		return model.Bool(v != nil), err
	case *Paren:
		return env.eval(x.X)
	case *Lambda:
		return &lambdaValue{node: x, env: env}, nil
	}

	return nil, ErrUnexpectedType.Wrap(fmt.Errorf("unsupported expression %T", x))
}

// evalTemplateLit joins the parts of a string literal with
// interpolations. The result is markup when an interpolation yields markup;
// the literal parts are then escaped as plain text.
func (env *Environment) evalTemplateLit(x *TemplateLit) (model.Value, error) {
	vals := make([]model.Value, len(x.Parts))

	var f markup.Format

	for i, part := range x.Parts {
		switch part := part.(type) {
		case *StringLit:
			vals[i] = model.String(part.Value)
		case *Interp:
			v, err := env.required(part.X)
			if err != nil {
				return nil, err
			}

			if m, ok := v.(model.MarkupValue); ok && f == nil {
				f = m.Markup().Format()
			}

			vals[i] = v
		}
	}

	if f == nil {
		var sb strings.Builder

		for i, v := range vals {
			s, err := env.plainText(x.Parts[i], v)
			if err != nil {
				return nil, err
			}

			sb.WriteString(s)
		}

		return model.String(sb.String()), nil
	}

	acc := f.FromPlainTextByEscaping("")

	for i, v := range vals {
		m, err := env.toMarkup(x.Parts[i], v, f)
		if err != nil {
			return nil, err
		}

		if acc, err = f.Concat(acc, m); err != nil {
			return nil, err
		}
	}

	return model.MarkupOf(acc), nil
}

func (env *Environment) evalHashLit(x *HashLit) (model.Value, error) {
	m := model.NewMap(len(x.Keys))

	for i, k := range x.Keys {
		kv, err := env.required(k)
		if err != nil {
			return nil, err
		}

		key, err := env.plainText(k, kv)
		if err != nil {
			return nil, err
		}

		v, err := env.required(x.Values[i])
		if err != nil {
			return nil, err
		}

		m.Set(key, v)
	}

	return m, nil
}

func (env *Environment) evalIndex(x *Index) (model.Value, error) {
	target, err := env.required(x.X)
	if err != nil {
		return nil, err
	}

	idx, err := env.required(x.Index)
	if err != nil {
		return nil, err
	}

	switch i := idx.(type) {
	case *rangeValue:
		return env.slice(x, target, i)
	case model.Numeric:
		n, err := intOf(i.Number())
		if err != nil {
			return nil, env.fail(x.Index, err)
		}

		switch t := target.(type) {
		case model.Sequence:
			return t.Index(n)
		case model.Scalar:
			s, err := t.AsString()
			if err != nil {
				return nil, err
			}

			r := []rune(s)
			if n < 0 || n >= len(r) {
				return nil, env.errorf(x.Index, ErrInvalidArgument,
					"string index %d is out of bounds for length %d", n, len(r))
			}

			return model.String(r[n]), nil
		}

		return nil, env.errorf(x.X, ErrUnexpectedType,
			"expected a sequence or string, but %s is %s", x.X, describe(target))
	case model.Scalar:
		key, err := i.AsString()
		if err != nil {
			return nil, err
		}

		h, ok := target.(model.Hash)
		if !ok {
			return nil, env.errorf(x.X, ErrUnexpectedType,
				"expected a hash, but %s is %s", x.X, describe(target))
		}

		return h.Get(key)
	}

	return nil, env.errorf(x.Index, ErrUnexpectedType,
		"expected a number, range or string key, but %s is %s", x.Index, describe(idx))
}

// slice returns the part of a sequence or string selected by r.
func (env *Environment) slice(x *Index, target model.Value, r *rangeValue) (model.Value, error) {
	var (
		length int
		str    []rune
		seq    model.Sequence
	)

	switch t := target.(type) {
	case model.Sequence:
		seq, length = t, t.Len()
	case model.Scalar:
		s, err := t.AsString()
		if err != nil {
			return nil, err
		}

		str = []rune(s)
		length = len(str)
	default:
		return nil, env.errorf(x.X, ErrUnexpectedType,
			"expected a sequence or string, but %s is %s", x.X, describe(target))
	}

	size := r.size
	if r.unbounded {
		size = int64(length) - r.start
	}

	if size > 0 {
		first, last := r.start, r.start+r.step*(size-1)
		if min(first, last) < 0 || max(first, last) >= int64(length) {
			return nil, env.errorf(x.Index, ErrInvalidArgument,
				"range %d..%d is out of bounds for length %d", first, last, length)
		}
	} else if r.start < 0 || r.start > int64(length) {
		return nil, env.errorf(x.Index, ErrInvalidArgument,
			"range start %d is out of bounds for length %d", r.start, length)
	}

	if seq == nil {
		out := make([]rune, 0, max(size, 0))
		for k := range max(size, 0) {
			out = append(out, str[r.start+r.step*k])
		}

		return model.String(out), nil
	}

	out := make(model.List, 0, max(size, 0))

	for k := range max(size, 0) {
		v, err := seq.Index(int(r.start + r.step*k))
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// call invokes a function, a method of the data model or a lambda.
func (env *Environment) call(n Node, fn model.Value, args []model.Value) (model.Value, error) {
	switch f := fn.(type) {
	case *macroValue:
		if !f.def.Function {
			return nil, env.errorf(n, ErrUnexpectedType,
				"macro %q can't be called as a function; call it with <@%s>", f.def.Name, f.def.Name)
		}

		return env.callFunction(n, f.def, args)
	case model.Method:
		return f.Call(args)
	}

	return nil, env.errorf(n, ErrUnexpectedType, "expected a function, but got %s", describe(fn))
}

func (env *Environment) evalUnary(x *Unary) (model.Value, error) {
	switch x.Op {
	case "!":
		b, err := env.boolOf(x.X)

		return model.Bool(!b), err
	case "-":
		n, err := env.numberOf(x.X)
		if err != nil {
			return nil, err
		}

		r, err := env.set.engine.Mul(n, arith.Int(-1))

		return model.Num(r), err
	default:
		n, err := env.numberOf(x.X)

		return model.Num(n), err
	}
}

func (env *Environment) evalBinary(x *Binary) (model.Value, error) {
	switch x.Op {
	case "&&", "||":
		a, err := env.boolOf(x.X)
		if err != nil || a == (x.Op == "||") {
			return model.Bool(a), err
		}

		b, err := env.boolOf(x.Y)

		return model.Bool(b), err
	}

	a, err := env.required(x.X)
	if err != nil {
		return nil, err
	}

	b, err := env.required(x.Y)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case "==", "!=":
		eq, err := env.equal(x, a, b)

		return model.Bool(eq == (x.Op == "==")), err
	case "<", "<=", ">", ">=":
		c, err := env.compare(x, a, b)
		if err != nil {
			return nil, err
		}

		switch x.Op {
		case "<":
			return model.Bool(c < 0), nil
		case "<=":
			return model.Bool(c <= 0), nil
		case ">":
			return model.Bool(c > 0), nil
		default:
			return model.Bool(c >= 0), nil
		}
	case "+":
		return env.add(x, a, b)
	}

	na, ok := a.(model.Numeric)
	if !ok {
		return nil, env.errorf(x.X, ErrUnexpectedType,
			"expected a number, but %s is %s", x.X, describe(a))
	}

	nb, ok := b.(model.Numeric)
	if !ok {
		return nil, env.errorf(x.Y, ErrUnexpectedType,
			"expected a number, but %s is %s", x.Y, describe(b))
	}

	var (
		r   arith.Number
		eng = env.set.engine
	)

	switch x.Op {
	case "-":
		r, err = eng.Sub(na.Number(), nb.Number())
	case "*":
		r, err = eng.Mul(na.Number(), nb.Number())
	case "/":
		r, err = eng.Div(na.Number(), nb.Number())
	case "%":
		r, err = eng.Mod(na.Number(), nb.Number())
	default:
		return nil, ErrUnexpectedType.Wrap(fmt.Errorf("unknown operator %q", x.Op))
	}

	if err != nil {
		return nil, err
	}

	return model.Num(r), nil
}

// add implements "+": numeric addition, markup or string concatenation,
// sequence concatenation and hash merging.
func (env *Environment) add(x *Binary, a, b model.Value) (model.Value, error) {
	na, aNum := a.(model.Numeric)
	nb, bNum := b.(model.Numeric)

	if aNum && bNum {
		r, err := env.set.engine.Add(na.Number(), nb.Number())

		return model.Num(r), err
	}

	ma, aMarkup := a.(model.MarkupValue)
	mb, bMarkup := b.(model.MarkupValue)

	if aMarkup || bMarkup {
		f := markup.Format(nil)
		if aMarkup {
			f = ma.Markup().Format()
		} else {
			f = mb.Markup().Format()
		}

		left, err := env.toMarkup(x.X, a, f)
		if err != nil {
			return nil, err
		}

		right, err := env.toMarkup(x.Y, b, f)
		if err != nil {
			return nil, err
		}

		m, err := f.Concat(left, right)
		if err != nil {
			return nil, err
		}

		return model.MarkupOf(m), nil
	}

	sa, aSeq := a.(model.Sequence)
	sb, bSeq := b.(model.Sequence)

	if aSeq && bSeq && !(isStringLike(a) && isStringLike(b)) {
		out := make(model.List, 0, sa.Len()+sb.Len())

		for _, s := range []model.Sequence{sa, sb} {
			for i := range s.Len() {
				v, err := s.Index(i)
				if err != nil {
					return nil, err
				}

				out = append(out, v)
			}
		}

		return out, nil
	}

	if isStringLike(a) && isStringLike(b) {
		left, err := env.plainText(x.X, a)
		if err != nil {
			return nil, err
		}

		right, err := env.plainText(x.Y, b)
		if err != nil {
			return nil, err
		}

		return model.String(left + right), nil
	}

	ha, aHash := a.(model.HashEx)
	hb, bHash := b.(model.HashEx)

	if aHash && bHash {
		switch {
		case ha.Len() == 0:
			return hb, nil
		case hb.Len() == 0:
			return ha, nil
		}

		out := model.NewMap(ha.Len() + hb.Len())

		for _, h := range []model.HashEx{ha, hb} {
			for k, v := range h.All() {
				out.Set(k, v)
			}
		}

		return out, nil
	}

	return nil, env.errorf(x, ErrUnexpectedType,
		"can't add %s to %s", describe(b), describe(a))
}

// isStringLike reports whether v converts to a string in concatenation.
func isStringLike(v model.Value) bool {
	switch v.(type) {
	case model.Scalar, model.Numeric, model.DateValue, model.Boolean:
		return true
	}

	return false
}

// equal compares a and b for the equality operators.
func (env *Environment) equal(x *Binary, a, b model.Value) (bool, error) {
	eq, ok, err := env.looseEqual(a, b)
	if err != nil {
		return false, env.fail(x, err)
	}

	if !ok {
		return false, env.errorf(x, ErrUnexpectedType,
			"can't compare %s with %s", describe(a), describe(b))
	}

	return eq, nil
}

// looseEqual compares a and b. It reports ok false when the types can't be
// compared.
func (env *Environment) looseEqual(a, b model.Value) (eq, ok bool, err error) {
	na, aNum := a.(model.Numeric)
	nb, bNum := b.(model.Numeric)

	if aNum && bNum {
		x, y := na.Number(), nb.Number()
		if x.IsNaN() || y.IsNaN() {
			return false, true, nil
		}

		c, err := env.set.engine.Compare(x, y)

		return c == 0, true, err
	}

	da, aDate := a.(model.DateValue)
	db, bDate := b.(model.DateValue)

	if aDate && bDate {
		if err := checkDateKinds(da, db); err != nil {
			return false, true, err
		}

		return da.Time().Equal(db.Time()), true, nil
	}

	_, aMarkup := a.(model.MarkupValue)
	_, bMarkup := b.(model.MarkupValue)
	sa, aStr := a.(model.Scalar)
	sb, bStr := b.(model.Scalar)

	if aStr && bStr && !aMarkup && !bMarkup {
		x, err := sa.AsString()
		if err != nil {
			return false, true, err
		}

		y, err := sb.AsString()

		return x == y, true, err
	}

	ba, aBool := a.(model.Boolean)
	bb, bBool := b.(model.Boolean)

	if aBool && bBool {
		return ba.Bool() == bb.Bool(), true, nil
	}

	return false, false, nil
}

// compare orders a and b for the relational operators. Only numbers and
// dates have an order.
func (env *Environment) compare(x *Binary, a, b model.Value) (int, error) {
	na, aNum := a.(model.Numeric)
	nb, bNum := b.(model.Numeric)

	if aNum && bNum {
		c, err := env.set.engine.Compare(na.Number(), nb.Number())
		if err != nil {
			return 0, env.fail(x, err)
		}

		return c, nil
	}

	da, aDate := a.(model.DateValue)
	db, bDate := b.(model.DateValue)

	if aDate && bDate {
		if err := checkDateKinds(da, db); err != nil {
			return 0, env.fail(x, err)
		}

		return da.Time().Compare(db.Time()), nil
	}

	switch {
	case isStringLike(a) && isStringLike(b):
		if _, ok := a.(model.Boolean); ok {
			return 0, env.errorf(x, ErrUnexpectedType, "can't use operator %q on boolean values", x.Op)
		}

		return 0, env.errorf(x, ErrUnexpectedType, "can't use operator %q on string values", x.Op)
	}

	return 0, env.errorf(x, ErrUnexpectedType,
		"can't compare %s with %s", describe(a), describe(b))
}

func checkDateKinds(a, b model.DateValue) error {
	ka, kb := a.DateKind(), b.DateKind()

	switch {
	case ka == model.DateUnknown || kb == model.DateUnknown:
		return ErrUnexpectedType.Wrap(
			errors.New("can't compare dates whose type (date, time or datetime) is unknown"))
	case ka != kb:
		return ErrUnexpectedType.Wrap(
			fmt.Errorf("can't compare dates of different types: %s and %s", ka, kb))
	}

	return nil
}

func (env *Environment) evalRange(x *Range) (model.Value, error) {
	from, err := env.intOperand(x.From)
	if err != nil {
		return nil, err
	}

	if x.To == nil {
		return &rangeValue{start: int64(from), step: 1, unbounded: true}, nil
	}

	to, err := env.intOperand(x.To)
	if err != nil {
		return nil, err
	}

	if x.Op == "..*" {
		return newLengthRange(int64(from), int64(to)), nil
	}

	return newRange(int64(from), int64(to), x.Op), nil
}

func (env *Environment) intOperand(x Expr) (int, error) {
	n, err := env.numberOf(x)
	if err != nil {
		return 0, err
	}

	i, err := intOf(n)
	if err != nil {
		return 0, env.fail(x, err)
	}

	return i, nil
}

// boolOf evaluates x as a boolean.
func (env *Environment) boolOf(x Expr) (bool, error) {
	v, err := env.required(x)
	if err != nil {
		return false, err
	}

	b, ok := v.(model.Boolean)
	if !ok {
		return false, env.errorf(x, ErrUnexpectedType,
			"expected a boolean, but %s is %s", x, describe(v))
	}

	return b.Bool(), nil
}

// numberOf evaluates x as a number.
func (env *Environment) numberOf(x Expr) (arith.Number, error) {
	v, err := env.required(x)
	if err != nil {
		return arith.Number{}, err
	}

	n, ok := v.(model.Numeric)
	if !ok {
		return arith.Number{}, env.errorf(x, ErrUnexpectedType,
			"expected a number, but %s is %s", x, describe(v))
	}

	return n.Number(), nil
}

// plainText converts v to a string the way an interpolation does, with the
// number, date and boolean formats in effect.
func (env *Environment) plainText(n Node, v model.Value) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", env.errorf(n, ErrUndefinedVariable, "%s has evaluated to null or missing", n)
	case model.MarkupValue:
		return "", env.errorf(n, ErrUnexpectedType,
			"expected a string, but %s is markup of format %s", n, x.Markup().Format().Name())
	case model.Scalar:
		return x.AsString()
	case model.Numeric:
		return env.formats.FormatNumber(x.Number(), env.set.numberFormat)
	case model.DateValue:
		return env.formatDate(x, "")
	case model.Boolean:
		return env.set.booleanFormat.Format(x.Bool()), nil
	}

	return "", env.errorf(n, ErrUnexpectedType,
		"expected a string, number, date or boolean, but %s is %s", n, describe(v))
}

// formatDate formats d with format, or with the setting that matches its
// kind when format is empty.
func (env *Environment) formatDate(d model.DateValue, format string) (string, error) {
	if format == "" {
		switch d.DateKind() {
		case model.DateOnly:
			format = env.set.dateFormat
		case model.TimeOnly:
			format = env.set.timeFormat
		case model.DateTime:
			format = env.set.datetimeFormat
		}
	}

	return env.formats.FormatDate(d, format)
}

// toMarkup converts v to markup of f. Markup of other formats is converted
// when possible; other values are escaped as plain text.
func (env *Environment) toMarkup(n Node, v model.Value, f markup.Format) (*markup.Model, error) {
	if m, ok := v.(model.MarkupValue); ok {
		return markup.Convert(m.Markup(), f)
	}

	s, err := env.plainText(n, v)
	if err != nil {
		return nil, err
	}

	return f.FromPlainTextByEscaping(s), nil
}
