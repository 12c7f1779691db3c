package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/model"
)

// signal is a control flow error raised by break and continue.
type signal struct{ name string }

func (s *signal) Error() string { return "<#" + s.name + "> outside of its block" }

var (
	errBreak    = &signal{name: "break"}
	errContinue = &signal{name: "continue"}
)

// returnSignal leaves a macro or function, carrying the function result.
type returnSignal struct{ value model.Value }

func (*returnSignal) Error() string { return "<#return> outside of a macro or function" }

func isSignal(err error) bool {
	switch err.(type) {
	case *signal, *returnSignal:
		return true
	}

	return false
}

func (env *Environment) execBody(body []Stmt) error {
	for _, s := range body {
		if err := env.exec(s); err != nil {
			return err
		}
	}

	return nil
}

func (env *Environment) exec(s Stmt) error {
	switch s := s.(type) {
	case *Text:
		return env.fail(s, env.write(s.Value))
	case *Interp:
		return env.execInterp(s)
	case *If:
		for _, b := range s.Branches {
			ok, err := env.condition(b.Cond)
			if err != nil {
				return err
			}

			if ok {
				return env.execBody(b.Body)
			}
		}

		return env.execBody(s.Else)
	case *List:
		return env.execList(s)
	case *Items:
		return env.execItems(s)
	case *Sep:
		if l := env.loop(""); l != nil && l.hasNext {
			return env.execBody(s.Body)
		}

		return nil
	case *Break:
		return errBreak
	case *Continue:
		return errContinue
	case *Switch:
		return env.execSwitch(s)
	case *Assign:
		return env.execAssign(s)
	case *Macro:
		return nil
	case *UserCall:
		return env.execUserCall(s)
	case *Nested:
		return env.execNested(s)
	case *Return:
		if s.X == nil {
			return &returnSignal{}
		}

		v, err := env.eval(s.X)
		if err != nil {
			return err
		}

		return &returnSignal{value: v}
	case *Attempt:
		return env.execAttempt(s)
	case *Stop:
		msg := "stopped"

		if s.Message != nil {
			v, err := env.required(s.Message)
			if err != nil {
				return err
			}

			if msg, err = env.plainText(s.Message, v); err != nil {
				return err
			}
		}

		return env.fail(s, ErrStopped.Wrap(errors.New(msg)))
	case *OutputFormat:
		f, err := lookupFormat(s.Name, env.format)
		if err != nil {
			return env.fail(s, err)
		}

		return env.withFormat(f, f.IsMarkup() && f.IsAutoEscapedByDefault(), s.Body)
	case *AutoEsc:
		if s.On && !env.format.IsMarkup() {
			return env.errorf(s, ErrInvalidSetting,
				"auto-escaping can't be turned on in the non-markup output format %q", env.format.Name())
		}

		return env.withFormat(env.format, s.On, s.Body)
	case *Compress:
		out, err := env.capture(func() error { return env.execBody(s.Body) })
		if werr := env.write(compress(out)); err == nil {
			err = env.fail(s, werr)
		}

		return err
	case *Setting:
		v, err := env.required(s.Value)
		if err != nil {
			return err
		}

		return env.fail(s, env.applySetting(s.Name, v))
	}

	return env.errorf(s, ErrUnexpectedType, "unsupported statement %T", s)
}

// condition evaluates x as the condition of an if. Missing values are
// false when undefined variables are lenient.
func (env *Environment) condition(x Expr) (bool, error) {
	v, err := env.eval(x)
	if err != nil {
		return false, err
	}

	if v == nil {
		if env.lenient() {
			return false, nil
		}

		return false, env.undefined(x)
	}

	b, ok := v.(model.Boolean)
	if !ok {
		return false, env.errorf(x, ErrUnexpectedType,
			"expected a boolean, but %s is %s", x, describe(v))
	}

	return b.Bool(), nil
}

func (env *Environment) execInterp(s *Interp) error {
	v, err := env.eval(s.X)
	if err != nil {
		return err
	}

	if v == nil {
		if env.lenient() {
			return nil
		}

		return env.undefined(s.X)
	}

	if s.Numeric {
		n, ok := v.(model.Numeric)
		if !ok {
			return env.errorf(s.X, ErrUnexpectedType,
				"expected a number, but %s is %s", s.X, describe(v))
		}

		text, err := env.formats.FormatNumber(n.Number(), fractionPattern(s.MinFrac, s.MaxFrac))
		if err != nil {
			return env.fail(s, err)
		}

		return env.fail(s, env.print(s.X, model.String(text)))
	}

	return env.fail(s, env.print(s.X, v))
}

// fractionPattern returns the number pattern of #{x; mXMY}.
func fractionPattern(minFrac, maxFrac int) string {
	if maxFrac < 0 {
		if minFrac == 0 {
			return "0.###"
		}

		maxFrac = minFrac
	}

	return "0." + strings.Repeat("0", minFrac) + strings.Repeat("#", max(maxFrac-minFrac, 0))
}

// print writes v as an interpolation would.
func (env *Environment) print(n Node, v model.Value) error {
	if m, ok := v.(model.MarkupValue); ok {
		return markup.Print(env.out, m.Markup(), env.format)
	}

	s, err := env.plainText(n, v)
	if err != nil {
		return err
	}

	if env.autoEsc && env.format.IsMarkup() {
		s = env.format.EscapePlainText(s)
	}

	return env.write(s)
}

func (env *Environment) withFormat(f markup.Format, autoEsc bool, body []Stmt) error {
	savedFormat, savedEsc := env.format, env.autoEsc
	env.format, env.autoEsc = f, autoEsc

	defer func() { env.format, env.autoEsc = savedFormat, savedEsc }()

	return env.execBody(body)
}

// compress removes leading and trailing white-space and collapses the
// white-space runs of s into one line break, if the run has one, or one
// space.
func compress(s string) string {
	var sb strings.Builder

	s = strings.TrimFunc(s, unicode.IsSpace)

	for i := 0; i < len(s); {
		r := rune(s[i])
		if r >= 0x80 || !unicode.IsSpace(r) {
			j := i + 1
			for j < len(s) && (s[j] >= 0x80 || !unicode.IsSpace(rune(s[j]))) {
				j++
			}

			sb.WriteString(s[i:j])
			i = j

			continue
		}

		j, newline := i, false
		for j < len(s) && s[j] < 0x80 && unicode.IsSpace(rune(s[j])) {
			newline = newline || s[j] == '\n' || s[j] == '\r'
			j++
		}

		if newline {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}

		i = j
	}

	return sb.String()
}

// listing walks the items of a listed value with one item of lookahead.
type listing struct {
	next    func() (key string, v model.Value, ok bool, err error)
	stop    func()
	key     string
	item    model.Value
	hasItem bool
}

func (l *listing) advance() error {
	key, v, ok, err := l.next()
	if err != nil {
		return err
	}

	l.key, l.item, l.hasItem = key, v, ok

	return nil
}

// open starts listing v. Hashes list their entries when keyed is set.
func (env *Environment) open(x Expr, v model.Value, keyed bool) (*listing, error) {
	if keyed {
		h, ok := v.(model.HashEx)
		if !ok {
			return nil, env.errorf(x, ErrUnexpectedType,
				"listing with a key and a value variable needs an extended hash, but %s is %s",
				x, describe(v))
		}

		next, stop := entries(h)

		return prime(&listing{next: next, stop: stop})
	}

	switch s := v.(type) {
	case model.Sequence:
		i := 0

		return prime(&listing{
			next: func() (string, model.Value, bool, error) {
				if i >= s.Len() {
					return "", nil, false, nil
				}

				item, err := s.Index(i)
				i++

				return "", item, err == nil, err
			},
			stop: func() {},
		})
	case model.Enumerable:
		it, err := s.Iterate()
		if err != nil {
			return nil, env.fail(x, err)
		}

		return prime(&listing{
			next: func() (string, model.Value, bool, error) {
				item, ok, err := it.Next()

				return "", item, ok, err
			},
			stop: it.Stop,
		})
	case model.HashEx:
		return nil, env.errorf(x, ErrUnexpectedType,
			"%s is a hash; list it with two loop variables, as in <#list %s as key, value>", x, x)
	}

	return nil, env.errorf(x, ErrUnexpectedType,
		"expected a sequence, collection or hash, but %s is %s", x, describe(v))
}

// prime fetches the first item of l.
func prime(l *listing) (*listing, error) {
	if err := l.advance(); err != nil {
		l.stop()

		return nil, err
	}

	return l, nil
}

func entries(h model.HashEx) (func() (string, model.Value, bool, error), func()) {
	keys := h.Keys()
	i := 0

	return func() (string, model.Value, bool, error) {
		if i >= len(keys) {
			return "", nil, false, nil
		}

		k := keys[i]
		i++

		v, err := h.Get(k)

		return k, v, err == nil, err
	}, func() {}
}

func (env *Environment) execList(s *List) error {
	v, err := env.eval(s.Seq)
	if err != nil {
		return err
	}

	if v == nil {
		if !env.lenient() {
			return env.undefined(s.Seq)
		}

		v = emptyValue{}
	}

	l, err := env.open(s.Seq, v, s.KeyVar != "")
	if err != nil {
		return env.fail(s.Seq, err)
	}
	defer l.stop()

	if !l.hasItem {
		return env.execBody(s.Else)
	}

	if s.Var == "" {
		env.pending = append(env.pending, l)
		defer func() { env.pending = env.pending[:len(env.pending)-1] }()

		err := env.execBody(s.Body)
		if err == errBreak {
			return nil
		}

		return err
	}

	return env.iterate(s, l, s.Var, s.KeyVar, s.Body)
}

func (env *Environment) execItems(s *Items) error {
	if len(env.pending) == 0 {
		return env.errorf(s, ErrTemplate, "<#items> must be inside a <#list> without loop variables")
	}

	l := env.pending[len(env.pending)-1]

	return env.iterate(s, l, s.Var, s.KeyVar, s.Body)
}

// iterate runs body once per remaining item of l.
func (env *Environment) iterate(n Node, l *listing, name, key string, body []Stmt) error {
	state := &loopState{name: name, key: key}
	sc := &scope{vars: map[string]model.Value{}, loop: state}

	env.push(sc)
	defer env.pop()

	for l.hasItem {
		if key != "" {
			sc.vars[key] = model.String(l.key)
			sc.vars[name] = l.item
		} else {
			sc.vars[name] = l.item
		}

		if err := l.advance(); err != nil {
			return env.fail(n, err)
		}

		state.hasNext = l.hasItem

		err := env.execBody(body)

		switch err {
		case nil, errContinue:
		case errBreak:
			l.hasItem = false

			return nil
		default:
			return err
		}

		state.index++
	}

	return nil
}

func (env *Environment) execSwitch(s *Switch) error {
	v, err := env.required(s.X)
	if err != nil {
		return err
	}

	start, def := -1, -1

	for i, c := range s.Cases {
		if c.Default {
			def = i

			continue
		}

		for _, x := range c.Values {
			cv, err := env.required(x)
			if err != nil {
				return err
			}

			eq, ok, err := env.looseEqual(v, cv)
			if err != nil {
				return env.fail(x, err)
			}

			if !ok {
				return env.errorf(x, ErrUnexpectedType,
					"can't compare the switch value, %s, with %s", describe(v), describe(cv))
			}

			if eq {
				start = i

				break
			}
		}

		if start >= 0 {
			break
		}
	}

	if start < 0 {
		start = def
	}

	if start < 0 {
		return nil
	}

	if s.Cases[start].On {
		err = env.execBody(s.Cases[start].Body)
	} else {
		for _, c := range s.Cases[start:] {
			if err = env.execBody(c.Body); err != nil {
				break
			}
		}
	}

	if err == errBreak {
		return nil
	}

	return err
}

func (env *Environment) execAssign(s *Assign) error {
	target := env.assignTarget(s.Scope)

	if s.Capture != nil {
		out, err := env.capture(func() error { return env.execBody(s.Capture) })
		if err != nil {
			return err
		}

		var v model.Value = model.String(out)
		if env.format.IsMarkup() {
			v = model.MarkupOf(env.format.FromMarkup(out))
		}

		return env.fail(s, target.set(s.Targets[0].Name, v))
	}

	for _, t := range s.Targets {
		v, err := env.assignValue(target, t)
		if err != nil {
			return err
		}

		if err := target.set(t.Name, v); err != nil {
			return env.fail(t, err)
		}
	}

	return nil
}

// variables is the namespace written by one kind of assignment.
type variables struct {
	get func(name string) model.Value
	set func(name string, v model.Value) error
}

func (env *Environment) assignTarget(scope string) variables {
	mapVars := func(m *model.Map) variables {
		return variables{
			get: func(name string) model.Value {
				v, _ := m.Get(name)

				return v
			},
			set: func(name string, v model.Value) error {
				m.Set(name, v)

				return nil
			},
		}
	}

	switch scope {
	case "global":
		return mapVars(env.globals)
	case "local":
		if env.frame.locals == nil {
			return variables{
				get: func(string) model.Value { return nil },
				set: env.SetLocal,
			}
		}

		return mapVars(env.frame.locals)
	default:
		return mapVars(env.main)
	}
}

func (env *Environment) assignValue(target variables, t *AssignTarget) (model.Value, error) {
	if t.Op == "=" {
		return env.required(t.Value)
	}

	cur := target.get(t.Name)
	if cur == nil {
		return nil, env.errorf(t, ErrUndefinedVariable,
			"the variable %s is missing, so %s can't be applied to it", t.Name, t.Op)
	}

	var (
		rhs model.Value = model.Int(1)
		err error
	)

	if t.Value != nil {
		if rhs, err = env.required(t.Value); err != nil {
			return nil, err
		}
	}

	op := strings.TrimSuffix(t.Op, "=")
	if op == "++" || op == "--" {
		op = op[:1]
	}

	ident := &Ident{At: t.At, Name: t.Name}
	operand := t.Value
	if operand == nil {
		operand = &NumberLit{At: t.At, Value: arith.Int(1), Text: "1"}
	}

	bin := &Binary{At: t.At, Op: op, X: ident, Y: operand}

	if op == "+" {
		return env.add(bin, cur, rhs)
	}

	a, ok := cur.(model.Numeric)
	if !ok {
		return nil, env.errorf(t, ErrUnexpectedType,
			"expected a number, but %s is %s", t.Name, describe(cur))
	}

	b, ok := rhs.(model.Numeric)
	if !ok {
		return nil, env.errorf(operand, ErrUnexpectedType,
			"expected a number, but %s is %s", operand, describe(rhs))
	}

	var r arith.Number

	switch op {
	case "-":
		r, err = env.set.engine.Sub(a.Number(), b.Number())
	case "*":
		r, err = env.set.engine.Mul(a.Number(), b.Number())
	case "/":
		r, err = env.set.engine.Div(a.Number(), b.Number())
	default:
		r, err = env.set.engine.Mod(a.Number(), b.Number())
	}

	if err != nil {
		return nil, env.fail(t, err)
	}

	return model.Num(r), nil
}

func (env *Environment) execUserCall(s *UserCall) error {
	callee, err := env.required(s.Callee)
	if err != nil {
		return err
	}

	positional := make([]model.Value, len(s.Positional))

	for i, x := range s.Positional {
		if positional[i], err = env.eval(x); err != nil {
			return err
		}
	}

	named := make(map[string]model.Value, len(s.Named))
	order := make([]string, len(s.Named))

	for i, a := range s.Named {
		if named[a.Name], err = env.eval(a.Value); err != nil {
			return err
		}

		order[i] = a.Name
	}

	switch c := callee.(type) {
	case *macroValue:
		if c.def.Function {
			return env.errorf(s, ErrUnexpectedType,
				"function %q can't be called as a directive; call it as %s(...)", c.def.Name, c.def.Name)
		}

		return env.callMacro(s, c.def, positional, named, order)
	case TemplateDirective:
		return env.callDirective(s, c, positional, named)
	}

	return env.errorf(s.Callee, ErrUnexpectedType,
		"expected a macro or directive, but %s is %s", s.Callee, describe(callee))
}

func (env *Environment) enterCall(n Node, def *Macro, f *frame) (func(), error) {
	if env.depth >= env.cfg.maxCallDepth {
		return nil, env.errorf(n, ErrStackOverflow,
			"calling %s %q exceeds the maximum call depth of %d", macroKind(def), def.Name, env.cfg.maxCallDepth)
	}

	saved := env.frame
	env.frame = f
	env.depth++

	env.logger.Trace("call",
		slog.String("name", def.Name),
		slog.Int("depth", env.depth),
	)

	return func() {
		env.frame = saved
		env.depth--
	}, nil
}

func (env *Environment) callMacro(
	s *UserCall,
	def *Macro,
	positional []model.Value,
	named map[string]model.Value,
	order []string,
) error {
	f := &frame{macro: def, call: s, locals: model.NewMap(len(def.Params)), caller: env.frame}

	bound, err := env.bind(s, def, f, positional, named, order)
	if err != nil {
		return err
	}

	leave, err := env.enterCall(s, def, f)
	if err != nil {
		return err
	}
	defer leave()

	if err := env.bindDefaults(s, def, f, bound); err != nil {
		return err
	}

	err = env.execBody(def.Body)

	var ret *returnSignal
	if errors.As(err, &ret) {
		return nil
	}

	return err
}

// callFunction calls a function and returns its result. The output of the
// function body is discarded.
func (env *Environment) callFunction(n Node, def *Macro, args []model.Value) (model.Value, error) {
	f := &frame{macro: def, locals: model.NewMap(len(def.Params)), caller: env.frame}

	bound, err := env.bind(n, def, f, args, nil, nil)
	if err != nil {
		return nil, err
	}

	leave, err := env.enterCall(n, def, f)
	if err != nil {
		return nil, err
	}
	defer leave()

	if err := env.bindDefaults(n, def, f, bound); err != nil {
		return nil, err
	}

	_, err = env.capture(func() error { return env.execBody(def.Body) })

	var ret *returnSignal
	if errors.As(err, &ret) {
		return ret.value, nil
	}

	return nil, err
}

// bind assigns call arguments to the parameters of def. It reports which
// parameters received a value.
func (env *Environment) bind(
	n Node,
	def *Macro,
	f *frame,
	positional []model.Value,
	named map[string]model.Value,
	order []string,
) (map[string]bool, error) {
	params := def.Params

	var catchAll *Param
	if k := len(params); k > 0 && params[k-1].CatchAll {
		catchAll, params = params[k-1], params[:k-1]
	}

	bound := make(map[string]bool, len(def.Params))

	var extra model.List

	for i, v := range positional {
		switch {
		case i < len(params):
			if v != nil {
				f.locals.Set(params[i].Name, v)
				bound[params[i].Name] = true
			}
		case catchAll != nil:
			extra = append(extra, v)
		default:
			return nil, env.errorf(n, ErrInvalidArgument,
				"%s %q accepts at most %d argument(s), got %d",
				macroKind(def), def.Name, len(params), len(positional))
		}
	}

	var extraNamed *model.Map

	for _, name := range order {
		v := named[name]

		idx := -1

		for i, p := range params {
			if p.Name == name {
				idx = i

				break
			}
		}

		switch {
		case idx >= 0:
			if v != nil {
				f.locals.Set(name, v)
				bound[name] = true
			}
		case catchAll != nil:
			if extraNamed == nil {
				extraNamed = model.NewMap(0)
			}

			extraNamed.Set(name, v)
		default:
			return nil, env.errorf(n, ErrInvalidArgument,
				"%s %q has no parameter named %q%s",
				macroKind(def), def.Name, name, suggest(name, paramNames(params)))
		}
	}

	if catchAll != nil {
		switch {
		case extraNamed != nil:
			f.locals.Set(catchAll.Name, extraNamed)
		case extra != nil:
			f.locals.Set(catchAll.Name, extra)
		default:
			f.locals.Set(catchAll.Name, model.List{})
		}

		bound[catchAll.Name] = true
	}

	return bound, nil
}

// bindDefaults evaluates the defaults of unbound parameters in the frame
// of the call, so a default may refer to earlier parameters.
func (env *Environment) bindDefaults(n Node, def *Macro, f *frame, bound map[string]bool) error {
	for _, p := range def.Params {
		if bound[p.Name] {
			continue
		}

		if p.Default == nil {
			return env.errorf(n, ErrInvalidArgument,
				"the required parameter %q of %s %q was not specified", p.Name, macroKind(def), def.Name)
		}

		v, err := env.required(p.Default)
		if err != nil {
			return err
		}

		f.locals.Set(p.Name, v)
	}

	return nil
}

func paramNames(params []*Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}

	return names
}

func (env *Environment) execNested(s *Nested) error {
	f := env.frame
	if f.call == nil || f.call.Body == nil {
		return nil
	}

	args := make([]model.Value, len(s.Args))

	for i, x := range s.Args {
		var err error
		if args[i], err = env.eval(x); err != nil {
			return err
		}
	}

	if len(f.call.LoopVars) > len(args) {
		return env.errorf(s, ErrInvalidArgument,
			"the caller declares %d loop variable(s), but <#nested> passes %d",
			len(f.call.LoopVars), len(args))
	}

	sc := &scope{vars: make(map[string]model.Value, len(f.call.LoopVars))}
	for i, name := range f.call.LoopVars {
		sc.vars[name] = args[i]
	}

	env.frame = f.caller
	env.push(sc)

	defer func() {
		env.pop()
		env.frame = f
	}()

	return env.execBody(f.call.Body)
}

func (env *Environment) callDirective(
	s *UserCall,
	d TemplateDirective,
	positional []model.Value,
	named map[string]model.Value,
) error {
	call := &DirectiveCall{
		Positional:   positional,
		Named:        named,
		LoopVarCount: len(s.LoopVars),
	}

	if s.Body != nil {
		call.Body = func(loopVars ...model.Value) error {
			sc := &scope{vars: make(map[string]model.Value, len(s.LoopVars))}
			for i, name := range s.LoopVars {
				if i < len(loopVars) {
					sc.vars[name] = loopVars[i]
				}
			}

			env.push(sc)
			defer env.pop()

			return env.execBody(s.Body)
		}
	}

	return env.fail(s, d.Execute(env, call))
}

func (env *Environment) execAttempt(s *Attempt) error {
	out, err := env.capture(func() error { return env.execBody(s.Body) })

	if err == nil || isSignal(err) || errors.Is(err, ErrStopped) || errors.Is(err, ErrCanceled) {
		if werr := env.write(out); err == nil {
			err = env.fail(s, werr)
		}

		return err
	}

	env.logger.Debug("attempt failed; recovering",
		slog.String("template", env.tmpl.name),
		slog.Any("error", err),
	)

	env.errors = append(env.errors, err)
	defer func() { env.errors = env.errors[:len(env.errors)-1] }()

	return env.execBody(s.Recover)
}

// errorMessage returns the message of the error handled by the innermost
// recover block.
func (env *Environment) errorMessage() (string, bool) {
	if len(env.errors) == 0 {
		return "", false
	}

	err := env.errors[len(env.errors)-1]

	var te *TemplateError
	if errors.As(err, &te) && te.Cause != nil {
		return fmt.Sprintf("%s (at line %d, column %d)", te.Cause, te.Position.Line, te.Position.Column), true
	}

	return err.Error(), true
}
