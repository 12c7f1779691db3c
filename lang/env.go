package lang

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/pkg"
	"github.com/ardnew/ftl/valuefmt"
)

// Environment is the state of a single template rendering. Go values that
// implement [TemplateDirective] receive it to read and write variables and
// produce output.
//
// An Environment is not safe for concurrent use.
type Environment struct {
	ctx    context.Context
	tmpl   *Template
	cfg    config
	set    settings
	out    io.Writer
	logger log.Logger

	formats *valuefmt.Formats
	format  markup.Format
	autoEsc bool

	data    model.Hash
	shared  map[string]model.Value
	globals *model.Map
	main    *model.Map
	frame   *frame
	pending []*listing
	errors  []error
	depth   int
	started time.Time
}

// frame is the variable context of the template or of one macro call.
type frame struct {
	macro  *Macro
	call   *UserCall
	locals *model.Map
	scopes []*scope
	caller *frame
}

// scope holds loop and lambda variables. Scopes nest inside a frame.
type scope struct {
	vars map[string]model.Value
	loop *loopState
}

type loopState struct {
	name, key string
	index     int
	hasNext   bool
}

func newEnvironment(ctx context.Context, t *Template, cfg config, w io.Writer, data any) (*Environment, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	root, err := cfg.wrapper.Wrap(data)
	if err != nil {
		return nil, ErrUnexpectedType.Wrap(fmt.Errorf("data model: %w", err))
	}

	var hash model.Hash

	switch r := root.(type) {
	case nil:
		hash = model.NewMap(0)
	case model.Hash:
		hash = r
	default:
		return nil, ErrUnexpectedType.Wrap(
			fmt.Errorf("the data model must be a hash, but it is %s", describe(root)))
	}

	shared := make(map[string]model.Value, len(cfg.shared))

	for name, v := range cfg.shared {
		wv, err := cfg.wrapper.Wrap(v)
		if err != nil {
			return nil, ErrUnexpectedType.Wrap(fmt.Errorf("shared variable %q: %w", name, err))
		}

		shared[name] = wv
	}

	env := &Environment{
		ctx:     ctx,
		tmpl:    t,
		cfg:     cfg,
		set:     cfg.settings,
		out:     w,
		logger:  cfg.logger,
		formats: valuefmt.New(cfg.formatOptions()...),
		data:    hash,
		shared:  shared,
		globals: model.NewMap(0),
		main:    model.NewMap(0),
		frame:   &frame{},
		started: time.Now(),
	}

	env.format, env.autoEsc = t.outputFormat(cfg)

	return env, nil
}

// Context returns the context of the rendering.
func (env *Environment) Context() context.Context { return env.ctx }

// Out returns the writer that receives the output at this point of the
// rendering. It changes inside capturing directives.
func (env *Environment) Out() io.Writer { return env.out }

// OutputFormat returns the output format in effect.
func (env *Environment) OutputFormat() markup.Format { return env.format }

// AutoEscaping reports whether interpolations are escaped.
func (env *Environment) AutoEscaping() bool { return env.autoEsc }

// Locale returns the locale in effect.
func (env *Environment) Locale() language.Tag { return env.set.locale }

// Logger returns the logger of the rendering.
func (env *Environment) Logger() log.Logger { return env.logger }

// Variable resolves name the way an identifier in the template would: loop
// variables, then locals of the current macro, then the main namespace,
// the globals, the data model and the shared variables. It returns nil for
// missing names.
func (env *Environment) Variable(name string) (model.Value, error) {
	return env.lookup(name)
}

// SetVariable sets a variable of the main namespace, like <#assign>.
func (env *Environment) SetVariable(name string, v model.Value) { env.main.Set(name, v) }

// SetGlobal sets a global variable, like <#global>.
func (env *Environment) SetGlobal(name string, v model.Value) { env.globals.Set(name, v) }

// SetLocal sets a local variable of the current macro, like <#local>.
func (env *Environment) SetLocal(name string, v model.Value) error {
	if env.frame.locals == nil {
		return ErrInvalidArgument.Wrap(fmt.Errorf("can't set local %q outside of a macro", name))
	}

	env.frame.locals.Set(name, v)

	return nil
}

func (env *Environment) lookup(name string) (model.Value, error) {
	f := env.frame

	for i := len(f.scopes) - 1; i >= 0; i-- {
		if v, ok := f.scopes[i].vars[name]; ok {
			return v, nil
		}
	}

	if f.locals != nil {
		if v, _ := f.locals.Get(name); v != nil {
			return v, nil
		}
	}

	for _, h := range []model.Hash{env.main, env.globals, env.data} {
		v, err := h.Get(name)
		if err != nil || v != nil {
			return v, err
		}
	}

	return env.shared[name], nil
}

func (env *Environment) push(sc *scope) {
	env.frame.scopes = append(env.frame.scopes, sc)
}

func (env *Environment) pop() {
	env.frame.scopes = env.frame.scopes[:len(env.frame.scopes)-1]
}

// loop returns the state of the innermost loop whose variable is name, or
// of the innermost loop when name is empty.
func (env *Environment) loop(name string) *loopState {
	scopes := env.frame.scopes

	for i := len(scopes) - 1; i >= 0; i-- {
		l := scopes[i].loop
		if l != nil && (name == "" || l.name == name || l.key == name) {
			return l
		}
	}

	return nil
}

// hoist defines the macros and functions of the template in the main
// namespace.
func (env *Environment) hoist() {
	for _, m := range env.tmpl.macros {
		env.main.Set(m.Name, &macroValue{def: m, env: env})
	}
}

// lenient reports whether missing values print as empty strings.
func (env *Environment) lenient() bool { return env.cfg.undefined == UndefinedLenient }

// undefined returns the error for a missing value of x.
func (env *Environment) undefined(x Expr) error {
	return env.fail(x, ErrUndefinedVariable.Wrap(
		fmt.Errorf("%s has evaluated to null or missing", x)).
		With(slog.String("expression", x.String())))
}

// errorf returns an error with sentinel cause located at n.
func (env *Environment) errorf(n Node, cause *pkg.Error, format string, args ...any) error {
	return env.fail(n, cause.Wrap(fmt.Errorf(format, args...)))
}

// fail locates err at n unless it already carries a location. Control
// signals pass unchanged.
func (env *Environment) fail(n Node, err error) error {
	if err == nil || isSignal(err) {
		return err
	}

	var te *TemplateError
	if errors.As(err, &te) {
		return err
	}

	return &TemplateError{
		Template: env.tmpl.name,
		Position: n.Pos(),
		Cause:    err,
		Source:   env.tmpl.source,
	}
}

// write copies s to the output.
func (env *Environment) write(s string) error {
	if s == "" {
		return nil
	}

	_, err := io.WriteString(env.out, s)

	return err
}

// capture runs fn with the output redirected to a buffer and returns what
// it wrote.
func (env *Environment) capture(fn func() error) (string, error) {
	var buf strings.Builder

	saved := env.out
	env.out = &buf

	err := fn()

	env.out = saved

	return buf.String(), err
}
