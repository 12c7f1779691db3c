package lang

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/pkg"
	"github.com/ardnew/ftl/truncate"
	"github.com/ardnew/ftl/valuefmt"
)

const (
	// DefaultMaxCallDepth limits nested macro and function calls.
	DefaultMaxCallDepth = 200

	// DefaultMaxParseDepth limits the nesting of directives and
	// expressions.
	DefaultMaxParseDepth = 256
)

// Undefined selects how missing values are treated.
type Undefined uint8

const (
	// UndefinedStrict fails on any use of a missing value that isn't
	// guarded by a default or existence operator.
	UndefinedStrict Undefined = iota

	// UndefinedLenient prints missing values as empty strings and lets
	// type-test built-ins accept them.
	UndefinedLenient
)

// String returns the name of u.
func (u Undefined) String() string {
	if u == UndefinedLenient {
		return "lenient"
	}

	return "strict"
}

// config holds the engine configuration shared by parsing and rendering.
type config struct {
	settings

	shared          map[string]any
	wrapper         *model.Wrapper
	maxCallDepth    int
	maxParseDepth   int
	undefined       Undefined
	stripWhitespace bool
	fmtOpts         []valuefmt.Option
	logger          log.Logger
	pending         []SettingValue
}

func defaultConfig() config {
	return config{
		settings:        defaultSettings(),
		wrapper:         model.DefaultWrapper,
		maxCallDepth:    DefaultMaxCallDepth,
		maxParseDepth:   DefaultMaxParseDepth,
		stripWhitespace: true,
	}
}

// Option configures parsing or rendering.
type Option = pkg.Option[config]

// resolve applies the pending settings and checks the named formats. It
// returns the first invalid value.
func (c config) resolve() (config, error) {
	for _, s := range c.pending {
		if err := c.assign(s.Name, s.Value); err != nil {
			return c, err
		}
	}

	c.pending = nil

	if c.maxCallDepth < 1 || c.maxParseDepth < 1 {
		return c, ErrInvalidSetting.Wrap(fmt.Errorf(
			"depth limits must be positive (call depth %d, parse depth %d)", c.maxCallDepth, c.maxParseDepth))
	}

	if c.autoEsc != nil && *c.autoEsc && c.outputFormat != nil && !c.outputFormat.IsMarkup() {
		return c, ErrInvalidSetting.Wrap(fmt.Errorf(
			"auto-escaping can't be turned on in the non-markup output format %q", c.outputFormat.Name()))
	}

	err := c.validate(valuefmt.New(c.formatOptions()...),
		"number_format", "date_format", "time_format", "datetime_format")

	return c, err
}

func (c config) formatOptions() []valuefmt.Option {
	return append([]valuefmt.Option{
		valuefmt.WithLocale(c.locale),
		valuefmt.WithTimeZone(c.zone),
	}, c.fmtOpts...)
}

// WithOutputFormat sets the output format. Without it, the format is
// chosen by the extension of the template name.
func WithOutputFormat(f markup.Format) Option {
	return func(c config) config {
		c.outputFormat = f

		return c
	}
}

// WithAutoEscaping forces auto-escaping on or off.
func WithAutoEscaping(on bool) Option {
	return func(c config) config {
		c.autoEsc = &on

		return c
	}
}

// WithArithmetic sets the arithmetic engine.
func WithArithmetic(e arith.Engine) Option {
	return func(c config) config {
		if e != nil {
			c.engine = e
		}

		return c
	}
}

// WithTruncate sets the algorithm of the truncate built-ins.
func WithTruncate(a truncate.Algorithm) Option {
	return func(c config) config {
		if a != nil {
			c.truncate = a
		}

		return c
	}
}

// WithLocale sets the locale of number, date and collation rules.
func WithLocale(tag language.Tag) Option {
	return func(c config) config {
		c.locale = tag

		return c
	}
}

// WithTimeZone sets the zone that dates are shown in.
func WithTimeZone(zone *time.Location) Option {
	return func(c config) config {
		if zone != nil {
			c.zone = zone
		}

		return c
	}
}

// WithNumberFormat sets the default number format.
func WithNumberFormat(format string) Option {
	return func(c config) config {
		c.numberFormat = format

		return c
	}
}

// WithSharedVariable defines a variable visible to every template, below
// the data model.
func WithSharedVariable(name string, v any) Option {
	return func(c config) config {
		shared := maps.Clone(c.shared)
		if shared == nil {
			shared = make(map[string]any, 1)
		}

		shared[name] = v
		c.shared = shared

		return c
	}
}

// WithWrapper sets the object wrapper that adapts Go values.
func WithWrapper(w *model.Wrapper) Option {
	return func(c config) config {
		if w != nil {
			c.wrapper = w
		}

		return c
	}
}

// WithMaxCallDepth limits nested macro and function calls.
func WithMaxCallDepth(n int) Option {
	return func(c config) config {
		c.maxCallDepth = n

		return c
	}
}

// WithMaxParseDepth limits the nesting of directives and expressions.
func WithMaxParseDepth(n int) Option {
	return func(c config) config {
		c.maxParseDepth = n

		return c
	}
}

// WithUndefined selects how missing values are treated.
func WithUndefined(u Undefined) Option {
	return func(c config) config {
		c.undefined = u

		return c
	}
}

// WithCustomNumberFormat registers a number format used as "@name".
func WithCustomNumberFormat(name string, f valuefmt.NumberFormatFactory) Option {
	return func(c config) config {
		c.fmtOpts = append(c.fmtOpts[:len(c.fmtOpts):len(c.fmtOpts)],
			valuefmt.WithCustomNumberFormat(name, f))

		return c
	}
}

// WithCustomDateFormat registers a date format used as "@name".
func WithCustomDateFormat(name string, f valuefmt.DateFormatFactory) Option {
	return func(c config) config {
		c.fmtOpts = append(c.fmtOpts[:len(c.fmtOpts):len(c.fmtOpts)],
			valuefmt.WithCustomDateFormat(name, f))

		return c
	}
}

// WithLogger sets the logger of parsing and rendering.
func WithLogger(l log.Logger) Option {
	return func(c config) config {
		c.logger = l

		return c
	}
}

// WithSetting assigns a setting by the name <#setting> uses. An unknown
// name or invalid value fails the Parse or Render that receives it.
func WithSetting(name, value string) Option {
	return func(c config) config {
		c.pending = append(c.pending[:len(c.pending):len(c.pending)],
			SettingValue{Name: name, Value: value})

		return c
	}
}

// WithStripWhitespace enables or disables removal of lines that hold only
// directives and white-space. The ftl header overrides it.
func WithStripWhitespace(enable bool) Option {
	return func(c config) config {
		c.stripWhitespace = enable

		return c
	}
}

// Template is a parsed template. It is immutable and may be rendered
// concurrently.
type Template struct {
	name         string
	source       string
	root         []Stmt
	header       header
	headerFormat markup.Format
	macros       []*Macro
	cfg          config
}

// Parse parses source as the template name. The options become the
// defaults of every rendering of the template.
func Parse(name, source string, opts ...Option) (*Template, error) {
	cfg, err := pkg.Apply(defaultConfig(), opts...).resolve()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	toks, err := lex(name, source)
	if err != nil {
		return nil, err
	}

	p := newParser(name, source, toks, cfg.maxParseDepth, cfg.logger)

	root, hdr, err := p.parseTemplate(cfg.stripWhitespace)
	if err != nil {
		cfg.logger.Debug("parse failed",
			slog.String("template", name),
			slog.Any("error", err),
		)

		return nil, err
	}

	t := &Template{
		name:   name,
		source: source,
		root:   root,
		header: hdr,
		macros: p.macros,
		cfg:    cfg,
	}

	if hdr.OutputFormat != "" {
		if t.headerFormat, err = lookupFormat(hdr.OutputFormat, cfg.outputFormat); err != nil {
			return nil, newParseError(name, source, Position{Line: 1, Column: 1},
				ErrInvalidSetting, "the ftl header: %v", err)
		}
	}

	if hdr.AutoEsc != nil && *hdr.AutoEsc {
		if f, _ := t.outputFormat(cfg); !f.IsMarkup() {
			return nil, newParseError(name, source, Position{Line: 1, Column: 1}, ErrInvalidSetting,
				"auto-escaping can't be turned on in the non-markup output format %q", f.Name())
		}
	}

	cfg.logger.Debug("parsed template",
		slog.String("template", name),
		slog.Int("tokens", len(toks)),
		slog.Int("statements", len(root)),
		slog.Int("macros", len(p.macros)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return t, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(name, source string, opts ...Option) *Template {
	t, err := Parse(name, source, opts...)
	if err != nil {
		panic(err)
	}

	return t
}

// Name returns the name of the template.
func (t *Template) Name() string { return t.name }

// Source returns the text of the template.
func (t *Template) Source() string { return t.source }

// Root returns the top-level statements of the template.
func (t *Template) Root() []Stmt { return t.root }

// Macros returns the macros and functions the template defines.
func (t *Template) Macros() []*Macro { return t.macros }

// StripWhitespace reports whether white-space stripping was applied.
func (t *Template) StripWhitespace() bool { return t.header.StripWhitespace }

// OutputFormat returns the output format the template renders in by
// default.
func (t *Template) OutputFormat() markup.Format {
	f, _ := t.outputFormat(t.cfg)

	return f
}

// outputFormat returns the format and auto-escaping of a rendering under
// cfg. The ftl header wins over the configuration, which wins over the
// template name.
func (t *Template) outputFormat(cfg config) (markup.Format, bool) {
	f := t.headerFormat
	if f == nil {
		f = cfg.outputFormat
	}

	if f == nil {
		f = markup.ForTemplateName(t.name)
	}

	auto := cfg.autoEscaping(f)
	if t.header.AutoEsc != nil {
		auto = *t.header.AutoEsc && f.IsMarkup()
	}

	return f, auto
}

// String returns the template text reconstructed from its nodes.
func (t *Template) String() string { return bodyString(t.root) }

// Render writes the output of the template for data to w. The options
// override the ones given to [Parse] for this rendering only. Rendering
// stops with [ErrCanceled] when ctx is done.
func (t *Template) Render(ctx context.Context, w io.Writer, data any, opts ...Option) error {
	cfg, err := pkg.Apply(t.cfg, opts...).resolve()
	if err != nil {
		return err
	}

	env, err := newEnvironment(ctx, t, cfg, w, data)
	if err != nil {
		return err
	}

	env.hoist()

	cfg.logger.TraceContext(env.ctx, "render started",
		slog.String("template", t.name),
		slog.String("output_format", env.format.Name()),
		slog.Bool("auto_esc", env.autoEsc),
	)

	err = env.run(t.root)

	cfg.logger.DebugContext(env.ctx, "rendered template",
		slog.String("template", t.name),
		slog.Duration("elapsed", time.Since(env.started)),
		slog.Bool("ok", err == nil),
	)

	return err
}

// run executes the top-level statements, checking for cancellation
// between them.
func (env *Environment) run(body []Stmt) error {
	for _, s := range body {
		if err := env.ctx.Err(); err != nil {
			return ErrCanceled.Wrap(err).With(slog.String("template", env.tmpl.name))
		}

		err := env.exec(s)

		var ret *returnSignal
		if errors.As(err, &ret) {
			return nil
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// RenderString renders the template for data into a string.
func (t *Template) RenderString(ctx context.Context, data any, opts ...Option) (string, error) {
	var sb strings.Builder

	err := t.Render(ctx, &sb, data, opts...)

	return sb.String(), err
}

// Expression is a parsed stand-alone expression.
type Expression struct {
	tmpl *Template
	root Expr
}

// ParseExpression parses src as a single expression.
func ParseExpression(src string, opts ...Option) (*Expression, error) {
	cfg, err := pkg.Apply(defaultConfig(), opts...).resolve()
	if err != nil {
		return nil, err
	}

	const name = "<expression>"

	toks, err := lexExpression(name, src, Position{})
	if err != nil {
		return nil, err
	}

	p := newParser(name, src, toks, cfg.maxParseDepth, cfg.logger)

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if t := p.peek(); t.kind != tokEOF {
		return nil, p.unexpected(t, "end of expression")
	}

	return &Expression{
		tmpl: &Template{name: name, source: src, cfg: cfg},
		root: x,
	}, nil
}

// Eval evaluates the expression against data. A missing result fails with
// [ErrUndefinedVariable] unless the undefined policy is [UndefinedLenient],
// which returns nil.
func (e *Expression) Eval(ctx context.Context, data any, opts ...Option) (model.Value, error) {
	cfg, err := pkg.Apply(e.tmpl.cfg, opts...).resolve()
	if err != nil {
		return nil, err
	}

	env, err := newEnvironment(ctx, e.tmpl, cfg, io.Discard, data)
	if err != nil {
		return nil, err
	}

	if env.lenient() {
		return env.eval(e.root)
	}

	return env.required(e.root)
}

// Root returns the root node of the expression.
func (e *Expression) Root() Expr { return e.root }

// String returns the canonical text of the expression.
func (e *Expression) String() string { return e.root.String() }
