package lang

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/truncate"
	"github.com/ardnew/ftl/valuefmt"
)

// settingNames are the settings accepted by <#setting> and [WithSetting].
var settingNames = []string{
	"arithmetic_engine",
	"auto_esc",
	"boolean_format",
	"date_format",
	"datetime_format",
	"locale",
	"number_format",
	"output_format",
	"time_format",
	"time_zone",
	"truncate_algorithm",
}

// settings are the values that a template may change while it renders.
type settings struct {
	locale         language.Tag
	zone           *time.Location
	numberFormat   string
	booleanFormat  valuefmt.BooleanFormat
	dateFormat     string
	timeFormat     string
	datetimeFormat string
	outputFormat   markup.Format // nil selects the format by template name
	autoEsc        *bool         // nil follows the output format
	engine         arith.Engine
	truncate       truncate.Algorithm
}

func defaultSettings() settings {
	engine, _ := arith.ByName(arith.NameBigDecimal)
	boolean, _ := valuefmt.ParseBooleanFormat(valuefmt.DefaultBooleanFormat)

	return settings{
		locale:         language.AmericanEnglish,
		zone:           time.Local,
		numberFormat:   valuefmt.NumberDefault,
		booleanFormat:  boolean,
		dateFormat:     valuefmt.DefaultDateFormat,
		timeFormat:     valuefmt.DefaultTimeFormat,
		datetimeFormat: valuefmt.DefaultDateTimeFormat,
		engine:         engine,
		truncate:       truncate.ASCII,
	}
}

func invalidSetting(name, value string, err error) error {
	return ErrInvalidSetting.Wrap(fmt.Errorf("%s=%q: %w", name, value, err)).
		With(slog.String("setting", name), slog.String("value", value))
}

// assign parses value and stores it as the setting name.
func (s *settings) assign(name, value string) error {
	var err error

	switch name {
	case "locale":
		s.locale, err = valuefmt.ParseLocale(value)
	case "time_zone":
		var zone *time.Location
		if zone, err = time.LoadLocation(strings.TrimSpace(value)); err == nil {
			s.zone = zone
		}
	case "number_format":
		s.numberFormat = value
	case "boolean_format":
		s.booleanFormat, err = valuefmt.ParseBooleanFormat(value)
	case "date_format":
		s.dateFormat = value
	case "time_format":
		s.timeFormat = value
	case "datetime_format":
		s.datetimeFormat = value
	case "output_format":
		var f markup.Format
		if f, err = lookupFormat(value, s.outputFormat); err == nil {
			s.outputFormat = f
		}
	case "auto_esc":
		var on bool
		if on, err = strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			s.autoEsc = &on
		}
	case "arithmetic_engine":
		var e arith.Engine
		if e, err = arith.ByName(value); err == nil {
			s.engine = e
		}
	case "truncate_algorithm":
		var a truncate.Algorithm
		if a, err = truncate.ByName(value); err == nil {
			s.truncate = a
		}
	default:
		return ErrInvalidSetting.Wrap(
			fmt.Errorf("unknown setting %q%s", name, suggest(name, settingNames))).
			With(slog.String("setting", name))
	}

	if err != nil {
		return invalidSetting(name, value, err)
	}

	return nil
}

// validate compiles the formats named by the settings in names.
func (s *settings) validate(f *valuefmt.Formats, names ...string) error {
	for _, name := range names {
		var (
			value string
			err   error
		)

		switch name {
		case "number_format":
			value = s.numberFormat
			_, err = f.Number(value)
		case "date_format":
			value = s.dateFormat
			_, err = f.Date(value, model.DateOnly)
		case "time_format":
			value = s.timeFormat
			_, err = f.Date(value, model.TimeOnly)
		case "datetime_format":
			value = s.datetimeFormat
			_, err = f.Date(value, model.DateTime)
		}

		if err != nil {
			return invalidSetting(name, value, err)
		}
	}

	return nil
}

// autoEscaping returns whether f is auto-escaped under these settings.
func (s *settings) autoEscaping(f markup.Format) bool {
	if !f.IsMarkup() {
		return false
	}

	if s.autoEsc != nil {
		return *s.autoEsc
	}

	return f.IsAutoEscapedByDefault()
}

// applySetting changes a setting for the rest of the render.
func (env *Environment) applySetting(name string, v model.Value) error {
	var value string

	switch x := v.(type) {
	case model.Boolean:
		value = strconv.FormatBool(x.Bool())
	case model.Numeric:
		value = x.Number().String()
	case model.Scalar:
		s, err := x.AsString()
		if err != nil {
			return err
		}

		value = s
	default:
		return ErrInvalidSetting.Wrap(
			fmt.Errorf("the value of setting %q must be a string, number or boolean, not %s", name, describe(v)))
	}

	if err := env.set.assign(name, value); err != nil {
		return err
	}

	env.logger.Trace("setting changed",
		slog.String("setting", name),
		slog.String("value", value),
	)

	switch name {
	case "locale", "time_zone":
		env.formats = env.formats.With(
			valuefmt.WithLocale(env.set.locale),
			valuefmt.WithTimeZone(env.set.zone),
		)
	case "output_format":
		env.format = env.set.outputFormat
		env.autoEsc = env.set.autoEscaping(env.format)
	case "auto_esc":
		if *env.set.autoEsc && !env.format.IsMarkup() {
			return ErrInvalidSetting.Wrap(fmt.Errorf(
				"auto-escaping can't be turned on in the non-markup output format %q", env.format.Name()))
		}

		env.autoEsc = *env.set.autoEsc
	}

	return env.set.validate(env.formats, name)
}

// lookupFormat resolves an output format name. "outer{inner}" combines
// two markup formats, and "{inner}" combines inner with outer.
func lookupFormat(name string, outer markup.Format) (markup.Format, error) {
	name = strings.TrimSpace(name)

	open := strings.IndexByte(name, '{')
	if open < 0 || !strings.HasSuffix(name, "}") {
		return markup.Lookup(name)
	}

	var (
		o   = outer
		err error
	)

	if prefix := strings.TrimSpace(name[:open]); prefix != "" {
		if o, err = markup.Lookup(prefix); err != nil {
			return nil, err
		}
	}

	if o == nil {
		return nil, markup.ErrUnknownFormat.Wrap(
			fmt.Errorf("%q needs an enclosing output format", name))
	}

	inner, err := lookupFormat(name[open+1:len(name)-1], nil)
	if err != nil {
		return nil, err
	}

	return markup.Combined("", o, inner)
}

// TemplatePath is a template name followed by setting assignments, as in
// "page.ftlh?settings(locale='de_DE', number_format='0.00')".
type TemplatePath struct {
	Name     string
	Settings []SettingValue
}

// SettingValue is one name=value assignment of a [TemplatePath].
type SettingValue struct {
	Name  string `json:"name"  yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Options returns the settings of p as options.
func (p TemplatePath) Options() []Option {
	opts := make([]Option, len(p.Settings))
	for i, s := range p.Settings {
		opts[i] = WithSetting(s.Name, s.Value)
	}

	return opts
}

// FindSettingsStart returns the index of the "?" that starts a trailing
// "?settings(...)" in path, or -1 when path has none. White-space may
// separate the parts. A built-in name other than settings is an error.
func FindSettingsStart(path string) (int, error) {
	end := len(strings.TrimRightFunc(path, isSpace)) - 1
	if end < 0 || path[end] != ')' {
		return -1, nil
	}

	open := matchingParen(path, end)
	if open < 0 {
		return -1, nil
	}

	i := open - 1
	for i >= 0 && isSpace(rune(path[i])) {
		i--
	}

	nameEnd := i + 1
	for i >= 0 && isIdentifierContinue(rune(path[i])) {
		i--
	}

	name := path[i+1 : nameEnd]
	if name == "" {
		return -1, nil
	}

	for i >= 0 && isSpace(rune(path[i])) {
		i--
	}

	if i < 0 || path[i] != '?' {
		return -1, nil
	}

	if name != "settings" {
		return -1, ErrInvalidArgument.Wrap(fmt.Errorf(
			"expected \"settings\" after \"?\" in template path %q, but found %q", path, name))
	}

	return i, nil
}

// matchingParen scans back from the ")" at end to its "(", skipping
// quoted strings. It returns -1 when the parentheses don't balance.
func matchingParen(s string, end int) int {
	depth := 0

	for i := end; i >= 0; i-- {
		switch c := s[i]; c {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'':
			for i--; i >= 0; i-- {
				if s[i] == c && !escaped(s, i) {
					break
				}
			}

			if i < 0 {
				return -1
			}
		}
	}

	return -1
}

// escaped reports whether s[i] is preceded by an odd number of
// backslashes.
func escaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}

	return n%2 == 1
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

// ParseTemplatePath splits path into the template name and the settings
// assigned by a trailing "?settings(...)". Setting values are constant
// expressions.
func ParseTemplatePath(path string) (TemplatePath, error) {
	start, err := FindSettingsStart(path)
	if err != nil {
		return TemplatePath{}, err
	}

	if start < 0 {
		return TemplatePath{Name: strings.TrimSpace(path)}, nil
	}

	tp := TemplatePath{Name: strings.TrimSpace(path[:start])}

	open := start + strings.IndexByte(path[start:], '(') + 1
	args := path[open:strings.LastIndexByte(path, ')')]

	toks, err := lexExpression(path, args, Position{Offset: open, Line: 1, Column: open + 1})
	if err != nil {
		return TemplatePath{}, err
	}

	p := newParser(path, path, toks, DefaultMaxParseDepth, log.Logger{})

	for p.peek().kind != tokEOF {
		if len(tp.Settings) > 0 {
			if _, err := p.expectOp(","); err != nil {
				return TemplatePath{}, err
			}
		}

		name, err := p.expectIdent("setting name")
		if err != nil {
			return TemplatePath{}, err
		}

		if _, err := p.expectOp("="); err != nil {
			return TemplatePath{}, err
		}

		x, err := p.parseExpr()
		if err != nil {
			return TemplatePath{}, err
		}

		value, err := constantString(x)
		if err != nil {
			return TemplatePath{}, p.wrapf(x.Pos(), err, "the value of setting %q", name.val)
		}

		tp.Settings = append(tp.Settings, SettingValue{Name: name.val, Value: value})
	}

	return tp, nil
}

// constantString returns the text of a literal string, number or boolean.
func constantString(x Expr) (string, error) {
	switch n := x.(type) {
	case *StringLit:
		return n.Value, nil
	case *NumberLit:
		return n.Value.String(), nil
	case *BoolLit:
		return strconv.FormatBool(n.Value), nil
	case *Paren:
		return constantString(n.X)
	case *Unary:
		if lit, ok := n.X.(*NumberLit); ok && n.Op == "-" {
			return "-" + lit.Value.String(), nil
		}
	}

	return "", ErrInvalidArgument.Wrap(fmt.Errorf("%s is not a constant", x))
}
