package markup

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/ftl/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrIncompatibleFormat = pkg.NewError("incompatible output format")
	ErrUnknownFormat      = pkg.NewError("unknown output format")
	ErrNotMarkup          = pkg.NewError("output format is not a markup format")
)

// Format is a named output format.
//
// Markup formats escape plain text and produce [Model] values. Non-markup
// formats ([PlainText], [Undefined]) implement the same interface with
// identity escaping, and report false from IsMarkup.
type Format interface {
	Name() string
	MIMEType() string
	IsMarkup() bool
	// IsOutputFormatMixingAllowed reports whether markup of other formats
	// may be printed as is. Only [Undefined] allows it.
	IsOutputFormatMixingAllowed() bool
	IsAutoEscapedByDefault() bool
	// IsLegacyBuiltInBypassed reports whether the legacy escaping built-in
	// of the given name leaves its operand unchanged in this format.
	IsLegacyBuiltInBypassed(name string) bool

	EscapePlainText(s string) string
	// Unescape reverses EscapePlainText.
	Unescape(s string) string

	// FromMarkup trusts s as already safe markup.
	FromMarkup(s string) *Model
	// FromPlainTextByEscaping defers escaping of s until first use.
	FromPlainTextByEscaping(s string) *Model
	Output(m *Model, w io.Writer) error
	Concat(a, b *Model) (*Model, error)
	MarkupString(m *Model) (string, error)
	SourcePlainText(m *Model) (string, bool)
	IsEmpty(m *Model) bool
}

type format struct {
	name     string
	mime     string
	markup   bool
	mixing   bool
	autoEsc  bool
	escape   func(string) string
	unescape func(string) string
	bypassed []string
}

func (f *format) Name() string                      { return f.name }
func (f *format) MIMEType() string                  { return f.mime }
func (f *format) IsMarkup() bool                    { return f.markup }
func (f *format) IsOutputFormatMixingAllowed() bool { return f.mixing }
func (f *format) IsAutoEscapedByDefault() bool      { return f.autoEsc }

func (f *format) IsLegacyBuiltInBypassed(name string) bool {
	return slices.Contains(f.bypassed, name)
}

func (f *format) EscapePlainText(s string) string {
	if f.escape == nil {
		return s
	}

	return f.escape(s)
}

func (f *format) Unescape(s string) string {
	if f.unescape == nil {
		return s
	}

	return f.unescape(s)
}

func (f *format) FromMarkup(s string) *Model { return newMarkup(f, s) }

func (f *format) FromPlainTextByEscaping(s string) *Model { return newPlain(f, s) }

func (f *format) check(m *Model) error {
	if m.format != Format(f) {
		return incompatible(m.format, f)
	}

	return nil
}

func incompatible(from, to Format) error {
	return ErrIncompatibleFormat.Wrap(
		fmt.Errorf("%s markup cannot be used where %s is expected", from.Name(), to.Name()),
	).With(
		slog.String("from", from.Name()),
		slog.String("to", to.Name()),
	)
}

// Output writes the markup of m. Plain text is escaped exactly once.
func (f *format) Output(m *Model, w io.Writer) error {
	s, err := f.MarkupString(m)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, s)

	return err
}

// Concat joins two models of this format. Two plain-text sourced models
// join as plain text; otherwise the plain side is escaped and the result is
// markup.
func (f *format) Concat(a, b *Model) (*Model, error) {
	if err := f.check(a); err != nil {
		return nil, err
	}

	if err := f.check(b); err != nil {
		return nil, err
	}

	if a.fromPlain && b.fromPlain {
		return newPlain(f, a.plain+b.plain), nil
	}

	return newMarkup(f, a.MarkupString()+b.MarkupString()), nil
}

func (f *format) MarkupString(m *Model) (string, error) {
	if err := f.check(m); err != nil {
		return "", err
	}

	return m.MarkupString(), nil
}

func (f *format) SourcePlainText(m *Model) (string, bool) {
	if f.check(m) != nil {
		return "", false
	}

	return m.PlainText()
}

func (f *format) IsEmpty(m *Model) bool { return m.IsEmpty() }

func (f *format) String() string { return f.name }

var (
	xhtmlEscaper = strings.NewReplacer(
		"<", "&lt;", ">", "&gt;", "&", "&amp;", `"`, "&quot;", "'", "&#39;",
	)
	xmlEscaper = strings.NewReplacer(
		"<", "&lt;", ">", "&gt;", "&", "&amp;", `"`, "&quot;", "'", "&apos;",
	)
	xmlUnescaper = strings.NewReplacer(
		"&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`,
		"&#39;", "'", "&apos;", "'",
	)
	rtfEscaper   = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`)
	rtfUnescaper = strings.NewReplacer(`\\`, `\`, `\{`, "{", `\}`, "}")
)

// Predefined output formats.
var (
	HTML Format = &format{
		name:     "HTML",
		mime:     "text/html",
		markup:   true,
		autoEsc:  true,
		escape:   xhtmlEscaper.Replace,
		unescape: xmlUnescaper.Replace,
		bypassed: []string{"html", "xhtml", "xml"},
	}
	XHTML Format = &format{
		name:     "XHTML",
		mime:     "application/xhtml+xml",
		markup:   true,
		autoEsc:  true,
		escape:   xhtmlEscaper.Replace,
		unescape: xmlUnescaper.Replace,
		bypassed: []string{"html", "xhtml", "xml"},
	}
	XML Format = &format{
		name:     "XML",
		mime:     "application/xml",
		markup:   true,
		autoEsc:  true,
		escape:   xmlEscaper.Replace,
		unescape: xmlUnescaper.Replace,
		bypassed: []string{"xml"},
	}
	RTF Format = &format{
		name:     "RTF",
		mime:     "application/rtf",
		markup:   true,
		autoEsc:  true,
		escape:   rtfEscaper.Replace,
		unescape: rtfUnescaper.Replace,
		bypassed: []string{"rtf"},
	}
	PlainText Format = &format{
		name: "plainText",
		mime: "text/plain",
	}
	Undefined Format = &format{
		name:   "undefined",
		mixing: true,
	}
)

// Combined returns a markup format that escapes with inner first and then
// with outer. The result takes its MIME type, legacy built-in bypass list
// and auto-escaping default from outer.
func Combined(name string, outer, inner Format) (Format, error) {
	if !outer.IsMarkup() || !inner.IsMarkup() {
		return nil, ErrNotMarkup.With(
			slog.String("outer", outer.Name()),
			slog.String("inner", inner.Name()),
		)
	}

	if name == "" {
		name = outer.Name() + "{" + inner.Name() + "}"
	}

	f := &format{
		name:    name,
		mime:    outer.MIMEType(),
		markup:  true,
		autoEsc: outer.IsAutoEscapedByDefault(),
		escape: func(s string) string {
			return outer.EscapePlainText(inner.EscapePlainText(s))
		},
		unescape: func(s string) string {
			return inner.Unescape(outer.Unescape(s))
		},
	}

	for _, b := range []string{"html", "xhtml", "xml", "rtf"} {
		if outer.IsLegacyBuiltInBypassed(b) {
			f.bypassed = append(f.bypassed, b)
		}
	}

	return f, nil
}
