package truncate

import (
	"strings"

	"github.com/ardnew/ftl/markup"
)

// Terminator is the text appended to a truncated string. The zero value is
// absent and selects the algorithm's default terminator.
type Terminator struct {
	text      string
	markup    *markup.Model
	length    int
	hasLength bool
	set       bool
}

// Text returns a plain text terminator.
func Text(s string) Terminator { return Terminator{text: s, set: true} }

// Markup returns a markup terminator. Truncating with it yields markup of
// the terminator's output format.
func Markup(m *markup.Model) Terminator { return Terminator{markup: m, set: m != nil} }

// WithLength returns t with an explicit length used in place of the
// measured one. Negative lengths are rejected when truncating.
func (t Terminator) WithLength(n int) Terminator {
	t.length, t.hasLength = n, true

	return t
}

// IsZero reports whether t is absent.
func (t Terminator) IsZero() bool { return !t.set }

// IsMarkup reports whether t is a markup terminator.
func (t Terminator) IsMarkup() bool { return t.markup != nil }

func (t Terminator) result() Result {
	if t.markup != nil {
		return Result{Markup: t.markup}
	}

	return Result{Text: t.text}
}

// Result is the outcome of a truncation that may produce markup. Exactly
// one of the fields is meaningful: Markup when non-nil, Text otherwise.
type Result struct {
	Text   string
	Markup *markup.Model
}

// IsMarkup reports whether r holds markup.
func (r Result) IsMarkup() bool { return r.Markup != nil }

// String returns the text of r, or the markup string of its markup.
func (r Result) String() string {
	if r.Markup != nil {
		return r.Markup.MarkupString()
	}

	return r.Text
}

// fallbackMarkupLength is the assumed visible length of markup terminators
// whose format is not tag based.
const fallbackMarkupLength = 3

func isHTMLOrXML(f markup.Format) bool {
	return f == markup.HTML || f == markup.XHTML || f == markup.XML
}

func textLength(s string) int { return len([]rune(s)) }

func textRemovesDots(s string) bool {
	return strings.HasPrefix(s, ".") || strings.HasPrefix(s, "…")
}

func markupLength(m *markup.Model) int {
	if isHTMLOrXML(m.Format()) {
		return lengthWithoutTags(m.MarkupString())
	}

	return fallbackMarkupLength
}

func markupRemovesDots(m *markup.Model) bool {
	if isHTMLOrXML(m.Format()) {
		return startsWithDot(m.MarkupString())
	}

	return true
}

func (t Terminator) measure() int {
	if t.markup != nil {
		return markupLength(t.markup)
	}

	return textLength(t.text)
}

func (t Terminator) removesDots() bool {
	if t.markup != nil {
		return markupRemovesDots(t.markup)
	}

	return textRemovesDots(t.text)
}
