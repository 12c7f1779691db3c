package markup

import "sync"

// Model is a value of a markup output format. It holds either plain text
// that still needs escaping or markup that is safe to emit as is. The
// producer populates exactly one of the two; the markup of a plain-text
// sourced model is computed on first use and memoized.
//
// A Model is safe for concurrent reads.
type Model struct {
	format    Format
	plain     string
	markup    string
	fromPlain bool
	once      sync.Once
}

func newPlain(f Format, s string) *Model {
	return &Model{format: f, plain: s, fromPlain: true}
}

func newMarkup(f Format, s string) *Model {
	return &Model{format: f, markup: s}
}

// Format returns the output format m belongs to.
func (m *Model) Format() Format { return m.format }

// MarkupString returns the markup of m, escaping its plain text if needed.
func (m *Model) MarkupString() string {
	if !m.fromPlain {
		return m.markup
	}

	m.once.Do(func() { m.markup = m.format.EscapePlainText(m.plain) })

	return m.markup
}

// PlainText returns the plain text m was created from. The second result is
// false for markup-sourced models.
func (m *Model) PlainText() (string, bool) {
	return m.plain, m.fromPlain
}

// IsEmpty reports whether m has no content.
func (m *Model) IsEmpty() bool {
	if m.fromPlain {
		return m.plain == ""
	}

	return m.markup == ""
}
