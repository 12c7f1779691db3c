package markup

import "io"

// Print writes m where the output format is to.
//
// Markup of the same format is written through to. A format that allows
// mixing writes the markup of any format as is. Plain-text sourced markup
// of another format is escaped again with to. Markup-sourced values of
// another format fail with [ErrIncompatibleFormat].
func Print(w io.Writer, m *Model, to Format) error {
	if m.format == to {
		return to.Output(m, w)
	}

	if to.IsOutputFormatMixingAllowed() {
		_, err := io.WriteString(w, m.MarkupString())

		return err
	}

	if plain, ok := m.PlainText(); ok {
		_, err := io.WriteString(w, to.EscapePlainText(plain))

		return err
	}

	return incompatible(m.format, to)
}

// Convert returns m as a value of format to, following the rules of
// [Print]. Formats that allow mixing receive the markup of m as
// to-markup.
func Convert(m *Model, to Format) (*Model, error) {
	switch {
	case m.format == to:
		return m, nil
	case to.IsOutputFormatMixingAllowed():
		return to.FromMarkup(m.MarkupString()), nil
	}

	if plain, ok := m.PlainText(); ok {
		return to.FromPlainTextByEscaping(plain), nil
	}

	return nil, incompatible(m.format, to)
}
