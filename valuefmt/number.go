package valuefmt

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"github.com/ardnew/ftl/arith"
)

// NumberFormat renders numbers as text.
type NumberFormat interface {
	Format(n arith.Number) (string, error)
}

// NumberFunc adapts a function to [NumberFormat].
type NumberFunc func(n arith.Number) (string, error)

func (f NumberFunc) Format(n arith.Number) (string, error) { return f(n) }

// NumberFormatFactory creates the custom number formats invoked as
// "@name params".
type NumberFormatFactory interface {
	NumberFormat(params string, locale language.Tag) (NumberFormat, error)
}

// NumberFormatFactoryFunc adapts a function to [NumberFormatFactory].
type NumberFormatFactoryFunc func(params string, locale language.Tag) (NumberFormat, error)

func (f NumberFormatFactoryFunc) NumberFormat(params string, locale language.Tag) (NumberFormat, error) {
	return f(params, locale)
}

// Predefined number format names.
const (
	NumberComputer = "computer"
	NumberDefault  = "number"
	NumberCurrency = "currency"
	NumberPercent  = "percent"
)

// computerFractionDigits is the most fraction digits ?c prints.
const computerFractionDigits = 16

// Computer formats numbers in the computer-language form used by ?c. It
// never uses exponent notation; finite floats are rounded half-even to
// [computerFractionDigits] fraction digits.
var Computer NumberFormat = NumberFunc(func(n arith.Number) (string, error) {
	if n.Kind() != arith.KindFloat || !n.IsFinite() {
		return n.String(), nil
	}

	s := n.Dec().RoundBank(computerFractionDigits).String()
	if s == "-0" {
		s = "0"
	}

	return s, nil
})

const (
	numberPattern   = "#,##0.###"
	percentPattern  = "#,##0%"
	currencyPattern = "¤#,##0.00"
)

// newNumberFormat compiles format for locale. It does not consult the
// custom format registry.
func newNumberFormat(format string, locale language.Tag) (NumberFormat, error) {
	switch format {
	case NumberComputer, "c":
		return Computer, nil
	case NumberDefault, "":
		return parsePattern(numberPattern, locale)
	case NumberPercent:
		return parsePattern(percentPattern, locale)
	case NumberCurrency:
		p, err := parsePattern(currencyPattern, locale)
		if err != nil {
			return nil, err
		}

		p.minFrac, p.maxFrac = p.sym.currencyScale, p.sym.currencyScale

		return p, nil
	}

	return parsePattern(format, locale)
}

// splitCustom parses "@name params". ok is false when format is not a
// custom format reference.
func splitCustom(format string) (name, params string, ok bool) {
	if !strings.HasPrefix(format, "@") || strings.HasPrefix(format, "@@") {
		return "", "", false
	}

	rest := format[1:]

	end := strings.IndexFunc(rest, func(r rune) bool { return !isIdentPart(r) })
	if end < 0 {
		return rest, "", true
	}

	return rest[:end], strings.TrimSpace(rest[end:]), true
}

func unknownFormat(kind, name string) error {
	return ErrUnknownFormat.
		Wrap(fmt.Errorf("no custom %s format was defined with name %q", kind, name)).
		With(slog.String("name", name))
}
