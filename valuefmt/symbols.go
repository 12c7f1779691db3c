package valuefmt

import (
	"sync"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// symbols are the locale-specific strings used when formatting numbers.
type symbols struct {
	decimal    string
	group      string
	minus      string
	percent    string
	perMill    string
	infinity   string
	nan        string
	exponent   string
	zero       rune
	currency   string
	currencyID string
	// currencyScale is the number of fraction digits of the currency.
	currencyScale int
}

var defaultSymbols = symbols{
	decimal:       ".",
	group:         ",",
	minus:         "-",
	percent:       "%",
	perMill:       "‰",
	infinity:      "∞",
	nan:           "NaN",
	exponent:      "E",
	zero:          '0',
	currency:      "¤",
	currencyID:    "XXX",
	currencyScale: 2,
}

var symbolCache sync.Map // language.Tag -> symbols

// localeSymbols derives the number symbols of tag from the way the x/text
// printer renders a sample number.
func localeSymbols(tag language.Tag) symbols {
	if s, ok := symbolCache.Load(tag); ok {
		return s.(symbols)
	}

	p := message.NewPrinter(tag)
	s := defaultSymbols

	minus, seps := splitSample(p.Sprintf("%v", number.Decimal(-1234567.5)))
	if minus != "" {
		s.minus = minus
	}

	switch len(seps) {
	case 3:
		s.group, s.decimal = seps[0], seps[2]
	case 1:
		s.group, s.decimal = "", seps[0]
	}

	if cur, conf := currency.FromTag(tag); conf != language.No {
		s.currencyID = cur.String()
		s.currency = p.Sprintf("%v", currency.Symbol(cur))
		s.currencyScale, _ = currency.Standard.Rounding(cur)
	}

	symbolCache.Store(tag, s)

	return s
}

// splitSample returns the text before the first digit and the non-digit
// runs between digits.
func splitSample(sample string) (prefix string, seps []string) {
	var (
		run     []rune
		started bool
	)

	for _, r := range sample {
		if unicode.IsDigit(r) {
			if !started {
				prefix, started = string(run), true
			} else if len(run) > 0 {
				seps = append(seps, string(run))
			}

			run = run[:0]

			continue
		}

		run = append(run, r)
	}

	return prefix, seps
}

// withCurrency returns s using the currency identified by the ISO 4217 code.
func (s symbols) withCurrency(code string, tag language.Tag) (symbols, error) {
	cur, err := currency.ParseISO(code)
	if err != nil {
		return s, err
	}

	s.currencyID = cur.String()
	s.currency = message.NewPrinter(tag).Sprintf("%v", currency.Symbol(cur))
	s.currencyScale, _ = currency.Standard.Rounding(cur)

	return s, nil
}
