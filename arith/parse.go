package arith

import (
	"log/slog"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxNarrowExponent bounds the exponent of integral literals converted to
// big integers; larger values stay decimals.
const maxNarrowExponent = 4096

var symbolic = map[string]float64{
	"NaN":       math.NaN(),
	"INF":       math.Inf(1),
	"+INF":      math.Inf(1),
	"-INF":      math.Inf(-1),
	"Infinity":  math.Inf(1),
	"+Infinity": math.Inf(1),
	"-Infinity": math.Inf(-1),
}

// Parse converts a numeric literal to the narrowest [Number] able to hold
// it. Accepted forms are an optional sign, digits with optional leading
// zeros, an optional decimal point, and an optional exponent introduced by
// 'e' or 'E', as well as the symbolic forms NaN, INF, +INF, -INF, Infinity,
// +Infinity and -Infinity.
//
// Integral values become int64 when in range and big integers otherwise.
// Other values become decimals. Invalid input fails with [ErrNumberFormat].
func Parse(s string) (Number, error) {
	if f, ok := symbolic[s]; ok {
		return Float(f), nil
	}

	if !isNumeric(s) {
		return Number{}, ErrNumberFormat.With(slog.String("input", s))
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return Number{}, ErrNumberFormat.Wrap(err).With(slog.String("input", s))
	}

	if d.Exponent() > maxNarrowExponent {
		return Decimal(d), nil
	}

	return narrow(d), nil
}

// isNumeric reports whether s matches
//
//	[+-]? digit* ('.' digit*)? ([eE] [+-]? digit+)?
//
// with at least one digit before the exponent.
func isNumeric(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0

	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}

	if i < len(s) && s[i] == '.' {
		for i++; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}

	if digits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}

		exp := 0
		for ; i < len(s) && isDigit(s[i]); i++ {
			exp++
		}

		if exp == 0 {
			return false
		}
	}

	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
