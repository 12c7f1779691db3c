package arith

import (
	"log/slog"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Rounding selects how a decimal result is brought to a target scale.
type Rounding int

const (
	RoundUp          Rounding = iota // UP
	RoundDown                        // DOWN
	RoundCeiling                     // CEILING
	RoundFloor                       // FLOOR
	RoundHalfUp                      // HALF_UP
	RoundHalfDown                    // HALF_DOWN
	RoundHalfEven                    // HALF_EVEN
	RoundUnnecessary                 // UNNECESSARY
)

var roundingName = [...]string{
	RoundUp:          "UP",
	RoundDown:        "DOWN",
	RoundCeiling:     "CEILING",
	RoundFloor:       "FLOOR",
	RoundHalfUp:      "HALF_UP",
	RoundHalfDown:    "HALF_DOWN",
	RoundHalfEven:    "HALF_EVEN",
	RoundUnnecessary: "UNNECESSARY",
}

func (r Rounding) String() string {
	if r.valid() {
		return roundingName[r]
	}

	return "INVALID"
}

func (r Rounding) valid() bool { return r >= RoundUp && r <= RoundUnnecessary }

// ParseRounding parses a rounding policy name such as "HALF_UP" or
// "half-even". Matching ignores case, and '-' is accepted for '_'.
func ParseRounding(s string) (Rounding, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))

	for r, name := range roundingName {
		if name == norm {
			return Rounding(r), nil
		}
	}

	return 0, ErrInvalidConfig.With(slog.String("rounding", s))
}

var two = decimal.NewFromInt(2)

// Round brings d to exactly scale fractional digits using mode. It fails
// with [ErrRoundingNecessary] when mode is [RoundUnnecessary] and d has
// more digits.
func Round(d decimal.Decimal, scale int32, mode Rounding) (decimal.Decimal, error) {
	return roundScale(d, scale, mode)
}

// roundScale brings d to exactly scale fractional digits. Values that
// already fit are only rescaled.
func roundScale(d decimal.Decimal, scale int32, mode Rounding) (decimal.Decimal, error) {
	if scaleOf(d) <= scale {
		return d.Round(scale), nil
	}

	t := d.Truncate(scale)
	rem := d.Sub(t)

	unit := decimal.New(1, -scale)
	half := rem.Abs().Mul(two).Cmp(unit)

	return settle(t, rem.Sign() != 0, d.Sign() > 0, half, scale, mode)
}

// divScale divides a by b and rounds the quotient to scale digits.
func divScale(a, b decimal.Decimal, scale int32, mode Rounding) (decimal.Decimal, error) {
	q, r := a.QuoRem(b, scale)

	unit := decimal.New(1, -scale)
	half := r.Abs().Mul(two).Cmp(b.Abs().Mul(unit))

	return settle(q, r.Sign() != 0, a.Sign()*b.Sign() > 0, half, scale, mode)
}

// settle decides between the truncated value t and the next value away from
// zero. inexact reports a nonzero discarded part, positive the sign of the
// exact result, and half compares the discarded part with one half unit.
func settle(
	t decimal.Decimal,
	inexact, positive bool,
	half int,
	scale int32,
	mode Rounding,
) (decimal.Decimal, error) {
	t = t.Round(scale)

	if !inexact {
		return t, nil
	}

	var away bool

	switch mode {
	case RoundUp:
		away = true
	case RoundDown:
		away = false
	case RoundCeiling:
		away = positive
	case RoundFloor:
		away = !positive
	case RoundHalfUp:
		away = half >= 0
	case RoundHalfDown:
		away = half > 0
	case RoundHalfEven:
		switch {
		case half > 0:
			away = true
		case half < 0:
			away = false
		default:
			away = isOdd(t, scale)
		}
	case RoundUnnecessary:
		return t, ErrRoundingNecessary
	default:
		return t, ErrInvalidConfig.With(slog.Int("rounding", int(mode)))
	}

	if !away {
		return t, nil
	}

	unit := decimal.New(1, -scale)
	if positive {
		return t.Add(unit), nil
	}

	return t.Sub(unit), nil
}

// isOdd reports whether the last retained digit of t is odd.
func isOdd(t decimal.Decimal, scale int32) bool {
	digits := t.Shift(scale).BigInt()

	return new(big.Int).Abs(digits).Bit(0) == 1
}
