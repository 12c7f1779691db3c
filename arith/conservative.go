package arith

import (
	"cmp"
	"math"
	"math/big"
)

// ConservativeEngine keeps results in the narrowest representation able to
// hold them. Integer operations stay integral and widen to big integers on
// overflow, integer division yields an integer when exact and a float
// otherwise, floats stay floats, and decimals follow the [BigDecimalEngine]
// rules.
type ConservativeEngine struct {
	dec *BigDecimalEngine
}

// NewConservativeEngine returns a configured engine. The options configure
// the decimal fallback.
func NewConservativeEngine(opts ...Option) (*ConservativeEngine, error) {
	dec, err := NewBigDecimalEngine(opts...)
	if err != nil {
		return nil, err
	}

	return &ConservativeEngine{dec: dec}, nil
}

func (e *ConservativeEngine) Name() string { return NameConservative }

// common returns the representation both operands are widened to. A big
// integer combined with a float widens to a decimal so no fractional part
// is lost.
func common(a, b Number) Kind {
	hi, lo := max(a.kind, b.kind), min(a.kind, b.kind)
	if hi == KindFloat && lo == KindBig {
		if a.IsFinite() && b.IsFinite() {
			return KindDecimal
		}
	}

	if hi == KindDecimal && (!a.IsFinite() || !b.IsFinite()) {
		return KindFloat
	}

	return hi
}

func (e *ConservativeEngine) Compare(a, b Number) (int, error) {
	if a.IsNaN() || b.IsNaN() {
		return 0, ErrNaN
	}

	switch common(a, b) {
	case KindInt:
		return cmp.Compare(a.i, b.i), nil
	case KindBig:
		return a.BigInt().Cmp(b.BigInt()), nil
	case KindFloat:
		return cmp.Compare(a.Float64(), b.Float64()), nil
	default:
		return compare(a, b)
	}
}

func (e *ConservativeEngine) Add(a, b Number) (Number, error) {
	switch common(a, b) {
	case KindInt:
		return addInt64(a.i, b.i), nil
	case KindBig:
		return Big(new(big.Int).Add(a.BigInt(), b.BigInt())), nil
	case KindFloat:
		return Float(a.Float64() + b.Float64()), nil
	default:
		return e.dec.Add(a, b)
	}
}

func (e *ConservativeEngine) Sub(a, b Number) (Number, error) {
	switch common(a, b) {
	case KindInt:
		return subInt64(a.i, b.i), nil
	case KindBig:
		return Big(new(big.Int).Sub(a.BigInt(), b.BigInt())), nil
	case KindFloat:
		return Float(a.Float64() - b.Float64()), nil
	default:
		return e.dec.Sub(a, b)
	}
}

func (e *ConservativeEngine) Mul(a, b Number) (Number, error) {
	switch common(a, b) {
	case KindInt:
		return mulInt64(a.i, b.i), nil
	case KindBig:
		return Big(new(big.Int).Mul(a.BigInt(), b.BigInt())), nil
	case KindFloat:
		return Float(a.Float64() * b.Float64()), nil
	default:
		return e.dec.Mul(a, b)
	}
}

func (e *ConservativeEngine) Div(a, b Number) (Number, error) {
	switch common(a, b) {
	case KindInt:
		if b.i == 0 {
			return Number{}, ErrDivisionByZero
		}

		if a.i%b.i != 0 {
			return Float(float64(a.i) / float64(b.i)), nil
		}

		if a.i == math.MinInt64 && b.i == -1 {
			return Big(new(big.Int).Neg(big.NewInt(a.i))), nil
		}

		return Int(a.i / b.i), nil
	case KindBig:
		x, y := a.BigInt(), b.BigInt()
		if y.Sign() == 0 {
			return Number{}, ErrDivisionByZero
		}

		q, r := new(big.Int).QuoRem(x, y, new(big.Int))
		if r.Sign() == 0 {
			return Big(q), nil
		}

		return e.dec.divDec(a.Dec(), b.Dec())
	case KindFloat:
		return Float(a.Float64() / b.Float64()), nil
	default:
		return e.dec.Div(a, b)
	}
}

func (e *ConservativeEngine) Mod(a, b Number) (Number, error) {
	switch common(a, b) {
	case KindInt:
		if b.i == 0 {
			return Number{}, ErrDivisionByZero
		}

		return Int(a.i % b.i), nil
	case KindBig:
		y := b.BigInt()
		if y.Sign() == 0 {
			return Number{}, ErrDivisionByZero
		}

		return Big(new(big.Int).Rem(a.BigInt(), y)), nil
	case KindFloat:
		return Float(math.Mod(a.Float64(), b.Float64())), nil
	default:
		y := b.Dec()
		if y.IsZero() {
			return Number{}, ErrDivisionByZero
		}

		return Decimal(a.Dec().Mod(y)), nil
	}
}

func (e *ConservativeEngine) ToNumber(s string) (Number, error) {
	return Parse(s)
}
