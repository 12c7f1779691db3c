package arith

import (
	"cmp"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// BigDecimalEngine converts every finite operand to a decimal before
// operating. Results of Add, Sub, Mul and Div are decimals; the scale of a
// product is clamped to the maximal scale and the scale of a quotient is the
// larger of the minimal scale and the operand scales.
type BigDecimalEngine struct {
	cfg config
}

// DefaultEngine is a [BigDecimalEngine] with the default configuration.
var DefaultEngine = func() *BigDecimalEngine {
	e, err := NewBigDecimalEngine()
	if err != nil {
		panic(err)
	}

	return e
}()

// NewBigDecimalEngine returns a configured engine. The configuration is
// validated eagerly and invalid values fail with [ErrInvalidConfig].
func NewBigDecimalEngine(opts ...Option) (*BigDecimalEngine, error) {
	cfg, err := makeConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &BigDecimalEngine{cfg: cfg}, nil
}

func (e *BigDecimalEngine) Name() string { return NameBigDecimal }

// MinScale returns the minimal scale of division results.
func (e *BigDecimalEngine) MinScale() int32 { return e.cfg.minScale }

// MaxScale returns the maximal scale of multiplication results.
func (e *BigDecimalEngine) MaxScale() int32 { return e.cfg.maxScale }

// Rounding returns the rounding policy.
func (e *BigDecimalEngine) Rounding() Rounding { return e.cfg.rounding }

func (e *BigDecimalEngine) Compare(a, b Number) (int, error) {
	return compare(a, b)
}

func (e *BigDecimalEngine) Add(a, b Number) (Number, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return Float(a.Float64() + b.Float64()), nil
	}

	return Decimal(a.Dec().Add(b.Dec())), nil
}

func (e *BigDecimalEngine) Sub(a, b Number) (Number, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return Float(a.Float64() - b.Float64()), nil
	}

	return Decimal(a.Dec().Sub(b.Dec())), nil
}

func (e *BigDecimalEngine) Mul(a, b Number) (Number, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return Float(a.Float64() * b.Float64()), nil
	}

	return e.mulDec(a.Dec(), b.Dec())
}

func (e *BigDecimalEngine) mulDec(a, b decimal.Decimal) (Number, error) {
	r := a.Mul(b)
	if scaleOf(r) <= e.cfg.maxScale {
		return Decimal(r), nil
	}

	r, err := roundScale(r, e.cfg.maxScale, e.cfg.rounding)
	if err != nil {
		return Number{}, err
	}

	return Decimal(r), nil
}

func (e *BigDecimalEngine) Div(a, b Number) (Number, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return Float(a.Float64() / b.Float64()), nil
	}

	return e.divDec(a.Dec(), b.Dec())
}

func (e *BigDecimalEngine) divDec(a, b decimal.Decimal) (Number, error) {
	if b.IsZero() {
		return Number{}, ErrDivisionByZero
	}

	scale := max(e.cfg.minScale, scaleOf(a), scaleOf(b))

	q, err := divScale(a, b, scale, e.cfg.rounding)
	if err != nil {
		return Number{}, err
	}

	return Decimal(q), nil
}

// Mod truncates both operands toward zero to 64-bit integers before taking
// the remainder. Operands outside the int64 range keep their low-order bits.
func (e *BigDecimalEngine) Mod(a, b Number) (Number, error) {
	return modInt64(a, b)
}

func (e *BigDecimalEngine) ToNumber(s string) (Number, error) {
	return Parse(s)
}

func modInt64(a, b Number) (Number, error) {
	r := b.Int64()
	if r == 0 {
		return Number{}, ErrDivisionByZero
	}

	return Int(a.Int64() % r), nil
}

// compare orders a and b. NaN is rejected before any conversion, the signs
// decide whenever they differ, same-kind operands compare natively, and
// infinities compare symbolically. Everything else compares as decimals.
func compare(a, b Number) (int, error) {
	if a.IsNaN() || b.IsNaN() {
		return 0, ErrNaN
	}

	sa, sb := a.Sign(), b.Sign()
	if sa != sb {
		return cmp.Compare(sa, sb), nil
	}

	if sa == 0 {
		return 0, nil
	}

	if a.kind == b.kind {
		switch a.kind {
		case KindInt:
			return cmp.Compare(a.i, b.i), nil
		case KindBig:
			return a.b.Cmp(b.b), nil
		case KindFloat:
			return cmp.Compare(a.f, b.f), nil
		default:
			return a.d.Cmp(b.d), nil
		}
	}

	switch {
	case a.IsInf(0) && b.IsInf(0):
		return 0, nil // same sign
	case a.IsInf(0):
		return sa, nil
	case b.IsInf(0):
		return -sb, nil
	}

	return a.Dec().Cmp(b.Dec()), nil
}

// Equal reports whether a and b are numerically equal. NaN is equal to
// nothing, itself included.
func Equal(e Engine, a, b Number) bool {
	if a.IsNaN() || b.IsNaN() {
		return false
	}

	c, err := e.Compare(a, b)

	return err == nil && c == 0
}

// addInt64 returns a+b, widening to a big integer on overflow.
func addInt64(a, b int64) Number {
	s := a + b
	if (s > a) == (b > 0) {
		return Int(s)
	}

	return Big(new(big.Int).Add(big.NewInt(a), big.NewInt(b)))
}

// subInt64 returns a-b, widening to a big integer on overflow.
func subInt64(a, b int64) Number {
	s := a - b
	if (s < a) == (b > 0) {
		return Int(s)
	}

	return Big(new(big.Int).Sub(big.NewInt(a), big.NewInt(b)))
}

// mulInt64 returns a*b, widening to a big integer on overflow.
func mulInt64(a, b int64) Number {
	if a == 0 || b == 0 {
		return Int(0)
	}

	p := a * b
	if p/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64) {
		return Int(p)
	}

	return Big(new(big.Int).Mul(big.NewInt(a), big.NewInt(b)))
}
