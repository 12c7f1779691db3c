package arith

import (
	"math"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// Kind identifies the concrete representation held by a [Number].
type Kind uint8

const (
	KindInt     Kind = iota // int
	KindBig                 // bigint
	KindFloat               // float
	KindDecimal             // decimal
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBig:
		return "bigint"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Number is a numeric value in one of four representations. The zero value
// is the integer 0.
//
// Number values are immutable; the *big.Int held by a KindBig number is
// never modified after construction.
type Number struct {
	b    *big.Int
	d    decimal.Decimal
	f    float64
	i    int64
	kind Kind
}

// Int returns an integer Number.
func Int(i int64) Number { return Number{kind: KindInt, i: i} }

// Big returns an arbitrary precision integer Number. Values that fit in an
// int64 are narrowed to [KindInt].
func Big(b *big.Int) Number {
	if b == nil {
		return Int(0)
	}

	if b.IsInt64() {
		return Int(b.Int64())
	}

	return Number{kind: KindBig, b: new(big.Int).Set(b)}
}

// Float returns a floating point Number. It is the only representation able
// to hold infinities and NaN.
func Float(f float64) Number { return Number{kind: KindFloat, f: f} }

// Decimal returns a decimal Number.
func Decimal(d decimal.Decimal) Number { return Number{kind: KindDecimal, d: d} }

// Inf returns positive infinity if sign >= 0, negative infinity otherwise.
func Inf(sign int) Number { return Float(math.Inf(sign)) }

// NaN returns a not-a-number value.
func NaN() Number { return Float(math.NaN()) }

// Kind returns the representation of n.
func (n Number) Kind() Kind { return n.kind }

// IsNaN reports whether n is not-a-number.
func (n Number) IsNaN() bool { return n.kind == KindFloat && math.IsNaN(n.f) }

// IsInf reports whether n is an infinity. See [math.IsInf] for sign.
func (n Number) IsInf(sign int) bool {
	return n.kind == KindFloat && math.IsInf(n.f, sign)
}

// IsFinite reports whether n is neither infinite nor NaN.
func (n Number) IsFinite() bool {
	return n.kind != KindFloat || (!math.IsInf(n.f, 0) && !math.IsNaN(n.f))
}

// Sign returns -1, 0 or +1. NaN reports 0.
func (n Number) Sign() int {
	switch n.kind {
	case KindInt:
		switch {
		case n.i < 0:
			return -1
		case n.i > 0:
			return 1
		}

		return 0
	case KindBig:
		return n.b.Sign()
	case KindFloat:
		switch {
		case n.f < 0:
			return -1
		case n.f > 0:
			return 1
		}

		return 0
	default:
		return n.d.Sign()
	}
}

// IsIntegral reports whether n has no fractional part.
func (n Number) IsIntegral() bool {
	switch n.kind {
	case KindInt, KindBig:
		return true
	case KindFloat:
		return n.IsFinite() && n.f == math.Trunc(n.f)
	default:
		return n.d.IsInteger()
	}
}

// Scale returns the number of digits after the decimal point. Integers,
// non-finite floats and decimals without fractional digits report 0.
func (n Number) Scale() int32 {
	switch n.kind {
	case KindDecimal:
		return scaleOf(n.d)
	case KindFloat:
		if !n.IsFinite() {
			return 0
		}

		return scaleOf(decimal.NewFromFloat(n.f))
	default:
		return 0
	}
}

func scaleOf(d decimal.Decimal) int32 {
	if e := d.Exponent(); e < 0 {
		return -e
	}

	return 0
}

// Dec returns n as a decimal. Infinities and NaN convert to zero; callers
// must check [Number.IsFinite] first.
func (n Number) Dec() decimal.Decimal {
	switch n.kind {
	case KindInt:
		return decimal.NewFromInt(n.i)
	case KindBig:
		return decimal.NewFromBigInt(n.b, 0)
	case KindFloat:
		if !n.IsFinite() {
			return decimal.Zero
		}

		return decimal.NewFromFloat(n.f)
	default:
		return n.d
	}
}

// BigInt returns the integer part of n, truncated toward zero.
func (n Number) BigInt() *big.Int {
	switch n.kind {
	case KindInt:
		return big.NewInt(n.i)
	case KindBig:
		return new(big.Int).Set(n.b)
	case KindFloat:
		if !n.IsFinite() {
			return new(big.Int)
		}

		b, _ := big.NewFloat(math.Trunc(n.f)).Int(nil)

		return b
	default:
		return n.d.Truncate(0).BigInt()
	}
}

var uint64Mask = new(big.Int).SetUint64(math.MaxUint64)

// Int64 returns n truncated toward zero to 64 bits. Integers outside the
// int64 range keep their low-order 64 bits (two's complement), floats
// saturate, and NaN yields 0.
func (n Number) Int64() int64 {
	switch n.kind {
	case KindInt:
		return n.i
	case KindFloat:
		switch {
		case math.IsNaN(n.f):
			return 0
		case n.f >= math.MaxInt64:
			return math.MaxInt64
		case n.f <= math.MinInt64:
			return math.MinInt64
		}

		return int64(n.f)
	default:
		b := n.BigInt()
		if b.IsInt64() {
			return b.Int64()
		}

		low := new(big.Int).And(new(big.Int).Abs(b), uint64Mask).Uint64()
		if b.Sign() < 0 {
			return -int64(low)
		}

		return int64(low)
	}
}

// Float64 returns the nearest float64 to n.
func (n Number) Float64() float64 {
	switch n.kind {
	case KindInt:
		return float64(n.i)
	case KindBig:
		f, _ := new(big.Float).SetInt(n.b).Float64()

		return f
	case KindFloat:
		return n.f
	default:
		f, _ := n.d.Float64()

		return f
	}
}

// String returns the computer-language form of n: no grouping, '.' as the
// decimal separator, trailing fractional zeros removed, and "INF", "-INF"
// or "NaN" for the non-finite values.
func (n Number) String() string {
	switch n.kind {
	case KindInt:
		return strconv.FormatInt(n.i, 10)
	case KindBig:
		return n.b.String()
	case KindFloat:
		switch {
		case math.IsNaN(n.f):
			return "NaN"
		case math.IsInf(n.f, 1):
			return "INF"
		case math.IsInf(n.f, -1):
			return "-INF"
		case n.f == math.Trunc(n.f) && math.Abs(n.f) < 1e21:
			return strconv.FormatFloat(n.f, 'f', -1, 64)
		}

		return strconv.FormatFloat(n.f, 'g', -1, 64)
	default:
		return n.d.String()
	}
}

// narrow returns the smallest integer representation of an integral
// decimal, or the decimal itself.
func narrow(d decimal.Decimal) Number {
	if !d.IsInteger() {
		return Decimal(d)
	}

	return Big(d.BigInt())
}
