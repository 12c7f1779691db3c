package arith

import (
	"cmp"
	"math"
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) Number { return Decimal(decimal.RequireFromString(s)) }

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		want string
	}{
		{"0", KindInt, "0"},
		{"007", KindInt, "7"},
		{"-12", KindInt, "-12"},
		{"+12", KindInt, "12"},
		{"1.5e3", KindInt, "1500"},
		{"1.5E3", KindInt, "1500"},
		{"2.50", KindDecimal, "2.5"},
		{".5", KindDecimal, "0.5"},
		{"5.", KindInt, "5"},
		{"1e-2", KindDecimal, "0.01"},
		{"1e+2", KindInt, "100"},
		{"123456789012345678901234567890", KindBig, "123456789012345678901234567890"},
		{"NaN", KindFloat, "NaN"},
		{"INF", KindFloat, "INF"},
		{"+INF", KindFloat, "INF"},
		{"-INF", KindFloat, "-INF"},
		{"Infinity", KindFloat, "INF"},
		{"-Infinity", KindFloat, "-INF"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, n.Kind())
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{
		"", "abc", "-", "+", ".", "1e", "1e+", "1.2.3", "1x", " 1", "inf", "0x10", "--1",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrNumberFormat)
		})
	}
}

func TestParse_NegativeInfinity(t *testing.T) {
	n, err := DefaultEngine.ToNumber("-INF")
	require.NoError(t, err)
	assert.True(t, n.IsInf(-1))
	assert.True(t, math.IsInf(n.Float64(), -1))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		ok   bool
	}{
		{"defaults", nil, true},
		{"zero scales", []Option{WithMinScale(0), WithMaxScale(0)}, true},
		{"negative min", []Option{WithMinScale(-1)}, false},
		{"max below min", []Option{WithMinScale(5), WithMaxScale(4)}, false},
		{"unnecessary", []Option{WithRounding(RoundUnnecessary)}, true},
		{"bad rounding", []Option{WithRounding(Rounding(42))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBigDecimalEngine(tt.opts...)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}

			_, err = NewConservativeEngine(tt.opts...)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, int32(12), DefaultEngine.MinScale())
	assert.Equal(t, int32(12), DefaultEngine.MaxScale())
	assert.Equal(t, RoundHalfUp, DefaultEngine.Rounding())
}

func TestParseRounding(t *testing.T) {
	r, err := ParseRounding("half-even")
	require.NoError(t, err)
	assert.Equal(t, RoundHalfEven, r)

	r, err = ParseRounding("CEILING")
	require.NoError(t, err)
	assert.Equal(t, RoundCeiling, r)

	_, err = ParseRounding("sideways")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDivScale(t *testing.T) {
	q, err := DefaultEngine.Div(dec("1.00"), dec("3.0000"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, q.Scale(), int32(12))
	assert.Equal(t, "0.333333333333", q.String())

	q, err = DefaultEngine.Div(dec("2.00"), dec("3.0000"))
	require.NoError(t, err)
	assert.Equal(t, "0.666666666667", q.String())

	eng, err := NewBigDecimalEngine(WithMinScale(2), WithMaxScale(2))
	require.NoError(t, err)

	q, err = eng.Div(dec("1"), dec("0.0001"))
	require.NoError(t, err)
	assert.Equal(t, int32(4), q.Scale())
	assert.Equal(t, "10000", q.String())
}

func TestDivByZero(t *testing.T) {
	_, err := DefaultEngine.Div(Int(1), Int(0))
	require.ErrorIs(t, err, ErrDivisionByZero)

	_, err = DefaultEngine.Mod(Int(1), dec("0.5"))
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMulClampsScale(t *testing.T) {
	eng, err := NewBigDecimalEngine(WithMinScale(0), WithMaxScale(2))
	require.NoError(t, err)

	p, err := eng.Mul(dec("1.25"), dec("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "1.88", p.String())

	p, err = eng.Mul(dec("1.2"), dec("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "1.8", p.String())
}

func TestRoundingModes(t *testing.T) {
	tests := []struct {
		in   string
		mode Rounding
		want string
	}{
		{"2.5", RoundUp, "3"},
		{"-2.5", RoundUp, "-3"},
		{"2.5", RoundDown, "2"},
		{"-2.5", RoundDown, "-2"},
		{"2.1", RoundCeiling, "3"},
		{"-2.1", RoundCeiling, "-2"},
		{"2.9", RoundFloor, "2"},
		{"-2.1", RoundFloor, "-3"},
		{"2.5", RoundHalfUp, "3"},
		{"-2.5", RoundHalfUp, "-3"},
		{"2.5", RoundHalfDown, "2"},
		{"2.51", RoundHalfDown, "3"},
		{"2.5", RoundHalfEven, "2"},
		{"3.5", RoundHalfEven, "4"},
		{"-3.5", RoundHalfEven, "-4"},
		{"2.0", RoundUnnecessary, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.in, func(t *testing.T) {
			r, err := roundScale(decimal.RequireFromString(tt.in), 0, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())
		})
	}

	_, err := roundScale(decimal.RequireFromString("2.5"), 0, RoundUnnecessary)
	assert.ErrorIs(t, err, ErrRoundingNecessary)
}

func TestDivRounding(t *testing.T) {
	eng, err := NewBigDecimalEngine(WithMinScale(0), WithMaxScale(0),
		WithRounding(RoundHalfEven))
	require.NoError(t, err)

	q, err := eng.Div(Int(5), Int(2))
	require.NoError(t, err)
	assert.Equal(t, "2", q.String())

	q, err = eng.Div(Int(-7), Int(2))
	require.NoError(t, err)
	assert.Equal(t, "-4", q.String())

	eng, err = NewBigDecimalEngine(WithMinScale(0), WithMaxScale(0),
		WithRounding(RoundUnnecessary))
	require.NoError(t, err)

	_, err = eng.Div(Int(1), Int(3))
	assert.ErrorIs(t, err, ErrRoundingNecessary)
}

func TestCompare(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 80)

	tests := []struct {
		name string
		a, b Number
		want int
	}{
		{"int", Int(1), Int(2), -1},
		{"int eq", Int(3), Int(3), 0},
		{"zeros", Int(0), Float(0), 0},
		{"signs differ", Int(-1), dec("0.5"), -1},
		{"mixed", Int(2), dec("1.5"), 1},
		{"float vs decimal", Float(0.1), dec("0.1"), 0},
		{"big", Big(huge), Int(math.MaxInt64), 1},
		{"inf vs int", Inf(1), Int(5), 1},
		{"int vs inf", Int(5), Inf(1), -1},
		{"neg inf vs big", Inf(-1), Big(new(big.Int).Neg(huge)), -1},
		{"inf vs inf", Inf(1), Inf(1), 0},
		{"inf vs decimal", Inf(1), dec("1e100"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultEngine.Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareNaN(t *testing.T) {
	for _, other := range []Number{Int(0), Int(1), dec("2.5"), Inf(1), NaN()} {
		_, err := DefaultEngine.Compare(NaN(), other)
		assert.ErrorIs(t, err, ErrNaN)

		_, err = DefaultEngine.Compare(other, NaN())
		assert.ErrorIs(t, err, ErrNaN)

		assert.False(t, Equal(DefaultEngine, NaN(), other))
	}
}

func TestNonFiniteArithmetic(t *testing.T) {
	s, err := DefaultEngine.Add(Inf(1), Int(1))
	require.NoError(t, err)
	assert.True(t, s.IsInf(1))

	s, err = DefaultEngine.Sub(Inf(1), Inf(1))
	require.NoError(t, err)
	assert.True(t, s.IsNaN())

	s, err = DefaultEngine.Div(Int(1), Inf(-1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Float64())
}

func TestMod(t *testing.T) {
	m, err := DefaultEngine.Mod(Int(7), Int(3))
	require.NoError(t, err)
	assert.Equal(t, "1", m.String())

	m, err = DefaultEngine.Mod(dec("7.9"), dec("3.2"))
	require.NoError(t, err)
	assert.Equal(t, "1", m.String())

	m, err = DefaultEngine.Mod(Int(-7), Int(3))
	require.NoError(t, err)
	assert.Equal(t, "-1", m.String())

	// Operands beyond 64 bits keep their low-order bits.
	wide := Big(new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(10)))
	m, err = DefaultEngine.Mod(wide, Int(4))
	require.NoError(t, err)
	assert.Equal(t, "2", m.String())
}

func TestConservative(t *testing.T) {
	eng, err := NewConservativeEngine()
	require.NoError(t, err)

	n, err := eng.Add(Int(math.MaxInt64), Int(1))
	require.NoError(t, err)
	assert.Equal(t, KindBig, n.Kind())
	assert.Equal(t, "9223372036854775808", n.String())

	n, err = eng.Mul(Int(math.MinInt64), Int(-1))
	require.NoError(t, err)
	assert.Equal(t, KindBig, n.Kind())

	n, err = eng.Sub(Int(math.MinInt64), Int(1))
	require.NoError(t, err)
	assert.Equal(t, KindBig, n.Kind())

	n, err = eng.Div(Int(6), Int(3))
	require.NoError(t, err)
	assert.Equal(t, KindInt, n.Kind())
	assert.Equal(t, "2", n.String())

	n, err = eng.Div(Int(7), Int(2))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, n.Kind())
	assert.Equal(t, "3.5", n.String())

	_, err = eng.Div(Int(7), Int(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)

	n, err = eng.Add(Float(0.5), Int(1))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, n.Kind())

	n, err = eng.Add(dec("0.5"), Int(1))
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, n.Kind())
	assert.Equal(t, "1.5", n.String())

	n, err = eng.Mod(Float(7.5), Int(2))
	require.NoError(t, err)
	assert.Equal(t, "1.5", n.String())

	c, err := eng.Compare(Big(new(big.Int).Lsh(big.NewInt(1), 70)), Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestByName(t *testing.T) {
	e, err := ByName("BigDecimal")
	require.NoError(t, err)
	assert.Equal(t, NameBigDecimal, e.Name())

	e, err = ByName("conservative", WithMinScale(3))
	require.NoError(t, err)
	assert.Equal(t, NameConservative, e.Name())

	_, err = ByName("fancy")
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestNumberInt64(t *testing.T) {
	assert.Equal(t, int64(3), dec("3.99").Int64())
	assert.Equal(t, int64(-3), dec("-3.99").Int64())
	assert.Equal(t, int64(0), NaN().Int64())
	assert.Equal(t, int64(math.MaxInt64), Inf(1).Int64())
}

func TestCompareProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200

	properties := gopter.NewProperties(params)

	properties.Property("int compare agrees with native ordering", prop.ForAll(
		func(a, b int64) bool {
			c, err := DefaultEngine.Compare(Int(a), Int(b))

			return err == nil && c == cmp.Compare(a, b)
		},
		gen.Int64(), gen.Int64(),
	))

	properties.Property("float compare agrees with native ordering", prop.ForAll(
		func(a, b float64) bool {
			c, err := DefaultEngine.Compare(Float(a), Float(b))
			if err != nil {
				return false
			}

			switch {
			case a < b:
				return c == -1
			case a > b:
				return c == 1
			default:
				return c == 0
			}
		},
		gen.Float64(), gen.Float64(),
	))

	properties.Property("decimal compare agrees with native ordering", prop.ForAll(
		func(a, b int64, sa, sb int32) bool {
			x := decimal.New(a, -sa)
			y := decimal.New(b, -sb)
			c, err := DefaultEngine.Compare(Decimal(x), Decimal(y))

			return err == nil && c == x.Cmp(y)
		},
		gen.Int64(), gen.Int64(), gen.Int32Range(0, 20), gen.Int32Range(0, 20),
	))

	properties.Property("mixed compare is antisymmetric", prop.ForAll(
		func(a int64, b float64) bool {
			c1, err1 := DefaultEngine.Compare(Int(a), Float(b))
			c2, err2 := DefaultEngine.Compare(Float(b), Int(a))

			return err1 == nil && err2 == nil && c1 == -c2
		},
		gen.Int64(), gen.Float64(),
	))

	properties.Property("quotient scale is at least minScale", prop.ForAll(
		func(a, b int64, sa, sb int32) bool {
			if b == 0 {
				return true
			}

			q, err := DefaultEngine.Div(Decimal(decimal.New(a, -sa)), Decimal(decimal.New(b, -sb)))

			return err == nil && q.Scale() >= 12
		},
		gen.Int64Range(-1e9, 1e9), gen.Int64Range(-1e9, 1e9),
		gen.Int32Range(0, 6), gen.Int32Range(0, 6),
	))

	properties.TestingRun(t)
}
