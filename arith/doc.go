// Package arith implements the numeric model and the arithmetic engines of
// the template language.
//
// # Numbers
//
// A [Number] holds one of four representations: int64, *big.Int, float64
// and decimal. Only floats represent infinities and NaN. Literals are parsed
// by [Parse] into the narrowest representation able to hold them.
//
// # Engines
//
// An [Engine] compares numbers and performs the five arithmetic operations.
// Two engines are provided:
//
//   - [BigDecimalEngine] (the default) canonicalizes finite operands to
//     decimals. Products are clamped to a maximal scale and quotients carry
//     at least a minimal scale, both rounded with a [Rounding] policy.
//   - [ConservativeEngine] keeps results integral while possible and widens
//     only as far as the result requires.
//
// Both engines compute the modulus of decimals by truncating the operands
// toward zero to 64-bit integers (BigDecimalEngine) or exactly
// (ConservativeEngine).
//
// Engines are configured once with functional options and validated
// eagerly:
//
//	eng, err := arith.NewBigDecimalEngine(
//		arith.WithMinScale(4),
//		arith.WithMaxScale(8),
//		arith.WithRounding(arith.RoundHalfEven),
//	)
//
// Configured engines are immutable and safe for concurrent use. [ByName]
// selects an engine by its configuration name.
package arith
