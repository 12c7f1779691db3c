package arith

import (
	"log/slog"
	"strings"

	"github.com/ardnew/ftl/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrNumberFormat      = pkg.NewError("invalid number format")
	ErrDivisionByZero    = pkg.NewError("division by zero")
	ErrNaN               = pkg.NewError("NaN is not comparable")
	ErrInvalidConfig     = pkg.NewError("invalid arithmetic engine configuration")
	ErrRoundingNecessary = pkg.NewError("rounding necessary")
	ErrUnknownEngine     = pkg.NewError("unknown arithmetic engine")
)

// Engine performs the arithmetic of the template language.
//
// Implementations are immutable after construction and safe for
// concurrent use.
type Engine interface {
	// Name returns the configuration name of the engine.
	Name() string
	// Compare returns -1, 0 or +1 as a is less than, equal to, or greater
	// than b. Comparisons involving NaN fail with [ErrNaN].
	Compare(a, b Number) (int, error)
	Add(a, b Number) (Number, error)
	Sub(a, b Number) (Number, error)
	Mul(a, b Number) (Number, error)
	Div(a, b Number) (Number, error)
	Mod(a, b Number) (Number, error)
	// ToNumber parses a numeric literal. See [Parse].
	ToNumber(s string) (Number, error)
}

// Default configuration values.
const (
	DefaultMinScale int32 = 12
	DefaultMaxScale int32 = 12
	DefaultRounding       = RoundHalfUp
)

type config struct {
	minScale int32
	maxScale int32
	rounding Rounding
}

// Option configures an engine.
type Option = pkg.Option[config]

// WithMinScale sets the minimal scale of division results.
func WithMinScale(scale int32) Option {
	return func(c config) config {
		c.minScale = scale

		return c
	}
}

// WithMaxScale sets the maximal scale of multiplication results.
func WithMaxScale(scale int32) Option {
	return func(c config) config {
		c.maxScale = scale

		return c
	}
}

// WithRounding sets the rounding policy used when a result must be brought
// to a smaller scale.
func WithRounding(mode Rounding) Option {
	return func(c config) config {
		c.rounding = mode

		return c
	}
}

func makeConfig(opts ...Option) (config, error) {
	cfg := pkg.Apply(config{
		minScale: DefaultMinScale,
		maxScale: DefaultMaxScale,
		rounding: DefaultRounding,
	}, opts...)

	switch {
	case cfg.minScale < 0:
		return cfg, ErrInvalidConfig.With(
			slog.String("reason", "minScale < 0"),
			slog.Int("minScale", int(cfg.minScale)),
		)
	case cfg.maxScale < cfg.minScale:
		return cfg, ErrInvalidConfig.With(
			slog.String("reason", "maxScale < minScale"),
			slog.Int("minScale", int(cfg.minScale)),
			slog.Int("maxScale", int(cfg.maxScale)),
		)
	case !cfg.rounding.valid():
		return cfg, ErrInvalidConfig.With(
			slog.String("reason", "unknown rounding policy"),
			slog.Int("rounding", int(cfg.rounding)),
		)
	}

	return cfg, nil
}

// Engine names accepted by [ByName].
const (
	NameBigDecimal   = "bigdecimal"
	NameConservative = "conservative"
)

// ByName returns a newly configured engine by its configuration name.
func ByName(name string, opts ...Option) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameBigDecimal, "big_decimal", "":
		return NewBigDecimalEngine(opts...)
	case NameConservative:
		return NewConservativeEngine(opts...)
	default:
		return nil, ErrUnknownEngine.With(slog.String("name", name))
	}
}
