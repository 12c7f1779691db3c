package valuefmt

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrInvalidFormatParameters = pkg.NewError("invalid format parameters")
	ErrUnknownFormat           = pkg.NewError("unknown format")
	ErrUnknownDateType         = pkg.NewError("unknown date type")
	ErrInvalidLocale           = pkg.NewError("invalid locale")
)

type config struct {
	locale  language.Tag
	zone    *time.Location
	numbers map[string]NumberFormatFactory
	dates   map[string]DateFormatFactory
}

// Option configures [Formats].
type Option = pkg.Option[config]

// WithLocale sets the locale numbers and dates are formatted for.
func WithLocale(tag language.Tag) Option {
	return func(c config) config {
		c.locale = tag

		return c
	}
}

// WithTimeZone sets the zone dates are shown in.
func WithTimeZone(zone *time.Location) Option {
	return func(c config) config {
		c.zone = zone

		return c
	}
}

// WithCustomNumberFormat registers f as the number format "@name".
func WithCustomNumberFormat(name string, f NumberFormatFactory) Option {
	return func(c config) config {
		c.numbers = maps.Clone(c.numbers)
		if c.numbers == nil {
			c.numbers = make(map[string]NumberFormatFactory)
		}

		c.numbers[name] = f

		return c
	}
}

// WithCustomDateFormat registers f as the date format "@name".
func WithCustomDateFormat(name string, f DateFormatFactory) Option {
	return func(c config) config {
		c.dates = maps.Clone(c.dates)
		if c.dates == nil {
			c.dates = make(map[string]DateFormatFactory)
		}

		c.dates[name] = f

		return c
	}
}

// ParseLocale parses a locale such as "en_US" or "de-DE".
func ParseLocale(s string) (language.Tag, error) {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	if err != nil {
		return language.Und, ErrInvalidLocale.Wrap(err).With(slog.String("locale", s))
	}

	return tag, nil
}

type dateKey struct {
	format string
	kind   model.DateKind
}

// Formats compiles and caches the formats of one locale and time zone. It
// is owned by a single render and is not safe for concurrent use.
type Formats struct {
	cfg     config
	numbers map[string]NumberFormat
	dates   map[dateKey]DateFormat
}

// New returns Formats for the US English locale and the local time zone,
// modified by opts.
func New(opts ...Option) *Formats {
	return newFormats(pkg.Apply(config{locale: language.AmericanEnglish, zone: time.Local}, opts...))
}

func newFormats(cfg config) *Formats {
	return &Formats{
		cfg:     cfg,
		numbers: make(map[string]NumberFormat),
		dates:   make(map[dateKey]DateFormat),
	}
}

// With returns Formats sharing the registered custom formats of f with
// opts applied. The caches of f are not carried over.
func (f *Formats) With(opts ...Option) *Formats {
	return newFormats(pkg.Apply(f.cfg, opts...))
}

// Locale returns the locale of f.
func (f *Formats) Locale() language.Tag { return f.cfg.locale }

// TimeZone returns the time zone of f.
func (f *Formats) TimeZone() *time.Location { return f.cfg.zone }

// Number returns the number format described by format: "computer",
// "number", "currency", "percent", a decimal pattern, or "@name params".
func (f *Formats) Number(format string) (NumberFormat, error) {
	if nf, ok := f.numbers[format]; ok {
		return nf, nil
	}

	var (
		nf  NumberFormat
		err error
	)

	if name, params, ok := splitCustom(format); ok {
		factory, found := f.cfg.numbers[name]
		if !found {
			return nil, unknownFormat("number", name)
		}

		nf, err = factory.NumberFormat(params, f.cfg.locale)
	} else {
		nf, err = newNumberFormat(strings.TrimPrefix(format, "@"), f.cfg.locale)
	}

	if err != nil {
		return nil, err
	}

	f.numbers[format] = nf

	return nf, nil
}

// FormatNumber formats n with format.
func (f *Formats) FormatNumber(n arith.Number, format string) (string, error) {
	nf, err := f.Number(format)
	if err != nil {
		return "", err
	}

	return nf.Format(n)
}

// Date returns the date format described by format for values of kind:
// "iso" and "xs" with options, "short", "medium", "long", "full" and
// their "date_time" combinations, a date pattern, or "@name params".
func (f *Formats) Date(format string, kind model.DateKind) (DateFormat, error) {
	key := dateKey{format: format, kind: kind}
	if df, ok := f.dates[key]; ok {
		return df, nil
	}

	var (
		df  DateFormat
		err error
	)

	if name, params, ok := splitCustom(format); ok {
		factory, found := f.cfg.dates[name]
		if !found {
			return nil, unknownFormat("date", name)
		}

		df, err = factory.DateFormat(params, kind, f.cfg.locale, f.cfg.zone)
	} else {
		df, err = newDateFormat(strings.TrimPrefix(format, "@"), kind, f.cfg.zone)
	}

	if err != nil {
		return nil, err
	}

	f.dates[key] = df

	return df, nil
}

// FormatDate formats d with format.
func (f *Formats) FormatDate(d model.DateValue, format string) (string, error) {
	df, err := f.Date(format, d.DateKind())
	if err != nil {
		if errors.Is(err, ErrUnknownDateType) {
			return "", ErrUnknownDateType.Wrap(fmt.Errorf(
				"can't format a date whose type (date, time or datetime) is unknown with %q; "+
					"use ?date, ?time or ?datetime to specify it", format))
		}

		return "", err
	}

	return df.Format(d.Time())
}
