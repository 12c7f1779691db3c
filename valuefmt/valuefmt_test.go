package valuefmt

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/model"
)

func dec(s string) arith.Number { return arith.Decimal(decimal.RequireFromString(s)) }

func TestNumberPatterns(t *testing.T) {
	tests := []struct {
		format string
		n      arith.Number
		want   string
	}{
		{"0.##", dec("1.5"), "1.5"},
		{"0.##", dec("3.14159"), "3.14"},
		{"0.##", arith.Int(2), "2"},
		{"#,##0.00", dec("1234.5"), "1,234.50"},
		{"#,##0.###", arith.Int(1234567), "1,234,567"},
		{"000", arith.Int(7), "007"},
		{"#.##", dec("0.5"), ".5"},
		{"0.###E0", arith.Int(1234), "1.234E3"},
		{"0.###E0", dec("0.00012"), "1.2E-4"},
		{"00.0E00", arith.Int(1234), "12.3E02"},
		{"0.0;(0.0)", dec("-3.25"), "(3.2)"},
		{"0.0", dec("-3.25"), "-3.2"},
		{"'#'0", arith.Int(5), "#5"},
		{"0 'o''clock'", arith.Int(5), "5 o'clock"},
		{"0%", dec("0.25"), "25%"},
		{"0‰", dec("0.025"), "25‰"},
		{"0", arith.Inf(1), "∞"},
		{"0", arith.Inf(-1), "-∞"},
		{"0", arith.NaN(), "NaN"},
		{"number", dec("1234.56789"), "1,234.568"},
		{"percent", dec("0.125"), "12%"},
		{"computer", dec("1234.5"), "1234.5"},
		{"c", arith.Inf(-1), "-INF"},
	}

	f := New()

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := f.FormatNumber(tt.n, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputerFormatFloats(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{1234567.891, "1234567.891"},
		{0.00001, "0.00001"},
		{1e21, "1000000000000000000000"},
		{-2.5, "-2.5"},
		{0.1 + 0.2, "0.3"},
		{1e-20, "0"},
		{-1e-20, "0"},
	}

	for _, tt := range tests {
		got, err := Computer.Format(arith.Float(tt.n))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%g", tt.n)
	}
}

func TestNumberExtendedParameters(t *testing.T) {
	tests := []struct {
		format string
		n      arith.Number
		want   string
	}{
		{"0.#", dec("0.25"), "0.2"},
		{"0.#;; roundingMode=halfUp", dec("0.25"), "0.3"},
		{"0.#;; roundingMode=up", dec("0.21"), "0.3"},
		{"0.#;; roundingMode=floor", dec("-0.21"), "-0.3"},
		{"#,##0.0;; decimalSeparator=',' groupingSeparator='_'", dec("1234.5"), "1_234,5"},
		{"#,##0.0;; decimalSeparator=\",\", groupingSeparator=\".\"", dec("1234.5"), "1.234,5"},
		{"0;; multiplier=1000", dec("1.5"), "1500"},
		{"0;; multipier=10", arith.Int(3), "30"},
		{"0;; minusSign='~'", arith.Int(-3), "~3"},
		{"0;; nan=NA", arith.NaN(), "NA"},
		{"0;; infinity=INF", arith.Inf(1), "INF"},
		{"0.0E0;; exponentSeparator=e", arith.Int(1500), "1.5e3"},
		{"0;; zeroDigit='０'", arith.Int(12), "１２"},
		{"0%;; percent='p'", dec("0.5"), "50p"},
		{"¤0.00;; currencySymbol='EUR '", dec("3"), "EUR 3.00"},
		{"¤¤ 0.00;; currencyCode=EUR", dec("3"), "EUR 3.00"},
		{"¤0.00;; monetaryDecimalSeparator=',', currencySymbol='$'", dec("3"), "$3,00"},
		{"0.#;; roundingMode=ceiling", dec("-0.29"), "-0.2"},
		{"0.00;; monetaryDecimalSeparator=','", dec("3"), "3.00"},
		{"0;; roundingMode=unnecessary", arith.Int(3), "3"},
	}

	f := New()

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := f.FormatNumber(tt.n, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberInvalid(t *testing.T) {
	tests := []struct {
		format string
		reason string
	}{
		{"abc", "no digit placeholders"},
		{"0.0.0", "multiple decimal separators"},
		{"0#", "'#' after '0'"},
		{"0.#0", "'0' after '#'"},
		{"#,", "grouping separator at the end"},
		{"0'x", "unterminated quote"},
		{"0E", "exponent"},
		{"0;; foo=1", `unsupported parameter name "foo"`},
		{"0;; roundingMode=sideways", "should be one of"},
		{"0;; decimalSeparator=ab", "exactly 1 character"},
		{"0;; multiplier=x", "malformed integer"},
		{"0;; currencyCode=ZZZZ", "ISO 4217"},
		{"0;; roundingMode", `expected a(n) "="`},
		{"0;; roundingMode=", "expected a(n) value"},
		{"0;; nan='x", "wasn't closed"},
		{"0;; =x", "expected a(n) name"},
	}

	f := New()

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := f.Number(tt.format)
			require.ErrorIs(t, err, ErrInvalidFormatParameters)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestNumberRoundingUnnecessary(t *testing.T) {
	_, err := New().FormatNumber(dec("1.5"), "0;; roundingMode=unnecessary")
	require.ErrorIs(t, err, ErrInvalidFormatParameters)
	assert.Contains(t, err.Error(), "without rounding")
}

func TestNumberLocale(t *testing.T) {
	en := New()
	de := New(WithLocale(language.German))

	got, err := en.FormatNumber(dec("1234.5"), "#,##0.0")
	require.NoError(t, err)
	assert.Equal(t, "1,234.5", got)

	got, err = de.FormatNumber(dec("1234.5"), "#,##0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.234,5", got)

	got, err = de.FormatNumber(dec("1234.5"), "computer")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", got)

	got, err = en.FormatNumber(dec("1234.5"), "currency")
	require.NoError(t, err)
	assert.Contains(t, got, "$")
	assert.True(t, strings.HasSuffix(got, "1,234.50"), got)

	assert.Equal(t, language.German, de.Locale())
	assert.Equal(t, language.AmericanEnglish, de.With(WithLocale(language.AmericanEnglish)).Locale())
}

func TestNumberCache(t *testing.T) {
	f := New()

	a, err := f.Number("0.00")
	require.NoError(t, err)

	b, err := f.Number("0.00")
	require.NoError(t, err)

	assert.Same(t, a, b)

	g := f.With()
	c, err := g.Number("0.00")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestCustomNumberFormat(t *testing.T) {
	hex := NumberFormatFactoryFunc(func(params string, _ language.Tag) (NumberFormat, error) {
		upper := params == "upper"

		return NumberFunc(func(n arith.Number) (string, error) {
			s := strconv.FormatInt(n.Int64(), 16)
			if upper {
				s = strings.ToUpper(s)
			}

			return s, nil
		}), nil
	})

	f := New(WithCustomNumberFormat("hex", hex))

	got, err := f.FormatNumber(arith.Int(255), "@hex")
	require.NoError(t, err)
	assert.Equal(t, "ff", got)

	got, err = f.FormatNumber(arith.Int(255), "@hex upper")
	require.NoError(t, err)
	assert.Equal(t, "FF", got)

	got, err = f.FormatNumber(arith.Int(5), "@@0")
	require.NoError(t, err)
	assert.Equal(t, "@5", got)

	_, err = f.Number("@nope")
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Contains(t, err.Error(), `"nope"`)

	// With keeps registered formats.
	got, err = f.With(WithLocale(language.German)).FormatNumber(arith.Int(10), "@hex")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestParseLocale(t *testing.T) {
	tag, err := ParseLocale("en_US")
	require.NoError(t, err)
	assert.Equal(t, language.AmericanEnglish, tag)

	tag, err = ParseLocale("de-DE")
	require.NoError(t, err)
	assert.Equal(t, "de-DE", tag.String())

	_, err = ParseLocale("not a locale!")
	require.ErrorIs(t, err, ErrInvalidLocale)
}

var sample = time.Date(2024, time.March, 5, 14, 7, 9, 120*int(time.Millisecond), time.UTC)

func date(kind model.DateKind) model.Date { return model.Date{T: sample, Kind: kind} }

func TestDateISO(t *testing.T) {
	tests := []struct {
		format string
		kind   model.DateKind
		want   string
	}{
		{"iso", model.DateTime, "2024-03-05T14:07:09.12Z"},
		{"iso", model.DateOnly, "2024-03-05"},
		{"iso", model.TimeOnly, "14:07:09.12Z"},
		{"iso_s", model.DateTime, "2024-03-05T14:07:09Z"},
		{"iso_m", model.DateTime, "2024-03-05T14:07Z"},
		{"iso_h", model.DateTime, "2024-03-05T14Z"},
		{"iso_ms", model.DateTime, "2024-03-05T14:07:09.120Z"},
		{"iso_nz", model.DateTime, "2024-03-05T14:07:09.12"},
		{"iso_fz", model.DateOnly, "2024-03-05Z"},
		{"iso m nz", model.TimeOnly, "14:07"},
		{"xs", model.DateTime, "2024-03-05T14:07:09.12Z"},
		{"xs", model.DateOnly, "2024-03-05Z"},
		{"xs_nz", model.DateOnly, "2024-03-05"},
	}

	f := New(WithTimeZone(time.UTC))

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.kind.String(), func(t *testing.T) {
			got, err := f.FormatDate(date(tt.kind), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateISOTimeZone(t *testing.T) {
	f := New(WithTimeZone(time.FixedZone("CEST", 2*60*60)))

	got, err := f.FormatDate(date(model.DateTime), "iso")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T16:07:09.12+02:00", got)

	got, err = f.FormatDate(date(model.DateTime), "iso_u")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T14:07:09.12Z", got)

	got, err = f.FormatDate(date(model.DateTime), "iso_fu_s")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T14:07:09Z", got)
}

func TestDateISOInvalid(t *testing.T) {
	tests := []struct {
		format string
		reason string
	}{
		{"iso_h_m", "accuracy was already specified"},
		{"iso_nz_fz", "zone offset visibility was already specified"},
		{"iso_u_fu", "UTC usage option was already set"},
		{"iso_n", `must be followed by "z"`},
		{"iso_x", "expected the beginning of one of"},
		{"iso_mnz", "missing space"},
		{"xs_h", "XML Schema"},
		{"xs_m", "XML Schema"},
	}

	f := New()

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := f.Date(tt.format, model.DateTime)
			require.ErrorIs(t, err, ErrInvalidFormatParameters)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestDateUnknownType(t *testing.T) {
	f := New()

	for _, format := range []string{"iso", "xs_nz", "medium", "short_long"} {
		_, err := f.FormatDate(date(model.DateUnknown), format)
		require.ErrorIs(t, err, ErrUnknownDateType, format)
		assert.Contains(t, err.Error(), "?datetime")
	}

	// A pattern does not depend on the date type.
	got, err := f.With(WithTimeZone(time.UTC)).FormatDate(date(model.DateUnknown), "yyyy")
	require.NoError(t, err)
	assert.Equal(t, "2024", got)
}

func TestDatePatterns(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"yyyy-MM-dd HH:mm:ss", "2024-03-05 14:07:09"},
		{"yyyy-MM-dd'T'HH", "2024-03-05T14"},
		{"EEE, MMM d, ''yy", "Tue, Mar 5, '24"},
		{"EEEE MMMM", "Tuesday March"},
		{"h:mm a", "2:07 PM"},
		{"K k H", "2 14 14"},
		{"'at' HH:mm", "at 14:07"},
		{"'o''clock' H", "o'clock 14"},
		{"D w u", "65 10 2"},
		{"SSS", "120"},
		{"G yyyy", "AD 2024"},
		{"z Z X", "UTC +0000 Z"},
	}

	f := New(WithTimeZone(time.UTC))

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := f.FormatDate(date(model.DateTime), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatePatternInvalid(t *testing.T) {
	f := New()

	_, err := f.Date("yyyy-qq", model.DateTime)
	require.ErrorIs(t, err, ErrInvalidFormatParameters)
	assert.Contains(t, err.Error(), `illegal pattern character 'q'`)

	_, err = f.Date("yyyy 'abc", model.DateTime)
	require.ErrorIs(t, err, ErrInvalidFormatParameters)
	assert.Contains(t, err.Error(), "unterminated quote")
}

func TestDateStyles(t *testing.T) {
	tests := []struct {
		format string
		kind   model.DateKind
		want   string
	}{
		{"short", model.DateOnly, "3/5/24"},
		{"medium", model.DateOnly, "Mar 5, 2024"},
		{"long", model.DateOnly, "March 5, 2024"},
		{"full", model.DateOnly, "Tuesday, March 5, 2024"},
		{"short", model.TimeOnly, "2:07 PM"},
		{"medium", model.TimeOnly, "2:07:09 PM"},
		{"long", model.TimeOnly, "2:07:09 PM UTC"},
		{"medium", model.DateTime, "Mar 5, 2024 2:07:09 PM"},
		{"short_medium", model.DateTime, "3/5/24 2:07:09 PM"},
		{DefaultDateTimeFormat, model.DateTime, "Mar 5, 2024 2:07:09 PM"},
	}

	f := New(WithTimeZone(time.UTC))

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.kind.String(), func(t *testing.T) {
			got, err := f.FormatDate(date(tt.kind), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomDateFormat(t *testing.T) {
	epoch := DateFormatFactoryFunc(func(
		params string, _ model.DateKind, _ language.Tag, _ *time.Location,
	) (DateFormat, error) {
		return DateFunc(func(t time.Time) (string, error) {
			if params == "ms" {
				return strconv.FormatInt(t.UnixMilli(), 10), nil
			}

			return strconv.FormatInt(t.Unix(), 10), nil
		}), nil
	})

	f := New(WithCustomDateFormat("epoch", epoch))

	got, err := f.FormatDate(date(model.DateTime), "@epoch")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(sample.Unix(), 10), got)

	got, err = f.FormatDate(date(model.DateTime), "@epoch ms")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(sample.UnixMilli(), 10), got)

	_, err = f.Date("@nope", model.DateTime)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDateCacheByKind(t *testing.T) {
	f := New(WithTimeZone(time.UTC))

	d, err := f.Date("medium", model.DateOnly)
	require.NoError(t, err)

	dt, err := f.Date("medium", model.DateTime)
	require.NoError(t, err)

	again, err := f.Date("medium", model.DateOnly)
	require.NoError(t, err)

	assert.Same(t, d, again)
	assert.NotSame(t, d, dt)
}

func TestBooleanFormat(t *testing.T) {
	bf, err := ParseBooleanFormat("yes,no")
	require.NoError(t, err)
	assert.Equal(t, "yes", bf.Format(true))
	assert.Equal(t, "no", bf.Format(false))
	assert.Equal(t, "yes,no", bf.String())

	bf, err = ParseBooleanFormat("c")
	require.NoError(t, err)
	assert.Equal(t, ComputerBoolean, bf)

	bf, err = ParseBooleanFormat(DefaultBooleanFormat)
	require.NoError(t, err)
	assert.Equal(t, "true", bf.Format(true))

	bf, err = ParseBooleanFormat(",off")
	require.NoError(t, err)
	assert.Empty(t, bf.Format(true))

	for _, bad := range []string{"yes", "a,b,c", ""} {
		_, err := ParseBooleanFormat(bad)
		require.ErrorIs(t, err, ErrInvalidFormatParameters, bad)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		text   string
		format string
		kind   model.DateKind
		want   time.Time
	}{
		{"2024-03-05", "iso", model.DateOnly, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05T14:07:09Z", "iso", model.DateTime, sample.Truncate(time.Second)},
		{"2024-03-05T14:07:09.12Z", "xs", model.DateTime, sample},
		{"14:07", "iso", model.TimeOnly, time.Date(0, time.January, 1, 14, 7, 0, 0, time.UTC)},
		{"2024-03-05 14:07:09", "yyyy-MM-dd HH:mm:ss", model.DateTime, sample.Truncate(time.Second)},
		{"Mar 5, 2024", "medium", model.DateOnly, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
		{"Mar 5, 2024 2:07:09 PM", "medium", model.DateTime, sample.Truncate(time.Second)},
		{"05.03.24", "dd.MM.yy", model.DateOnly, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
	}

	f := New(WithTimeZone(time.UTC))

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.text, func(t *testing.T) {
			got, err := f.ParseDate(tt.text, tt.format, tt.kind)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	f := New()

	_, err := f.ParseDate("not a date", "iso", model.DateOnly)
	require.ErrorIs(t, err, ErrInvalidFormatParameters)
	assert.Contains(t, err.Error(), `"not a date"`)

	_, err = f.ParseDate("2024", "yyyy-qq", model.DateOnly)
	require.ErrorIs(t, err, ErrInvalidFormatParameters)

	_, err = f.ParseDate("2024-03-05", "iso", model.DateUnknown)
	require.ErrorIs(t, err, ErrUnknownDateType)
}
