package valuefmt

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/ardnew/ftl/model"
)

// DateFormat renders points in time as text.
type DateFormat interface {
	Format(t time.Time) (string, error)
}

// DateFunc adapts a function to [DateFormat].
type DateFunc func(t time.Time) (string, error)

func (f DateFunc) Format(t time.Time) (string, error) { return f(t) }

// DateFormatFactory creates the custom date formats invoked as
// "@name params".
type DateFormatFactory interface {
	DateFormat(params string, kind model.DateKind, locale language.Tag, zone *time.Location) (DateFormat, error)
}

// DateFormatFactoryFunc adapts a function to [DateFormatFactory].
type DateFormatFactoryFunc func(
	params string, kind model.DateKind, locale language.Tag, zone *time.Location,
) (DateFormat, error)

func (f DateFormatFactoryFunc) DateFormat(
	params string, kind model.DateKind, locale language.Tag, zone *time.Location,
) (DateFormat, error) {
	return f(params, kind, locale, zone)
}

// Default date formats.
const (
	DefaultDateFormat     = "medium"
	DefaultTimeFormat     = "medium"
	DefaultDateTimeFormat = "medium_medium"
)

func invalidDateFormat(format, reason string) error {
	return ErrInvalidFormatParameters.
		Wrap(fmt.Errorf("malformed date format %q: %s", format, reason)).
		With(slog.String("format", format))
}

func newDateFormat(format string, kind model.DateKind, zone *time.Location) (DateFormat, error) {
	switch {
	case isISOName(format, "iso"):
		return parseISO(format, 3, kind, zone, false)
	case isISOName(format, "xs"):
		return parseISO(format, 2, kind, zone, true)
	}

	if f, ok, err := parseStyle(format, kind, zone); ok || err != nil {
		return f, err
	}

	if kind == model.DateUnknown && format == "" {
		return nil, ErrUnknownDateType
	}

	return compileJava(format, zone)
}

func isISOName(format, name string) bool {
	if !strings.HasPrefix(format, name) {
		return false
	}

	return len(format) == len(name) || format[len(name)] == '_' || format[len(name)] == ' '
}

// Accuracy of ISO 8601 output.
type accuracy uint8

const (
	accuracyMillis accuracy = iota // milliseconds when nonzero
	accuracyMillisForced
	accuracySeconds
	accuracyMinutes
	accuracyHours
)

type isoFormat struct {
	kind     model.DateKind
	zone     *time.Location
	xs       bool
	accuracy accuracy
	showZone *bool
	forceUTC *bool
}

// parseISO reads the options following "iso" or "xs": h, m, s, ms, nz, fz,
// u and fu, each preceded by '_' or a space.
func parseISO(format string, start int, kind model.DateKind, zone *time.Location, xs bool) (DateFormat, error) {
	if kind == model.DateUnknown {
		return nil, ErrUnknownDateType
	}

	f := &isoFormat{kind: kind, zone: zone, xs: xs}
	f.forceUTC = new(bool)

	afterSep := false
	accuracySet := false

	for i := start; i < len(format); {
		c := format[i]
		i++

		if c == '_' || c == ' ' {
			afterSep = true

			continue
		}

		if !afterSep {
			return nil, invalidDateFormat(format, fmt.Sprintf("missing space or \"_\" before %q", c))
		}

		next := byte(0)
		if i < len(format) {
			next = format[i]
		}

		switch c {
		case 'h', 'm', 's':
			if accuracySet {
				return nil, invalidDateFormat(format,
					fmt.Sprintf("character %q is unexpected as accuracy was already specified earlier", c))
			}

			accuracySet = true

			switch {
			case c == 'h':
				f.accuracy = accuracyHours
			case c == 'm' && next == 's':
				i++
				f.accuracy = accuracyMillisForced
			case c == 'm':
				f.accuracy = accuracyMinutes
			default:
				f.accuracy = accuracySeconds
			}

			if xs && (f.accuracy == accuracyHours || f.accuracy == accuracyMinutes) {
				return nil, invalidDateFormat(format,
					"less than seconds accuracy isn't allowed by the XML Schema format")
			}
		case 'n', 'f':
			if c == 'f' && next == 'u' {
				if f.forceUTC == nil || *f.forceUTC {
					return nil, invalidDateFormat(format, "the UTC usage option was already set earlier")
				}

				i++
				*f.forceUTC = true

				break
			}

			if f.showZone != nil {
				return nil, invalidDateFormat(format,
					fmt.Sprintf("character %q is unexpected as zone offset visibility was already specified earlier", c))
			}

			if next != 'z' {
				return nil, invalidDateFormat(format, fmt.Sprintf("%q must be followed by \"z\"", c))
			}

			i++
			show := c == 'f'
			f.showZone = &show
		case 'u':
			if f.forceUTC == nil || *f.forceUTC {
				return nil, invalidDateFormat(format, "the UTC usage option was already set earlier")
			}

			f.forceUTC = nil
		default:
			return nil, invalidDateFormat(format,
				fmt.Sprintf("unexpected character %q; expected the beginning of one of: h, m, s, ms, nz, fz, u", c))
		}

		afterSep = false
	}

	return f, nil
}

func (f *isoFormat) Format(t time.Time) (string, error) {
	switch {
	case f.forceUTC == nil || *f.forceUTC:
		t = t.UTC()
	case f.zone != nil:
		t = t.In(f.zone)
	}

	datePart := f.kind != model.TimeOnly
	timePart := f.kind != model.DateOnly

	showZone := timePart || f.xs
	if f.showZone != nil {
		showZone = *f.showZone
	}

	var sb strings.Builder

	if datePart {
		sb.WriteString(t.Format("2006-01-02"))

		if timePart {
			sb.WriteByte('T')
		}
	}

	if timePart {
		sb.WriteString(t.Format("15"))

		if f.accuracy != accuracyHours {
			sb.WriteString(t.Format(":04"))
		}

		if f.accuracy < accuracyMinutes {
			sb.WriteString(t.Format(":05"))
		}

		ms := t.Nanosecond() / int(time.Millisecond)

		switch {
		case f.accuracy == accuracyMillisForced:
			fmt.Fprintf(&sb, ".%03d", ms)
		case f.accuracy == accuracyMillis && ms != 0:
			sb.WriteString(strings.TrimRight(fmt.Sprintf(".%03d", ms), "0"))
		}
	}

	if showZone {
		sb.WriteString(t.Format("Z07:00"))
	}

	return sb.String(), nil
}

// Style layouts for dates and times.
var (
	dateStyles = map[string]string{
		"short":  "M/d/yy",
		"medium": "MMM d, yyyy",
		"long":   "MMMM d, yyyy",
		"full":   "EEEE, MMMM d, yyyy",
	}
	timeStyles = map[string]string{
		"short":  "h:mm a",
		"medium": "h:mm:ss a",
		"long":   "h:mm:ss a z",
		"full":   "h:mm:ss a zzzz",
	}
)

// parseStyle recognizes "short", "medium", "long" and "full", and for
// date-times also "dateStyle_timeStyle" such as "short_medium".
func parseStyle(format string, kind model.DateKind, zone *time.Location) (DateFormat, bool, error) {
	dateStyle, timeStyle, combined := strings.Cut(format, "_")
	if !combined {
		timeStyle = dateStyle
	}

	dl, okDate := dateStyles[dateStyle]
	tl, okTime := timeStyles[timeStyle]

	if !okDate || !okTime {
		return nil, false, nil
	}

	var pattern string

	switch kind {
	case model.DateOnly:
		pattern = dl
	case model.TimeOnly:
		pattern = tl
	case model.DateTime:
		pattern = dl + " " + tl
	default:
		return nil, true, ErrUnknownDateType
	}

	f, err := compileJava(pattern, zone)

	return f, true, err
}

// javaFormat is a compiled date pattern in the letters of Java's
// SimpleDateFormat.
type javaFormat struct {
	src  string
	zone *time.Location
	segs []func(time.Time) string
}

func (f *javaFormat) Format(t time.Time) (string, error) {
	if f.zone != nil {
		t = t.In(f.zone)
	}

	var sb strings.Builder

	for _, seg := range f.segs {
		sb.WriteString(seg(t))
	}

	return sb.String(), nil
}

func (f *javaFormat) String() string { return f.src }

func literal(s string) func(time.Time) string {
	return func(time.Time) string { return s }
}

func layout(l string) func(time.Time) string {
	return func(t time.Time) string { return t.Format(l) }
}

func padded(n int, get func(time.Time) int) func(time.Time) string {
	return func(t time.Time) string {
		s := strconv.Itoa(get(t))
		if len(s) < n {
			s = strings.Repeat("0", n-len(s)) + s
		}

		return s
	}
}

// compileJava translates a SimpleDateFormat pattern. Letters outside the
// supported set are rejected; quoted text and other characters are copied.
func compileJava(src string, zone *time.Location) (*javaFormat, error) {
	f := &javaFormat{src: src, zone: zone}

	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			f.segs = append(f.segs, literal(lit.String()))
			lit.Reset()
		}
	}

	rs := []rune(src)

	for i := 0; i < len(rs); {
		c := rs[i]

		if c == '\'' {
			if i+1 < len(rs) && rs[i+1] == '\'' {
				lit.WriteRune('\'')
				i += 2

				continue
			}

			i++
			for i < len(rs) && (rs[i] != '\'' || (i+1 < len(rs) && rs[i+1] == '\'')) {
				if rs[i] == '\'' {
					i++
				}

				lit.WriteRune(rs[i])
				i++
			}

			if i >= len(rs) {
				return nil, invalidDateFormat(src, "unterminated quote")
			}

			i++

			continue
		}

		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			lit.WriteRune(c)
			i++

			continue
		}

		n := 1
		for i+n < len(rs) && rs[i+n] == c {
			n++
		}

		seg, err := javaField(c, n)
		if err != nil {
			return nil, invalidDateFormat(src, err.Error())
		}

		flush()

		f.segs = append(f.segs, seg)
		i += n
	}

	flush()

	return f, nil
}

//nolint:cyclop,gocyclo
func javaField(c rune, n int) (func(time.Time) string, error) {
	switch c {
	case 'G':
		return func(t time.Time) string {
			if t.Year() <= 0 {
				return "BC"
			}

			return "AD"
		}, nil
	case 'y', 'Y', 'u':
		if c == 'u' {
			return padded(n, func(t time.Time) int { return (int(t.Weekday())+6)%7 + 1 }), nil
		}

		if n == 2 {
			return layout("06"), nil
		}

		return padded(n, time.Time.Year), nil
	case 'M', 'L':
		switch n {
		case 1:
			return layout("1"), nil
		case 2:
			return layout("01"), nil
		case 3:
			return layout("Jan"), nil
		default:
			return layout("January"), nil
		}
	case 'd':
		return padded(n, time.Time.Day), nil
	case 'D':
		return padded(n, time.Time.YearDay), nil
	case 'w':
		return padded(n, func(t time.Time) int { _, w := t.ISOWeek(); return w }), nil
	case 'W', 'F':
		return padded(n, func(t time.Time) int { return (t.Day()-1)/7 + 1 }), nil
	case 'E':
		if n <= 3 {
			return layout("Mon"), nil
		}

		return layout("Monday"), nil
	case 'a':
		return layout("PM"), nil
	case 'H':
		return padded(n, time.Time.Hour), nil
	case 'k':
		return padded(n, func(t time.Time) int {
			if t.Hour() == 0 {
				return 24
			}

			return t.Hour()
		}), nil
	case 'K':
		return padded(n, func(t time.Time) int { return t.Hour() % 12 }), nil
	case 'h':
		return padded(n, func(t time.Time) int {
			if h := t.Hour() % 12; h != 0 {
				return h
			}

			return 12
		}), nil
	case 'm':
		return padded(n, time.Time.Minute), nil
	case 's':
		return padded(n, time.Time.Second), nil
	case 'S':
		return padded(n, func(t time.Time) int { return t.Nanosecond() / int(time.Millisecond) }), nil
	case 'z':
		return layout("MST"), nil
	case 'Z':
		return layout("-0700"), nil
	case 'X':
		switch n {
		case 1:
			return layout("Z07"), nil
		case 2:
			return layout("Z0700"), nil
		default:
			return layout("Z07:00"), nil
		}
	}

	return nil, fmt.Errorf("illegal pattern character %q", c)
}
