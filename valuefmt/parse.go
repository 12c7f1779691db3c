package valuefmt

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ardnew/ftl/model"
)

var isoLayouts = map[model.DateKind][]string{
	model.DateOnly: {"2006-01-02", "2006-01-02Z07:00"},
	model.TimeOnly: {
		"15:04:05.999999999Z07:00", "15:04:05.999999999", "15:04Z07:00", "15:04", "15",
	},
	model.DateTime: {
		"2006-01-02T15:04:05.999999999Z07:00", "2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04Z07:00", "2006-01-02T15:04", "2006-01-02T15Z07:00", "2006-01-02T15",
	},
}

// ParseDate reads s as a value of kind written in format. Style names
// and patterns are parsed with the same letters they format with; "iso"
// and "xs" accept any ISO 8601 precision.
func (f *Formats) ParseDate(s, format string, kind model.DateKind) (time.Time, error) {
	s = strings.TrimSpace(s)
	format = strings.TrimPrefix(format, "@")

	var layouts []string

	switch {
	case kind == model.DateUnknown:
		return time.Time{}, ErrUnknownDateType
	case isISOName(format, "iso"), isISOName(format, "xs"):
		layouts = isoLayouts[kind]
	default:
		pattern := format
		if p, ok := stylePattern(format, kind); ok {
			pattern = p
		}

		l, err := goLayout(pattern)
		if err != nil {
			return time.Time{}, err
		}

		layouts = []string{l}
	}

	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, f.cfg.zone); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrInvalidFormatParameters.
		Wrap(fmt.Errorf("can't parse %q as a %s with format %q", s, kind, format)).
		With(slog.String("text", s), slog.String("format", format))
}

func stylePattern(format string, kind model.DateKind) (string, bool) {
	dateStyle, timeStyle, combined := strings.Cut(format, "_")
	if !combined {
		timeStyle = dateStyle
	}

	dl, okDate := dateStyles[dateStyle]
	tl, okTime := timeStyles[timeStyle]

	if !okDate || !okTime {
		return "", false
	}

	switch kind {
	case model.DateOnly:
		return dl, true
	case model.TimeOnly:
		return tl, true
	default:
		return dl + " " + tl, true
	}
}

// goLayout translates the pattern letters that time.Parse understands.
func goLayout(src string) (string, error) {
	var sb strings.Builder

	rs := []rune(src)

	for i := 0; i < len(rs); {
		c := rs[i]

		if c == '\'' {
			i++
			for i < len(rs) && rs[i] != '\'' {
				sb.WriteRune(rs[i])
				i++
			}

			i++

			continue
		}

		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			sb.WriteRune(c)
			i++

			continue
		}

		n := 1
		for i+n < len(rs) && rs[i+n] == c {
			n++
		}

		l, ok := parseField(c, n)
		if !ok {
			return "", invalidDateFormat(src, fmt.Sprintf("pattern letter %q can't be parsed", string(c)))
		}

		sb.WriteString(l)
		i += n
	}

	return sb.String(), nil
}

//nolint:cyclop
func parseField(c rune, n int) (string, bool) {
	switch c {
	case 'y':
		if n == 2 {
			return "06", true
		}

		return "2006", true
	case 'M':
		switch n {
		case 1:
			return "1", true
		case 2:
			return "01", true
		case 3:
			return "Jan", true
		}

		return "January", true
	case 'd':
		if n == 1 {
			return "2", true
		}

		return "02", true
	case 'E':
		if n <= 3 {
			return "Mon", true
		}

		return "Monday", true
	case 'H':
		return "15", true
	case 'h':
		if n == 1 {
			return "3", true
		}

		return "03", true
	case 'm':
		if n == 1 {
			return "4", true
		}

		return "04", true
	case 's':
		if n == 1 {
			return "5", true
		}

		return "05", true
	case 'S':
		return strings.Repeat("0", n), true
	case 'a':
		return "PM", true
	case 'z':
		return "MST", true
	case 'Z':
		return "-0700", true
	case 'X':
		return "Z07:00", true
	}

	return "", false
}
