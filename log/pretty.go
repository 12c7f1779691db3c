package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ANSI color codes for pretty printing.
const (
	colorReset   = "\033[0m"
	colorGray    = "\033[90m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// errorKey is the attribute key whose value is highlighted as an error.
const errorKey = "error"

// prettyHandler writes colorized records for a terminal, either as one
// line of key=value pairs or as an indented JSON-like object. Groups become
// dotted keys or nested objects, and [slog.LogValuer] values are expanded,
// so errors print their attributes.
type prettyHandler struct {
	opts   slog.HandlerOptions
	object bool
	mu     *sync.Mutex
	w      io.Writer
	groups []string
	attrs  []slog.Attr // nested under groups
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, object bool) *prettyHandler {
	return &prettyHandler{
		opts:   *opts,
		object: object,
		mu:     &sync.Mutex{},
		w:      w,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, 4+len(h.attrs)+r.NumAttrs())

	if !r.Time.IsZero() {
		attrs = append(attrs, slog.Time(slog.TimeKey, r.Time))
	}

	attrs = append(attrs, slog.String(slog.LevelKey, levelName(r.Level)))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			attrs = append(attrs,
				slog.String(slog.SourceKey, src.File+":"+strconv.Itoa(src.Line)))
		}
	}

	attrs = append(attrs, slog.String(slog.MessageKey, r.Message))
	attrs = append(attrs, h.attrs...)

	own := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)

		return true
	})

	attrs = append(attrs, h.nest(own)...)

	p := prettyRecord{h: h, level: r.Level}
	if h.object {
		p.object(nil, h.expand(nil, attrs))
	} else {
		p.line(nil, h.expand(nil, attrs))
	}

	p.buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(p.buf.Bytes())

	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	c := *h
	c.attrs = append(slices.Clip(h.attrs), c.nest(attrs)...)

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(slices.Clip(h.groups), name)

	return &c
}

// nest wraps attrs in the open groups of h.
func (h *prettyHandler) nest(attrs []slog.Attr) []slog.Attr {
	for i := len(h.groups) - 1; i >= 0 && len(attrs) > 0; i-- {
		attrs = []slog.Attr{{Key: h.groups[i], Value: slog.GroupValue(attrs...)}}
	}

	return attrs
}

// expand resolves and replaces attrs, inlines groups without a key and
// drops empty attributes and groups.
func (h *prettyHandler) expand(groups []string, attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))

	for _, a := range attrs {
		a.Value = a.Value.Resolve()

		if a.Value.Kind() != slog.KindGroup && h.opts.ReplaceAttr != nil {
			a = h.opts.ReplaceAttr(groups, a)
			a.Value = a.Value.Resolve()
		}

		switch {
		case a.Equal(slog.Attr{}):
		case a.Value.Kind() != slog.KindGroup:
			out = append(out, a)
		case a.Key == "":
			out = append(out, h.expand(groups, a.Value.Group())...)
		case len(a.Value.Group()) > 0:
			out = append(out, a)
		}
	}

	return out
}

// prettyRecord is the output of one record.
type prettyRecord struct {
	h     *prettyHandler
	buf   bytes.Buffer
	level slog.Level
}

// line writes attrs as space-separated key=value pairs.
func (p *prettyRecord) line(groups []string, attrs []slog.Attr) {
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindGroup {
			sub := append(slices.Clip(groups), a.Key)
			p.line(sub, p.h.expand(sub, a.Value.Group()))

			continue
		}

		if p.buf.Len() > 0 {
			p.buf.WriteByte(' ')
		}

		p.key(strings.Join(append(slices.Clip(groups), a.Key), "."))
		p.buf.WriteByte('=')
		p.value(groups, a)
	}
}

// object writes attrs as an indented object, one attribute per line.
func (p *prettyRecord) object(groups []string, attrs []slog.Attr) {
	indent := strings.Repeat("  ", len(groups))

	p.buf.WriteString("{\n")

	for i, a := range attrs {
		if i > 0 {
			p.buf.WriteString(",\n")
		}

		p.buf.WriteString(indent + "  ")
		p.key(a.Key)
		p.buf.WriteString(": ")

		if a.Value.Kind() == slog.KindGroup {
			sub := append(slices.Clip(groups), a.Key)
			p.object(sub, p.h.expand(sub, a.Value.Group()))

			continue
		}

		p.value(groups, a)
	}

	p.buf.WriteString("\n" + indent + "}")
}

func (p *prettyRecord) key(k string) {
	p.buf.WriteString(colorGray + k + colorReset)
}

func (p *prettyRecord) value(groups []string, a slog.Attr) {
	v := a.Value
	color, text := colorCyan, ""

	switch v.Kind() {
	case slog.KindString:
		text = v.String()
	case slog.KindInt64:
		color, text = colorYellow, strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		color, text = colorYellow, strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		color, text = colorYellow, strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		color, text = colorRed, "false"
		if v.Bool() {
			color, text = colorGreen, "true"
		}
	case slog.KindDuration:
		color, text = colorMagenta, v.Duration().String()
	case slog.KindTime:
		color, text = colorBlue, v.Time().Format(time.RFC3339Nano)
	default:
		if v.Any() == nil {
			color, text = colorGray, "null"
		} else {
			text = fmt.Sprint(v.Any())
		}
	}

	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			color = colorBlue
		case slog.LevelKey:
			color = levelColor(p.level)
		case errorKey:
			color = colorRed
		}
	}

	p.buf.WriteString(color + text + colorReset)
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorGreen
	case level >= slog.LevelDebug:
		return colorBlue
	default:
		return colorMagenta
	}
}

// levelName is the upper-case name of level, with TRACE below DEBUG.
func levelName(level slog.Level) string {
	return strings.ToUpper(Level(level).String())
}
