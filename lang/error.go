package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/ftl/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrParse             = pkg.NewError("parse error")
	ErrUnknownBuiltin    = pkg.NewError("unknown built-in")
	ErrMaxDepthExceeded  = pkg.NewError("maximum nesting depth exceeded")
	ErrUndefinedVariable = pkg.NewError("undefined variable")
	ErrUnexpectedType    = pkg.NewError("unexpected type")
	ErrStackOverflow     = pkg.NewError("maximum call depth exceeded")
	ErrTemplate          = pkg.NewError("template error")
	ErrInvalidArgument   = pkg.NewError("invalid argument")
	ErrInvalidSetting    = pkg.NewError("invalid setting")
	ErrStopped           = pkg.NewError("template stopped")
	ErrCanceled          = pkg.NewError("render canceled")
)

// Position locates a node in the template source.
type Position struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line"   yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// String returns the position as "line:column".
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// ParseError reports malformed template source. Parsing stops at the first
// error.
type ParseError struct {
	Template string
	Line     int
	Column   int
	Message  string
	Source   string // The template source, used by Detail
	Err      error  // The sentinel cause
}

func newParseError(name, source string, pos Position, cause *pkg.Error, format string, args ...any) *ParseError {
	return &ParseError{
		Template: name,
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  fmt.Sprintf(format, args...),
		Source:   source,
		Err:      cause,
	}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var buf strings.Builder

	buf.WriteString("parse error")

	if e.Template != "" {
		buf.WriteString(" in template ")
		buf.WriteString(strconv.Quote(e.Template))
	}

	buf.WriteString(" at line ")
	buf.WriteString(strconv.Itoa(e.Line))
	buf.WriteString(", column ")
	buf.WriteString(strconv.Itoa(e.Column))
	buf.WriteString(": ")
	buf.WriteString(e.Message)

	return buf.String()
}

// Detail returns the error followed by the offending source line and a
// caret marking the column.
func (e *ParseError) Detail() string {
	return e.Error() + "\n" + snippet(e.Source, e.Line, e.Column)
}

// Unwrap returns the sentinel cause.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is [ErrParse].
func (e *ParseError) Is(target error) bool { return target == error(ErrParse) }

// LogValue implements slog.LogValuer.
func (e *ParseError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Message),
		slog.String("template", e.Template),
		slog.Int("line", e.Line),
		slog.Int("column", e.Column),
	)
}

// TemplateError is a failure while rendering. Output written before the
// failure stays written.
type TemplateError struct {
	Template string
	Position Position
	Cause    error
	Source   string // The template source, used by Detail
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	var buf strings.Builder

	buf.WriteString("error")

	if e.Template != "" {
		buf.WriteString(" in template ")
		buf.WriteString(strconv.Quote(e.Template))
	}

	buf.WriteString(" at line ")
	buf.WriteString(strconv.Itoa(e.Position.Line))
	buf.WriteString(", column ")
	buf.WriteString(strconv.Itoa(e.Position.Column))

	if e.Cause != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Cause.Error())
	}

	return buf.String()
}

// Detail returns the error followed by the failing source line and a caret
// marking the column.
func (e *TemplateError) Detail() string {
	return e.Error() + "\n" + snippet(e.Source, e.Position.Line, e.Position.Column)
}

// Unwrap returns the cause.
func (e *TemplateError) Unwrap() error { return e.Cause }

// Is reports whether target is [ErrTemplate].
func (e *TemplateError) Is(target error) bool { return target == error(ErrTemplate) }

// LogValue implements slog.LogValuer.
func (e *TemplateError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("template", e.Template),
		slog.Int("line", e.Position.Line),
		slog.Int("column", e.Position.Column),
	}

	var pe *pkg.Error
	if errors.As(e.Cause, &pe) {
		attrs = append(attrs, slog.Any("cause", pe))
	} else if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}

	return slog.GroupValue(attrs...)
}

// snippet renders the source line at line with a caret under column.
func snippet(source string, line, column int) string {
	lines := strings.Split(source, "\n")
	if line <= 0 || line > len(lines) {
		return ""
	}

	var src strings.Builder

	text := strings.TrimRight(lines[line-1], "\r")

	src.WriteString("  ")
	src.WriteString(strconv.Itoa(line))
	src.WriteString(" | ")
	src.WriteString(text)
	src.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", len(strconv.Itoa(line))+5)

	if column > 0 {
		// Keep tabs so the caret lines up in terminals.
		for i, r := range []rune(text) {
			if i >= column-1 {
				break
			}

			if r == '\t' {
				padding += "\t"
			} else {
				padding += " "
			}
		}
	}

	src.WriteString(padding + "^\n")

	return src.String()
}
