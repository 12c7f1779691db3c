package repl

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/ardnew/ftl/lang"
	"github.com/ardnew/ftl/log"
	value "github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/truncate"
)

// previewLength is the width of the value previews shown by "list".
const previewLength = 40

// Session is the state shared by the inputs of a REPL: the data model and
// the engine options expressions are evaluated with.
type Session struct {
	data   map[string]any
	opts   []lang.Option
	logger log.Logger
}

// NewSession returns a session over the variables of data.
func NewSession(data map[string]any, logger log.Logger, opts ...lang.Option) *Session {
	if data == nil {
		data = map[string]any{}
	}

	return &Session{
		data:   data,
		opts:   append(slices.Clip(opts), lang.WithLogger(logger)),
		logger: logger,
	}
}

// Eval evaluates the expression src.
func (s *Session) Eval(ctx context.Context, src string) (value.Value, error) {
	x, err := lang.ParseExpression(src, s.opts...)
	if err != nil {
		return nil, err
	}

	return x.Eval(ctx, s.data)
}

// Render parses src as a template and renders it.
func (s *Session) Render(ctx context.Context, name, src string) (string, error) {
	tmpl, err := lang.Parse(name, src, s.opts...)
	if err != nil {
		return "", err
	}

	return tmpl.RenderString(ctx, s.data)
}

// Set binds the top-level variable name to v.
func (s *Session) Set(name string, v value.Value) error {
	if !validName(name) {
		return ErrInvalidName.With(slog.String("name", name))
	}

	s.data[name] = v

	return nil
}

// validName reports whether name can be referenced in an expression.
func validName(name string) bool {
	for i, r := range name {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}

	return name != ""
}

// Names returns the top-level variable names in order.
func (s *Session) Names() []string {
	names := make([]string, 0, len(s.data))
	for k := range s.data {
		names = append(names, k)
	}

	slices.Sort(names)

	return names
}

// Members returns the keys of the hash that the dotted path names, or nil
// when path doesn't name an enumerable hash.
func (s *Session) Members(ctx context.Context, path string) []string {
	if path == "" {
		return s.Names()
	}

	v, err := s.Eval(ctx, path)
	if err != nil {
		return nil
	}

	if h, ok := v.(value.HashEx); ok {
		return h.Keys()
	}

	return nil
}

// Preview returns a one-line description of the variable name.
func (s *Session) Preview(ctx context.Context, name string) string {
	v, err := s.Eval(ctx, name)
	if err != nil {
		return "<" + err.Error() + ">"
	}

	text := lang.Inspect(v)
	text = strings.Join(strings.Fields(text), " ")

	short, err := truncate.Unicode.TruncateC(text, previewLength, truncate.Terminator{})
	if err != nil {
		return text
	}

	return short
}
