package datasource

import (
	"database/sql"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/model"
)

// Model is a data model under construction. It is not safe for concurrent
// modification; the map returned by [Model.Vars] may be shared by
// concurrent renderings once loading is done.
type Model struct {
	vars   map[string]any
	order  []string
	db     *sql.DB
	logger log.Logger
}

// Option configures a [Model].
type Option func(*Model)

// WithLogger sets the logger that reports loaded sources.
func WithLogger(l log.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithDatabase sets the database used by [Model.Query].
func WithDatabase(db *sql.DB) Option {
	return func(m *Model) { m.db = db }
}

// New returns an empty model.
func New(opts ...Option) *Model {
	m := &Model{vars: map[string]any{}}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Set defines the variable name.
func (m *Model) Set(name string, v any) {
	if _, ok := m.vars[name]; !ok {
		m.order = append(m.order, name)
	}

	m.vars[name] = v
}

// Get returns the variable name.
func (m *Model) Get(name string) (any, bool) {
	v, ok := m.vars[name]

	return v, ok
}

// Names returns the variable names in the order they were first set.
func (m *Model) Names() []string { return slices.Clone(m.order) }

// Vars returns a copy of the variables.
func (m *Model) Vars() map[string]any { return maps.Clone(m.vars) }

// LoadFile merges the mapping decoded from the file at path. The name "-"
// reads standard input. JSON is decoded as the YAML subset it is.
func (m *Model) LoadFile(path string) error {
	if path == "-" {
		return m.LoadReader("<stdin>", os.Stdin)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ErrLoadData.Wrap(err).With(slog.String("file", path))
	}
	defer f.Close()

	return m.LoadReader(path, f)
}

// LoadReader merges the mapping decoded from r, naming it name in errors.
func (m *Model) LoadReader(name string, r io.Reader) error {
	var doc any

	err := yaml.NewDecoder(r, yaml.UseOrderedMap()).Decode(&doc)
	if err == io.EOF {
		return nil
	}

	if err != nil {
		return ErrLoadData.Wrap(err).With(slog.String("file", name))
	}

	ms, ok := doc.(yaml.MapSlice)
	if !ok {
		return ErrNotMapping.With(slog.String("file", name))
	}

	for _, item := range ms {
		key, ok := item.Key.(string)
		if !ok {
			return ErrNotMapping.With(
				slog.String("file", name),
				slog.Any("key", item.Key),
			)
		}

		v, err := plain(item.Value)
		if err != nil {
			return ErrLoadData.Wrap(err).With(
				slog.String("file", name),
				slog.String("key", key),
			)
		}

		m.Set(key, v)
	}

	m.logger.Debug("loaded data file",
		slog.String("file", name),
		slog.Int("vars", len(ms)),
	)

	return nil
}

// plain converts ordered YAML mappings to [model.Map] values so templates
// list their keys in file order.
func plain(v any) (any, error) {
	switch v := v.(type) {
	case yaml.MapSlice:
		h := model.NewMap(len(v))
		for _, item := range v {
			e, err := plain(item.Value)
			if err != nil {
				return nil, err
			}

			ev, err := model.Wrap(e)
			if err != nil {
				return nil, err
			}

			h.Set(toKey(item.Key), ev)
		}

		return h, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			var err error
			if out[i], err = plain(e); err != nil {
				return nil, err
			}
		}

		return out, nil
	default:
		return v, nil
	}
}

// host converts model values back to the Go values expr-lang understands.
func host(v any) any {
	switch v := v.(type) {
	case *model.Collection:
		return v
	case model.Value:
		return model.Unwrap(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = host(e)
		}

		return out
	default:
		return v
	}
}

func toKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}

	b, err := yaml.Marshal(k)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(b))
}

// validName reports whether s can be referenced as a top-level variable.
func validName(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r == '$', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}

	return true
}
