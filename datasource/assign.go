package datasource

import (
	"log/slog"
	"os"
	"strings"

	"github.com/expr-lang/expr"
)

// Assign evaluates an assignment of the form "name=expression" and sets the
// variable name to the result. The expression sees the variables set so
// far and the function env(key), which returns an environment variable.
func (m *Model) Assign(assignment string) error {
	name, src, ok := cutAssignment(assignment)
	if !ok {
		return ErrAssignment.With(slog.String("assignment", assignment))
	}

	if !validName(name) {
		return ErrInvalidName.With(slog.String("name", name))
	}

	v, err := m.Eval(src)
	if err != nil {
		return err
	}

	m.Set(name, v)

	m.logger.Debug("assigned variable",
		slog.String("name", name),
		slog.String("expression", src),
	)

	return nil
}

// Eval evaluates the expr-lang expression src against the variables set so
// far.
func (m *Model) Eval(src string) (any, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrAssignment.With(slog.String("expression", src))
	}

	env := m.exprEnv()

	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return nil, ErrExpression.Wrap(err).With(slog.String("expression", src))
	}

	v, err := expr.Run(program, env)
	if err != nil {
		return nil, ErrExpression.Wrap(err).With(slog.String("expression", src))
	}

	return v, nil
}

func (m *Model) exprEnv() map[string]any {
	env := make(map[string]any, len(m.vars)+1)
	env["env"] = os.Getenv

	for k, v := range m.vars {
		env[k] = host(v)
	}

	return env
}

// cutAssignment splits "name=value" at the first "=".
func cutAssignment(s string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(s, "=")

	return strings.TrimSpace(name), value, ok
}
