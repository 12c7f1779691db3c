package datasource

import (
	"context"
	"database/sql"
	"iter"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ardnew/ftl/model"
)

// Driver is the database/sql driver name registered by modernc.org/sqlite.
const Driver = "sqlite"

// Open opens the SQLite database named by dsn. Use ":memory:" for a
// private in-memory database. The pool holds one connection so an
// in-memory database is shared by every query.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(Driver, dsn)
	if err != nil {
		return nil, ErrOpenDatabase.Wrap(err).With(slog.String("dsn", dsn))
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, ErrOpenDatabase.Wrap(err).With(slog.String("dsn", dsn))
	}

	return db, nil
}

// Query sets the variable name to a collection of the rows returned by
// query. The query runs again each time the collection is listed, and
// each row is a hash keyed by column name in column order.
func (m *Model) Query(ctx context.Context, name, query string, args ...any) error {
	if m.db == nil {
		return ErrNoDatabase.With(slog.String("name", name))
	}

	if !validName(name) {
		return ErrInvalidName.With(slog.String("name", name))
	}

	db := m.db
	logger := m.logger

	m.Set(name, model.Restartable(func() iter.Seq2[model.Value, error] {
		return rows(ctx, db, query, args, logger.Trace)
	}))

	return nil
}

// QueryAssignment binds a query given as "name=query".
func (m *Model) QueryAssignment(ctx context.Context, assignment string) error {
	name, query, ok := cutAssignment(assignment)
	if !ok {
		return ErrAssignment.With(slog.String("assignment", assignment))
	}

	return m.Query(ctx, name, query)
}

func rows(
	ctx context.Context,
	db *sql.DB,
	query string,
	args []any,
	trace func(string, ...slog.Attr),
) iter.Seq2[model.Value, error] {
	return func(yield func(model.Value, error) bool) {
		started := time.Now()

		rs, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, ErrQuery.Wrap(err).With(slog.String("query", query)))

			return
		}
		defer rs.Close()

		cols, err := rs.Columns()
		if err != nil {
			yield(nil, ErrQuery.Wrap(err).With(slog.String("query", query)))

			return
		}

		count := 0

		for rs.Next() {
			row, err := scanRow(rs, cols)
			if err != nil {
				yield(nil, ErrQuery.Wrap(err).With(slog.String("query", query)))

				return
			}

			count++

			if !yield(row, nil) {
				return
			}
		}

		if err := rs.Err(); err != nil {
			yield(nil, ErrQuery.Wrap(err).With(slog.String("query", query)))

			return
		}

		trace("listed query rows",
			slog.String("query", query),
			slog.Int("rows", count),
			slog.Duration("elapsed", time.Since(started)),
		)
	}
}

func scanRow(rs *sql.Rows, cols []string) (*model.Map, error) {
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))

	for i := range raw {
		dest[i] = &raw[i]
	}

	if err := rs.Scan(dest...); err != nil {
		return nil, err
	}

	row := model.NewMap(len(cols))

	for i, col := range cols {
		if b, ok := raw[i].([]byte); ok {
			raw[i] = string(b)
		}

		v, err := model.Wrap(raw[i])
		if err != nil {
			return nil, err
		}

		row.Set(col, v)
	}

	return row, nil
}
