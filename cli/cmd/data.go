package cmd

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/ardnew/ftl/datasource"
	"github.com/ardnew/ftl/log"
)

// Data holds the flags that build the data model of a command.
type Data struct {
	Files []string `help:"YAML or JSON data model file, or '-' for stdin"    name:"data" placeholder:"FILE"      short:"d" type:"path"`
	Set   []string `help:"Set a variable to an expr-lang expression"         name:"set"  placeholder:"NAME=EXPR"            sep:"none"`
	SQL   []string `help:"Bind a variable to the rows of a SQL query (--db)" name:"sql"  placeholder:"NAME=QUERY"           sep:"none"`
	DB    string   `help:"SQLite data source name for --sql"                 name:"db"   placeholder:"DSN"`
}

// load builds the data model: files first, then --sql bindings, then --set
// assignments, which may refer to the variables loaded before them. The
// returned function closes the database and must be called once the model
// is no longer rendered.
func (d *Data) load(ctx context.Context) (*datasource.Model, func(), error) {
	logger := log.Default()
	closer := func() {}

	opts := []datasource.Option{datasource.WithLogger(logger)}

	if len(d.SQL) > 0 {
		if d.DB == "" {
			return nil, closer, ErrNoDatabase
		}

		db, err := datasource.Open(ctx, d.DB)
		if err != nil {
			return nil, closer, err
		}

		closer = func() { closeDB(ctx, db) }
		opts = append(opts, datasource.WithDatabase(db))
	}

	m := datasource.New(opts...)

	for _, f := range uniqueFiles(d.Files) {
		if err := m.LoadFile(f); err != nil {
			closer()

			return nil, func() {}, err
		}
	}

	for _, q := range d.SQL {
		if err := m.QueryAssignment(ctx, q); err != nil {
			closer()

			return nil, func() {}, err
		}
	}

	for _, s := range d.Set {
		if err := m.Assign(s); err != nil {
			closer()

			return nil, func() {}, err
		}
	}

	return m, closer, nil
}

// paths returns the data files that exist on disk.
func (d *Data) paths() []string {
	out := make([]string, 0, len(d.Files))

	for _, f := range uniqueFiles(d.Files) {
		if f != stdinSource {
			out = append(out, f)
		}
	}

	return out
}

func closeDB(ctx context.Context, db *sql.DB) {
	if err := db.Close(); err != nil {
		log.WarnContext(ctx, "close database", slog.Any("error", err))
	}
}
