package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/ftl/lang"
	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/model"
)

// Eval evaluates a template expression against a data model.
type Eval struct {
	Expr string `arg:"" help:"Template expression to evaluate" name:"expr"`

	Data `embed:""`

	Raw bool `help:"Print strings and markup without quoting" short:"r"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	x, err := lang.ParseExpression(e.Expr, lang.WithLogger(log.Default()))
	if err != nil {
		return err
	}

	data, closeData, err := e.load(ctx)
	if err != nil {
		return err
	}
	defer closeData()

	v, err := x.Eval(ctx, data.Vars())
	if err != nil {
		return err
	}

	log.DebugContext(ctx, "evaluated expression",
		slog.String("expr", x.String()),
		slog.String("type", model.Describe(v)),
	)

	_, err = fmt.Fprintln(outputFrom(ctx), e.display(v))

	return err
}

func (e *Eval) display(v model.Value) string {
	if e.Raw {
		switch x := v.(type) {
		case model.MarkupValue:
			return x.Markup().MarkupString()
		case model.Scalar:
			if s, err := x.AsString(); err == nil {
				return s
			}
		}
	}

	return lang.Inspect(v)
}
