package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ardnew/ftl/lang"
	"github.com/ardnew/ftl/log"
)

// AST prints the node tree of a template.
type AST struct {
	Template string `arg:"" help:"Template file, or '-' for stdin"  name:"template"`
	Format   string `default:"text" enum:"text,json,yaml" help:"Output format (${enum})" short:"f"`
	Indent   int    `default:"2"     help:"Indent width; 0 selects compact JSON or flow YAML" short:"i"`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tp, err := lang.ParseTemplatePath(a.Template)
	if err != nil {
		return err
	}

	cache := lang.NewCache(append(tp.Options(), lang.WithLogger(log.Default()))...)

	var tmpl *lang.Template
	if tp.Name == stdinSource {
		tmpl, err = cache.ParseReader(ctx, "<stdin>", stdin)
	} else {
		tmpl, err = parseFile(ctx, cache, tp.Name)
	}

	if err != nil {
		return err
	}

	w := outputFrom(ctx)

	switch strings.ToLower(a.Format) {
	case "json":
		err = tmpl.FormatJSON(ctx, w, a.Indent)
	case "yaml":
		err = tmpl.FormatYAML(ctx, w, a.Indent)
	default:
		err = tmpl.Format(ctx, w, a.Indent)
	}

	if err != nil {
		return ErrFormat.Wrap(err).With(
			slog.String("template", tp.Name),
			slog.String("format", a.Format),
		)
	}

	return nil
}
