package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/ardnew/ftl/lang"
	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/profile"
)

// Render renders a template file with a data model.
type Render struct {
	Template string `arg:"" help:"Template file, optionally followed by ?settings(name=value, ...)" name:"template"`

	Data `embed:""`

	Output   string   `help:"Write output to file, replacing it atomically"        placeholder:"FILE"       short:"o" type:"path"`
	Format   string   `help:"Output format (HTML, XML, RTF, plainText, ...)"        placeholder:"NAME"       short:"f"`
	Locale   string   `help:"Locale used for formatting, like en_US"                placeholder:"TAG"        short:"l"`
	Settings []string `help:"Assign a setting as <#setting> would"    name:"setting" placeholder:"NAME=VALUE"            sep:"none"`
	Watch    bool     `help:"Render again whenever the template or a data file changes"                        short:"w"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tp, err := lang.ParseTemplatePath(r.Template)
	if err != nil {
		return err
	}

	opts, err := r.options(tp)
	if err != nil {
		return err
	}

	cache := lang.NewCache(opts...)

	if !r.Watch {
		return r.render(ctx, cache, tp.Name)
	}

	return watch(ctx, func(ctx context.Context) error {
		return r.render(ctx, cache, tp.Name)
	}, append([]string{tp.Name}, r.paths()...)...)
}

// options returns the engine options: flag settings first, so that the
// settings of the template path override them.
func (r *Render) options(tp lang.TemplatePath) ([]lang.Option, error) {
	var opts []lang.Option

	if r.Format != "" {
		opts = append(opts, lang.WithSetting("output_format", r.Format))
	}

	more, err := settingOptions(r.Locale, r.Settings)
	if err != nil {
		return nil, err
	}

	opts = append(opts, more...)

	return append(opts, tp.Options()...), nil
}

// settingOptions returns the engine options of the --locale and --setting
// flags.
func settingOptions(locale string, settings []string) ([]lang.Option, error) {
	opts := []lang.Option{lang.WithLogger(log.Default())}

	if locale != "" {
		opts = append(opts, lang.WithSetting("locale", locale))
	}

	for _, s := range settings {
		name, value, ok := cutSetting(s)
		if !ok {
			return nil, lang.ErrInvalidSetting.With(slog.String("setting", s))
		}

		opts = append(opts, lang.WithSetting(name, value))
	}

	return opts, nil
}

// render loads the data model, parses the template through cache and writes
// the output.
func (r *Render) render(ctx context.Context, cache *lang.Cache, name string) error {
	started := time.Now()

	data, closeData, err := r.load(ctx)
	if err != nil {
		return err
	}
	defer closeData()

	tmpl, err := parseFile(ctx, cache, name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	err = profile.Do(ctx, tmpl.Name(), func(ctx context.Context) error {
		return tmpl.Render(ctx, &buf, data.Vars())
	})
	if err != nil {
		return err
	}

	if err := r.write(ctx, &buf); err != nil {
		return err
	}

	log.DebugContext(ctx, "rendered",
		slog.String("template", name),
		slog.String("output", r.outputName()),
		slog.Int("bytes", buf.Len()),
		slog.Duration("elapsed", time.Since(started)),
	)

	return nil
}

func (r *Render) write(ctx context.Context, buf *bytes.Buffer) error {
	if r.Output == "" || r.Output == stdinSource {
		if _, err := buf.WriteTo(outputFrom(ctx)); err != nil {
			return ErrWriteOutput.Wrap(err)
		}

		return nil
	}

	if err := atomic.WriteFile(r.Output, buf); err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("file", r.Output))
	}

	return nil
}

func (r *Render) outputName() string {
	if r.Output == "" {
		return "<stdout>"
	}

	return r.Output
}

// parseFile reads the template file name and parses it through cache.
func parseFile(ctx context.Context, cache *lang.Cache, name string) (*lang.Template, error) {
	f, err := os.Open(filepath.Clean(name))
	if err != nil {
		return nil, ErrReadTemplate.Wrap(err).With(slog.String("template", name))
	}
	defer f.Close()

	return cache.ParseReader(ctx, name, f)
}
