package log_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/ftl/lang"
	"github.com/ardnew/ftl/log"
)

func Example_basic() {
	logger := log.Make(os.Stdout)
	logger.Info("rendering started", slog.String("template", "page.ftlh"))
}

func Example_configuration() {
	logger := log.Make(os.Stdout,
		log.WithLevel(log.LevelDebug),
		log.WithTimeLayout("RFC3339Nano"),
		log.WithCaller(true))

	logger.Debug("debug message with caller info")
}

func Example_textFormat() {
	logger := log.Make(os.Stdout, log.WithFormat(log.FormatText), log.WithPretty(false))
	logger.Warn("unknown setting", slog.String("setting", "localle"))
}

func Example_templateEngine() {
	logger := log.Make(os.Stderr, log.WithLevel(log.LevelTrace), log.WithPretty(false))

	tmpl, err := lang.Parse("hello.ftl", "Hello ${name}!", lang.WithLogger(logger))
	if err != nil {
		logger.Error("parse failed", slog.Any("error", err))

		return
	}

	_ = tmpl.Render(context.Background(), os.Stdout, map[string]any{"name": "World"})
	// Output: Hello World!
}
