// Package log provides the structured logger used across ftl, built on
// [log/slog].
//
// A [Logger] is created with [Make] and configured with functional options
// applied at creation time. The zero Logger discards every message, which
// is what the template engine uses when no logger is given.
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText),
//		log.WithPretty(false))
//
//	tmpl, err := lang.Parse("page.ftlh", src, lang.WithLogger(logger))
//
// # Levels
//
// Below the four [log/slog] levels sits [LevelTrace]. The engine logs one
// Debug record per parse and render and Trace records for cache lookups
// and setting changes, so Trace is meant for diagnosing a single template.
//
// # Package Logger
//
// The functions [Info], [Debug] and friends write to a package logger that
// the command line reconfigures with [Config] once flags are parsed.
// Context-unaware functions use [DefaultContextProvider].
//
// # Output
//
// [FormatJSON] (the default) and [FormatText] are supported, each with an
// optional colorized pretty form selected by [WithPretty]. Timestamps use
// [WithTimeLayout], which accepts the names of the [time] package layouts
// such as "RFC3339Nano", a custom layout, or an empty string to omit them.
package log
