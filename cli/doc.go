// Package cli contains the command line interface for ftl.
//
// # Usage
//
// The default command renders a template file with a data model:
//
//	ftl page.ftlh -d data.yaml -o page.html
//	ftl eval 'user.name?upper_case' -d data.yaml
//	ftl ast page.ftl -f yaml
//	ftl repl -d data.yaml
//
// # Configuration
//
// Flag defaults are read from config.yaml (or config.json) in the user
// configuration directory, see [loadYAML] for the key layout. The init
// command writes the current global flag values to that file.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize text output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o ftl .
//
// Then --pprof-mode selects the profile and --pprof-dir its directory
// (default: the pprof directory in the user cache directory).
package cli
