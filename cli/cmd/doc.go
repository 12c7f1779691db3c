// Package cmd implements the ftl subcommands: render, eval, ast, init and
// repl.
package cmd

var (
	// CacheIdentifier is the kong variable holding the path to the runtime
	// cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable holding the path to the YAML
	// configuration file.
	ConfigIdentifier = "config"

	// HistoryIdentifier is the kong variable holding the path to the REPL
	// history file.
	HistoryIdentifier = "history"
)
