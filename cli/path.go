package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ardnew/ftl/pkg"
)

const (
	// baseConfig is the base name of the configuration files.
	baseConfig = "config"

	// historyFile is the REPL history file in the cache directory.
	historyFile = "history"
)

var defaultDirMode os.FileMode = 0o700

// executableRewrite maps executable name patterns to replacements applied
// by [basePrefix].
var executableRewrite = []struct {
	rex *regexp.Regexp
	rep string
}{
	{regexp.MustCompile(`^__debug_bin\d+$`), pkg.Name}, // dlv default output
	{regexp.MustCompile(`^\.+`), ""},
}

// basePrefix returns the name of the per-user configuration and cache
// directories: the base name of the executable without its extension,
// rewritten by [executableRewrite].
var basePrefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		if exe, err := os.Executable(); err == nil {
			id = exe
		}

		id = filepath.Base(id)
		id = strings.TrimSuffix(id, filepath.Ext(id))

		for _, rw := range executableRewrite {
			id = rw.rex.ReplaceAllString(id, rw.rep)
		}

		if id == "" {
			id = pkg.Name
		}

		return id
	},
)

// userDir joins [basePrefix] to the directory returned by base, falling back
// to fallback under the home directory and finally to the working
// directory.
func userDir(base func() (string, error), fallback string) string {
	dir, err := base()
	if err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			dir = filepath.Join(home, fallback)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, basePrefix())
}

var configDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

var cacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// configPath joins the configuration directory with elem.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}

// cachePath joins the cache directory with elem.
func cachePath(elem ...string) string {
	return filepath.Join(append([]string{cacheDir()}, elem...)...)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{configDir(), cacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return ErrDirectory.Wrap(err)
		}
	}

	return nil
}
