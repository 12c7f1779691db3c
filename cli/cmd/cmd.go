package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
)

// contextKey stores a [kong.Context] in a [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type outputKey struct{}

// WithOutput returns a new context.Context whose commands write their
// results to w instead of standard output.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

func outputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}

	return os.Stdout
}

// stdin is read by commands given the file name "-".
var stdin io.Reader = os.Stdin

// fileKey identifies a file by its device and inode numbers, so the same
// file reached through symlinks or different relative paths is seen once.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the file name that selects standard input.
const stdinSource = "-"

// uniqueFiles returns paths without duplicates, keeping the first
// occurrence of each file. Every "-" collapses into one stdin entry placed
// last. Paths that can't be resolved are kept so that opening them reports
// the error.
func uniqueFiles(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}

	out := make([]string, 0, len(paths))
	seen := make(map[fileKey]struct{}, len(paths))
	stdin := false

	for _, p := range paths {
		if p == stdinSource {
			stdin = true

			continue
		}

		key, ok := resolveFileKey(p)
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}
		}

		out = append(out, p)
	}

	if stdin {
		out = append(out, stdinSource)
	}

	return out
}

func resolveFileKey(path string) (fileKey, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fileKey{}, false
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fileKey{}, false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return fileKey{}, false
	}

	return makeFileKey(info)
}

// makeFileKey reports false if info doesn't carry a *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}

// cutSetting splits "name=value" at the first "=".
func cutSetting(s string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(s, "=")
	name = strings.TrimSpace(name)

	return name, strings.TrimSpace(value), ok && name != ""
}
