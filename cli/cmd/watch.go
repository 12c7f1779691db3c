package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ardnew/ftl/log"
)

// debounce is how long watch waits for file events to settle before it
// renders again.
var debounce = 100 * time.Millisecond

const watchOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// watch calls render once, then again after each change to one of paths,
// until ctx is done. Render errors are logged and don't stop the watch.
//
// The parent directories are watched rather than the files, so editors
// that save by replacing the file are seen too.
func watch(ctx context.Context, render func(context.Context) error, paths ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer w.Close()

	files := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{}, len(paths))

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return ErrWatch.Wrap(err).With(slog.String("file", p))
		}

		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return ErrWatch.Wrap(err).With(slog.String("dir", dir))
		}
	}

	run := func() {
		if err := render(ctx); err != nil {
			log.ErrorContext(ctx, "render failed", slog.Any("error", err))
		}
	}

	run()

	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if _, watched := files[filepath.Clean(ev.Name)]; !watched || ev.Op&watchOps == 0 {
				continue
			}

			log.TraceContext(ctx, "file changed",
				slog.String("file", ev.Name),
				slog.String("op", ev.Op.String()),
			)

			settle = time.After(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			log.WarnContext(ctx, "watch error", slog.Any("error", err))

		case <-settle:
			settle = nil

			run()
		}
	}
}
