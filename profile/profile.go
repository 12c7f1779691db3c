package profile

import (
	"context"
	"runtime/pprof"
)

// Profiler selects a profiling mode and the directory its output goes to.
type Profiler struct {
	Mode  string
	Path  string
	Quiet bool
}

// Stopper stops a running profile and flushes its output.
type Stopper interface{ Stop() }

// Start begins profiling. It returns a no-op when Mode is empty or unknown,
// or when the pprof build tag is unset. Stop is always safe to call.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

// Do calls fn with the pprof label "template" set to name.
func Do(ctx context.Context, name string, fn func(context.Context) error) error {
	var err error

	pprof.Do(ctx, pprof.Labels("template", name), func(ctx context.Context) {
		err = fn(ctx)
	})

	return err
}

type ignore struct{}

func (ignore) Stop() {}
