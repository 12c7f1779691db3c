//go:build pprof

package profile

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/pkg/profile"

	"github.com/ardnew/ftl/pkg"
)

// Modes returns the supported profiling modes in order.
var Modes = sync.OnceValue(
	func() []string {
		return slices.Sorted(maps.Keys(mode))
	},
)

var mode = map[string]func(*profile.Profile){
	"block":     profile.BlockProfile,
	"cpu":       profile.CPUProfile,
	"clock":     profile.ClockProfile,
	"goroutine": profile.GoroutineProfile,
	"mem":       profile.MemProfile,
	"allocs":    profile.MemProfileAllocs,
	"heap":      profile.MemProfileHeap,
	"mutex":     profile.MutexProfile,
	"thread":    profile.ThreadcreationProfile,
	"trace":     profile.TraceProfile,
}

// running is set while a profile is active; pkg/profile allows only one.
var running atomic.Bool

type control struct {
	mode []func(*profile.Profile)
}

func start(p Profiler) Stopper {
	c := pkg.Apply(control{}, withMode(p.Mode))
	if len(c.mode) == 0 || !running.CompareAndSwap(false, true) {
		return ignore{}
	}

	c = pkg.Apply(c, withPath(p.Path), withQuiet(p.Quiet))

	return &stopper{Stopper: profile.Start(c.mode...)}
}

type stopper struct {
	Stopper
	once sync.Once
}

func (s *stopper) Stop() {
	s.once.Do(func() {
		s.Stopper.Stop()
		running.Store(false)
	})
}

func withMode(m string) pkg.Option[control] {
	return func(c control) control {
		if fn, ok := mode[m]; ok {
			c.mode = append(c.mode, fn)
		}

		return c
	}
}

func withPath(p string) pkg.Option[control] {
	return func(c control) control {
		if p != "" {
			c.mode = append(c.mode, profile.ProfilePath(p))
		}

		return c
	}
}

func withQuiet(v bool) pkg.Option[control] {
	return func(c control) control {
		if v {
			c.mode = append(c.mode, profile.Quiet)
		}

		return c
	}
}
