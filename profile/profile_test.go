package profile

import (
	"context"
	"errors"
	"runtime/pprof"
	"testing"
)

func TestProfiler_Start_EmptyModeIsNoop(t *testing.T) {
	ctrl := Profiler{}.Start()
	if _, ok := ctrl.(ignore); !ok {
		t.Fatalf("expected no-op profiler, got %T", ctrl)
	}

	ctrl.Stop()
	ctrl.Stop()
}

func TestProfiler_Start_UnknownModeIsNoop(t *testing.T) {
	ctrl := Profiler{Mode: "nope", Path: t.TempDir(), Quiet: true}.Start()
	if _, ok := ctrl.(ignore); !ok {
		t.Fatalf("expected no-op profiler, got %T", ctrl)
	}
}

func TestDo_SetsTemplateLabel(t *testing.T) {
	want := errors.New("done")

	err := Do(context.Background(), "page.ftlh", func(ctx context.Context) error {
		v, ok := pprof.Label(ctx, "template")
		if !ok || v != "page.ftlh" {
			t.Errorf("expected template label, got %q", v)
		}

		return want
	})

	if !errors.Is(err, want) {
		t.Errorf("expected the error of fn, got %v", err)
	}
}
