package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLogger_Make_DefaultConfiguration(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf)

	if logger.Level() != LevelInfo {
		t.Errorf("expected default level info, got %v", logger.Level())
	}
	if logger.caller {
		t.Error("expected caller disabled by default")
	}
	if logger.Format() != FormatJSON {
		t.Errorf("expected default format json, got %v", logger.Format())
	}
}

func TestLogger_Make_WithLevel_FiltersMessages(t *testing.T) {
	tests := []struct {
		level  Level
		logged []string
	}{
		{LevelTrace, []string{"trace", "debug", "info", "warn", "error"}},
		{LevelDebug, []string{"debug", "info", "warn", "error"}},
		{LevelWarn, []string{"warn", "error"}},
		{LevelError, []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := Make(&buf, WithLevel(tt.level), WithPretty(false))

			logger.Trace("trace")
			logger.Debug("debug")
			logger.Info("info")
			logger.Warn("warn")
			logger.Error("error")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != len(tt.logged) {
				t.Fatalf("expected %d lines, got %d: %s", len(tt.logged), len(lines), buf.String())
			}

			for i, line := range lines {
				var rec map[string]any
				if err := json.Unmarshal([]byte(line), &rec); err != nil {
					t.Fatalf("line %d is not JSON: %v", i, err)
				}

				if rec["msg"] != tt.logged[i] {
					t.Errorf("line %d: expected msg %q, got %v", i, tt.logged[i], rec["msg"])
				}

				if rec["level"] != strings.ToUpper(tt.logged[i]) {
					t.Errorf("line %d: expected level %q, got %v", i, strings.ToUpper(tt.logged[i]), rec["level"])
				}
			}
		})
	}
}

func TestLogger_Make_WithFormat_SetsOutputFormat(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithFormat(FormatText), WithPretty(false)).Info("hello", slog.String("k", "v"))

	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "k=v") {
		t.Errorf("expected text output, got: %s", out)
	}

	buf.Reset()
	Make(&buf, WithFormat(FormatJSON), WithPretty(false)).Info("hello", slog.String("k", "v"))

	if !json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("expected JSON output, got: %s", buf.String())
	}
}

func TestLogger_Make_WithCaller_IncludesSource(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithCaller(true), WithPretty(false)).Info("where")

	if !strings.Contains(buf.String(), "log_test.go") {
		t.Errorf("expected source of the caller, got: %s", buf.String())
	}

	buf.Reset()
	Make(&buf, WithPretty(false)).Info("where")

	if strings.Contains(buf.String(), "source") {
		t.Errorf("expected no source, got: %s", buf.String())
	}
}

func TestLogger_Pretty_WritesOutput(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatText} {
		t.Run(format.String(), func(t *testing.T) {
			var buf bytes.Buffer

			Make(&buf, WithFormat(format), WithPretty(true)).
				Info("pretty", slog.String("template", "page.ftlh"), slog.Int("line", 3))

			out := buf.String()
			for _, want := range []string{"pretty", "template", "page.ftlh"} {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output, got: %s", want, out)
				}
			}
		})
	}
}

func TestLogger_With_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithPretty(false)).With(slog.String("template", "a.ftl"))
	logger.Info("rendered")

	if !strings.Contains(buf.String(), `"template":"a.ftl"`) {
		t.Errorf("expected attribute in output, got: %s", buf.String())
	}
}

func TestLogger_Wrap_OverridesConfiguration(t *testing.T) {
	var buf bytes.Buffer

	base := Make(&buf, WithLevel(LevelError), WithPretty(false))
	wrapped := base.Wrap(WithLevel(LevelDebug))

	base.Debug("hidden")
	wrapped.Debug("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %s", out)
	}

	if base.Level() != LevelError {
		t.Errorf("expected base level unchanged, got %v", base.Level())
	}
}

func TestLogger_ZeroValue_Safety(t *testing.T) {
	var logger Logger

	logger.Trace("nothing")
	logger.Info("nothing")
	logger.ErrorContext(context.Background(), "nothing")

	if logger.Enabled(context.Background(), LevelError) {
		t.Error("expected zero logger to be disabled")
	}

	if logger.Level() != DefaultLevel || logger.Format() != DefaultFormat {
		t.Error("expected defaults from zero logger")
	}

	if got := logger.With(slog.String("k", "v")); got.Logger != nil {
		t.Error("expected With on zero logger to stay zero")
	}
}

func TestLogger_ConcurrentCalls_ThreadSafe(t *testing.T) {
	var (
		buf bytes.Buffer
		mu  sync.Mutex
		wg  sync.WaitGroup
	)

	logger := Make(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()

		return buf.Write(p)
	}), WithPretty(false))

	for i := range 20 {
		wg.Go(func() {
			logger.With(slog.Int("worker", i)).Info("concurrent")
		})
	}

	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Errorf("expected 20 lines, got %d", len(lines))
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// stripColor removes the ANSI escapes of the pretty handler.
func stripColor(s string) string {
	for _, c := range []string{
		colorReset, colorGray, colorRed, colorGreen,
		colorYellow, colorBlue, colorMagenta, colorCyan,
	} {
		s = strings.ReplaceAll(s, c, "")
	}

	return s
}

type failure struct{ template string }

func (f failure) LogValue() slog.Value {
	return slog.GroupValue(slog.String("template", f.template), slog.Int("line", 2))
}

func TestLogger_PrettyText_GroupsAndValuers(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithFormat(FormatText), WithTimeLayout("none"))
	logger.Logger = logger.Logger.WithGroup("render")
	logger.Error("failed", slog.Any("error", failure{"page.ftlh"}), slog.Bool("ok", false))

	got := stripColor(strings.TrimSpace(buf.String()))
	want := "level=ERROR msg=failed render.error.template=page.ftlh render.error.line=2 render.ok=false"

	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestLogger_PrettyJSON_Nested(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithTimeLayout("kitchen")).Info("done",
		slog.Group("stats", slog.Int("nodes", 3)),
		slog.Group("empty"),
	)

	got := stripColor(buf.String())

	for _, want := range []string{"  level: INFO,\n", "  stats: {\n    nodes: 3\n  }\n}\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}

	if strings.Contains(got, "empty") {
		t.Errorf("empty group was written:\n%s", got)
	}

	if !strings.Contains(got, "M,\n") {
		t.Errorf("expected a kitchen timestamp, got:\n%s", got)
	}
}
