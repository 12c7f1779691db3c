package log

import (
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"info+2", LevelInfo + 2},
		{"bogus", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelTrace, "trace"},
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LevelInfo + 2, "info+2"},
		{LevelError + 4, "error+4"},
		{LevelTrace - 1, "trace-1"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLevels_RoundTrip(t *testing.T) {
	n := 0

	for name := range Levels() {
		if ParseLevel(name).String() != name {
			t.Errorf("level %q does not round-trip", name)
		}

		n++
	}

	if n != 5 {
		t.Errorf("expected 5 levels, got %d", n)
	}
}

func TestParseFormat(t *testing.T) {
	for name := range Formats() {
		if ParseFormat(name).String() != name {
			t.Errorf("format %q does not round-trip", name)
		}
	}

	if ParseFormat(" TEXT ") != FormatText {
		t.Error("expected case-insensitive format names")
	}

	if ParseFormat("xml") != DefaultFormat {
		t.Error("expected default format for unknown names")
	}
}

func TestConfig_formatTime(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 120_000_000, time.UTC)

	tests := []struct {
		layout string
		want   string
	}{
		{"RFC3339", "2024-03-05T14:07:09Z"},
		{"rfc3339nano", "2024-03-05T14:07:09.12Z"},
		{"Kitchen", "2:07PM"},
		{"ms", "Mar  5 14:07:09.120"},
		{"2006/01/02", "2024/03/05"},
		{"", ""},
		{"none", ""},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			if got := makeFormatTimeFunc(tt.layout)(ts); got != tt.want {
				t.Errorf("layout %q: got %q, want %q", tt.layout, got, tt.want)
			}
		})
	}
}

func TestConfig_Options(t *testing.T) {
	c := makeConfig(nil,
		WithLevel(LevelDebug),
		WithFormat(FormatText),
		WithCaller(true),
		WithPretty(false),
	)

	if c.level != LevelDebug || c.format != FormatText || !c.caller || c.pretty {
		t.Errorf("options not applied: %+v", c)
	}

	if c.output == nil {
		t.Error("expected a nil writer to be replaced")
	}

	d := c.clone(WithLevel(LevelError))
	if d.level != LevelError || c.level != LevelDebug {
		t.Error("expected clone to leave the original unchanged")
	}

	if d.mutex == c.mutex {
		t.Error("expected clone to get its own mutex")
	}
}
