package cli

import (
	"slices"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func TestLoadYAMLFlattens(t *testing.T) {
	r, err := loadYAML(strings.NewReader(`
log:
  level: debug
  time_layout: RFC3339
render:
  locale: de_DE
count: 3
ratio: 0.5
tags: [a, 2]
`))
	if err != nil {
		t.Fatal(err)
	}

	cfg, ok := r.(config)
	if !ok {
		t.Fatalf("loadYAML returned %T, want config", r)
	}

	want := map[string]any{
		"log-level":       "debug",
		"log-time-layout": "RFC3339",
		"render-locale":   "de_DE",
		"count":           "3",
		"ratio":           "0.5",
	}

	for k, v := range want {
		if cfg[k] != v {
			t.Errorf("config[%q] = %#v, want %#v", k, cfg[k], v)
		}
	}

	tags, ok := cfg["tags"].([]any)
	if !ok || !slices.Equal(tags, []any{"a", "2"}) {
		t.Errorf("config[tags] = %#v, want [a 2]", cfg["tags"])
	}
}

func TestLoadYAMLEmpty(t *testing.T) {
	r, err := loadYAML(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}

	if cfg, _ := r.(config); len(cfg) != 0 {
		t.Errorf("empty file gave %v", cfg)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	if _, err := loadYAML(strings.NewReader("a: [b")); err == nil {
		t.Error("loadYAML accepted malformed YAML")
	}
}

type resolverCLI struct {
	Level string `default:"info" name:"log-level"`

	Render struct {
		Locale string `short:"l"`
	} `cmd:""`

	Eval struct {
		Locale string
	} `cmd:""`
}

func TestConfigResolve(t *testing.T) {
	r, err := loadYAML(strings.NewReader(`
log:
  level: warn
locale: en_US
render:
  locale: de_DE
`))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		args       []string
		wantLevel  string
		wantLocale func(*resolverCLI) string
		want       string
	}{
		{
			"command qualified",
			[]string{"render"},
			"warn",
			func(c *resolverCLI) string { return c.Render.Locale },
			"de_DE",
		},
		{
			"bare flag",
			[]string{"eval"},
			"warn",
			func(c *resolverCLI) string { return c.Eval.Locale },
			"en_US",
		},
		{
			"command line wins",
			[]string{"--log-level=error", "render", "-l", "fr_FR"},
			"error",
			func(c *resolverCLI) string { return c.Render.Locale },
			"fr_FR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c resolverCLI

			parser, err := kong.New(&c, kong.Resolvers(r), kong.Exit(func(int) {}))
			if err != nil {
				t.Fatal(err)
			}

			if _, err := parser.Parse(tt.args); err != nil {
				t.Fatal(err)
			}

			if c.Level != tt.wantLevel {
				t.Errorf("level = %q, want %q", c.Level, tt.wantLevel)
			}

			if got := tt.wantLocale(&c); got != tt.want {
				t.Errorf("locale = %q, want %q", got, tt.want)
			}
		})
	}
}
