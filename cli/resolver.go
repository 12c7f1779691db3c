package cli

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// loadYAML is a [kong.ConfigurationLoader] for YAML configuration files.
//
// Nested mappings are flattened by joining keys with "-", so the file
//
//	log:
//	  level: debug
//	  pretty: false
//	render:
//	  locale: de_DE
//
// sets --log-level, --no-log-pretty and --locale for the render command.
// Keys may use "_" in place of "-". Flags given on the command line take
// precedence over the file.
func loadYAML(r io.Reader) (kong.Resolver, error) {
	var doc map[string]any

	err := yaml.NewDecoder(r).Decode(&doc)
	if err != nil {
		if err == io.EOF {
			return config{}, nil
		}

		return nil, ErrConfig.Wrap(err)
	}

	cfg := config{}
	cfg.flatten("", doc)

	return cfg, nil
}

// config implements [kong.Resolver] over flattened configuration keys.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver]. A key qualified by the command path
// wins over a bare flag name.
func (c config) Resolve(
	ktx *kong.Context,
	parent *kong.Path,
	flag *kong.Flag,
) (any, error) {
	for _, key := range c.keys(ktx, flag) {
		if v, ok := c[key]; ok {
			return v, nil
		}
	}

	return nil, nil
}

func (c config) keys(ktx *kong.Context, flag *kong.Flag) []string {
	keys := make([]string, 0, 2)

	if ktx != nil {
		if cmd := ktx.Selected(); cmd != nil {
			keys = append(keys, normalizeKey(cmd.Name+"-"+flag.Name))
		}
	}

	return append(keys, normalizeKey(flag.Name))
}

func (c config) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		key := normalizeKey(k)
		if prefix != "" {
			key = prefix + "-" + key
		}

		if sub, ok := v.(map[string]any); ok {
			c.flatten(key, sub)

			continue
		}

		c[key] = flagValue(v)
	}
}

// flagValue converts decoded YAML scalars to the forms kong's mappers
// accept: numbers become strings, sequences become []any of the same.
func flagValue(v any) any {
	switch v := v.(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = flagValue(e)
		}

		return out
	default:
		return v
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", "-"))
}

func (c config) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(c))
	for k, v := range c {
		attrs = append(attrs, slog.Any(k, v))
	}

	return slog.GroupValue(attrs...)
}
