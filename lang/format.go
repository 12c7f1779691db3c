package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format writes the node tree of the template as indented text, one node
// per line. Scalar fields follow the node type; child nodes are indented
// by indent spaces under the field that holds them.
func (t *Template) Format(_ context.Context, w io.Writer, indent int) error {
	if indent <= 0 {
		indent = 2
	}

	if _, err := fmt.Fprintf(w, "Template %q\n", t.name); err != nil {
		return err
	}

	for _, n := range t.ToMap()["nodes"].([]any) {
		if err := formatNode(w, n, indent, 1); err != nil {
			return err
		}
	}

	return nil
}

// FormatJSON writes the template as JSON to the writer.
func (t *Template) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		jsonData []byte
		err      error
	)

	if indent > 0 {
		jsonData, err = json.MarshalIndent(t, "", strings.Repeat(" ", indent))
	} else {
		jsonData, err = json.Marshal(t)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}

// FormatYAML writes the template as YAML to the writer.
func (t *Template) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	yamlData, err := yaml.MarshalContext(ctx, t.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(yamlData))

	return err
}

// formatNode writes one node map and its children.
func formatNode(w io.Writer, n any, indent, depth int) error {
	pad := strings.Repeat(" ", depth*indent)

	m, ok := n.(map[string]any)
	if !ok {
		_, err := fmt.Fprintf(w, "%s%v\n", pad, n)

		return err
	}

	var (
		line     strings.Builder
		children []string
	)

	line.WriteString(pad)
	line.WriteString(fmt.Sprint(m["type"]))

	if pos, ok := m["pos"]; ok {
		line.WriteString(" @" + fmt.Sprint(pos))
	}

	for _, key := range sortedKeys(m) {
		switch v := m[key].(type) {
		case map[string]any, []any:
			children = append(children, key)
		case string:
			if key != "type" && key != "pos" {
				fmt.Fprintf(&line, " %s=%q", key, v)
			}
		default:
			fmt.Fprintf(&line, " %s=%v", key, v)
		}
	}

	if _, err := fmt.Fprintln(w, line.String()); err != nil {
		return err
	}

	for _, key := range children {
		if _, err := fmt.Fprintf(w, "%s%s%s:\n", pad, strings.Repeat(" ", indent), key); err != nil {
			return err
		}

		items, ok := m[key].([]any)
		if !ok {
			items = []any{m[key]}
		}

		for _, item := range items {
			if err := formatNode(w, item, indent, depth+2); err != nil {
				return err
			}
		}
	}

	return nil
}
