package lang

import (
	"encoding/json"
	"reflect"

	"github.com/ardnew/ftl/arith"
)

var (
	positionType = reflect.TypeFor[Position]()
	numberType   = reflect.TypeFor[arith.Number]()
)

// ToMap converts the template to a map of plain values: its name, header
// and node tree. Each node is a map with a "type" key, a "pos" key holding
// "line:column" and one key per non-empty field.
func (t *Template) ToMap() map[string]any {
	m := map[string]any{
		"name":  t.name,
		"nodes": nodeList(reflect.ValueOf(t.root)),
	}

	if f, _ := t.outputFormat(t.cfg); f != nil {
		m["output_format"] = f.Name()
	}

	if hdr := headerMap(t.header); len(hdr) > 0 {
		m["header"] = hdr
	}

	return m
}

// MarshalJSON implements [json.Marshaler].
func (t *Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToMap())
}

// NodeMap converts a single node like [Template.ToMap] does.
func NodeMap(n Node) map[string]any {
	if n == nil {
		return nil
	}

	m, _ := treeValue(reflect.ValueOf(n)).(map[string]any)

	return m
}

func headerMap(h header) map[string]any {
	m := map[string]any{}

	if h.OutputFormat != "" {
		m["output_format"] = h.OutputFormat
	}

	if h.AutoEsc != nil {
		m["auto_esc"] = *h.AutoEsc
	}

	if !h.StripWhitespace {
		m["strip_whitespace"] = false
	}

	return m
}

func nodeList(v reflect.Value) []any {
	list := make([]any, 0, v.Len())
	for i := range v.Len() {
		list = append(list, treeValue(v.Index(i)))
	}

	return list
}

// treeValue converts the AST value v to maps, slices and scalars.
func treeValue(v reflect.Value) any {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	switch {
	case v.Type() == numberType:
		n, _ := v.Interface().(arith.Number)

		return n.String()
	case v.Type() == positionType:
		p, _ := v.Interface().(Position)

		return p.String()
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}

		return treeValue(v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}

		return nodeList(v)
	case reflect.Struct:
		return structMap(v)
	default:
		return v.Interface()
	}
}

func structMap(v reflect.Value) map[string]any {
	t := v.Type()
	m := map[string]any{"type": t.Name()}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		fv := v.Field(i)
		if fv.IsZero() {
			continue
		}

		key := f.Name
		if f.Type == positionType {
			key = "pos"
		}

		m[key] = treeValue(fv)
	}

	return m
}
