package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardnew/ftl/lang"
)

func TestEvalRun(t *testing.T) {
	data := writeTemp(t, t.TempDir(), "data.yaml", "user: {name: Ann, langs: [go, c]}\n")

	tests := []struct {
		name string
		eval Eval
		want string
	}{
		{"arithmetic", Eval{Expr: "1 + 2 * 3"}, "7"},
		{"string", Eval{Expr: `"a" + "b"`}, `"ab"`},
		{"raw string", Eval{Expr: `"a" + "b"`, Raw: true}, "ab"},
		{"boolean", Eval{Expr: "3 > 2"}, "true"},
		{"sequence", Eval{Expr: "[1, 'x']"}, `[1, "x"]`},
		{"missing", Eval{Expr: "nothing?has_content"}, "false"},
		{"data", Eval{Expr: "user.name?upper_case", Data: Data{Files: []string{data}}}, `"ANN"`},
		{"data sequence", Eval{Expr: "user.langs?join('+')", Data: Data{Files: []string{data}}, Raw: true}, "go+c"},
		{"set", Eval{Expr: "x * 2", Data: Data{Set: []string{"x=21"}}}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			if err := tt.eval.Run(WithOutput(context.Background(), &out)); err != nil {
				t.Fatalf("Eval.Run() error = %v", err)
			}

			if got := out.String(); got != tt.want+"\n" {
				t.Errorf("Eval.Run() = %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		eval Eval
		want error
	}{
		{"syntax", Eval{Expr: "1 +"}, lang.ErrParse},
		{"undefined", Eval{Expr: "nope + 1"}, lang.ErrTemplate},
		{"undefined result", Eval{Expr: "nope"}, lang.ErrUndefinedVariable},
		{"missing data file", Eval{Expr: "1", Data: Data{Files: []string{filepath.Join(t.TempDir(), "x.yaml")}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.eval.Run(WithOutput(context.Background(), &bytes.Buffer{}))
			if err == nil {
				t.Fatal("Eval.Run() error = nil")
			}

			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Eval.Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}
