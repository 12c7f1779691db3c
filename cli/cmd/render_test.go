package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/ftl/datasource"
	"github.com/ardnew/ftl/lang"
)

func runRender(t *testing.T, r *Render) (string, error) {
	t.Helper()

	var out bytes.Buffer

	err := r.Run(WithOutput(context.Background(), &out))

	return out.String(), err
}

func TestRenderRun(t *testing.T) {
	dir := t.TempDir()
	data := writeTemp(t, dir, "data.yaml", "user: Alice\nitems: [1, 2, 3]\n")

	tests := []struct {
		name     string
		template string
		render   Render
		want     string
	}{
		{
			name:     "data file",
			template: "Hello ${user}! <#list items as i>${i}<#sep>,</#list>",
			render:   Render{Data: Data{Files: []string{data}}},
			want:     "Hello Alice! 1,2,3",
		},
		{
			name:     "set expression",
			template: "${total}",
			render:   Render{Data: Data{Files: []string{data}, Set: []string{"total=len(items) * 10"}}},
			want:     "30",
		},
		{
			name:     "html by extension",
			template: "${user}",
			render:   Render{Data: Data{Set: []string{`user="<b>"`}}},
			want:     "&lt;b&gt;",
		},
		{
			name:     "format flag",
			template: "${user}",
			render:   Render{Format: "XML", Data: Data{Set: []string{`user="a&b"`}}},
			want:     "a&amp;b",
		},
		{
			name:     "locale flag",
			template: "${n}",
			render:   Render{Locale: "de_DE", Data: Data{Set: []string{"n=1234.5"}}},
			want:     "1.234,5",
		},
		{
			name:     "setting flag",
			template: "${n}",
			render:   Render{Settings: []string{"number_format=0.00"}, Data: Data{Set: []string{"n=2"}}},
			want:     "2.00",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "t" + string(rune('a'+i)) + ".ftl"
			if tt.name == "html by extension" {
				name = "page.ftlh"
			}

			tt.render.Template = writeTemp(t, t.TempDir(), name, tt.template)

			got, err := runRender(t, &tt.render)
			if err != nil {
				t.Fatalf("Render.Run() error = %v", err)
			}

			if got != tt.want {
				t.Errorf("Render.Run() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderPathSettingsOverrideFlags(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "n.ftl", "${n}")

	r := Render{
		Template: path + "?settings(number_format='0.0')",
		Settings: []string{"number_format=0.000"},
		Data:     Data{Set: []string{"n=1"}},
	}

	got, err := runRender(t, &r)
	if err != nil {
		t.Fatal(err)
	}

	if got != "1.0" {
		t.Errorf("got %q, want %q", got, "1.0")
	}
}

func TestRenderOutputFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	if err := os.WriteFile(out, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := Render{
		Template: writeTemp(t, dir, "t.ftl", "fresh ${1 + 1}"),
		Output:   out,
	}

	stdout, err := runRender(t, &r)
	if err != nil {
		t.Fatal(err)
	}

	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != "fresh 2" {
		t.Errorf("output file = %q, want %q", got, "fresh 2")
	}
}

func TestRenderSQL(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db")

	db, err := datasource.Open(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.Exec(`CREATE TABLE t (x INTEGER); INSERT INTO t VALUES (1), (2);`)
	if cerr := db.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		t.Fatal(err)
	}

	r := Render{
		Template: writeTemp(t, dir, "t.ftl", "<#list rows as r>${r.x}</#list>/<#list rows as r>${r.x}</#list>"),
		Data:     Data{DB: dsn, SQL: []string{"rows=SELECT x FROM t ORDER BY x"}},
	}

	got, err := runRender(t, &r)
	if err != nil {
		t.Fatal(err)
	}

	if got != "12/12" {
		t.Errorf("got %q, want %q", got, "12/12")
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	ok := writeTemp(t, dir, "ok.ftl", "${x}")

	tests := []struct {
		name   string
		render Render
		want   error
	}{
		{"missing template", Render{Template: filepath.Join(dir, "none.ftl")}, ErrReadTemplate},
		{"parse error", Render{Template: writeTemp(t, dir, "bad.ftl", "<#if>")}, lang.ErrParse},
		{"undefined variable", Render{Template: ok}, lang.ErrTemplate},
		{"sql without db", Render{Template: ok, Data: Data{SQL: []string{"x=SELECT 1"}}}, ErrNoDatabase},
		{"bad setting", Render{Template: ok, Settings: []string{"nope"}}, lang.ErrInvalidSetting},
		{"bad assignment", Render{Template: ok, Data: Data{Set: []string{"x"}}}, datasource.ErrAssignment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runRender(t, &tt.render)
			if !errors.Is(err, tt.want) {
				t.Errorf("Render.Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "t.ftl", "one")

	debounce = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	renders := make(chan struct{}, 8)
	done := make(chan error, 1)

	go func() {
		done <- watch(ctx, func(context.Context) error {
			renders <- struct{}{}

			return nil
		}, path)
	}()

	<-renders // initial render

	// The watcher may not be registered yet; keep writing until it reacts.
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for n := 0; ; n++ {
		select {
		case <-renders:
			cancel()

			if err := <-done; err != nil {
				t.Fatalf("watch() error = %v", err)
			}

			return
		case <-tick.C:
			content := strings.Repeat("x", n+1)
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
		case <-ctx.Done():
			t.Fatal("no render after file change")
		}
	}
}
