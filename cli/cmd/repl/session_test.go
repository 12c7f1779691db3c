package repl

import (
	"context"
	"strings"
	"testing"

	"github.com/ardnew/ftl/lang"
	"github.com/ardnew/ftl/log"
	value "github.com/ardnew/ftl/model"
)

func testSession(t *testing.T) *Session {
	t.Helper()

	user := value.NewMap(2).
		Set("name", value.String("Ann")).
		Set("address", value.NewMap(1).Set("city", value.String("Oslo")))

	return NewSession(map[string]any{
		"user":  user,
		"items": []any{1, 2, 3},
	}, log.Logger{})
}

func TestSessionEval(t *testing.T) {
	sess := testSession(t)
	ctx := context.Background()

	v, err := sess.Eval(ctx, "user.name?upper_case")
	if err != nil {
		t.Fatal(err)
	}

	if got := lang.Inspect(v); got != `"ANN"` {
		t.Errorf("Eval = %s, want %q", got, `"ANN"`)
	}

	if _, err := sess.Eval(ctx, "1 +"); err == nil {
		t.Error("Eval of a syntax error succeeded")
	}
}

func TestSessionRender(t *testing.T) {
	sess := NewSession(nil, log.Logger{}, lang.WithSetting("number_format", "0.0"))

	out, err := sess.Render(context.Background(), "t", "${2}<#list 1..2 as i>${i}</#list>")
	if err != nil {
		t.Fatal(err)
	}

	if out != "2.01.02.0" {
		t.Errorf("Render = %q, want %q", out, "2.01.02.0")
	}
}

func TestSessionPreview(t *testing.T) {
	sess := NewSession(map[string]any{
		"short": "abc",
		"long":  strings.Repeat("word ", 40),
	}, log.Logger{})

	ctx := context.Background()

	if got := sess.Preview(ctx, "short"); got != `"abc"` {
		t.Errorf("Preview(short) = %q", got)
	}

	if got := sess.Preview(ctx, "long"); len([]rune(got)) > previewLength || !strings.HasSuffix(got, "[…]") {
		t.Errorf("Preview(long) = %q, want at most %d runes ending in [...]", got, previewLength)
	}

	if got := sess.Preview(ctx, "missing"); !strings.HasPrefix(got, "<") {
		t.Errorf("Preview(missing) = %q, want an error", got)
	}
}
