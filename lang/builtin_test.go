package lang

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringBuiltins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"upper", `${"abc"?upper_case}`, "ABC"},
		{"lower", `${"ABC"?lower_case}`, "abc"},
		{"capitalize", `${"hello world"?capitalize}`, "Hello World"},
		{"cap first", `${"  abc"?cap_first}`, "  Abc"},
		{"uncap first", `${"ABC"?uncap_first}`, "aBC"},
		{"trim", `[${"  x \t"?trim}]`, "[x]"},
		{"length", `${"héllo"?length}`, "5"},
		{"left pad", `${"ab"?left_pad(5)}|${"ab"?left_pad(5, "xy")}`, "   ab|xyxab"},
		{"right pad", `${"ab"?right_pad(5, "xy")}|${"abcdef"?right_pad(3)}`, "abxyx|abcdef"},
		{"contains", `${"abc"?contains("b")?c} ${"abc"?starts_with("b")?c} ${"abc"?ends_with("c")?c}`, "true false true"},
		{"index of", `${"abcabc"?index_of("c")} ${"abcabc"?index_of("c", 3)} ${"abcabc"?index_of("x")}`, "2 5 -1"},
		{"last index of", `${"abcabc"?last_index_of("c")} ${"abcabc"?last_index_of("c", 4)}`, "5 2"},
		{"replace", `${"a.b.c"?replace(".", "-")}`, "a-b-c"},
		{"replace first", `${"abab"?replace("b", "x", "f")}`, "axab"},
		{"replace regex", `${"a1b22"?replace("[0-9]+", "#", "r")}`, "a#b#"},
		{"replace ignore case", `${"AbA"?replace("a", "x", "i")}`, "xbx"},
		{"split", `${"a,b,c"?split(",")?join("|")}`, "a|b|c"},
		{"split regex", `${"a1b22c"?split("[0-9]+", "r")?join("|")}`, "a|b|c"},
		{"matches", `${"abc"?matches("a.c")?c} ${"abcd"?matches("a.c")?c}`, "true false"},
		{"substring", `${"hello"?substring(1, 3)} ${"hello"?substring(3)}`, "el lo"},
		{"keep before", `${"a-b-c"?keep_before("-")} ${"a-b-c"?keep_before_last("-")} ${"abc"?keep_before("-")}`, "a a-b abc"},
		{"keep after", `${"a-b-c"?keep_after("-")} ${"a-b-c"?keep_after_last("-")} [${"abc"?keep_after("-")}]`, "b-c c []"},
		{"remove affixes", `${"foo.txt"?remove_beginning("foo")} ${"foo.txt"?remove_ending(".txt")}`, ".txt foo"},
		{"ensure affixes", `${"a"?ensure_starts_with("/")} ${"/a"?ensure_starts_with("/")} ${"a"?ensure_ends_with("/")}`, "/a /a a/"},
		{"ensure regex prefix", `${"http://x"?ensure_starts_with("[a-z]+://", "http://")} ${"x"?ensure_starts_with("[a-z]+://", "http://")}`, "http://x http://x"},
		{"j string", `${'say "hi"'?j_string}`, `say \"hi\"`},
		{"js string", `${"it's"?js_string}`, `it\'s`},
		{"json string", `${"</b>"?json_string}`, `<\/b>`},
		{"word list", `${"  a  b "?word_list?size}`, "2"},
		{"chop linebreak", `[${"x\n"?chop_linebreak}]`, "[x]"},
		{"url", `${"a b&c"?url}`, "a%20b%26c"},
		{"legacy html", `${"<&>"?html}`, "&lt;&amp;&gt;"},
		{"number as string", `${12?left_pad(4, "0")}`, "0012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, "test", tt.src, nil))
		})
	}
}

func TestNumberBuiltins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"rounding", `${1.5?floor} ${1.5?ceiling} ${1.5?int} ${1.5?round} ${(-1.5)?round}`, "1 2 1 2 -1"},
		{"abs", `${(-3)?abs} ${3?abs}`, "3 3"},
		{"abc", `${1?lower_abc} ${27?upper_abc} ${28?upper_abc}`, "a AA AB"},
		{"string format", `${3?string("0.00")}`, "3.00"},
		{"computer", `${1234.5?c} ${1234.5}`, "1234.5 1,234.5"},
		{"long", `${2.7?long}`, "2"},
		{"number to datetime", `${0?number_to_datetime?iso_utc}`, "1970-01-01T00:00:00Z"},
		{"then", `${true?then("y", "n")}${(1 > 2)?then("y", "n")}`, "yn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, "test", tt.src, nil))
		})
	}

	floats := map[string]any{"a": 1234567.891, "b": 0.00001}
	assert.Equal(t, "1234567.891 0.00001", render(t, "test", `${a?c} ${b?c}`, floats))

	err := renderErr(t, `${0?lower_abc}`, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSequenceBuiltins(t *testing.T) {
	data := map[string]any{
		"users": []any{
			map[string]any{"name": "bob", "age": 30},
			map[string]any{"name": "amy", "age": 25},
			map[string]any{"name": "cat", "age": 35},
		},
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"size", `${[1, 2, 3]?size} ${[]?size}`, "3 0"},
		{"first last", `${[1, 2, 3]?first}${[1, 2, 3]?last}`, "13"},
		{"reverse", `${[1, 2, 3]?reverse?join(",")}`, "3,2,1"},
		{"sort numbers", `${[3, 1, 2]?sort?join(",")}`, "1,2,3"},
		{"sort strings", `${["b", "A", "c"]?sort?join(",")}`, "A,b,c"},
		{"sort by", `${users?sort_by("name")?map(u -> u.name)?join(",")}`, "amy,bob,cat"},
		{"sort by number", `${users?sort_by("age")?reverse?first.name}`, "cat"},
		{"contains", `${[1, 2]?seq_contains(2)?c} ${["a"]?seq_contains("b")?c}`, "true false"},
		{"index of", `${[1, 2, 1]?seq_index_of(1)} ${[1, 2, 1]?seq_last_index_of(1)} ${[1]?seq_index_of(5)}`, "0 2 -1"},
		{"join empty", `${[]?join(", ", "none")}`, "none"},
		{"join suffix", `${[1, 2]?join(", ", "none", ".")}`, "1, 2."},
		{"chunk", `${[1, 2, 3, 4, 5]?chunk(2)?size} ${[1, 2, 3, 4, 5]?chunk(2, 0)?last?join(",")}`, "3 5,0"},
		{"min max", `${[3, 1, 2]?min} ${[3, 1, 2]?max}`, "1 3"},
		{"filter", `${(1..6)?filter(x -> x % 2 == 0)?join(",")}`, "2,4,6"},
		{"take while", `${[1, 2, 5, 1]?take_while(x -> x < 3)?join(",")}`, "1,2"},
		{"drop while", `${[1, 2, 5, 1]?drop_while(x -> x < 3)?join(",")}`, "5,1"},
		{"map", `${[1, 2, 3]?map(x -> x * 10)?join(",")}`, "10,20,30"},
		{"keys values", `<#assign h = {"a": 1, "b": 2}>${h?keys?join(",")} ${h?values?join(",")}`, "a,b 1,2"},
		{"sequence", `${(1..3)?sequence?size}`, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, "test", tt.src, data))
		})
	}
}

func TestSequenceBuiltinErrors(t *testing.T) {
	err := renderErr(t, `${[1, "a"]?sort?size}`, nil)
	assert.ErrorIs(t, err, ErrUnexpectedType)

	err = renderErr(t, `${[1, 2]?chunk(0)?size}`, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = renderErr(t, `${[1, 2]?filter(x -> x)?size}`, nil)
	assert.ErrorIs(t, err, ErrUnexpectedType)

	err = renderErr(t, `${"abc"?size}`, nil)
	assert.ErrorIs(t, err, ErrUnexpectedType)
}

func TestMiscBuiltins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"switch", `${2?switch(1, "one", 2, "two", "other")} ${3?switch(1, "one", "other")}`, "two other"},
		{"eval", `<#assign x = 4>${"x + 2"?eval}`, "6"},
		{"eval json", `${'{"a": [1, 2]}'?eval_json.a?size}`, "2"},
		{"has content", `${missing?has_content?c} ${""?has_content?c} ${"x"?has_content?c} ${[]?has_content?c}`, "false false true false"},
		{"cn", `${missing?cn} ${1?cn}`, "null 1"},
		{"quoted", `${"a\"b"?c}`, `"a\"b"`},
		{"number", `${"12.5"?number + 1}`, "13.5"},
		{"boolean", `${"true"?boolean?c} ${true?string("y", "n")} ${false?string}`, "true y false"},
		{"date", `${"2024-01-02"?date("iso")?iso}`, "2024-01-02"},
		{"is", `<#assign h = {"a": 1}>${"a"?is_string?c} ${1?is_number?c} ${[1]?is_sequence?c} ${h?is_hash_ex?c} ${true?is_boolean?c}`,
			"true true true true true"},
		{"is macro", `<#macro m></#macro><#function f></#function>${m?is_macro?c} ${f?is_function?c} ${f?is_macro?c} ${m?is_directive?c}`,
			"true true false true"},
		{"truncate", `${"1 345        "?truncate(12)}`, "1 345 [...]"},
		{"truncate short", `${"abc"?truncate(10)}`, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, "test", tt.src, nil))
		})
	}
}

func TestBuiltinErrors(t *testing.T) {
	_, err := Parse("test", `${"a"?uper_case}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "upper_case")

	err = renderErr(t, `${2?switch(1, "one")}`, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = renderErr(t, `${"x"?number}`, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = renderErr(t, `${"<"?esc}`, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = renderErr(t, `${"x + "?eval}`, nil)
	require.Error(t, err)
}

func TestBuiltinsList(t *testing.T) {
	names := Builtins()

	assert.True(t, slices.IsSorted(names))
	assert.Contains(t, names, "upper_case")
	assert.Contains(t, names, "truncate_c_m")
	assert.Contains(t, names, "item_cycle")
}

func TestLeftPadProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	tmpl := MustParse("pad", `${s?left_pad(n, "-")}`)

	properties := gopter.NewProperties(parameters)

	properties.Property("left_pad reaches the width", prop.ForAll(
		func(s string, n int) bool {
			out, err := tmpl.RenderString(t.Context(), map[string]any{"s": s, "n": n})
			if err != nil {
				return false
			}

			want := max(len([]rune(s)), n)

			return len([]rune(out)) == want && slices.Equal([]rune(out)[want-len([]rune(s)):], []rune(s))
		},
		gen.AlphaString(),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestSortProperties(t *testing.T) {
	tmpl := MustParse("sort", `<#list xs?sort as x>${x}<#sep>,</#list>`)
	check := MustParse("join", `<#list xs as x>${x}<#sep>,</#list>`)

	properties := gopter.NewProperties(nil)

	properties.Property("sort orders numbers", prop.ForAll(
		func(xs []int) bool {
			got, err := tmpl.RenderString(t.Context(), map[string]any{"xs": anySlice(xs)})
			if err != nil {
				return false
			}

			sorted := slices.Clone(xs)
			slices.Sort(sorted)

			want, err := check.RenderString(t.Context(), map[string]any{"xs": anySlice(sorted)})

			return err == nil && got == want
		},
		gen.SliceOf(gen.IntRange(-1000, 1000)),
	))

	properties.TestingRun(t)
}

func anySlice[T any](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}

	return out
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"uppercase", builtinNames(), `; did you mean "upper_case"?`},
		{"upper_csae", builtinNames(), `; did you mean "upper_case"?`},
		{"upper_casse", builtinNames(), `; did you mean "upper_case"?`},
		{"lsit", directiveNames, `; did you mean "list"?`},
		{"macor", directiveNames, `; did you mean "macro"?`},
		{"zzz", directiveNames, ""},
		{"", directiveNames, ""},
		{"list", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, suggest(tt.name, tt.candidates))
		})
	}

	_, err := Parse("typo", `${"a"?upper_csae}`)
	require.ErrorIs(t, err, ErrUnknownBuiltin)
	assert.Contains(t, err.Error(), `did you mean "upper_case"`)
}
