package truncate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/ftl/markup"
)

// mustNewT returns a function that fails t on a construction error.
func mustNewT(t *testing.T) func(*Default, error) *Default {
	t.Helper()

	return func(a *Default, err error) *Default {
		t.Helper()
		require.NoError(t, err)

		return a
	}
}

type instances struct {
	empty, dots, dotsNoWSpace, asciiNoWSpace, mTerm *Default
}

func newInstances(t *testing.T) instances {
	t.Helper()

	var in instances

	must := mustNewT(t)

	in.empty = must(New("", nil, false))
	in.dots = must(New("...", nil, true))
	in.dotsNoWSpace = must(New("...", nil, false))
	in.asciiNoWSpace = must(New("[...]", nil, false))
	in.mTerm = must(New("...", markup.HTML.FromMarkup("<r>...</r>"), true,
		WithTerminatorRemovesDots(true),
		WithMarkupTerminatorRemovesDots(true),
		WithWordBoundaryMinLength(0.75),
	))

	return in
}

type vector struct {
	in   string
	max  int
	want string
}

func checkC(t *testing.T, a Algorithm, in string, maxLength int, want string) {
	t.Helper()

	got, err := a.TruncateC(in, maxLength, Terminator{})
	require.NoError(t, err)
	assert.Equal(t, want, got, "truncateC(%q, %d)", in, maxLength)
}

func checkW(t *testing.T, a Algorithm, in string, maxLength int, want string) {
	t.Helper()

	got, err := a.TruncateW(in, maxLength, Terminator{})
	require.NoError(t, err)
	assert.Equal(t, want, got, "truncateW(%q, %d)", in, maxLength)
}

func checkAuto(t *testing.T, a Algorithm, in string, maxLength int, want string) {
	t.Helper()

	got, err := a.Truncate(in, maxLength, Terminator{})
	require.NoError(t, err)
	assert.Equal(t, want, got, "truncate(%q, %d)", in, maxLength)
}

func TestNewIllegalArguments(t *testing.T) {
	_, err := New("...", nil, true, WithWordBoundaryMinLength(1.5))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New("...", nil, true, WithWordBoundaryMinLength(-0.1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New("...", nil, true, WithTerminatorLength(-1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTruncateIllegalArguments(t *testing.T) {
	_, err := ASCII.Truncate("", 0, Text(".").WithLength(1))
	require.NoError(t, err)

	_, err = ASCII.Truncate("", -1, Text(".").WithLength(1))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "maxLength")

	_, err = ASCII.Truncate("sss", 2, Text(".").WithLength(-1))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "terminatorLength")

	_, err = ASCII.Truncate("sss", 2, Markup(markup.HTML.FromMarkup("<b>.</b>")))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCSimple(t *testing.T) {
	in := newInstances(t)

	checkC(t, ASCII, "12345678", 9, "12345678")
	checkC(t, ASCII, "12345678", 8, "12345678")
	checkC(t, ASCII, "12345678", 7, "12[...]")
	checkC(t, ASCII, "12345678", 6, "1[...]")

	for maxLength := 5; maxLength >= 0; maxLength-- {
		checkC(t, ASCII, "12345678", maxLength, "[...]")
	}

	checkC(t, Unicode, "12345678", 9, "12345678")
	checkC(t, Unicode, "12345678", 8, "12345678")
	checkC(t, Unicode, "12345678", 7, "1234[…]")
	checkC(t, Unicode, "12345678", 6, "123[…]")
	checkC(t, Unicode, "12345678", 5, "12[…]")
	checkC(t, Unicode, "12345678", 4, "1[…]")

	for maxLength := 3; maxLength >= 0; maxLength-- {
		checkC(t, Unicode, "12345678", maxLength, "[…]")
	}

	checkC(t, in.empty, "12345678", 9, "12345678")

	for length := 8; length >= 0; length-- {
		checkC(t, in.empty, "12345678", length, "12345678"[:length])
	}

	checkC(t, ASCII, "abcdefgh", 5, "[...]")
	checkC(t, in.dots, "abcdefgh", 5, "ab...")
}

func TestCSpaceAndDot(t *testing.T) {
	in := newInstances(t)

	tests := []struct {
		name string
		alg  Algorithm
		vec  []vector
	}{
		{"ascii trailing space", ASCII, []vector{
			{"123456  ", 9, "123456  "},
			{"123456  ", 8, "123456  "},
			{"123456  ", 7, "12[...]"},
			{"123456  ", 6, "1[...]"},
			{"123456  ", 5, "[...]"},
			{"123456  ", 4, "[...]"},
		}},
		{"ascii words", ASCII, []vector{
			{"1 345        ", 13, "1 345        "},
			{"1 345        ", 12, "1 345 [...]"},
			{"1 345        ", 11, "1 345 [...]"},
			{"1 345        ", 10, "1 34[...]"},
			{"1 345        ", 9, "1 34[...]"},
			{"1 345        ", 8, "1 3[...]"},
			{"1 345        ", 7, "1 [...]"},
			{"1 345        ", 6, "[...]"},
			{"1 345        ", 5, "[...]"},
			{"1 345        ", 4, "[...]"},
			{"1  4567890", 9, "1  4[...]"},
			{"1  4567890", 8, "1 [...]"},
			{"  3456789", 9, "  3456789"},
			{"  3456789", 8, "  3[...]"},
			{"  3456789", 7, "[...]"},
			{"  3456789", 6, "[...]"},
		}},
		{"ascii no word space", in.asciiNoWSpace, []vector{
			{"1 345        ", 13, "1 345        "},
			{"1 345        ", 12, "1 345[...]"},
			{"1 345        ", 11, "1 345[...]"},
			{"1 345        ", 10, "1 345[...]"},
			{"1 345        ", 9, "1 34[...]"},
			{"1 345        ", 8, "1 3[...]"},
			{"1 345        ", 7, "1[...]"},
			{"1 345        ", 6, "1[...]"},
			{"1 345        ", 5, "[...]"},
			{"1 345        ", 4, "[...]"},
			{"1  4567890", 9, "1  4[...]"},
			{"1  4567890", 8, "1[...]"},
			{"  3456789", 8, "  3[...]"},
			{"  3456789", 7, "[...]"},
		}},
		{"ascii dots are plain", ASCII, []vector{
			{"1.  56...012345", 15, "1.  56...012345"},
			{"1.  56...012345", 14, "1.  56...[...]"},
			{"1.  56...012345", 13, "1.  56..[...]"},
			{"1.  56...012345", 12, "1.  56.[...]"},
			{"1.  56...012345", 11, "1.  56[...]"},
			{"1.  56...012345", 10, "1.  5[...]"},
			{"1.  56...012345", 9, "1. [...]"},
			{"1.  56...012345", 8, "1. [...]"},
			{"1.  56...012345", 7, "1[...]"},
			{"1.  56...012345", 6, "1[...]"},
			{"1.  56...012345", 5, "[...]"},
		}},
		{"dots terminator", in.dots, []vector{
			{"1.  56...012345", 15, "1.  56...012345"},
			{"1.  56...012345", 14, "1.  56...01..."},
			{"1.  56...012345", 13, "1.  56...0..."},
			{"1.  56...012345", 12, "1.  56..."},
			{"1.  56...012345", 11, "1.  56..."},
			{"1.  56...012345", 10, "1.  56..."},
			{"1.  56...012345", 9, "1.  56..."},
			{"1.  56...012345", 8, "1.  5..."},
			{"1.  56...012345", 7, "1. ..."},
			{"1.  56...012345", 6, "1. ..."},
			{"1.  56...012345", 5, "1..."},
			{"1.  56...012345", 4, "1..."},
			{"1.  56...012345", 3, "..."},
			{"1.  56...012345", 2, "..."},
			{"1.  56...012345", 1, "..."},
			{"1.  56...012345", 0, "..."},
		}},
		{"dots no word space", in.dotsNoWSpace, []vector{
			{"1.  56...012345", 8, "1.  5..."},
			{"1.  56...012345", 7, "1..."},
			{"1.  56...012345", 6, "1..."},
			{"1.  56...012345", 5, "1..."},
			{"1.  56...012345", 4, "1..."},
			{"1.  56...012345", 3, "..."},
		}},
		{"empty terminator", in.empty, []vector{
			{"ab. cd", 6, "ab. cd"},
			{"ab. cd", 5, "ab. c"},
			{"ab. cd", 4, "ab."},
			{"ab. cd", 3, "ab."},
			{"ab. cd", 2, "ab"},
			{"ab. cd", 1, "a"},
			{"ab. cd", 0, ""},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.vec {
				checkC(t, tt.alg, v.in, v.max, v.want)
			}
		})
	}
}

func TestWSimple(t *testing.T) {
	in := newInstances(t)

	const s = "word1 word2 word3"

	checkW(t, ASCII, s, 18, s)
	checkW(t, ASCII, s, 17, s)
	checkW(t, ASCII, s, 16, "word1 [...]")
	checkW(t, ASCII, s, 11, "word1 [...]")

	for maxLength := 10; maxLength >= 0; maxLength-- {
		checkW(t, ASCII, s, maxLength, "[...]")
	}

	checkW(t, Unicode, s, 18, s)
	checkW(t, Unicode, s, 17, s)
	checkW(t, Unicode, s, 16, "word1 word2 […]")
	checkW(t, Unicode, s, 15, "word1 word2 […]")
	checkW(t, Unicode, s, 14, "word1 […]")
	checkW(t, Unicode, s, 9, "word1 […]")

	for maxLength := 8; maxLength >= 0; maxLength-- {
		checkW(t, Unicode, s, maxLength, "[…]")
	}

	checkW(t, in.empty, s, 18, s)
	checkW(t, in.empty, s, 17, s)
	checkW(t, in.empty, s, 16, "word1 word2")
	checkW(t, in.empty, s, 11, "word1 word2")
	checkW(t, in.empty, s, 10, "word1")
	checkW(t, in.empty, s, 5, "word1")

	for maxLength := 4; maxLength >= 0; maxLength-- {
		checkW(t, in.empty, s, maxLength, "")
	}
}

func TestWSpaceAndDot(t *testing.T) {
	in := newInstances(t)

	const s1 = "  word1  word2  "

	checkW(t, in.dots, s1, 16, s1)
	checkW(t, in.dots, s1, 15, "  word1 ...")
	checkW(t, in.dots, s1, 11, "  word1 ...")

	for maxLength := 10; maxLength >= 0; maxLength-- {
		checkW(t, in.dots, s1, maxLength, "...")
	}

	checkW(t, in.dotsNoWSpace, s1, 16, s1)
	checkW(t, in.dotsNoWSpace, s1, 15, "  word1...")
	checkW(t, in.dotsNoWSpace, s1, 10, "  word1...")

	for maxLength := 9; maxLength >= 0; maxLength-- {
		checkW(t, in.dotsNoWSpace, s1, maxLength, "...")
	}

	const s2 = " . . word1..  word2    "

	checkW(t, in.dots, s2, 23, s2)
	checkW(t, in.dots, s2, 22, " . . word1.. ...")
	checkW(t, in.dots, s2, 16, " . . word1.. ...")
	checkW(t, in.dots, s2, 15, " . . ...")
	checkW(t, in.dots, s2, 8, " . . ...")
	checkW(t, in.dots, s2, 7, " . ...")
	checkW(t, in.dots, s2, 6, " . ...")

	for maxLength := 5; maxLength >= 0; maxLength-- {
		checkW(t, in.dots, s2, maxLength, "...")
	}

	checkW(t, in.dotsNoWSpace, s2, 23, s2)
	checkW(t, in.dotsNoWSpace, s2, 22, " . . word1..  word2...")
	checkW(t, in.dotsNoWSpace, s2, 21, " . . word1...")

	for maxLength := 13; maxLength >= 0; maxLength-- {
		checkW(t, in.dotsNoWSpace, s2, maxLength, "...")
	}
}

func TestAuto(t *testing.T) {
	in := newInstances(t)

	const s = "1 234567 90ABCDEFGHIJKL"

	for _, v := range []vector{
		{s, 24, s},
		{s, 23, s},
		{s, 22, "1 234567 90ABCDEF[...]"},
		{s, 21, "1 234567 90ABCDE[...]"},
		{s, 20, "1 234567 90ABCD[...]"},
		{s, 19, "1 234567 90ABC[...]"},
		{s, 18, "1 234567 [...]"},
		{s, 17, "1 234567 [...]"},
		{s, 16, "1 234567 [...]"},
		{s, 15, "1 234567 [...]"},
		{s, 14, "1 234567 [...]"},
		{s, 13, "1 23456[...]"},
		{s, 12, "1 23456[...]"},
		{"1 234567  0ABCDEFGHIJKL", 22, "1 234567  0ABCDEF[...]"},
		{"1 234567 9 ABCDEFGHIJKL", 22, "1 234567 9 ABCDEF[...]"},
		{"1 234567 90 BCDEFGHIJKL", 22, "1 234567 90 [...]"},
		{"1 234567 90A CDEFGHIJKL", 22, "1 234567 90A [...]"},
		{"1 234567 90AB DEFGHIJKL", 22, "1 234567 90AB [...]"},
		{"1 234567 90ABC EFGHIJKL", 22, "1 234567 90ABC [...]"},
		{"1 234567 90ABCD FGHIJKL", 22, "1 234567 90ABCD [...]"},
		{"1 234567 90ABCDE GHIJKL", 22, "1 234567 90ABCDE [...]"},
		{"1 234567 90ABCDEF HIJKL", 22, "1 234567 90ABCDE[...]"},
		{"1 234567 90ABCDEFG IJKL", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGH JKL", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGHI KL", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGHIJ L", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGHIJK ", 22, "1 234567 90ABCDEF[...]"},
	} {
		checkAuto(t, ASCII, v.in, v.max, v.want)
	}

	for _, v := range []vector{
		{"1 234567  0ABCDEFGHIJKL", 22, "1 234567  0ABCDEF[...]"},
		{"1 234567 9 ABCDEFGHIJKL", 22, "1 234567 9 ABCDEF[...]"},
		{"1 234567 90 BCDEFGHIJKL", 22, "1 234567 90 BCDEF[...]"},
		{"1 234567 90A CDEFGHIJKL", 22, "1 234567 90A[...]"},
		{"1 234567 90AB DEFGHIJKL", 22, "1 234567 90AB[...]"},
		{"1 234567 90ABC EFGHIJKL", 22, "1 234567 90ABC[...]"},
		{"1 234567 90ABCD FGHIJKL", 22, "1 234567 90ABCD[...]"},
		{"1 234567 90ABCDE GHIJKL", 22, "1 234567 90ABCDE[...]"},
		{"1 234567 90ABCDEF HIJKL", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFG IJKL", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGH JKL", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGHI KL", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGHIJ L", 22, "1 234567 90ABCDEF[...]"},
		{"1 234567 90ABCDEFGHIJK ", 22, "1 234567 90ABCDEF[...]"},
	} {
		checkAuto(t, in.asciiNoWSpace, v.in, v.max, v.want)
	}

	const d1 = "12390ABCD..  . EFGHIJK ."

	for _, v := range []vector{
		{d1, 24, d1},
		{d1, 23, "12390ABCD..  . ..."},
		{d1, 22, "12390ABCD..  . ..."},
		{d1, 21, "12390ABCD..  . ..."},
		{d1, 20, "12390ABCD..  . ..."},
		{d1, 19, "12390ABCD..  . ..."},
		{d1, 18, "12390ABCD..  . ..."},
		{d1, 17, "12390ABCD.. ..."},
		{d1, 16, "12390ABCD.. ..."},
		{d1, 15, "12390ABCD.. ..."},
		{d1, 14, "12390ABCD..."},
		{d1, 13, "12390ABCD..."},
		{d1, 12, "12390ABCD..."},
		{d1, 11, "12390ABC..."},
	} {
		checkAuto(t, in.dots, v.in, v.max, v.want)
	}

	const d2 = "word0 word1. word2 w3 . . w4"

	for _, v := range []vector{
		{d2, 27, "word0 word1. word2 w3 . ..."},
		{d2, 26, "word0 word1. word2 w3 ..."},
		{d2, 25, "word0 word1. word2 w3 ..."},
		{d2, 24, "word0 word1. word2 ..."},
		{d2, 22, "word0 word1. word2 ..."},
		{d2, 21, "word0 word1. ..."},
		{d2, 16, "word0 word1. ..."},
		{d2, 15, "word0 word1..."},
		{d2, 14, "word0 word1..."},
		{d2, 13, "word0 word..."},
		{d2, 12, "word0 ..."},
		{d2, 9, "word0 ..."},
		{d2, 8, "word..."},
	} {
		checkAuto(t, in.dots, v.in, v.max, v.want)
	}
}

func TestExtremeWordBoundaryMinLengths(t *testing.T) {
	checkC(t, ASCII, "1 3456789", 8, "1 3[...]")
	checkW(t, ASCII, "1 3456789", 8, "1 [...]")

	must := mustNewT(t)

	minLen1 := must(New(ASCII.Terminator(), nil, true, WithWordBoundaryMinLength(1.0)))
	checkAuto(t, minLen1, "1 3456789", 8, "1 3[...]")

	checkAuto(t, ASCII, "123456789", 8, "123[...]")

	minLen0 := must(New(ASCII.Terminator(), nil, true, WithWordBoundaryMinLength(0.0)))
	checkAuto(t, minLen0, "123456789", 8, "[...]")
}

func TestSimpleEdgeCases(t *testing.T) {
	in := newInstances(t)

	algs := map[string]*Default{
		"ascii":            ASCII,
		"unicode":          Unicode,
		"empty":            in.empty,
		"dots":             in.dots,
		"ascii no w space": in.asciiNoWSpace,
		"m term":           in.mTerm,
	}

	for name, alg := range algs {
		callers := map[string]func(string, int, Terminator) (Result, error){
			"M":  alg.TruncateM,
			"CM": alg.TruncateCM,
			"WM": alg.TruncateWM,
		}

		for cname, truncate := range callers {
			t.Run(name+"/"+cname, func(t *testing.T) {
				r, err := truncate("", 0, Terminator{})
				require.NoError(t, err)
				assert.Equal(t, "", r.String())

				r, err = truncate("x", 0, Terminator{})
				require.NoError(t, err)

				if alg.MarkupTerminator() != nil {
					require.True(t, r.IsMarkup())
					assert.Same(t, alg.MarkupTerminator(), r.Markup)
				} else {
					require.False(t, r.IsMarkup())
					assert.Equal(t, alg.Terminator(), r.Text)
				}

				r, err = truncate("x", 0, Text("|"))
				require.NoError(t, err)
				assert.Equal(t, Result{Text: "|"}, r)

				html := markup.HTML.FromMarkup("<x>.</x>")
				r, err = truncate("x", 0, Markup(html))
				require.NoError(t, err)
				assert.Same(t, html, r.Markup)
			})
		}
	}
}

func TestStandardInstanceSettings(t *testing.T) {
	s, err := ASCII.Truncate("1234567890", 8, Terminator{})
	require.NoError(t, err)
	assert.Equal(t, "123[...]", s)

	r, err := ASCII.TruncateM("1234567890", 8, Terminator{})
	require.NoError(t, err)
	require.True(t, r.IsMarkup())
	assert.Equal(t, markup.HTML, r.Markup.Format())
	assert.Equal(t, "12345<span class='truncateTerminator'>[&#8230;]</span>", r.Markup.MarkupString())

	s, err = Unicode.Truncate("1234567890", 8, Terminator{})
	require.NoError(t, err)
	assert.Equal(t, "12345[…]", s)

	r, err = Unicode.TruncateM("1234567890", 8, Terminator{})
	require.NoError(t, err)
	assert.Equal(t, "12345<span class='truncateTerminator'>[&#8230;]</span>", r.String())
}

func TestTruncateAdhocHTMLTerminator(t *testing.T) {
	ellipsis := markup.HTML.FromMarkup("<i>&#x2026;</i>")
	squEllipsis := markup.HTML.FromMarkup("<i>[&#x2026;]</i>")

	tests := []struct {
		name string
		in   string
		max  int
		term Terminator
		want string
	}{
		{"length detection", "abcd", 3, Markup(ellipsis), "ab<i>&#x2026;</i>"},
		{"length detection brackets", "abcdef", 5, Markup(squEllipsis), "ab<i>[&#x2026;]</i>"},
		{"explicit length", "abcdef", 5, Markup(squEllipsis).WithLength(1), "abcd<i>[&#x2026;]</i>"},
		{"dot removal", "a.cd", 3, Markup(ellipsis), "a<i>&#x2026;</i>"},
		{"dot kept", "a.cdef", 5, Markup(squEllipsis), "a.<i>[&#x2026;]</i>"},
		{"plain text escaped", "<&>xyz", 5, Markup(squEllipsis), "&lt;&amp;<i>[&#x2026;]</i>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ASCII.TruncateM(tt.in, tt.max, tt.term)
			require.NoError(t, err)
			require.True(t, r.IsMarkup())
			assert.Equal(t, tt.want, r.Markup.MarkupString())
		})
	}
}

func TestTruncateAdhocPlainTextTerminator(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		term Terminator
		want string
	}{
		{"length detection", "abcd", 3, Text("…"), "ab…"},
		{"length detection brackets", "abcdef", 5, Text("[…]"), "ab[…]"},
		{"explicit length", "abcdef", 5, Text("[…]").WithLength(1), "abcd[…]"},
		{"dot removal", "a.cd", 3, Text("…"), "a…"},
		{"dot kept", "a.cdef", 5, Text("[…]"), "a.[…]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ASCII.Truncate(tt.in, tt.max, tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestLengthWithoutTags(t *testing.T) {
	for in, want := range map[string]int{
		"":                        0,
		"a":                       1,
		"ab":                      2,
		"<tag>":                   0,
		"<tag>a":                  1,
		"<tag>a</tag>b":           2,
		"ab<tag>cd</tag>":         4,
		"ab<tag></tag>":           2,
		"&chr;a":                  2,
		"&chr;a&chr;b":            4,
		"ab&chr;cd&chr;":          6,
		"ab&chr;&chr;":            4,
		"ab<tag>&chr;</tag>&chr;": 4,
		"<!--c-->ab":              2,
		"a<!--c-->b<!--c-->":      2,
		"a<!-->--><!---->b":       2,
		"a<![CDATA[b]]>c":         3,
		"a<![CDATA[]]>b":          2,
		"<![CDATA[]]>":            0,
		"<![CDATA[123":            3,
		"<![CDATA[123]":           4,
		"<![CDATA[123]]":          5,
		"<![CDATA[123]]>":         3,
		"ab<!--":                  2,
		"ab<tag":                  2,
		"ab&chr":                  3,
		"ab<!-":                   2,
		"ab<":                     2,
		"ab&":                     3,
		"a&;c":                    3,
	} {
		assert.Equal(t, want, lengthWithoutTags(in), "lengthWithoutTags(%q)", in)
	}
}

func TestNumericCharReferenceCode(t *testing.T) {
	for in, want := range map[string]int{
		"#0":         0,
		"#00":        0,
		"#x0":        0,
		"#x00":       0,
		"#1":         1,
		"#01":        1,
		"#x1":        1,
		"#x01":       1,
		"#X1":        1,
		"#X01":       1,
		"#123409":    123409,
		"#00123409":  123409,
		"#x123A0F":   0x123A0F,
		"#x123a0f":   0x123A0F,
		"#X00123A0f": 0x123A0F,
		"#x1G":       -1,
		"#1A":        -1,
	} {
		assert.Equal(t, want, numericCharReferenceCode(in), in)
	}
}

func TestIsDotCharReference(t *testing.T) {
	for _, in := range []string{"#46", "#x2E", "#x2026", "hellip", "period"} {
		assert.True(t, isDotCharReference(in), in)
	}

	for _, in := range []string{"", "foo", "#x46", "#boo"} {
		assert.False(t, isDotCharReference(in), in)
	}
}

func TestStartsWithDot(t *testing.T) {
	for _, in := range []string{
		".",
		".etc",
		"&hellip;",
		"<tag x='y'/>&hellip;",
		"<span class='t'>...</span>",
		"<span class='t'>&#x2026;</span>",
		"<span class='t'>&#46;</span>",
		"<foo><!-- -->.etc",
	} {
		assert.True(t, startsWithDot(in), in)
	}

	for _, in := range []string{
		"",
		"[...]",
		"etc.",
		"<span class='t'>[...]</span>",
		"<span class='t'>etc.</span>",
		"<span class='t'>&46;</span>",
	} {
		assert.False(t, startsWithDot(in), in)
	}
}

func TestIsWhitespace(t *testing.T) {
	for _, r := range " \t\n\v\f\r\x1c\x1f\u2003\u2028\u2029" {
		assert.True(t, isWhitespace(r), "%U", r)
	}

	for _, r := range "a.\u00a0\u2007\u202f\x00" {
		assert.False(t, isWhitespace(r), "%U", r)
	}
}

func TestByName(t *testing.T) {
	a, err := ByName("Unicode")
	require.NoError(t, err)
	assert.Same(t, Unicode, a)

	_, err = ByName("html")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestLengthBoundProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 300

	properties := gopter.NewProperties(params)

	word := gen.RegexMatch(`[a-z.]{1,8}`)
	text := gen.SliceOfN(6, word).Map(func(ws []string) string {
		return strings.Join(ws, " ")
	})

	properties.Property("result never exceeds maxLength", prop.ForAll(
		func(s string, maxLength int) bool {
			for _, f := range []func(string, int, Terminator) (string, error){
				ASCII.Truncate, ASCII.TruncateC, ASCII.TruncateW,
				Unicode.Truncate, Unicode.TruncateC, Unicode.TruncateW,
			} {
				got, err := f(s, maxLength, Terminator{})
				if err != nil {
					return false
				}

				n := utf8.RuneCountInString(got)
				if n > max(maxLength, utf8.RuneCountInString(ASCIITerminator)) {
					return false
				}
			}

			return true
		},
		text, gen.IntRange(0, 60),
	))

	properties.Property("short input is returned unchanged", prop.ForAll(
		func(s string, extra int) bool {
			n := utf8.RuneCountInString(s)
			got, err := ASCII.Truncate(s, n+extra, Terminator{})

			return err == nil && got == s
		},
		text, gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
