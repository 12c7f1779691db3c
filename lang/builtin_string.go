package lang

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/model"
	"github.com/ardnew/ftl/truncate"
)

func stringBuiltins() []*builtin {
	return builtinsOf(
		[]*builtin{
			plain("length", stringLength),
			plain("upper_case", stringFn(func(env *Environment, s string) string {
				return cases.Upper(env.set.locale).String(s)
			})),
			plain("lower_case", stringFn(func(env *Environment, s string) string {
				return cases.Lower(env.set.locale).String(s)
			})),
			plain("capitalize", stringFn(func(env *Environment, s string) string {
				return cases.Title(env.set.locale, cases.NoLower).String(s)
			})),
			plain("cap_first", stringFn(func(env *Environment, s string) string {
				return changeFirst(s, cases.Upper(env.set.locale))
			})),
			plain("uncap_first", stringFn(func(env *Environment, s string) string {
				return changeFirst(s, cases.Lower(env.set.locale))
			})),
			plain("trim", stringFn(func(_ *Environment, s string) string {
				return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
			})),
			plain("chop_linebreak", stringFn(func(_ *Environment, s string) string {
				for _, eol := range []string{"\r\n", "\n", "\r"} {
					if strings.HasSuffix(s, eol) {
						return s[:len(s)-len(eol)]
					}
				}

				return s
			})),
			plain("j_string", stringFn(func(_ *Environment, s string) string { return javaString(s) })),
			plain("js_string", stringFn(func(_ *Environment, s string) string { return jsString(s, false) })),
			plain("json_string", stringFn(func(_ *Environment, s string) string { return jsString(s, true) })),
			plain("word_list", wordList),
			fixed("left_pad", 1, 2, pad(true)),
			fixed("right_pad", 1, 2, pad(false)),
			fixed("contains", 1, 1, stringTest(strings.Contains)),
			fixed("starts_with", 1, 1, stringTest(strings.HasPrefix)),
			fixed("ends_with", 1, 1, stringTest(strings.HasSuffix)),
			fixed("index_of", 1, 2, indexOf(false)),
			fixed("last_index_of", 1, 2, indexOf(true)),
			fixed("replace", 2, 3, replace),
			fixed("split", 1, 2, split),
			fixed("matches", 1, 2, matches),
			fixed("substring", 1, 2, substring),
			fixed("keep_before", 1, 2, keep(false, false)),
			fixed("keep_before_last", 1, 2, keep(false, true)),
			fixed("keep_after", 1, 2, keep(true, false)),
			fixed("keep_after_last", 1, 2, keep(true, true)),
			fixed("remove_beginning", 1, 1, affix(strings.TrimPrefix)),
			fixed("remove_ending", 1, 1, affix(strings.TrimSuffix)),
			fixed("ensure_starts_with", 1, 3, ensureStartsWith),
			fixed("ensure_ends_with", 1, 1, affix(func(s, suffix string) string {
				if strings.HasSuffix(s, suffix) {
					return s
				}

				return s + suffix
			})),
			plain("html", legacyEscape(markup.HTML)),
			plain("xhtml", legacyEscape(markup.XHTML)),
			plain("xml", legacyEscape(markup.XML)),
			plain("rtf", legacyEscape(markup.RTF)),
			fixed("url", 0, 1, urlEscape(false)),
			fixed("url_path", 0, 1, urlEscape(true)),
		},
		truncateBuiltins(),
	)
}

func stringLength(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	return model.Int(int64(utf8.RuneCountInString(s))), nil
}

// changeFirst applies c to the first character that isn't white-space.
func changeFirst(s string, c cases.Caser) string {
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
	if i < 0 {
		return s
	}

	_, n := utf8.DecodeRuneInString(s[i:])

	return s[:i] + c.String(s[i:i+n]) + s[i+n:]
}

func wordList(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	words := strings.Fields(s)
	out := make(model.List, len(words))

	for i, w := range words {
		out[i] = model.String(w)
	}

	return out, nil
}

// pad fills s to width with the filling, aligned to the absolute
// position of each character.
func pad(left bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		width, err := argInt(b, args, 0)
		if err != nil {
			return nil, err
		}

		fill, err := env.argStringOr(b, args, 1, " ")
		if err != nil {
			return nil, err
		}

		if fill == "" {
			return nil, ErrInvalidArgument.Wrap(fmt.Errorf("the filling string of ?%s can't be empty", b.Name))
		}

		n := utf8.RuneCountInString(s)
		if width <= n {
			return model.String(s), nil
		}

		fr := []rune(fill)

		var sb strings.Builder

		if left {
			for i := range width - n {
				sb.WriteRune(fr[i%len(fr)])
			}

			sb.WriteString(s)
		} else {
			sb.WriteString(s)

			for i := n; i < width; i++ {
				sb.WriteRune(fr[i%len(fr)])
			}
		}

		return model.String(sb.String()), nil
	}
}

func stringTest(test func(s, sub string) bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		sub, err := env.argString(b, args, 0)
		if err != nil {
			return nil, err
		}

		return model.Bool(test(s, sub)), nil
	}
}

// indexOf finds sub in rune positions. The optional start bounds where
// the match may begin.
func indexOf(last bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		sub, err := env.argString(b, args, 0)
		if err != nil {
			return nil, err
		}

		rs := []rune(s)

		start := 0
		if last {
			start = len(rs)
		}

		if len(args) > 1 {
			if start, err = argInt(b, args, 1); err != nil {
				return nil, err
			}
		}

		start = max(0, min(start, len(rs)))

		if last {
			end := min(len(rs), start+utf8.RuneCountInString(sub))

			i := strings.LastIndex(string(rs[:end]), sub)
			if i < 0 {
				return model.Int(-1), nil
			}

			return model.Int(int64(utf8.RuneCountInString(string(rs[:end])[:i]))), nil
		}

		rest := string(rs[start:])

		i := strings.Index(rest, sub)
		if i < 0 {
			return model.Int(-1), nil
		}

		return model.Int(int64(start + utf8.RuneCountInString(rest[:i]))), nil
	}
}

// matchFlags are the letters accepted by the flags argument of the
// regular expression aware built-ins.
type matchFlags struct {
	ignoreCase bool
	regex      bool
	first      bool
	multiline  bool
	dotAll     bool
}

func parseFlags(b *Builtin, s string, allowed string) (matchFlags, error) {
	var f matchFlags

	for _, c := range s {
		if !strings.ContainsRune(allowed, c) {
			return f, ErrInvalidArgument.Wrap(fmt.Errorf("?%s doesn't support the %q flag", b.Name, c))
		}

		switch c {
		case 'i':
			f.ignoreCase = true
		case 'r':
			f.regex = true
		case 'f':
			f.first = true
		case 'm':
			f.multiline = true
		case 's':
			f.dotAll = true
		}
	}

	return f, nil
}

// literal reports whether matching needs no regular expression.
func (f matchFlags) literal() bool { return !f.regex && !f.ignoreCase }

func (f matchFlags) compile(b *Builtin, pattern string) (*regexp.Regexp, error) {
	if !f.regex {
		pattern = regexp.QuoteMeta(pattern)
	}

	var mods string

	if f.ignoreCase {
		mods += "i"
	}

	if f.multiline {
		mods += "m"
	}

	if f.dotAll {
		mods += "s"
	}

	if mods != "" {
		pattern = "(?" + mods + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s: %w", b.Name, err))
	}

	return re, nil
}

func (env *Environment) flagsArg(b *Builtin, args []model.Value, i int, allowed string) (matchFlags, error) {
	s, err := env.argStringOr(b, args, i, "")
	if err != nil {
		return matchFlags{}, err
	}

	return parseFlags(b, s, allowed)
}

func replace(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	from, err := env.argString(b, args, 0)
	if err != nil {
		return nil, err
	}

	to, err := env.argString(b, args, 1)
	if err != nil {
		return nil, err
	}

	flags, err := env.flagsArg(b, args, 2, "irfmsc")
	if err != nil {
		return nil, err
	}

	if flags.literal() {
		n := -1
		if flags.first {
			n = 1
		}

		return model.String(strings.Replace(s, from, to, n)), nil
	}

	re, err := flags.compile(b, from)
	if err != nil {
		return nil, err
	}

	if !flags.regex {
		to = strings.ReplaceAll(to, "$", "$$")
	}

	if flags.first {
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			return model.String(s), nil
		}

		dst := re.ExpandString(nil, to, s, loc)

		return model.String(s[:loc[0]] + string(dst) + s[loc[1]:]), nil
	}

	return model.String(re.ReplaceAllString(s, to)), nil
}

func split(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	sep, err := env.argString(b, args, 0)
	if err != nil {
		return nil, err
	}

	flags, err := env.flagsArg(b, args, 1, "irmsc")
	if err != nil {
		return nil, err
	}

	var parts []string

	if flags.literal() {
		parts = strings.Split(s, sep)
	} else {
		re, err := flags.compile(b, sep)
		if err != nil {
			return nil, err
		}

		parts = re.Split(s, -1)
	}

	out := make(model.List, len(parts))
	for i, p := range parts {
		out[i] = model.String(p)
	}

	return out, nil
}

func matches(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	pattern, err := env.argString(b, args, 0)
	if err != nil {
		return nil, err
	}

	flags, err := env.flagsArg(b, args, 1, "imsc")
	if err != nil {
		return nil, err
	}

	flags.regex = true

	re, err := flags.compile(b, "^(?:"+pattern+")$")
	if err != nil {
		return nil, err
	}

	return model.Bool(re.MatchString(s)), nil
}

func substring(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	rs := []rune(s)

	from, err := argInt(b, args, 0)
	if err != nil {
		return nil, err
	}

	to := len(rs)
	if len(args) > 1 {
		if to, err = argInt(b, args, 1); err != nil {
			return nil, err
		}
	}

	switch {
	case from < 0 || from > len(rs):
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s: begin index %d is out of bounds 0..%d", b.Name, from, len(rs)))
	case to < from || to > len(rs):
		return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s: end index %d is out of bounds %d..%d", b.Name, to, from, len(rs)))
	}

	return model.String(string(rs[from:to])), nil
}

// keep cuts s at the first or last match of the separator, keeping the
// part before or after it. Without a match, the "before" forms keep the
// whole string and the "after" forms keep nothing.
func keep(after, last bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		sep, err := env.argString(b, args, 0)
		if err != nil {
			return nil, err
		}

		flags, err := env.flagsArg(b, args, 1, "irmsc")
		if err != nil {
			return nil, err
		}

		re, err := flags.compile(b, sep)
		if err != nil {
			return nil, err
		}

		var loc []int

		if last {
			if all := re.FindAllStringIndex(s, -1); len(all) > 0 {
				loc = all[len(all)-1]
			}
		} else {
			loc = re.FindStringIndex(s)
		}

		switch {
		case loc == nil && after:
			return model.String(""), nil
		case loc == nil:
			return model.String(s), nil
		case after:
			return model.String(s[loc[1]:]), nil
		}

		return model.String(s[:loc[0]]), nil
	}
}

func affix(fn func(s, a string) string) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		a, err := env.argString(b, args, 0)
		if err != nil {
			return nil, err
		}

		return model.String(fn(s, a)), nil
	}
}

// ensureStartsWith adds the prefix unless s already has it. With two or
// more arguments, the first is a regular expression that s must match
// at its start.
func ensureStartsWith(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
	if len(args) == 1 {
		return affix(func(s, prefix string) string {
			if strings.HasPrefix(s, prefix) {
				return s
			}

			return prefix + s
		})(env, b, target, args)
	}

	s, err := env.str(b, target)
	if err != nil {
		return nil, err
	}

	pattern, err := env.argString(b, args, 0)
	if err != nil {
		return nil, err
	}

	prefix, err := env.argString(b, args, 1)
	if err != nil {
		return nil, err
	}

	flags, err := env.flagsArg(b, args, 2, "irmsc")
	if err != nil {
		return nil, err
	}

	if len(args) < 3 {
		flags.regex = true
	}

	re, err := flags.compile(b, pattern)
	if err != nil {
		return nil, err
	}

	if loc := re.FindStringIndex(s); loc != nil && loc[0] == 0 {
		return model.String(s), nil
	}

	return model.String(prefix + s), nil
}

// legacyEscape escapes with f. Where auto-escaping already escapes for a
// compatible format, the operand passes unchanged.
func legacyEscape(f markup.Format) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, _ []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		if env.autoEsc && env.format.IsLegacyBuiltInBypassed(b.Name) {
			return model.String(s), nil
		}

		return model.String(f.EscapePlainText(s)), nil
	}
}

const urlSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-.!~*'()"

// urlEscape percent-encodes the bytes of s in the given charset.
func urlEscape(path bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		charset, err := env.argStringOr(b, args, 0, "UTF-8")
		if err != nil {
			return nil, err
		}

		enc, err := ianaindex.IANA.Encoding(charset)
		if err != nil || enc == nil {
			return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s: unsupported charset %q", b.Name, charset))
		}

		raw, err := enc.NewEncoder().String(s)
		if err != nil {
			return nil, ErrInvalidArgument.Wrap(fmt.Errorf("?%s: %w", b.Name, err))
		}

		var sb strings.Builder

		for i := range len(raw) {
			c := raw[i]
			if strings.IndexByte(urlSafe, c) >= 0 || (path && c == '/') {
				sb.WriteByte(c)

				continue
			}

			fmt.Fprintf(&sb, "%%%02X", c)
		}

		return model.String(sb.String()), nil
	}
}

// javaString escapes s for a Java string literal.
func javaString(s string) string {
	var sb strings.Builder

	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04X`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}

	return sb.String()
}

// jsString escapes s for a JavaScript string literal, or for a JSON
// string when json is set. Sequences that would end a surrounding HTML
// script or CDATA section are broken up.
func jsString(s string, json bool) string {
	var sb strings.Builder

	rs := []rune(s)

	for i, r := range rs {
		switch {
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\'' && !json:
			sb.WriteString(`\'`)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\b':
			sb.WriteString(`\b`)
		case r == '\f':
			sb.WriteString(`\f`)
		case r == '/' && i > 0 && rs[i-1] == '<':
			sb.WriteString(`\/`)
		case r == '<' && !json && i+1 < len(rs) && rs[i+1] == '!':
			sb.WriteString(`\x3C`)
		case r == '>' && !json && (i == 0 || (i >= 2 && (string(rs[i-2:i]) == "]]" || string(rs[i-2:i]) == "--"))):
			sb.WriteString(`\>`)
		case r < 0x20 || r == 0x7F:
			if json {
				fmt.Fprintf(&sb, `\u%04X`, r)
			} else {
				fmt.Fprintf(&sb, `\x%02X`, r)
			}
		case r == '\u2028' || r == '\u2029':
			fmt.Fprintf(&sb, `\u%04X`, r)
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// quoteString renders s as a JSON string literal for ?c.
func quoteString(s string) string { return `"` + jsString(s, true) + `"` }

func truncateBuiltins() []*builtin {
	kinds := []struct {
		name   string
		markup bool
	}{
		{"truncate", false}, {"truncate_w", false}, {"truncate_c", false},
		{"truncate_m", true}, {"truncate_w_m", true}, {"truncate_c_m", true},
	}

	out := make([]*builtin, len(kinds))
	for i, k := range kinds {
		out[i] = fixed(k.name, 1, 3, truncateFn(k.markup))
	}

	return out
}

func truncateFn(markupResult bool) builtinFunc {
	return func(env *Environment, b *Builtin, target model.Value, args []model.Value) (model.Value, error) {
		s, err := env.str(b, target)
		if err != nil {
			return nil, err
		}

		maxLength, err := argInt(b, args, 0)
		if err != nil {
			return nil, err
		}

		var term truncate.Terminator

		if len(args) > 1 {
			switch t := args[1].(type) {
			case model.MarkupValue:
				term = truncate.Markup(t.Markup())
			default:
				text, err := env.argString(b, args, 1)
				if err != nil {
					return nil, err
				}

				term = truncate.Text(text)
			}
		}

		if len(args) > 2 {
			n, err := argInt(b, args, 2)
			if err != nil {
				return nil, err
			}

			term = term.WithLength(n)
		}

		a := env.set.truncate

		if !markupResult {
			var out string

			switch b.Name {
			case "truncate_w":
				out, err = a.TruncateW(s, maxLength, term)
			case "truncate_c":
				out, err = a.TruncateC(s, maxLength, term)
			default:
				out, err = a.Truncate(s, maxLength, term)
			}

			if err != nil {
				return nil, err
			}

			return model.String(out), nil
		}

		var r truncate.Result

		switch b.Name {
		case "truncate_w_m":
			r, err = a.TruncateWM(s, maxLength, term)
		case "truncate_c_m":
			r, err = a.TruncateCM(s, maxLength, term)
		default:
			r, err = a.TruncateM(s, maxLength, term)
		}

		if err != nil {
			return nil, err
		}

		if r.IsMarkup() {
			return model.MarkupOf(r.Markup), nil
		}

		return model.String(r.Text), nil
	}
}
