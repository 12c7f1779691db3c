package repl

import (
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/ftl/lang"
)

// isWordBoundary reports whether r delimits a word for completion: white
// space, the member-access dot, the built-in "?" and the operator and
// punctuation characters of expressions and interpolations.
func isWordBoundary(r rune) bool {
	return strings.ContainsRune(" \t.?()[]{}+-*/%<>=!&|,:;\"'$", r)
}

// wordBounds returns the word around cursor and its byte bounds in input.
// The word is empty when the cursor sits between two boundaries.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	// Boundaries are single bytes.
	start = strings.LastIndexFunc(input[:cursor], isWordBoundary) + 1

	end = len(input)
	if i := strings.IndexFunc(input[cursor:], isWordBoundary); i >= 0 {
		end = cursor + i
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain before the word at wordStart,
// so "x + user.address.ci" completes "ci" under "user.address". It is
// empty for a word that starts a chain.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	chain := strings.TrimRight(prefix, ".")
	start := strings.LastIndexFunc(chain, func(r rune) bool {
		return r != '.' && isWordBoundary(r)
	}) + 1

	return chain[start:]
}

// isBuiltinWord reports whether the word starting at wordStart follows the
// "?" of a built-in call.
func isBuiltinWord(input string, wordStart int) bool {
	return wordStart > 0 && input[wordStart-1] == '?'
}

// childCandidates returns the completions for a word under parent: the
// built-in names after "?", the top-level variables when parent is empty,
// and otherwise the keys of the hash parent names.
func childCandidates(ctx context.Context, sess *Session, parent string, builtin bool) []string {
	if builtin {
		return lang.Builtins()
	}

	return sess.Members(ctx, parent)
}

// computeMatches ranks the candidates for the word at the cursor. A word
// that starts an expression must be non-empty to get candidates, while a
// word after "." or "?" lists every member or built-in.
func (m model) computeMatches() (matches fuzzy.Matches, start, end int) {
	input := m.input.Value()

	word, start, end := wordBounds(input, m.input.Position())

	var candidates []string

	switch cmd, _, hasArgs := strings.Cut(input, " "); {
	case m.mode == modeCtrl && (!hasArgs || end <= len(cmd)):
		if word == "" {
			return nil, start, end
		}

		candidates = ctrlCommands
	case m.mode == modeCtrl && !commandArgsAreExpressions(cmd):
		return nil, start, end
	default:
		builtin := isBuiltinWord(input, start)

		parent := ""
		if !builtin {
			parent = parentPath(input, start)
		}

		if word == "" && parent == "" && !builtin {
			return nil, start, end
		}

		candidates = childCandidates(m.ctxFunc(), m.sess, parent, builtin)
	}

	if word == "" {
		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, start, end
	}

	return fuzzy.Find(word, candidates), start, end
}

// refresh recomputes the completions. With autoConfirm, a word already
// equal to its only candidate is accepted and the candidates are hidden.
func (m *model) refresh(autoConfirm bool) {
	m.comp.matches, m.comp.start, m.comp.end = m.computeMatches()

	if !m.comp.cycling {
		m.comp.selected = -1
	}

	if autoConfirm && len(m.comp.matches) == 1 &&
		m.input.Value()[m.comp.start:m.comp.end] == m.comp.matches[0].Str {
		m.comp.matches = nil
	}
}

// cycle selects the candidate dir steps away and writes it into the input.
// A single candidate is accepted at once.
func (m model) cycle(dir int) model {
	n := len(m.comp.matches)

	switch {
	case n == 0:
		return m
	case n == 1:
		m.complete(m.comp.matches[0].Str)
		m.comp.cycling = false
		m.comp.selected = -1
		m.comp.matches = nil

		return m
	case !m.comp.cycling:
		m.comp.cycling = true
		m.comp.before = m.current()

		m.comp.selected = 0
		if dir < 0 {
			m.comp.selected = n - 1
		}
	default:
		m.comp.selected = (m.comp.selected + dir + n) % n
	}

	m.complete(m.comp.matches[m.comp.selected].Str)

	return m
}

// complete replaces the current word with s and moves the cursor after it.
func (m *model) complete(s string) {
	input := m.input.Value()

	m.input.SetValue(input[:m.comp.start] + s + input[m.comp.end:])
	m.comp.end = m.comp.start + len(s)
	m.input.SetCursor(m.comp.end)
}

// candidateBar renders matches on one line that fits width, highlighting
// the matched characters and the selected candidate, and ending in "..."
// when candidates are left out.
func candidateBar(matches fuzzy.Matches, selected, width int) string {
	const sep = "  "

	if len(matches) == 0 || width <= 0 {
		return ""
	}

	ellipsis := hintStyle.Render("...")
	room := width - lipgloss.Width(ellipsis)

	parts := make([]string, 0, len(matches))
	used := 0

	for i, match := range matches {
		s := renderCandidate(match, i == selected)

		w := lipgloss.Width(s)
		if i > 0 {
			w += len(sep)
		}

		// The last candidate needs no room for the ellipsis.
		limit := room
		if i == len(matches)-1 {
			limit = width
		}

		if i > 0 && used+w > limit {
			parts = append(parts, ellipsis)

			break
		}

		parts = append(parts, s)
		used += w
	}

	return strings.Join(parts, sep)
}

func renderCandidate(match fuzzy.Match, selected bool) string {
	base, hit := suggestionStyle, matchStyle
	if selected {
		base, hit = selectedStyle, selMatchStyle
	}

	var b strings.Builder

	for i, r := range match.Str {
		style := base
		if slices.Contains(match.MatchedIndexes, i) {
			style = hit
		}

		b.WriteString(style.Render(string(r)))
	}

	return b.String()
}
