package truncate

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrInvalidArgument  = pkg.NewError("invalid truncate argument")
	ErrUnknownAlgorithm = pkg.NewError("unknown truncate algorithm")
)

// Algorithm implements the truncate built-ins.
//
// The plain methods return strings; a markup terminator passed to them fails
// with [ErrInvalidArgument]. The M methods return markup when the
// terminator, or the default markup terminator, is markup.
//
// Lengths are measured in characters (runes).
type Algorithm interface {
	// Truncate chooses between word and character boundaries.
	Truncate(s string, maxLength int, t Terminator) (string, error)
	// TruncateW cuts at a word boundary.
	TruncateW(s string, maxLength int, t Terminator) (string, error)
	// TruncateC cuts at a character boundary.
	TruncateC(s string, maxLength int, t Terminator) (string, error)
	TruncateM(s string, maxLength int, t Terminator) (Result, error)
	TruncateWM(s string, maxLength int, t Terminator) (Result, error)
	TruncateCM(s string, maxLength int, t Terminator) (Result, error)
}

// Standard terminators.
const (
	ASCIITerminator   = "[...]"
	UnicodeTerminator = "[…]"

	DefaultWordBoundaryMinLength = 0.75
)

// StandardMarkupTerminator is the default markup terminator of the
// predefined algorithms.
var StandardMarkupTerminator = markup.HTML.FromMarkup(
	"<span class='truncateTerminator'>[&#8230;]</span>",
)

// Predefined algorithms.
var (
	ASCII   = mustNew(ASCIITerminator, StandardMarkupTerminator, true)
	Unicode = mustNew(UnicodeTerminator, StandardMarkupTerminator, true)
)

// ByName returns a predefined algorithm by its configuration name.
func ByName(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ascii", "":
		return ASCII, nil
	case "unicode":
		return Unicode, nil
	default:
		return nil, ErrUnknownAlgorithm.With(slog.String("name", name))
	}
}

type mode uint8

const (
	charBoundary mode = iota
	wordBoundary
	auto
)

type config struct {
	termLength         *int
	termRemovesDots    *bool
	markupLength       *int
	markupRemovesDots  *bool
	wordBoundaryMinLen float64
}

// Option configures a [Default] algorithm.
type Option = pkg.Option[config]

// WithTerminatorLength overrides the measured length of the default
// terminator.
func WithTerminatorLength(n int) Option {
	return func(c config) config {
		c.termLength = &n

		return c
	}
}

// WithTerminatorRemovesDots overrides whether the default terminator
// absorbs trailing dots of the truncated text.
func WithTerminatorRemovesDots(b bool) Option {
	return func(c config) config {
		c.termRemovesDots = &b

		return c
	}
}

// WithMarkupTerminatorLength overrides the measured length of the default
// markup terminator.
func WithMarkupTerminatorLength(n int) Option {
	return func(c config) config {
		c.markupLength = &n

		return c
	}
}

// WithMarkupTerminatorRemovesDots overrides whether the default markup
// terminator absorbs trailing dots of the truncated text.
func WithMarkupTerminatorRemovesDots(b bool) Option {
	return func(c config) config {
		c.markupRemovesDots = &b

		return c
	}
}

// WithWordBoundaryMinLength sets the fraction of maxLength a word-boundary
// cut must keep for [Default.Truncate] to prefer it over a character
// boundary. It must be within [0, 1].
func WithWordBoundaryMinLength(f float64) Option {
	return func(c config) config {
		c.wordBoundaryMinLen = f

		return c
	}
}

// Default is the standard truncation algorithm.
type Default struct {
	term              string
	termLength        int
	termRemovesDots   bool
	markup            *markup.Model
	markupLength      int
	markupRemovesDots bool
	addSpace          bool
	wbMinLength       float64
}

// New returns an algorithm using term as the default terminator and
// markupTerm (which may be nil) as the default terminator of the M methods.
// With addSpaceAtWordBoundary a space separates the terminator from a
// preceding whole word.
func New(
	term string,
	markupTerm *markup.Model,
	addSpaceAtWordBoundary bool,
	opts ...Option,
) (*Default, error) {
	cfg := pkg.Apply(config{wordBoundaryMinLen: DefaultWordBoundaryMinLength}, opts...)

	if cfg.wordBoundaryMinLen < 0 || cfg.wordBoundaryMinLen > 1 {
		return nil, invalidArgument(
			"wordBoundaryMinLength must be between 0.0 and 1.0 (inclusive)",
			slog.Float64("wordBoundaryMinLength", cfg.wordBoundaryMinLen),
		)
	}

	a := &Default{
		term:        term,
		termLength:  valueOr(cfg.termLength, textLength(term)),
		markup:      markupTerm,
		addSpace:    addSpaceAtWordBoundary,
		wbMinLength: cfg.wordBoundaryMinLen,
	}

	if cfg.termRemovesDots != nil {
		a.termRemovesDots = *cfg.termRemovesDots
	} else {
		a.termRemovesDots = textRemovesDots(term)
	}

	if markupTerm != nil {
		if cfg.markupLength != nil {
			a.markupLength = *cfg.markupLength
		} else {
			a.markupLength = markupLength(markupTerm)
		}

		if cfg.markupRemovesDots != nil {
			a.markupRemovesDots = *cfg.markupRemovesDots
		} else {
			a.markupRemovesDots = markupRemovesDots(markupTerm)
		}
	}

	if a.termLength < 0 || a.markupLength < 0 {
		return nil, invalidArgument("terminator length can't be negative")
	}

	return a, nil
}

func invalidArgument(reason string, attrs ...slog.Attr) error {
	return ErrInvalidArgument.Wrap(errors.New(reason)).With(attrs...)
}

func mustNew(term string, markupTerm *markup.Model, addSpace bool) *Default {
	a, err := New(term, markupTerm, addSpace)
	if err != nil {
		panic(err)
	}

	return a
}

func valueOr[T any](p *T, v T) T {
	if p != nil {
		return *p
	}

	return v
}

// Terminator returns the default terminator.
func (a *Default) Terminator() string { return a.term }

// MarkupTerminator returns the default markup terminator, or nil.
func (a *Default) MarkupTerminator() *markup.Model { return a.markup }

// WordBoundaryMinLength returns the word-boundary preference threshold.
func (a *Default) WordBoundaryMinLength() float64 { return a.wbMinLength }

// AddSpaceAtWordBoundary reports whether a space precedes the terminator
// after a whole word.
func (a *Default) AddSpaceAtWordBoundary() bool { return a.addSpace }

func (a *Default) Truncate(s string, maxLength int, t Terminator) (string, error) {
	return a.text(s, maxLength, t, auto)
}

func (a *Default) TruncateW(s string, maxLength int, t Terminator) (string, error) {
	return a.text(s, maxLength, t, wordBoundary)
}

func (a *Default) TruncateC(s string, maxLength int, t Terminator) (string, error) {
	return a.text(s, maxLength, t, charBoundary)
}

func (a *Default) TruncateM(s string, maxLength int, t Terminator) (Result, error) {
	return a.unified(s, maxLength, t, auto, true)
}

func (a *Default) TruncateWM(s string, maxLength int, t Terminator) (Result, error) {
	return a.unified(s, maxLength, t, wordBoundary, true)
}

func (a *Default) TruncateCM(s string, maxLength int, t Terminator) (Result, error) {
	return a.unified(s, maxLength, t, charBoundary, true)
}

func (a *Default) text(s string, maxLength int, t Terminator, m mode) (string, error) {
	if t.IsMarkup() {
		return "", invalidArgument("markup terminator requires a markup truncate variant")
	}

	r, err := a.unified(s, maxLength, t, m, false)
	if err != nil {
		return "", err
	}

	return r.Text, nil
}

func (a *Default) unified(
	s string,
	maxLength int,
	t Terminator,
	m mode,
	allowMarkup bool,
) (Result, error) {
	rs := []rune(s)
	if len(rs) <= maxLength {
		return Result{Text: s}, nil
	}

	if maxLength < 0 {
		return Result{}, invalidArgument("maxLength can't be negative",
			slog.Int("maxLength", maxLength),
		)
	}

	var (
		termLength  int
		removesDots bool
	)

	switch {
	case t.IsZero() && allowMarkup && a.markup != nil:
		t, termLength, removesDots = Markup(a.markup), a.markupLength, a.markupRemovesDots
	case t.IsZero():
		t, termLength, removesDots = Text(a.term), a.termLength, a.termRemovesDots
	default:
		if t.hasLength {
			if t.length < 0 {
				return Result{}, invalidArgument("terminatorLength can't be negative",
					slog.Int("terminatorLength", t.length),
				)
			}

			termLength = t.length
		} else {
			termLength = t.measure()
		}

		removesDots = t.removesDots()
	}

	cut := a.cut(rs, maxLength, termLength, removesDots, m)
	if len(cut) == 0 {
		return t.result(), nil
	}

	if t.markup == nil {
		return Result{Text: string(cut) + t.text}, nil
	}

	f := t.markup.Format()

	res, err := f.Concat(f.FromPlainTextByEscaping(string(cut)), t.markup)
	if err != nil {
		return Result{}, err
	}

	return Result{Markup: res}, nil
}

// cut returns the part of s kept before the terminator, including the
// separating space when one is added. An empty result means only the
// terminator remains.
func (a *Default) cut(s []rune, maxLength, termLength int, removesDots bool, m mode) []rune {
	cbInitialLast := maxLength - termLength - 1

	cbLast := skipTrailingWS(s, cbInitialLast)
	if cbLast < 0 {
		return nil
	}

	if (m == auto && a.wbMinLength < 1.0) || m == wordBoundary {
		wordTermLength := termLength
		if a.addSpace {
			wordTermLength++
		}

		minIdx := 0
		if m == auto {
			minIdx = max(int(math.Ceil(float64(maxLength)*a.wbMinLength))-wordTermLength-1, 0)
		}

		wbLast := min(maxLength-wordTermLength-1, cbLast)

		followingWS := true
		if len(s) > wbLast+1 {
			followingWS = isWhitespace(s[wbLast+1])
		}

		var kept []rune

	search:
		for wbLast >= minIdx {
			c := s[wbLast]
			cIsWS := isWhitespace(c)

			if !cIsWS && followingWS {
				if !a.addSpace && isDot(c) && removesDots {
					for wbLast >= minIdx && isDotOrWS(s[wbLast]) {
						wbLast--
					}

					if wbLast < minIdx {
						break search
					}
				}

				kept = make([]rune, 0, wbLast+1+wordTermLength)
				kept = append(kept, s[:wbLast+1]...)

				if a.addSpace {
					kept = append(kept, ' ')
				}

				break search
			}

			followingWS = cIsWS
			wbLast--
		}

		if kept != nil || m == wordBoundary || (m == auto && a.wbMinLength == 0) {
			return kept
		}
	}

	if cbLast == cbInitialLast && a.addSpace && isWordEnd(s, cbLast) {
		cbLast--
		if cbLast < 0 {
			return nil
		}
	}

	for {
		cbLast = skipTrailingWS(s, cbLast)
		if cbLast < 0 {
			return nil
		}

		if !isDot(s[cbLast]) || (a.addSpace && isWordEnd(s, cbLast)) || !removesDots {
			break
		}

		cbLast = skipTrailingDots(s, cbLast)
		if cbLast < 0 {
			return nil
		}
	}

	addSpace := a.addSpace && isWordEnd(s, cbLast)

	kept := make([]rune, 0, cbLast+2+termLength)
	kept = append(kept, s[:cbLast+1]...)

	if addSpace {
		kept = append(kept, ' ')
	}

	return kept
}

func skipTrailingWS(s []rune, last int) int {
	for last >= 0 && isWhitespace(s[last]) {
		last--
	}

	return last
}

func skipTrailingDots(s []rune, last int) int {
	for last >= 0 && isDot(s[last]) {
		last--
	}

	return last
}

func isWordEnd(s []rune, last int) bool {
	return last+1 >= len(s) || isWhitespace(s[last+1])
}

func isDot(c rune) bool { return c == '.' || c == '…' }

func isDotOrWS(c rune) bool { return isDot(c) || isWhitespace(c) }

// isWhitespace reports whether c separates words: Unicode space, line and
// paragraph separators other than the no-break spaces, and the ASCII
// control characters \t \n \v \f \r and \x1c through \x1f.
func isWhitespace(c rune) bool {
	switch c {
	case '\u00a0', '\u2007', '\u202f':
		return false
	case '\t', '\n', '\v', '\f', '\r', '\x1c', '\x1d', '\x1e', '\x1f':
		return true
	}

	return unicode.In(c, unicode.Zs, unicode.Zl, unicode.Zp)
}
