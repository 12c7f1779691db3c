package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokText
	tokInterp       // ${
	tokNumInterp    // #{
	tokInterpEnd    // } closing an interpolation
	tokDirective    // <#name
	tokDirectiveEnd // </#name>
	tokCall         // <@
	tokCallEnd      // </@name>
	tokComment      // <#-- ... -->
	tokTagEnd       // >
	tokTagEmptyEnd  // />
	tokIdent
	tokNumber
	tokString
	tokOp
)

var tokenKindName = [...]string{
	tokEOF:          "end of input",
	tokText:         "text",
	tokInterp:       `"${"`,
	tokNumInterp:    `"#{"`,
	tokInterpEnd:    `"}"`,
	tokDirective:    "directive",
	tokDirectiveEnd: "end tag",
	tokCall:         `"<@"`,
	tokCallEnd:      "end tag",
	tokComment:      "comment",
	tokTagEnd:       `">"`,
	tokTagEmptyEnd:  `"/>"`,
	tokIdent:        "name",
	tokNumber:       "number",
	tokString:       "string",
	tokOp:           "operator",
}

func (k tokenKind) String() string { return tokenKindName[k] }

type token struct {
	kind  tokenKind
	val   string
	quote byte // Quote character of a string literal
	raw   bool // Raw string literal, or text of a noparse block
	pos   Position
	end   Position
}

// describe returns the token as it appears in messages.
func (t token) describe() string {
	switch t.kind {
	case tokEOF, tokText, tokComment:
		return t.kind.String()
	case tokDirective:
		return "<#" + t.val
	case tokDirectiveEnd:
		return "</#" + t.val + ">"
	case tokCallEnd:
		return "</@" + t.val + ">"
	case tokString:
		return "string literal"
	default:
		if t.val != "" {
			return `"` + t.val + `"`
		}

		return t.kind.String()
	}
}

type lexMode uint8

const (
	modeTag lexMode = iota
	modeInterp
	modeString // interpolation inside a string literal
)

// lexer splits template source into a flat token stream.
type lexer struct {
	name  string
	input string
	pos   int
	line  int
	col   int
	toks  []token
}

func newLexer(name, input string, at Position) *lexer {
	if at.Line == 0 {
		at = Position{Line: 1, Column: 1}
	}

	return &lexer{name: name, input: input, pos: 0, line: at.Line, col: at.Column}
}

// lex tokenizes the whole template.
func lex(name, input string) ([]token, error) {
	l := newLexer(name, input, Position{})
	if err := l.lexTemplate(); err != nil {
		return nil, err
	}

	return l.toks, nil
}

// lexExpression tokenizes a bare expression, such as the text of an
// interpolation inside a string literal.
func lexExpression(name, input string, at Position) ([]token, error) {
	l := newLexer(name, input, at)

	for {
		l.skipWhitespace()

		if l.eof() {
			l.emit(tokEOF, "", l.position())

			return l.toks, nil
		}

		depth := 0
		if err := l.lexExprToken(modeString, &depth); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) errorf(pos Position, format string, args ...any) error {
	return newParseError(l.name, l.input, pos, ErrParse, format, args...)
}

func (l *lexer) emit(kind tokenKind, val string, start Position) *token {
	l.toks = append(l.toks, token{kind: kind, val: val, pos: start, end: l.position()})

	return &l.toks[len(l.toks)-1]
}

func (l *lexer) lexTemplate() error {
	for !l.eof() {
		start := l.position()
		text := l.scanText()

		if text != "" {
			l.emit(tokText, text, start)
		}

		if l.eof() {
			break
		}

		if err := l.lexMarkup(); err != nil {
			return err
		}
	}

	l.emit(tokEOF, "", l.position())

	return nil
}

// scanText consumes text up to the next tag or interpolation.
func (l *lexer) scanText() string {
	start := l.pos

	for !l.eof() && !l.atMarkup() {
		l.advance()
	}

	return l.input[start:l.pos]
}

func (l *lexer) atMarkup() bool {
	rest := l.input[l.pos:]

	switch {
	case strings.HasPrefix(rest, "${"), strings.HasPrefix(rest, "#{"):
		return true
	case strings.HasPrefix(rest, "<#--"):
		return true
	case strings.HasPrefix(rest, "<#"):
		return startsName(rest[2:])
	case strings.HasPrefix(rest, "</#"):
		return startsName(rest[3:])
	case strings.HasPrefix(rest, "<@"):
		return startsName(rest[2:])
	case strings.HasPrefix(rest, "</@"):
		return startsName(rest[3:]) || strings.HasPrefix(rest[3:], ">")
	}

	return false
}

func startsName(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)

	return isIdentifierStart(r)
}

func (l *lexer) lexMarkup() error {
	start := l.position()
	rest := l.input[l.pos:]

	switch {
	case strings.HasPrefix(rest, "${"), strings.HasPrefix(rest, "#{"):
		kind := tokInterp
		if rest[0] == '#' {
			kind = tokNumInterp
		}

		l.advanceN(2)
		l.emit(kind, rest[:2], start)

		return l.lexInside(modeInterp, start)

	case strings.HasPrefix(rest, "<#--"):
		end := strings.Index(rest[4:], "-->")
		if end < 0 {
			return l.errorf(start, "unclosed comment")
		}

		l.advanceN(4 + end + 3)
		l.emit(tokComment, rest[4:4+end], start)

		return nil

	case strings.HasPrefix(rest, "</#"), strings.HasPrefix(rest, "</@"):
		kind := tokDirectiveEnd
		if rest[2] == '@' {
			kind = tokCallEnd
		}

		l.advanceN(3)
		name := l.scanName(kind == tokCallEnd)
		l.skipWhitespace()

		if !l.expect('>') {
			return l.errorf(l.position(), "expected %q to close the end tag of %q", ">", name)
		}

		l.emit(kind, name, start)

		return nil

	case strings.HasPrefix(rest, "<#"):
		l.advanceN(2)
		name := l.scanName(false)
		l.emit(tokDirective, name, start)

		if name == "noparse" {
			return l.lexNoparse(start)
		}

		return l.lexInside(modeTag, start)

	default: // "<@"
		l.advanceN(2)
		l.emit(tokCall, "<@", start)

		return l.lexInside(modeTag, start)
	}
}

// scanName consumes a directive name. Names of user directives may be
// dotted paths.
func (l *lexer) scanName(dotted bool) string {
	start := l.pos

	for !l.eof() {
		r := l.peek()
		if isIdentifierContinue(r) || (dotted && r == '.') {
			l.advance()

			continue
		}

		break
	}

	return l.input[start:l.pos]
}

// lexNoparse emits the text of a noparse block verbatim.
func (l *lexer) lexNoparse(start Position) error {
	l.skipWhitespace()

	tagEnd := l.position()
	if !l.expect('>') {
		return l.errorf(tagEnd, "expected %q after <#noparse", ">")
	}

	l.emit(tokTagEnd, ">", tagEnd)

	textStart := l.position()
	rest := l.input[l.pos:]

	end := strings.Index(rest, "</#noparse")
	if end < 0 {
		return l.errorf(start, "unclosed <#noparse>")
	}

	l.advanceN(end)

	if end > 0 {
		l.emit(tokText, rest[:end], textStart).raw = true
	}

	endStart := l.position()
	l.advanceN(len("</#noparse"))
	l.skipWhitespace()

	if !l.expect('>') {
		return l.errorf(l.position(), "expected %q to close the end tag of %q", ">", "noparse")
	}

	l.emit(tokDirectiveEnd, "noparse", endStart)

	return nil
}

// lexInside tokenizes the expression part of a tag or interpolation.
func (l *lexer) lexInside(mode lexMode, open Position) error {
	depth := 0

	for {
		l.skipWhitespace()

		if l.eof() {
			if mode == modeInterp {
				return l.errorf(open, "unclosed interpolation")
			}

			return l.errorf(open, "unclosed tag")
		}

		start := l.position()
		rest := l.input[l.pos:]

		if depth == 0 {
			switch {
			case mode == modeTag && rest[0] == '>':
				l.advance()
				l.emit(tokTagEnd, ">", start)

				return nil
			case mode == modeTag && strings.HasPrefix(rest, "/>"):
				l.advanceN(2)
				l.emit(tokTagEmptyEnd, "/>", start)

				return nil
			case mode == modeInterp && rest[0] == '}':
				l.advance()
				l.emit(tokInterpEnd, "}", start)

				return nil
			}
		}

		if err := l.lexExprToken(mode, &depth); err != nil {
			return err
		}
	}
}

// operators are matched longest first.
var operators = []string{
	"..<", "..!", "..*", "...",
	"..", "->", "??", "==", "!=", "<=", ">=", "&&", "||",
	"++", "--", "+=", "-=", "*=", "/=", "%=",
	"!", "?", "=", "<", ">", "+", "-", "*", "/", "%",
	".", ",", ":", ";", "(", ")", "[", "]", "{", "}",
}

func (l *lexer) lexExprToken(mode lexMode, depth *int) error {
	start := l.position()
	rest := l.input[l.pos:]
	r := l.peek()

	switch {
	case r == '"' || r == '\'':
		return l.lexString(false)
	case r == 'r' && len(rest) > 1 && (rest[1] == '"' || rest[1] == '\''):
		l.advance()

		return l.lexString(true)
	case r >= '0' && r <= '9':
		l.lexNumber()

		return nil
	case isIdentifierStart(r):
		for !l.eof() && isIdentifierContinue(l.peek()) {
			l.advance()
		}

		l.emit(tokIdent, l.input[start.Offset:l.pos], start)

		return nil
	}

	for _, op := range operators {
		if !strings.HasPrefix(rest, op) {
			continue
		}

		switch op {
		case "(", "[", "{":
			*depth++
		case ")", "]", "}":
			*depth--
		}

		l.advanceN(len(op))
		l.emit(tokOp, op, start)

		return nil
	}

	return l.errorf(start, "unexpected character %q", r)
}

func (l *lexer) lexNumber() {
	start := l.position()

	for !l.eof() && isDigit(l.peek()) {
		l.advance()
	}

	// A dot starts a fraction only when a digit follows, so "1..3" is a range.
	if l.peek() == '.' && l.pos+1 < len(l.input) && isDigit(rune(l.input[l.pos+1])) {
		l.advance()

		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
	}

	l.emit(tokNumber, l.input[start.Offset:l.pos], start)
}

// lexString emits the source text between the quotes. Escapes are decoded
// by the parser so that interpolations can be located first.
func (l *lexer) lexString(raw bool) error {
	start := l.position()
	if raw {
		start.Offset--
		start.Column--
	}

	quote := l.input[l.pos]
	l.advance()

	from := l.pos

	for !l.eof() {
		c := l.input[l.pos]

		switch {
		case c == '\\' && !raw:
			l.advance()

			if !l.eof() {
				l.advance()
			}
		case c == quote:
			val := l.input[from:l.pos]
			l.advance()

			t := l.emit(tokString, val, start)
			t.quote = quote
			t.raw = raw

			return nil
		default:
			l.advance()
		}
	}

	return l.errorf(start, "unclosed string literal")
}

// Helper methods

func (l *lexer) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])

	return r
}

func (l *lexer) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])

	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexer) advanceN(n int) {
	for end := l.pos + n; l.pos < end && !l.eof(); {
		l.advance()
	}
}

func (l *lexer) expect(ch rune) bool {
	if l.peek() == ch {
		l.advance()

		return true
	}

	return false
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.input)
}

func (l *lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *lexer) skipWhitespace() {
	for !l.eof() && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// Character classification

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentifierStart(r rune) bool {
	return unicode.In(r,
		unicode.L,  // Letter
		unicode.Nl, // Letter, Number
		unicode.Other_ID_Start,
	) || r == '_' || r == '$'
}

func isIdentifierContinue(r rune) bool {
	return unicode.In(r,
		unicode.L,  // Letter
		unicode.Nl, // Letter, Number
		unicode.Other_ID_Start,
		unicode.Mn, // Mark, Nonspacing
		unicode.Mc, // Mark, Spacing Combining
		unicode.Nd, // Number, Decimal Digit
		unicode.Pc, // Punctuation, Connector
		unicode.Other_ID_Continue,
	) || r == '$'
}
