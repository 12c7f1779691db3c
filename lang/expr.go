package lang

import (
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/ftl/arith"
)

// Binding powers of the infix operators, lowest first.
const (
	bpNone = iota * 10
	bpOr
	bpAnd
	bpEquality
	bpRelational
	bpRange
	bpAdditive
	bpMultiplicative
)

// keywordOps are the operators spelled as names. They avoid ">" inside
// tags, where it would close the tag.
var keywordOps = map[string]string{
	"lt":  "<",
	"lte": "<=",
	"gt":  ">",
	"gte": ">=",
}

func infixPower(t token) int {
	switch t.kind {
	case tokIdent:
		if _, ok := keywordOps[t.val]; ok {
			return bpRelational
		}
	case tokOp:
		switch t.val {
		case "||":
			return bpOr
		case "&&":
			return bpAnd
		case "==", "=", "!=":
			return bpEquality
		case "<", "<=", ">", ">=":
			return bpRelational
		case "..", "..<", "..!", "..*":
			return bpRange
		case "+", "-":
			return bpAdditive
		case "*", "/", "%":
			return bpMultiplicative
		}
	}

	return bpNone
}

// reservedNames end an expression where an operand could otherwise start.
var reservedNames = []string{"as", "in", "using", "lt", "lte", "gt", "gte"}

// startsExpr reports whether the next token can begin an operand.
func (p *parser) startsExpr() bool {
	t := p.peek()

	switch t.kind {
	case tokNumber, tokString:
		return true
	case tokIdent:
		return !slices.Contains(reservedNames, t.val)
	case tokOp:
		switch t.val {
		case "(", "[", "{", "-", "+", "!", ".":
			return true
		}
	}

	return false
}

func (p *parser) parseExpr() (Expr, error) { return p.parseBinary(bpNone) }

// parseBinary parses operators binding tighter than minPower.
func (p *parser) parseBinary(minPower int) (Expr, error) {
	if err := p.enter(p.peek().pos); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()

		power := infixPower(t)
		if power == bpNone || power <= minPower {
			return left, nil
		}

		p.next()

		op := t.val
		if sym, ok := keywordOps[op]; ok && t.kind == tokIdent {
			op = sym
		}

		if power == bpRange {
			r := &Range{At: t.pos, Op: op, From: left}

			if op != ".." || p.startsExpr() {
				if r.To, err = p.parseBinary(power); err != nil {
					return nil, err
				}
			}

			left = r

			continue
		}

		right, err := p.parseBinary(power)
		if err != nil {
			return nil, err
		}

		if op == "=" {
			op = "=="
		}

		left = &Binary{At: t.pos, Op: op, X: left, Y: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.kind == tokOp && (t.val == "!" || t.val == "-" || t.val == "+") {
		p.next()

		if err := p.enter(t.pos); err != nil {
			return nil, err
		}
		defer p.leave()

		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &Unary{At: t.pos, Op: t.val, X: x}, nil
	}

	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	return p.parsePostfix(x)
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()

	switch t.kind {
	case tokNumber:
		n, err := arith.Parse(t.val)
		if err != nil {
			return nil, p.wrapf(t.pos, err, "invalid number %q", t.val)
		}

		return &NumberLit{At: t.pos, Value: n, Text: t.val}, nil

	case tokString:
		return p.parseStringLit(t)

	case tokIdent:
		switch t.val {
		case "true", "false":
			return &BoolLit{At: t.pos, Value: t.val == "true"}, nil
		}

		return &Ident{At: t.pos, Name: t.val}, nil

	case tokOp:
		switch t.val {
		case "(":
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expectOp(")"); err != nil {
				return nil, err
			}

			return &Paren{At: t.pos, X: x}, nil

		case "[":
			items, err := p.parseExprList("]")
			if err != nil {
				return nil, err
			}

			return &ListLit{At: t.pos, Items: items}, nil

		case "{":
			return p.parseHash(t)

		case ".":
			name, err := p.expectIdent("special variable name")
			if err != nil {
				return nil, err
			}

			if !slices.Contains(specialVarNames, name.val) {
				return nil, p.errorf(name.pos, "unknown special variable %q%s",
					name.val, suggest(name.val, specialVarNames))
			}

			return &SpecialVar{At: t.pos, Name: name.val}, nil
		}
	}

	return nil, p.unexpected(t, "expression")
}

// parseExprList parses comma separated expressions up to the close operator.
func (p *parser) parseExprList(close string) ([]Expr, error) {
	var items []Expr

	for !p.acceptOp(close) {
		if len(items) > 0 {
			if _, err := p.expectOp(","); err != nil {
				return nil, err
			}
		}

		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		items = append(items, x)
	}

	return items, nil
}

func (p *parser) parseHash(t token) (Expr, error) {
	h := &HashLit{At: t.pos}

	for !p.acceptOp("}") {
		if len(h.Keys) > 0 {
			if _, err := p.expectOp(","); err != nil {
				return nil, err
			}
		}

		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expectOp(":"); err != nil {
			return nil, err
		}

		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		h.Keys = append(h.Keys, k)
		h.Values = append(h.Values, v)
	}

	return h, nil
}

func (p *parser) parsePostfix(x Expr) (Expr, error) {
	for {
		t := p.peek()
		if t.kind != tokOp {
			return x, nil
		}

		switch t.val {
		case ".":
			p.next()

			name := p.next()
			if name.kind != tokIdent {
				return nil, p.unexpected(name, "name after \".\"")
			}

			x = &Dot{At: name.pos, X: x, Name: name.val}

		case "[":
			p.next()

			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expectOp("]"); err != nil {
				return nil, err
			}

			x = &Index{At: t.pos, X: x, Index: idx}

		case "(":
			p.next()

			args, err := p.parseExprList(")")
			if err != nil {
				return nil, err
			}

			x = &Call{At: t.pos, Fn: x, Args: args}

		case "?":
			p.next()

			b, err := p.parseBuiltin(t, x)
			if err != nil {
				return nil, err
			}

			x = b

		case "??":
			p.next()

			x = &Exists{At: t.pos, X: x}

		case "!":
			p.next()

			d := &Default{At: t.pos, X: x}

			if p.startsExpr() {
				v, err := p.parseBinary(bpRange)
				if err != nil {
					return nil, err
				}

				d.Default = v
			}

			return d, nil

		default:
			return x, nil
		}
	}
}

func (p *parser) parseBuiltin(q token, x Expr) (Expr, error) {
	name, err := p.expectIdent("built-in name")
	if err != nil {
		return nil, err
	}

	if name.val == "settings" {
		return nil, p.errorf(name.pos, "?settings(...) is only allowed at the head of a template path")
	}

	bi, ok := builtins[name.val]
	if !ok {
		return nil, newParseError(p.name, p.source, name.pos, ErrUnknownBuiltin,
			"unknown built-in %q%s", name.val, suggest(name.val, builtinNames()))
	}

	b := &Builtin{At: q.pos, X: x, Name: name.val}

	if p.atOp("(") {
		p.next()

		b.HasArgs = true

		for !p.acceptOp(")") {
			if len(b.Args) > 0 {
				if _, err := p.expectOp(","); err != nil {
					return nil, err
				}
			}

			arg, err := p.parseArg(bi)
			if err != nil {
				return nil, err
			}

			b.Args = append(b.Args, arg)
		}
	}

	switch n := len(b.Args); {
	case !b.HasArgs && bi.minArgs > 0:
		return nil, p.errorf(name.pos, "?%s needs arguments", name.val)
	case b.HasArgs && bi.maxArgs == 0:
		return nil, p.errorf(name.pos, "?%s doesn't have arguments", name.val)
	case b.HasArgs && n < bi.minArgs:
		return nil, p.errorf(name.pos, "?%s needs at least %d argument(s), got %d", name.val, bi.minArgs, n)
	case bi.maxArgs >= 0 && n > bi.maxArgs:
		return nil, p.errorf(name.pos, "?%s accepts at most %d argument(s), got %d", name.val, bi.maxArgs, n)
	}

	if bi.loopVar {
		id, ok := x.(*Ident)
		if !ok || !slices.Contains(p.block.loopVars, id.Name) {
			return nil, p.errorf(q.pos, "the left-hand operand of ?%s must be a loop variable", name.val)
		}
	}

	return b, nil
}

// parseArg parses a built-in argument, which may be a lambda when the
// built-in accepts one.
func (p *parser) parseArg(bi *builtin) (Expr, error) {
	t := p.peek()

	var param token

	switch {
	case t.kind == tokIdent && p.peekAt(1).kind == tokOp && p.peekAt(1).val == "->":
		param = p.next()
	case t.kind == tokOp && t.val == "(" && p.peekAt(1).kind == tokIdent &&
		p.peekAt(2).kind == tokOp && p.peekAt(2).val == ")" &&
		p.peekAt(3).kind == tokOp && p.peekAt(3).val == "->":
		p.next()
		param = p.next()
		p.next()
	default:
		return p.parseExpr()
	}

	arrow := p.next()

	if !bi.lambda {
		return nil, p.errorf(arrow.pos, "?%s doesn't accept a lambda argument", bi.name)
	}

	saved := p.block.loopVars
	p.block.loopVars = nil

	body, err := p.parseExpr()

	p.block.loopVars = saved

	if err != nil {
		return nil, err
	}

	return &Lambda{At: param.pos, Param: param.val, Body: body}, nil
}

// parseStringLit decodes a string literal, splitting out its
// interpolations.
func (p *parser) parseStringLit(t token) (Expr, error) {
	if t.raw {
		return &StringLit{At: t.pos, Value: t.val, Raw: true}, nil
	}

	spans, err := p.interpolationSpans(t)
	if err != nil {
		return nil, err
	}

	if len(spans) == 0 {
		v, err := p.unescape(t)
		if err != nil {
			return nil, err
		}

		return &StringLit{At: t.pos, Value: v}, nil
	}

	lit := &TemplateLit{At: t.pos}
	last := 0

	for _, span := range spans {
		if span[0] > last {
			v, err := p.unescapeAt(t, t.val[last:span[0]])
			if err != nil {
				return nil, err
			}

			lit.Parts = append(lit.Parts, &StringLit{At: t.pos, Value: v})
		}

		src, err := p.unescapeAt(t, t.val[span[0]+2:span[1]])
		if err != nil {
			return nil, err
		}

		at := t.pos
		at.Offset += 1 + span[0] + 2
		at.Column += 1 + span[0] + 2

		x, err := p.parseEmbedded(src, at)
		if err != nil {
			return nil, err
		}

		lit.Parts = append(lit.Parts, &Interp{At: at, X: x, MaxFrac: -1})
		last = span[1] + 1
	}

	if last < len(t.val) {
		v, err := p.unescapeAt(t, t.val[last:])
		if err != nil {
			return nil, err
		}

		lit.Parts = append(lit.Parts, &StringLit{At: t.pos, Value: v})
	}

	return lit, nil
}

// interpolationSpans returns the offsets of "${" and of its closing "}"
// for each interpolation in the literal source.
func (p *parser) interpolationSpans(t token) ([][2]int, error) {
	var spans [][2]int

	s := t.val

	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			end := closingBrace(s, i+2)
			if end < 0 {
				return nil, p.errorf(t.pos, "unclosed interpolation in string literal")
			}

			spans = append(spans, [2]int{i, end})
			i = end
		}
	}

	return spans, nil
}

// closingBrace returns the index of the brace closing the one before
// start, skipping nested braces and quoted strings.
func closingBrace(s string, start int) int {
	depth := 0

	var quote byte

	for i := start; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				return i
			}

			depth--
		}
	}

	return -1
}

func (p *parser) parseEmbedded(src string, at Position) (Expr, error) {
	toks, err := lexExpression(p.name, src, at)
	if err != nil {
		return nil, err
	}

	sub := newParser(p.name, p.source, toks, p.maxDepth, p.logger)
	sub.depth = p.depth
	sub.block = p.block

	x, err := sub.parseExpr()
	if err != nil {
		return nil, err
	}

	if t := sub.peek(); t.kind != tokEOF {
		return nil, sub.unexpected(t, `"}"`)
	}

	return x, nil
}

func (p *parser) unescape(t token) (string, error) {
	if t.raw {
		return t.val, nil
	}

	return p.unescapeAt(t, t.val)
}

// unescapeAt decodes the escapes of s, a part of the literal t.
func (p *parser) unescapeAt(t token, s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var sb strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)

			continue
		}

		i++
		if i >= len(s) {
			return "", p.errorf(t.pos, "string literal ends with a backslash")
		}

		switch e := s[i]; e {
		case '"', '\'', '\\', '{', '=', '$':
			sb.WriteByte(e)
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'l':
			sb.WriteByte('<')
		case 'g':
			sb.WriteByte('>')
		case 'a':
			sb.WriteByte('&')
		case 'x':
			end := i + 1
			for end < len(s) && end < i+5 && isHex(s[end]) {
				end++
			}

			if end == i+1 {
				return "", p.errorf(t.pos, "\\x must be followed by hexadecimal digits")
			}

			r, _ := strconv.ParseUint(s[i+1:end], 16, 32)
			sb.WriteRune(rune(r))

			i = end - 1
		default:
			return "", p.errorf(t.pos, "invalid escape sequence \\%c in string literal", e)
		}
	}

	return sb.String(), nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
