package lang

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/ftl/log"
	"github.com/ardnew/ftl/markup"
)

// header holds the parameters of the ftl directive.
type header struct {
	OutputFormat    string `json:"output_format,omitempty"    yaml:"output_format,omitempty"`
	AutoEsc         *bool  `json:"auto_esc,omitempty"         yaml:"auto_esc,omitempty"`
	StripWhitespace bool   `json:"strip_whitespace"           yaml:"strip_whitespace"`
}

// blockContext tracks what the directives of the current body may refer
// to.
type blockContext struct {
	macro    *Macro
	loops    int
	switches int
	lists    []*listContext
	loopVars []string
}

type listContext struct {
	hasVar   bool
	hasItems bool
}

// parser holds the parser state.
type parser struct {
	name     string
	source   string
	toks     []token
	pos      int
	depth    int
	maxDepth int
	ends     [][]string
	block    blockContext
	macros   []*Macro
	logger   log.Logger
}

func newParser(name, source string, toks []token, maxDepth int, logger log.Logger) *parser {
	return &parser{
		name:     name,
		source:   source,
		toks:     toks,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// parseTemplate parses the header, strips white-space when enabled and
// parses the template body.
func (p *parser) parseTemplate(strip bool) ([]Stmt, header, error) {
	hdr := header{StripWhitespace: strip}

	if err := p.parseHeader(&hdr); err != nil {
		return nil, hdr, err
	}

	if hdr.StripWhitespace {
		stripWhitespace(p.toks)
	}

	root, _, err := p.parseBlock(token{})
	if err != nil {
		return nil, hdr, err
	}

	return root, hdr, nil
}

func (p *parser) parseHeader(hdr *header) error {
	i := 0
	if p.toks[i].kind == tokText && strings.TrimSpace(p.toks[i].val) == "" {
		i++
	}

	if p.toks[i].kind != tokDirective || p.toks[i].val != "ftl" {
		return nil
	}

	// White-space before the header is not output.
	if i > 0 {
		p.toks[0].val = ""
	}

	p.pos = i + 1

	for !p.atTagEnd() {
		name, err := p.expectIdent("ftl parameter name")
		if err != nil {
			return err
		}

		if _, err := p.expectOp("="); err != nil {
			return err
		}

		x, err := p.parseExpr()
		if err != nil {
			return err
		}

		switch name.val {
		case "output_format", "outputFormat":
			s, ok := x.(*StringLit)
			if !ok {
				return p.errorf(x.Pos(), "ftl parameter %q must be a string literal", name.val)
			}

			if _, err := lookupFormat(s.Value, nil); err != nil {
				return p.wrapf(x.Pos(), err, "invalid ftl parameter %q", name.val)
			}

			hdr.OutputFormat = s.Value

		case "auto_esc", "autoEsc", "strip_whitespace", "stripWhitespace":
			b, ok := x.(*BoolLit)
			if !ok {
				return p.errorf(x.Pos(), "ftl parameter %q must be a boolean literal", name.val)
			}

			if strings.HasPrefix(name.val, "auto") {
				hdr.AutoEsc = &b.Value
			} else {
				hdr.StripWhitespace = b.Value
			}

		case "encoding", "attributes", "ns_prefixes":
			// Accepted and ignored.

		default:
			return p.errorf(name.pos, "unknown ftl parameter %q%s", name.val,
				suggest(name.val, []string{"output_format", "auto_esc", "strip_whitespace"}))
		}

		p.acceptOp(",")
	}

	if _, err := p.tagEnd(p.toks[i]); err != nil {
		return err
	}

	// White-space after the header, up to and including the first line
	// break, is not output either.
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokText && !p.toks[p.pos].raw {
		t := &p.toks[p.pos]
		if rest := strings.TrimLeft(t.val, " \t"); strings.HasPrefix(rest, "\r\n") {
			t.val = rest[2:]
		} else if strings.HasPrefix(rest, "\n") || strings.HasPrefix(rest, "\r") {
			t.val = rest[1:]
		}
	}

	return nil
}

// parseBlock parses statements until one of ends, which is returned
// unconsumed. An end "x" matches the directive <#x>, "/x" matches </#x>
// and "/@" matches the end tag of a user directive call.
func (p *parser) parseBlock(open token, ends ...string) ([]Stmt, token, error) {
	if err := p.enter(open.pos); err != nil {
		return nil, token{}, err
	}
	defer p.leave()

	p.ends = append(p.ends, ends)
	defer func() { p.ends = p.ends[:len(p.ends)-1] }()

	var body []Stmt

	for {
		t := p.peek()

		if isEnd(t, ends) {
			return body, t, nil
		}

		switch t.kind {
		case tokEOF:
			if len(ends) > 0 {
				return nil, t, p.errorf(open.pos, "unclosed %s; expected %s", open.describe(), describeEnds(ends))
			}

			return body, t, nil

		case tokText:
			p.next()

			if t.val != "" {
				body = append(body, &Text{At: t.pos, Value: t.val})
			}

		case tokComment:
			p.next()

		case tokInterp, tokNumInterp:
			s, err := p.parseInterp()
			if err != nil {
				return nil, t, err
			}

			body = append(body, s)

		case tokDirective:
			s, err := p.parseDirective()
			if err != nil {
				return nil, t, err
			}

			if s != nil {
				body = append(body, s)
			}

		case tokCall:
			s, err := p.parseUserCall()
			if err != nil {
				return nil, t, err
			}

			body = append(body, s)

		case tokDirectiveEnd, tokCallEnd:
			if len(ends) == 0 {
				return nil, t, p.errorf(t.pos, "unexpected %s", t.describe())
			}

			return nil, t, p.errorf(t.pos, "unexpected %s; expected %s", t.describe(), describeEnds(ends))

		default:
			return nil, t, p.errorf(t.pos, "unexpected %s", t.describe())
		}
	}
}

func isEnd(t token, ends []string) bool {
	for _, end := range ends {
		switch {
		case end == "/@":
			if t.kind == tokCallEnd {
				return true
			}
		case strings.HasPrefix(end, "/"):
			if t.kind == tokDirectiveEnd && t.val == end[1:] {
				return true
			}
		default:
			if t.kind == tokDirective && t.val == end {
				return true
			}
		}
	}

	return false
}

func describeEnds(ends []string) string {
	parts := make([]string, len(ends))

	for i, end := range ends {
		switch {
		case end == "/@":
			parts[i] = "</@...>"
		case strings.HasPrefix(end, "/"):
			parts[i] = "</#" + end[1:] + ">"
		default:
			parts[i] = "<#" + end + ">"
		}
	}

	return strings.Join(parts, " or ")
}

func (p *parser) parseInterp() (Stmt, error) {
	t := p.next()

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	s := &Interp{At: t.pos, X: x, Numeric: t.kind == tokNumInterp, MaxFrac: -1}

	if s.Numeric && p.acceptOp(";") {
		var spec strings.Builder

		for p.peek().kind == tokIdent || p.peek().kind == tokNumber {
			spec.WriteString(p.next().val)
		}

		if err := s.parseFractionSpec(spec.String()); err != nil {
			return nil, p.errorf(t.pos, "%v", err)
		}
	}

	if p.peek().kind != tokInterpEnd {
		return nil, p.unexpected(p.peek(), `"}"`)
	}

	p.next()

	return s, nil
}

// parseFractionSpec parses the "m1M3" format of a numeric interpolation.
func (n *Interp) parseFractionSpec(spec string) error {
	for spec != "" {
		c := spec[0]
		if c != 'm' && c != 'M' {
			return ErrInvalidArgument.With(slog.String("format", spec))
		}

		end := 1
		for end < len(spec) && isDigit(rune(spec[end])) {
			end++
		}

		v, err := strconv.Atoi(spec[1:end])
		if err != nil {
			return ErrInvalidArgument.Wrap(err)
		}

		if c == 'm' {
			n.MinFrac = v
		} else {
			n.MaxFrac = v
		}

		spec = spec[end:]
	}

	if n.MaxFrac >= 0 && n.MaxFrac < n.MinFrac {
		n.MaxFrac = n.MinFrac
	}

	return nil
}

// directiveNames lists the directives, for suggestions.
var directiveNames = []string{
	"assign", "attempt", "autoesc", "break", "case", "compress", "continue",
	"default", "else", "elseif", "flush", "ftl", "function", "global", "if",
	"items", "list", "local", "lt", "macro", "nested", "noautoesc",
	"noparse", "nt", "on", "outputformat", "recover", "return", "rt", "sep",
	"setting", "stop", "switch", "t",
}

func (p *parser) parseDirective() (Stmt, error) {
	t := p.next()

	switch t.val {
	case "if":
		return p.parseIf(t)
	case "list":
		return p.parseList(t)
	case "items":
		return p.parseItems(t)
	case "sep":
		return p.parseSep(t)
	case "break", "continue":
		return p.parseLoopControl(t)
	case "switch":
		return p.parseSwitch(t)
	case "assign", "global", "local":
		return p.parseAssign(t)
	case "macro", "function":
		return p.parseMacro(t)
	case "nested":
		return p.parseNested(t)
	case "return":
		return p.parseReturn(t)
	case "attempt":
		return p.parseAttempt(t)
	case "stop":
		return p.parseStop(t)
	case "outputformat":
		return p.parseOutputFormat(t)
	case "autoesc", "noautoesc":
		body, err := p.parseSimpleBlock(t)
		if err != nil {
			return nil, err
		}

		return &AutoEsc{At: t.pos, On: t.val == "autoesc", Body: body}, nil
	case "compress":
		body, err := p.parseSimpleBlock(t)
		if err != nil {
			return nil, err
		}

		return &Compress{At: t.pos, Body: body}, nil
	case "noparse":
		return p.parseNoparse(t)
	case "setting":
		return p.parseSetting(t)
	case "t", "lt", "rt", "nt", "flush":
		_, err := p.tagEnd(t)

		return nil, err
	case "ftl":
		return nil, p.errorf(t.pos, "the ftl directive must be the first thing in the template")
	case "else", "elseif", "case", "on", "default", "recover":
		return nil, p.errorf(t.pos, "%s is not allowed here", t.describe())
	}

	return nil, p.errorf(t.pos, "unknown directive %q%s", t.val, suggest(t.val, directiveNames))
}

func (p *parser) parseSimpleBlock(t token) ([]Stmt, error) {
	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	body, _, err := p.parseBlock(t, "/"+t.val)
	if err != nil {
		return nil, err
	}

	p.next()

	return nonNil(body), nil
}

func (p *parser) parseIf(t token) (Stmt, error) {
	s := &If{At: t.pos}
	at := t

	for {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expectTagEnd(t); err != nil {
			return nil, err
		}

		body, end, err := p.parseBlock(t, "elseif", "else", "/if")
		if err != nil {
			return nil, err
		}

		s.Branches = append(s.Branches, &CondBranch{At: at.pos, Cond: cond, Body: body})

		p.next()

		switch {
		case end.kind == tokDirective && end.val == "elseif":
			at = end

			continue
		case end.kind == tokDirective && end.val == "else":
			if _, err := p.expectTagEnd(end); err != nil {
				return nil, err
			}

			body, _, err := p.parseBlock(t, "/if")
			if err != nil {
				return nil, err
			}

			p.next()

			s.Else = nonNil(body)
		}

		return s, nil
	}
}

func (p *parser) parseLoopVars() (name, key string, err error) {
	if !p.acceptIdentVal("as") {
		return "", "", nil
	}

	first, err := p.expectIdent("loop variable name")
	if err != nil {
		return "", "", err
	}

	if !p.acceptOp(",") {
		return first.val, "", nil
	}

	second, err := p.expectIdent("loop variable name")
	if err != nil {
		return "", "", err
	}

	return second.val, first.val, nil
}

func (p *parser) parseList(t token) (Stmt, error) {
	seq, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	name, key, err := p.parseLoopVars()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	s := &List{At: t.pos, Seq: seq, Var: name, KeyVar: key}
	lc := &listContext{hasVar: name != ""}

	saved := p.block
	p.block.lists = append(slices.Clone(p.block.lists), lc)

	if name != "" {
		p.block.loops++
		p.block.loopVars = append(slices.Clone(p.block.loopVars), name, key)
	}

	body, end, err := p.parseBlock(t, "else", "/list")

	p.block = saved

	if err != nil {
		return nil, err
	}

	s.Body = body

	if !lc.hasVar && !lc.hasItems {
		return nil, p.errorf(t.pos, "<#list> without \"as\" must contain an <#items> directive")
	}

	p.next()

	if end.kind == tokDirective {
		if _, err := p.expectTagEnd(end); err != nil {
			return nil, err
		}

		body, _, err := p.parseBlock(t, "/list")
		if err != nil {
			return nil, err
		}

		p.next()

		s.Else = nonNil(body)
	}

	return s, nil
}

func (p *parser) parseItems(t token) (Stmt, error) {
	n := len(p.block.lists)
	if n == 0 || p.block.lists[n-1].hasVar {
		return nil, p.errorf(t.pos, "<#items> must be inside a <#list> without \"as\"")
	}

	lc := p.block.lists[n-1]
	if lc.hasItems {
		return nil, p.errorf(t.pos, "<#list> can contain only one <#items>")
	}

	lc.hasItems = true

	name, key, err := p.parseLoopVars()
	if err != nil {
		return nil, err
	}

	if name == "" {
		return nil, p.unexpected(p.peek(), `"as"`)
	}

	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	saved := p.block
	p.block.lists = append(slices.Clone(p.block.lists), &listContext{hasVar: true})
	p.block.loops++
	p.block.loopVars = append(slices.Clone(p.block.loopVars), name, key)

	body, _, err := p.parseBlock(t, "/items")

	p.block = saved

	if err != nil {
		return nil, err
	}

	p.next()

	return &Items{At: t.pos, Var: name, KeyVar: key, Body: body}, nil
}

// parseSep parses a sep directive. Without an end tag its body extends to
// the end of the enclosing body.
func (p *parser) parseSep(t token) (Stmt, error) {
	if len(p.block.lists) == 0 {
		return nil, p.errorf(t.pos, "<#sep> must be inside <#list> or <#items>")
	}

	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	var outer []string
	if len(p.ends) > 0 {
		outer = p.ends[len(p.ends)-1]
	}

	body, end, err := p.parseBlock(t, append([]string{"/sep"}, outer...)...)
	if err != nil {
		return nil, err
	}

	if end.kind == tokDirectiveEnd && end.val == "sep" {
		p.next()
	}

	return &Sep{At: t.pos, Body: body}, nil
}

func (p *parser) parseLoopControl(t token) (Stmt, error) {
	if _, err := p.tagEnd(t); err != nil {
		return nil, err
	}

	if t.val == "continue" {
		if p.block.loops == 0 {
			return nil, p.errorf(t.pos, "<#continue> must be inside <#list> or <#items>")
		}

		return &Continue{At: t.pos}, nil
	}

	if p.block.loops == 0 && p.block.switches == 0 {
		return nil, p.errorf(t.pos, "<#break> must be inside <#list>, <#items> or <#switch>")
	}

	return &Break{At: t.pos}, nil
}

func (p *parser) parseSwitch(t token) (Stmt, error) {
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	s := &Switch{At: t.pos, X: x}

	saved := p.block
	p.block.switches++

	defer func() { p.block = saved }()

	for {
		next := p.peek()

		switch {
		case next.kind == tokComment,
			next.kind == tokText && strings.TrimSpace(next.val) == "":
			p.next()

			continue

		case next.kind == tokDirectiveEnd && next.val == "switch":
			p.next()

			return s, nil

		case next.kind == tokDirective && slices.Contains([]string{"case", "on", "default"}, next.val):
			c, err := p.parseCase(s)
			if err != nil {
				return nil, err
			}

			s.Cases = append(s.Cases, c)

		case next.kind == tokEOF:
			return nil, p.errorf(t.pos, "unclosed <#switch>; expected </#switch>")

		default:
			return nil, p.unexpected(next, "<#case>, <#on>, <#default> or </#switch>")
		}
	}
}

func (p *parser) parseCase(s *Switch) (*Case, error) {
	t := p.next()
	c := &Case{At: t.pos, On: t.val == "on", Default: t.val == "default"}

	for _, prev := range s.Cases {
		switch {
		case c.Default && prev.Default:
			return nil, p.errorf(t.pos, "<#switch> can contain only one <#default>")
		case !c.Default && !prev.Default && c.On != prev.On:
			return nil, p.errorf(t.pos, "<#case> and <#on> can't be mixed in one <#switch>")
		}
	}

	if !c.Default {
		for {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			c.Values = append(c.Values, v)

			if !p.acceptOp(",") {
				break
			}
		}
	}

	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	body, _, err := p.parseBlock(t, "case", "on", "default", "/switch")
	if err != nil {
		return nil, err
	}

	c.Body = body

	return c, nil
}

var assignOps = []string{"=", "+=", "-=", "*=", "/=", "%=", "++", "--"}

func (p *parser) parseAssign(t token) (Stmt, error) {
	if t.val == "local" && p.block.macro == nil {
		return nil, p.errorf(t.pos, "<#local> is only allowed inside <#macro> or <#function>")
	}

	s := &Assign{At: t.pos, Scope: t.val}

	for !p.atTagEnd() {
		nt := p.peek()

		var name string

		switch nt.kind {
		case tokIdent:
			name = nt.val
		case tokString:
			v, err := p.unescape(nt)
			if err != nil {
				return nil, err
			}

			name = v
		default:
			return nil, p.unexpected(nt, "variable name")
		}

		p.next()

		target := &AssignTarget{At: nt.pos, Name: name}
		s.Targets = append(s.Targets, target)

		op := p.peek()
		if op.kind != tokOp || !slices.Contains(assignOps, op.val) {
			break
		}

		p.next()

		target.Op = op.val

		if op.val != "++" && op.val != "--" {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			target.Value = v
		}

		p.acceptOp(",")
	}

	if len(s.Targets) == 0 {
		return nil, p.unexpected(p.peek(), "variable name")
	}

	empty, err := p.expectTagEnd(t)
	if err != nil {
		return nil, err
	}

	last := s.Targets[len(s.Targets)-1]
	if last.Op != "" {
		return s, nil
	}

	if len(s.Targets) > 1 || empty {
		return nil, p.errorf(last.At, "expected \"=\" after %q", last.Name)
	}

	body, _, err := p.parseBlock(t, "/"+t.val)
	if err != nil {
		return nil, err
	}

	p.next()

	s.Capture = nonNil(body)

	return s, nil
}

func (p *parser) parseMacro(t token) (Stmt, error) {
	if p.block.macro != nil {
		return nil, p.errorf(t.pos, "<#%s> can't be defined inside <#%s>", t.val, macroKind(p.block.macro))
	}

	nt := p.next()

	var name string

	switch nt.kind {
	case tokIdent:
		name = nt.val
	case tokString:
		v, err := p.unescape(nt)
		if err != nil {
			return nil, err
		}

		name = v
	default:
		return nil, p.unexpected(nt, t.val+" name")
	}

	m := &Macro{At: t.pos, Name: name, Function: t.val == "function"}

	paren := p.acceptOp("(")

	for {
		if paren && p.acceptOp(")") {
			break
		}

		if !paren && p.atTagEnd() {
			break
		}

		param, err := p.parseParam(m)
		if err != nil {
			return nil, err
		}

		m.Params = append(m.Params, param)

		p.acceptOp(",")
	}

	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	saved := p.block
	p.block = blockContext{macro: m}

	body, _, err := p.parseBlock(t, "/"+t.val)

	p.block = saved

	if err != nil {
		return nil, err
	}

	p.next()

	m.Body = body
	p.macros = append(p.macros, m)

	return m, nil
}

func (p *parser) parseParam(m *Macro) (*Param, error) {
	nt, err := p.expectIdent("parameter name")
	if err != nil {
		return nil, err
	}

	if n := len(m.Params); n > 0 && m.Params[n-1].CatchAll {
		return nil, p.errorf(nt.pos, "the catch-all parameter must be the last parameter")
	}

	for _, prev := range m.Params {
		if prev.Name == nt.val {
			return nil, p.errorf(nt.pos, "duplicate parameter %q", nt.val)
		}
	}

	param := &Param{Name: nt.val}

	switch {
	case p.acceptOp("..."):
		param.CatchAll = true
	case p.acceptOp("="):
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		param.Default = v
	default:
		for _, prev := range m.Params {
			if prev.Default != nil {
				return nil, p.errorf(nt.pos,
					"required parameter %q must come before the parameters with default values", nt.val)
			}
		}
	}

	return param, nil
}

func macroKind(m *Macro) string {
	if m.Function {
		return "function"
	}

	return "macro"
}

func (p *parser) parseNested(t token) (Stmt, error) {
	if p.block.macro == nil || p.block.macro.Function {
		return nil, p.errorf(t.pos, "<#nested> is only allowed inside <#macro>")
	}

	s := &Nested{At: t.pos}

	for !p.atTagEnd() {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		s.Args = append(s.Args, x)

		p.acceptOp(",")
	}

	if _, err := p.tagEnd(t); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *parser) parseReturn(t token) (Stmt, error) {
	m := p.block.macro
	s := &Return{At: t.pos}

	if !p.atTagEnd() {
		if m == nil {
			return nil, p.errorf(t.pos, "<#return> outside of a function can't have a value")
		}

		if !m.Function {
			return nil, p.errorf(t.pos, "<#return> in a macro can't have a value")
		}

		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		s.X = x
	}

	if _, err := p.tagEnd(t); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *parser) parseAttempt(t token) (Stmt, error) {
	if _, err := p.expectTagEnd(t); err != nil {
		return nil, err
	}

	body, _, err := p.parseBlock(t, "recover")
	if err != nil {
		return nil, err
	}

	rt := p.next()
	if _, err := p.expectTagEnd(rt); err != nil {
		return nil, err
	}

	recovered, _, err := p.parseBlock(t, "/attempt", "/recover")
	if err != nil {
		return nil, err
	}

	p.next()

	return &Attempt{At: t.pos, Body: nonNil(body), Recover: nonNil(recovered)}, nil
}

func (p *parser) parseStop(t token) (Stmt, error) {
	s := &Stop{At: t.pos}

	if !p.atTagEnd() {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		s.Message = x
	}

	if _, err := p.tagEnd(t); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *parser) parseOutputFormat(t token) (Stmt, error) {
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	name, ok := x.(*StringLit)
	if !ok {
		return nil, p.errorf(x.Pos(), "the parameter of <#outputformat> must be a string literal")
	}

	if _, err := lookupFormat(name.Value, markup.HTML); err != nil {
		return nil, p.wrapf(x.Pos(), err, "invalid output format %q", name.Value)
	}

	body, err := p.parseSimpleBlock(t)
	if err != nil {
		return nil, err
	}

	return &OutputFormat{At: t.pos, Name: name.Value, Body: body}, nil
}

func (p *parser) parseNoparse(t token) (Stmt, error) {
	p.next() // tag end emitted by the lexer

	var text string

	if p.peek().kind == tokText {
		text = p.next().val
	}

	p.next() // </#noparse>

	if text == "" {
		return nil, nil
	}

	return &Text{At: t.pos, Value: text}, nil
}

func (p *parser) parseSetting(t token) (Stmt, error) {
	name, err := p.expectIdent("setting name")
	if err != nil {
		return nil, err
	}

	if !slices.Contains(settingNames, name.val) {
		return nil, p.errorf(name.pos, "unknown setting %q%s", name.val, suggest(name.val, settingNames))
	}

	if _, err := p.expectOp("="); err != nil {
		return nil, err
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.tagEnd(t); err != nil {
		return nil, err
	}

	return &Setting{At: t.pos, Name: name.val, Value: x}, nil
}

func (p *parser) parseUserCall() (Stmt, error) {
	t := p.next()

	callee, err := p.parseCallee()
	if err != nil {
		return nil, err
	}

	s := &UserCall{At: t.pos, Callee: callee}

	for !p.atTagEnd() && !p.atOp(";") {
		if p.peek().kind == tokIdent && p.peekAt(1).kind == tokOp && p.peekAt(1).val == "=" {
			if len(s.Positional) > 0 {
				return nil, p.errorf(p.peek().pos, "named and positional arguments can't be mixed")
			}

			name := p.next()
			p.next()

			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			s.Named = append(s.Named, &NamedArg{Name: name.val, Value: v})
		} else {
			if len(s.Named) > 0 {
				return nil, p.errorf(p.peek().pos, "named and positional arguments can't be mixed")
			}

			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			s.Positional = append(s.Positional, v)
		}

		p.acceptOp(",")
	}

	if p.acceptOp(";") {
		for {
			name, err := p.expectIdent("loop variable name")
			if err != nil {
				return nil, err
			}

			s.LoopVars = append(s.LoopVars, name.val)

			if !p.acceptOp(",") {
				break
			}
		}
	}

	empty, err := p.tagEnd(t)
	if err != nil {
		return nil, err
	}

	if empty {
		return s, nil
	}

	saved := p.block
	p.block.loopVars = nil

	body, end, err := p.parseBlock(t, "/@")

	p.block = saved

	if err != nil {
		return nil, err
	}

	p.next()

	if end.val != "" && end.val != callee.String() {
		return nil, p.errorf(end.pos, "expected </@%s> or </@>, found %s", callee, end.describe())
	}

	s.Body = nonNil(body)

	return s, nil
}

// parseCallee parses the name of a called user directive: a variable
// optionally followed by member and index accesses.
func (p *parser) parseCallee() (Expr, error) {
	nt := p.peek()

	var x Expr

	switch {
	case nt.kind == tokIdent:
		p.next()

		x = &Ident{At: nt.pos, Name: nt.val}
	case nt.kind == tokOp && nt.val == "(":
		return p.parsePrimary()
	default:
		return nil, p.unexpected(nt, "directive name")
	}

	for {
		switch {
		case p.atOp("."):
			p.next()

			name, err := p.expectIdent("name")
			if err != nil {
				return nil, err
			}

			x = &Dot{At: name.pos, X: x, Name: name.val}
		case p.atOp("["):
			open := p.next()

			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expectOp("]"); err != nil {
				return nil, err
			}

			x = &Index{At: open.pos, X: x, Index: idx}
		default:
			return x, nil
		}
	}
}

// Helper methods

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}

	return t
}

func (p *parser) atOp(op string) bool {
	t := p.peek()

	return t.kind == tokOp && t.val == op
}

func (p *parser) acceptOp(op string) bool {
	if p.atOp(op) {
		p.next()

		return true
	}

	return false
}

func (p *parser) acceptIdentVal(name string) bool {
	if t := p.peek(); t.kind == tokIdent && t.val == name {
		p.next()

		return true
	}

	return false
}

func (p *parser) expectOp(op string) (token, error) {
	if !p.atOp(op) {
		return token{}, p.unexpected(p.peek(), strconv.Quote(op))
	}

	return p.next(), nil
}

func (p *parser) expectIdent(what string) (token, error) {
	if p.peek().kind != tokIdent {
		return token{}, p.unexpected(p.peek(), what)
	}

	return p.next(), nil
}

func (p *parser) atTagEnd() bool {
	k := p.peek().kind

	return k == tokTagEnd || k == tokTagEmptyEnd || k == tokEOF
}

// tagEnd consumes the end of the tag opened by t and reports whether it
// was the empty-element form "/>".
func (p *parser) tagEnd(t token) (bool, error) {
	switch next := p.peek(); next.kind {
	case tokTagEnd:
		p.next()

		return false, nil
	case tokTagEmptyEnd:
		p.next()

		return true, nil
	default:
		return false, p.unexpected(next, `">" to close `+t.describe())
	}
}

// expectTagEnd is tagEnd for directives that have a body.
func (p *parser) expectTagEnd(t token) (bool, error) {
	empty, err := p.tagEnd(t)
	if err == nil && empty && t.kind == tokDirective && t.val != "assign" &&
		t.val != "global" && t.val != "local" {
		return false, p.errorf(t.pos, "%s can't be an empty element", t.describe())
	}

	return empty, err
}

func (p *parser) enter(pos Position) error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return newParseError(p.name, p.source, pos, ErrMaxDepthExceeded,
			"nesting is deeper than %d levels", p.maxDepth)
	}

	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) errorf(pos Position, format string, args ...any) error {
	return newParseError(p.name, p.source, pos, ErrParse, format, args...)
}

func (p *parser) wrapf(pos Position, err error, format string, args ...any) error {
	pe := newParseError(p.name, p.source, pos, ErrParse, format, args...)
	pe.Message += ": " + err.Error()

	return pe
}

func (p *parser) unexpected(t token, expected string) error {
	return p.errorf(t.pos, "expected %s, found %s", expected, t.describe())
}

func nonNil(body []Stmt) []Stmt {
	if body == nil {
		return []Stmt{}
	}

	return body
}
