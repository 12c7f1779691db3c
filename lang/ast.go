package lang

import (
	"strconv"
	"strings"

	"github.com/ardnew/ftl/arith"
)

// Node is an element of a parsed template. Nodes are immutable after
// parsing and may be shared by concurrent renders.
type Node interface {
	Pos() Position
	// String returns the node in template syntax.
	String() string
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a template element: text, an interpolation or a directive.
type Stmt interface {
	Node
	stmt()
}

// Expressions

type (
	// StringLit is a string literal without interpolations.
	StringLit struct {
		At    Position
		Value string
		Raw   bool
	}

	// TemplateLit is a string literal with interpolations. Parts are
	// *StringLit and *Interp values.
	TemplateLit struct {
		At    Position
		Parts []Node
	}

	// NumberLit is a number literal.
	NumberLit struct {
		At    Position
		Value arith.Number
		Text  string
	}

	// BoolLit is true or false.
	BoolLit struct {
		At    Position
		Value bool
	}

	// ListLit is a sequence literal [a, b].
	ListLit struct {
		At    Position
		Items []Expr
	}

	// HashLit is a hash literal {k: v}.
	HashLit struct {
		At     Position
		Keys   []Expr
		Values []Expr
	}

	// Ident is a variable reference.
	Ident struct {
		At   Position
		Name string
	}

	// SpecialVar is a built-in variable such as .now.
	SpecialVar struct {
		At   Position
		Name string
	}

	// Dot is member access x.name.
	Dot struct {
		At   Position
		X    Expr
		Name string
	}

	// Index is x[index], where index may be a range for slicing.
	Index struct {
		At    Position
		X     Expr
		Index Expr
	}

	// Call is a method or function call x(args).
	Call struct {
		At   Position
		Fn   Expr
		Args []Expr
	}

	// Builtin is x?name or x?name(args).
	Builtin struct {
		At      Position
		X       Expr
		Name    string
		Args    []Expr
		HasArgs bool
	}

	// Unary is a prefix operation.
	Unary struct {
		At Position
		Op string
		X  Expr
	}

	// Binary is an infix operation.
	Binary struct {
		At Position
		Op string
		X  Expr
		Y  Expr
	}

	// Range is a numeric range. To is nil for a right-unbounded range.
	Range struct {
		At   Position
		Op   string
		From Expr
		To   Expr
	}

	// Default is x!default. Default is nil for x!.
	Default struct {
		At      Position
		X       Expr
		Default Expr
	}

	// Exists is x??.
	Exists struct {
		At Position
		X  Expr
	}

	// Paren is a parenthesized expression. Missing-value operators applied
	// to it also cover missing values inside it.
	Paren struct {
		At Position
		X  Expr
	}

	// Lambda is a one-parameter function x -> body, only valid as a
	// built-in argument.
	Lambda struct {
		At    Position
		Param string
		Body  Expr
	}
)

func (n *StringLit) Pos() Position   { return n.At }
func (n *TemplateLit) Pos() Position { return n.At }
func (n *NumberLit) Pos() Position   { return n.At }
func (n *BoolLit) Pos() Position     { return n.At }
func (n *ListLit) Pos() Position     { return n.At }
func (n *HashLit) Pos() Position     { return n.At }
func (n *Ident) Pos() Position       { return n.At }
func (n *SpecialVar) Pos() Position  { return n.At }
func (n *Dot) Pos() Position         { return n.At }
func (n *Index) Pos() Position       { return n.At }
func (n *Call) Pos() Position        { return n.At }
func (n *Builtin) Pos() Position     { return n.At }
func (n *Unary) Pos() Position       { return n.At }
func (n *Binary) Pos() Position      { return n.At }
func (n *Range) Pos() Position       { return n.At }
func (n *Default) Pos() Position     { return n.At }
func (n *Exists) Pos() Position      { return n.At }
func (n *Paren) Pos() Position       { return n.At }
func (n *Lambda) Pos() Position      { return n.At }

func (*StringLit) expr()   {}
func (*TemplateLit) expr() {}
func (*NumberLit) expr()   {}
func (*BoolLit) expr()     {}
func (*ListLit) expr()     {}
func (*HashLit) expr()     {}
func (*Ident) expr()       {}
func (*SpecialVar) expr()  {}
func (*Dot) expr()         {}
func (*Index) expr()       {}
func (*Call) expr()        {}
func (*Builtin) expr()     {}
func (*Unary) expr()       {}
func (*Binary) expr()      {}
func (*Range) expr()       {}
func (*Default) expr()     {}
func (*Exists) expr()      {}
func (*Paren) expr()       {}
func (*Lambda) expr()      {}

func (n *StringLit) String() string {
	if n.Raw {
		return "r" + quoteRaw(n.Value)
	}

	return quote(n.Value)
}

func (n *TemplateLit) String() string {
	var sb strings.Builder

	sb.WriteByte('"')

	for _, p := range n.Parts {
		switch p := p.(type) {
		case *StringLit:
			sb.WriteString(escapeString(p.Value, '"'))
		default:
			sb.WriteString(p.String())
		}
	}

	sb.WriteByte('"')

	return sb.String()
}

func (n *NumberLit) String() string { return n.Text }

func (n *BoolLit) String() string { return strconv.FormatBool(n.Value) }

func (n *ListLit) String() string { return "[" + joinNodes(n.Items, ", ") + "]" }

func (n *HashLit) String() string {
	parts := make([]string, len(n.Keys))
	for i := range n.Keys {
		parts[i] = n.Keys[i].String() + ": " + n.Values[i].String()
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func (n *Ident) String() string { return n.Name }

func (n *SpecialVar) String() string { return "." + n.Name }

func (n *Dot) String() string { return n.X.String() + "." + n.Name }

func (n *Index) String() string { return n.X.String() + "[" + n.Index.String() + "]" }

func (n *Call) String() string { return n.Fn.String() + "(" + joinNodes(n.Args, ", ") + ")" }

func (n *Builtin) String() string {
	s := n.X.String() + "?" + n.Name
	if n.HasArgs {
		s += "(" + joinNodes(n.Args, ", ") + ")"
	}

	return s
}

func (n *Unary) String() string { return n.Op + n.X.String() }

func (n *Binary) String() string { return n.X.String() + " " + n.Op + " " + n.Y.String() }

func (n *Range) String() string {
	if n.To == nil {
		return n.From.String() + n.Op
	}

	return n.From.String() + n.Op + n.To.String()
}

func (n *Default) String() string {
	if n.Default == nil {
		return n.X.String() + "!"
	}

	return n.X.String() + "!" + n.Default.String()
}

func (n *Exists) String() string { return n.X.String() + "??" }

func (n *Paren) String() string { return "(" + n.X.String() + ")" }

func (n *Lambda) String() string { return n.Param + " -> " + n.Body.String() }

// Statements

type (
	// Text is static template text.
	Text struct {
		At    Position
		Value string
	}

	// Interp is ${expr}, or #{expr; mXMY} when Numeric.
	Interp struct {
		At      Position
		X       Expr
		Numeric bool
		MinFrac int
		MaxFrac int // -1 when unset
	}

	// If is if/elseif/else.
	If struct {
		At       Position
		Branches []*CondBranch
		Else     []Stmt
	}

	// CondBranch is a guarded body of an If.
	CondBranch struct {
		At   Position
		Cond Expr
		Body []Stmt
	}

	// List iterates a sequence, collection or hash. Var is empty when the
	// body lists with an Items directive.
	List struct {
		At     Position
		Seq    Expr
		Var    string
		KeyVar string
		Body   []Stmt
		Else   []Stmt
	}

	// Items is the items directive inside a List without loop variables.
	Items struct {
		At     Position
		Var    string
		KeyVar string
		Body   []Stmt
	}

	// Sep is output between listed items.
	Sep struct {
		At   Position
		Body []Stmt
	}

	// Break leaves the innermost list or switch.
	Break struct{ At Position }

	// Continue skips to the next listed item.
	Continue struct{ At Position }

	// Switch is switch/case/on/default.
	Switch struct {
		At    Position
		X     Expr
		Cases []*Case
	}

	// Case is one branch of a Switch. Values is empty for the default.
	Case struct {
		At      Position
		Values  []Expr
		On      bool
		Default bool
		Body    []Stmt
	}

	// Assign is assign, global or local.
	Assign struct {
		At      Position
		Scope   string
		Targets []*AssignTarget
		// Capture is the body of the capturing form; Targets then holds
		// a single target without value.
		Capture []Stmt
	}

	// AssignTarget is one name = value of an Assign. Value is nil for ++
	// and --.
	AssignTarget struct {
		At    Position
		Name  string
		Op    string
		Value Expr
	}

	// Macro is a macro or function definition.
	Macro struct {
		At       Position
		Name     string
		Params   []*Param
		Body     []Stmt
		Function bool
	}

	// Param is a macro parameter.
	Param struct {
		Name     string
		Default  Expr
		CatchAll bool
	}

	// Nested invokes the body passed to the current macro.
	Nested struct {
		At   Position
		Args []Expr
	}

	// Return leaves a macro or function.
	Return struct {
		At Position
		X  Expr
	}

	// UserCall is <@callee args/> or <@callee args>body</@callee>. Body
	// is nil for the empty-tag form.
	UserCall struct {
		At         Position
		Callee     Expr
		Positional []Expr
		Named      []*NamedArg
		LoopVars   []string
		Body       []Stmt
	}

	// NamedArg is name=value in a UserCall.
	NamedArg struct {
		Name  string
		Value Expr
	}

	// Attempt runs Body and, if it fails, discards its output and runs
	// Recover.
	Attempt struct {
		At      Position
		Body    []Stmt
		Recover []Stmt
	}

	// Stop aborts the render.
	Stop struct {
		At      Position
		Message Expr
	}

	// OutputFormat changes the output format of its body.
	OutputFormat struct {
		At   Position
		Name string
		Body []Stmt
	}

	// AutoEsc turns auto-escaping on or off for its body.
	AutoEsc struct {
		At   Position
		On   bool
		Body []Stmt
	}

	// Compress collapses the white-space of its output.
	Compress struct {
		At   Position
		Body []Stmt
	}

	// Setting changes a setting for the rest of the render.
	Setting struct {
		At    Position
		Name  string
		Value Expr
	}
)

func (n *Text) Pos() Position         { return n.At }
func (n *Interp) Pos() Position       { return n.At }
func (n *If) Pos() Position           { return n.At }
func (n *CondBranch) Pos() Position   { return n.At }
func (n *List) Pos() Position         { return n.At }
func (n *Items) Pos() Position        { return n.At }
func (n *Sep) Pos() Position          { return n.At }
func (n *Break) Pos() Position        { return n.At }
func (n *Continue) Pos() Position     { return n.At }
func (n *Switch) Pos() Position       { return n.At }
func (n *Case) Pos() Position         { return n.At }
func (n *Assign) Pos() Position       { return n.At }
func (n *AssignTarget) Pos() Position { return n.At }
func (n *Macro) Pos() Position        { return n.At }
func (n *Nested) Pos() Position       { return n.At }
func (n *Return) Pos() Position       { return n.At }
func (n *UserCall) Pos() Position     { return n.At }
func (n *Attempt) Pos() Position      { return n.At }
func (n *Stop) Pos() Position         { return n.At }
func (n *OutputFormat) Pos() Position { return n.At }
func (n *AutoEsc) Pos() Position      { return n.At }
func (n *Compress) Pos() Position     { return n.At }
func (n *Setting) Pos() Position      { return n.At }

func (*Text) stmt()         {}
func (*Interp) stmt()       {}
func (*If) stmt()           {}
func (*List) stmt()         {}
func (*Items) stmt()        {}
func (*Sep) stmt()          {}
func (*Break) stmt()        {}
func (*Continue) stmt()     {}
func (*Switch) stmt()       {}
func (*Assign) stmt()       {}
func (*Macro) stmt()        {}
func (*Nested) stmt()       {}
func (*Return) stmt()       {}
func (*UserCall) stmt()     {}
func (*Attempt) stmt()      {}
func (*Stop) stmt()         {}
func (*OutputFormat) stmt() {}
func (*AutoEsc) stmt()      {}
func (*Compress) stmt()     {}
func (*Setting) stmt()      {}

func (n *Text) String() string { return n.Value }

func (n *Interp) String() string {
	if !n.Numeric {
		return "${" + n.X.String() + "}"
	}

	s := "#{" + n.X.String()

	if n.MinFrac > 0 || n.MaxFrac >= 0 {
		s += "; "
		if n.MinFrac > 0 {
			s += "m" + strconv.Itoa(n.MinFrac)
		}

		if n.MaxFrac >= 0 {
			s += "M" + strconv.Itoa(n.MaxFrac)
		}
	}

	return s + "}"
}

func (n *If) String() string {
	var sb strings.Builder

	for i, b := range n.Branches {
		if i == 0 {
			sb.WriteString("<#if " + b.Cond.String() + ">")
		} else {
			sb.WriteString("<#elseif " + b.Cond.String() + ">")
		}

		writeBody(&sb, b.Body)
	}

	if n.Else != nil {
		sb.WriteString("<#else>")
		writeBody(&sb, n.Else)
	}

	sb.WriteString("</#if>")

	return sb.String()
}

func (n *CondBranch) String() string { return n.Cond.String() }

func (n *List) String() string {
	var sb strings.Builder

	sb.WriteString("<#list " + n.Seq.String())
	sb.WriteString(loopVars(n.Var, n.KeyVar))
	sb.WriteString(">")
	writeBody(&sb, n.Body)

	if n.Else != nil {
		sb.WriteString("<#else>")
		writeBody(&sb, n.Else)
	}

	sb.WriteString("</#list>")

	return sb.String()
}

func loopVars(name, key string) string {
	switch {
	case name == "":
		return ""
	case key != "":
		return " as " + key + ", " + name
	default:
		return " as " + name
	}
}

func (n *Items) String() string {
	return "<#items" + loopVars(n.Var, n.KeyVar) + ">" + bodyString(n.Body) + "</#items>"
}

func (n *Sep) String() string { return "<#sep>" + bodyString(n.Body) + "</#sep>" }

func (n *Break) String() string { return "<#break>" }

func (n *Continue) String() string { return "<#continue>" }

func (n *Switch) String() string {
	var sb strings.Builder

	sb.WriteString("<#switch " + n.X.String() + ">")

	for _, c := range n.Cases {
		sb.WriteString(c.String())
		writeBody(&sb, c.Body)
	}

	sb.WriteString("</#switch>")

	return sb.String()
}

func (n *Case) String() string {
	switch {
	case n.Default:
		return "<#default>"
	case n.On:
		return "<#on " + joinNodes(n.Values, ", ") + ">"
	default:
		return "<#case " + joinNodes(n.Values, ", ") + ">"
	}
}

func (n *Assign) String() string {
	parts := make([]string, len(n.Targets))
	for i, t := range n.Targets {
		parts[i] = t.String()
	}

	s := "<#" + n.Scope + " " + strings.Join(parts, " ") + ">"
	if n.Capture != nil {
		s += bodyString(n.Capture) + "</#" + n.Scope + ">"
	}

	return s
}

func (n *AssignTarget) String() string {
	name := n.Name
	if !isIdentifier(name) {
		name = quote(name)
	}

	switch {
	case n.Op == "":
		return name
	case n.Value == nil:
		return name + n.Op
	default:
		return name + " " + n.Op + " " + n.Value.String()
	}
}

func (n *Macro) String() string {
	kind := "macro"
	if n.Function {
		kind = "function"
	}

	var sb strings.Builder

	sb.WriteString("<#" + kind + " " + n.Name)

	for _, p := range n.Params {
		sb.WriteString(" " + p.String())
	}

	sb.WriteString(">")
	writeBody(&sb, n.Body)
	sb.WriteString("</#" + kind + ">")

	return sb.String()
}

func (p *Param) String() string {
	switch {
	case p.CatchAll:
		return p.Name + "..."
	case p.Default != nil:
		return p.Name + "=" + p.Default.String()
	default:
		return p.Name
	}
}

func (n *Nested) String() string {
	if len(n.Args) == 0 {
		return "<#nested>"
	}

	return "<#nested " + joinNodes(n.Args, ", ") + ">"
}

func (n *Return) String() string {
	if n.X == nil {
		return "<#return>"
	}

	return "<#return " + n.X.String() + ">"
}

func (n *UserCall) String() string {
	var sb strings.Builder

	sb.WriteString("<@" + n.Callee.String())

	if len(n.Positional) > 0 {
		sb.WriteString(" " + joinNodes(n.Positional, ", "))
	}

	for _, a := range n.Named {
		sb.WriteString(" " + a.Name + "=" + a.Value.String())
	}

	if len(n.LoopVars) > 0 {
		sb.WriteString("; " + strings.Join(n.LoopVars, ", "))
	}

	if n.Body == nil {
		sb.WriteString("/>")

		return sb.String()
	}

	sb.WriteString(">")
	writeBody(&sb, n.Body)
	sb.WriteString("</@" + n.Callee.String() + ">")

	return sb.String()
}

func (n *Attempt) String() string {
	return "<#attempt>" + bodyString(n.Body) + "<#recover>" + bodyString(n.Recover) + "</#attempt>"
}

func (n *Stop) String() string {
	if n.Message == nil {
		return "<#stop>"
	}

	return "<#stop " + n.Message.String() + ">"
}

func (n *OutputFormat) String() string {
	return "<#outputformat " + quote(n.Name) + ">" + bodyString(n.Body) + "</#outputformat>"
}

func (n *AutoEsc) String() string {
	name := "noautoesc"
	if n.On {
		name = "autoesc"
	}

	return "<#" + name + ">" + bodyString(n.Body) + "</#" + name + ">"
}

func (n *Compress) String() string { return "<#compress>" + bodyString(n.Body) + "</#compress>" }

func (n *Setting) String() string {
	return "<#setting " + n.Name + " = " + n.Value.String() + ">"
}

func joinNodes[T Node](nodes []T, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}

	return strings.Join(parts, sep)
}

func writeBody(sb *strings.Builder, body []Stmt) {
	for _, s := range body {
		sb.WriteString(s.String())
	}
}

func bodyString(body []Stmt) string {
	var sb strings.Builder

	writeBody(&sb, body)

	return sb.String()
}

func quote(s string) string { return `"` + escapeString(s, '"') + `"` }

func quoteRaw(s string) string {
	if strings.ContainsRune(s, '"') {
		return "'" + s + "'"
	}

	return `"` + s + `"`
}

// escapeString escapes s for a string literal delimited by q.
func escapeString(s string, q byte) string {
	var sb strings.Builder

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == q, c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '$' && i+1 < len(s) && s[i+1] == '{':
			sb.WriteString(`$\{`)
			i++
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if i == 0 && !isIdentifierStart(r) || !isIdentifierContinue(r) {
			return false
		}
	}

	return s != ""
}
