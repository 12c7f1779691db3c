package lang

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/ftl/arith"
	"github.com/ardnew/ftl/markup"
	"github.com/ardnew/ftl/model"
)

// emptyValue is the result of a default operator without a default. It is
// an empty string, an empty sequence and an empty hash at once.
type emptyValue struct{}

func (emptyValue) Facets() model.Facet {
	return model.FacetScalar | model.FacetSequence | model.FacetHash | model.FacetHashEx
}

func (emptyValue) AsString() (string, error)       { return "", nil }
func (emptyValue) Len() int                        { return 0 }
func (emptyValue) Index(int) (model.Value, error)  { return nil, nil }
func (emptyValue) Get(string) (model.Value, error) { return nil, nil }
func (emptyValue) Keys() []string                  { return nil }
func (emptyValue) All() iter.Seq2[string, model.Value] {
	return func(func(string, model.Value) bool) {}
}
func (emptyValue) Iterate() (model.Iterator, error) { return &rangeIterator{}, nil }
func (emptyValue) String() string                   { return "" }

// rangeValue is an integer range. Bounded ranges are sequences; ranges
// without an end are collections only.
type rangeValue struct {
	start     int64
	step      int64
	size      int64
	unbounded bool
}

func newRange(start, end int64, op string) *rangeValue {
	r := &rangeValue{start: start, step: 1}

	switch op {
	case "..":
		if end < start {
			r.step = -1
		}

		r.size = (end-start)*r.step + 1
	case "..<", "..!":
		switch {
		case end < start:
			r.step = -1
			r.size = start - end
		default:
			r.size = end - start
		}
	}

	return r
}

func newLengthRange(start, length int64) *rangeValue {
	r := &rangeValue{start: start, step: 1, size: length}
	if length < 0 {
		r.step, r.size = -1, -length
	}

	return r
}

func (r *rangeValue) Facets() model.Facet {
	if r.unbounded {
		return model.FacetCollection
	}

	return model.FacetSequence | model.FacetCollection
}

func (r *rangeValue) Len() int { return int(r.size) }

func (r *rangeValue) Index(i int) (model.Value, error) {
	if r.unbounded || i < 0 || int64(i) >= r.size {
		return nil, nil
	}

	return model.Int(r.start + r.step*int64(i)), nil
}

func (r *rangeValue) Iterate() (model.Iterator, error) {
	return &rangeIterator{r: r}, nil
}

type rangeIterator struct {
	r *rangeValue
	i int64
}

func (it *rangeIterator) Next() (model.Value, bool, error) {
	if it.r == nil || (!it.r.unbounded && it.i >= it.r.size) {
		return nil, false, nil
	}

	v := model.Int(it.r.start + it.r.step*it.i)
	it.i++

	return v, true, nil
}

func (it *rangeIterator) Stop() {}

// macroValue is a macro or function defined by a template.
type macroValue struct {
	def *Macro
	env *Environment
}

func (m *macroValue) Facets() model.Facet {
	if m.def.Function {
		return model.FacetMethod
	}

	return 0
}

// Call invokes a function from outside of the template, such as from a
// method passed back into the data model.
func (m *macroValue) Call(args []model.Value) (model.Value, error) {
	return m.env.callFunction(m.def, m.def, args)
}

// lambdaValue is a local lambda passed to a built-in.
type lambdaValue struct {
	node *Lambda
	env  *Environment
}

func (*lambdaValue) Facets() model.Facet { return model.FacetMethod }

func (l *lambdaValue) Call(args []model.Value) (model.Value, error) {
	var arg model.Value
	if len(args) > 0 {
		arg = args[0]
	}

	sc := &scope{vars: map[string]model.Value{l.node.Param: arg}}

	l.env.push(sc)
	defer l.env.pop()

	return l.env.eval(l.node.Body)
}

// DirectiveCall describes a user-defined directive call made to a
// [TemplateDirective].
type DirectiveCall struct {
	Positional []model.Value
	Named      map[string]model.Value
	// LoopVarCount is the number of loop variables declared by the caller.
	LoopVarCount int
	// Body renders the nested content with the given loop variable values.
	// It is nil when the call has no nested content.
	Body func(loopVars ...model.Value) error
}

// TemplateDirective is a directive implemented in Go and called from a
// template with <@name ...>.
type TemplateDirective interface {
	model.Value
	Execute(env *Environment, call *DirectiveCall) error
}

// DirectiveFunc adapts a function to [TemplateDirective].
type DirectiveFunc func(env *Environment, call *DirectiveCall) error

func (DirectiveFunc) Facets() model.Facet { return 0 }

func (f DirectiveFunc) Execute(env *Environment, call *DirectiveCall) error {
	return f(env, call)
}

// describe returns the type description of v used in messages.
func describe(v model.Value) string {
	switch v := v.(type) {
	case *macroValue:
		return macroKind(v.def)
	case TemplateDirective:
		return "directive"
	case *lambdaValue:
		return "lambda"
	}

	if v != nil && v.Facets() == 0 {
		return fmt.Sprintf("%T", v)
	}

	return model.Describe(v)
}

// Inspect returns a compact, literal-like rendering of v for display. It
// doesn't consume collections.
func Inspect(v model.Value) string {
	var sb strings.Builder

	inspect(&sb, v, 0)

	return sb.String()
}

const maxInspectDepth = 8

func inspect(sb *strings.Builder, v model.Value, depth int) {
	if depth > maxInspectDepth {
		sb.WriteString("...")

		return
	}

	switch x := v.(type) {
	case nil:
		sb.WriteString("null")

		return
	case *macroValue:
		sb.WriteString(macroKind(x.def) + " " + x.def.Name)

		return
	case TemplateDirective:
		sb.WriteString("directive")

		return
	case model.MarkupValue:
		m := x.Markup()
		sb.WriteString("markup(" + m.Format().Name() + ", " + strconv.Quote(m.MarkupString()) + ")")

		return
	case model.Numeric:
		sb.WriteString(x.Number().String())

		return
	case model.Boolean:
		sb.WriteString(strconv.FormatBool(x.Bool()))

		return
	case model.DateValue:
		sb.WriteString(x.DateKind().String() + "(" + x.Time().Format("2006-01-02T15:04:05.999999999Z07:00") + ")")

		return
	case model.Scalar:
		s, err := x.AsString()
		if err != nil {
			sb.WriteString("<" + err.Error() + ">")
		} else {
			sb.WriteString(strconv.Quote(s))
		}

		return
	case model.Sequence:
		sb.WriteByte('[')

		for i := range x.Len() {
			if i > 0 {
				sb.WriteString(", ")
			}

			item, err := x.Index(i)
			if err != nil {
				sb.WriteString("<" + err.Error() + ">")

				continue
			}

			inspect(sb, item, depth+1)
		}

		sb.WriteByte(']')

		return
	case model.HashEx:
		sb.WriteByte('{')

		first := true
		for k, item := range x.All() {
			if !first {
				sb.WriteString(", ")
			}

			first = false

			sb.WriteString(strconv.Quote(k) + ": ")
			inspect(sb, item, depth+1)
		}

		sb.WriteByte('}')

		return
	}

	sb.WriteString(describe(v))
}

// markupOf returns s as markup of f. Plain text is escaped on output.
func markupOf(f markup.Format, s string) model.Markup {
	return model.MarkupOf(f.FromPlainTextByEscaping(s))
}

// sortedKeys returns the keys of m in order.
func sortedKeys[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}

// intOf converts n to an int, failing for fractions and values out of
// range.
func intOf(n arith.Number) (int, error) {
	if !n.IsFinite() || !n.IsIntegral() {
		return 0, ErrInvalidArgument.Wrap(fmt.Errorf("expected an integer, but got %s", n))
	}

	b := n.BigInt()
	if !b.IsInt64() || int64(int(b.Int64())) != b.Int64() {
		return 0, ErrInvalidArgument.Wrap(fmt.Errorf("integer %s is out of range", n))
	}

	return int(b.Int64()), nil
}
