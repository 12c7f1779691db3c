package repl

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/ftl/lang"
	value "github.com/ardnew/ftl/model"
)

// command describes a control-mode command for help and completion.
type command struct {
	name    string
	aliases []string
	usage   string
	help    string
}

var commands = []command{
	{"help", []string{"h", "?"}, "", "Print this help"},
	{"list", []string{"l"}, "", "List the data model variables"},
	{"builtins", []string{"b"}, "", "List the built-in names"},
	{"set", []string{"s"}, "NAME EXPR", "Assign the value of EXPR to the variable NAME"},
	{"render", []string{"r"}, "TEMPLATE", "Render TEMPLATE, like Hello ${user.name}!"},
	{"edit", []string{"e"}, "", "Write a template in $EDITOR and render it"},
	{"clear", []string{"c"}, "", "Clear screen"},
	{"quit", []string{"q", "exit"}, "", "Exit REPL"},
}

// ctrlCommands are the command names offered for completion.
var ctrlCommands = func() []string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}

	return names
}()

// commandArgsAreExpressions reports whether the arguments of the named
// command complete like expressions.
func commandArgsAreExpressions(name string) bool {
	switch resolveCommand(name) {
	case "set", "render":
		return true
	}

	return false
}

// resolveCommand returns the name of the command called name or one of its
// aliases, or "" when there is none.
func resolveCommand(name string) string {
	for _, c := range commands {
		if c.name == name || slices.Contains(c.aliases, name) {
			return c.name
		}
	}

	return ""
}

// submit runs the input line in the current mode and records it in the
// history.
func (m model) submit() (model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}

	mode := m.mode
	m.saved = [2]savedInput{}
	m.setInput(savedInput{})

	if err := m.history.Add(line, mode); err != nil {
		m.logger.WarnContext(m.ctxFunc(), "could not save history",
			slog.Any("error", err),
		)
	}

	m.histIdx = m.history.Len()

	if mode == modeCtrl {
		return m.runCommand(line)
	}

	return m, tea.Sequence(
		tea.Println(evalEcho(line)),
		tea.Println(m.evaluate(line)),
	)
}

// evaluate returns the display of the value of the expression src.
func (m model) evaluate(src string) string {
	ctx := m.ctxFunc()

	v, err := m.sess.Eval(ctx, src)
	if err != nil {
		m.logger.TraceContext(ctx, "repl eval failed", slog.Any("error", err))

		return errorStyle.Render("error: " + err.Error())
	}

	m.logger.TraceContext(ctx, "repl eval",
		slog.String("expr", src),
		slog.String("type", value.Describe(v)),
	)

	return resultStyle.Render(lang.Inspect(v))
}

func (m model) runCommand(line string) (model, tea.Cmd) {
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)
	echo := tea.Println(ctrlEcho(line))

	m.logger.TraceContext(m.ctxFunc(), "repl command",
		slog.String("command", name),
		slog.String("args", args),
	)

	show := func(s string) (model, tea.Cmd) {
		return m, tea.Sequence(echo, tea.Println(s))
	}

	switch resolveCommand(name) {
	case "quit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)
	case "help":
		return show(m.helpView())
	case "list":
		return show(m.listVariables())
	case "builtins":
		return show(listBuiltins(m.width))
	case "set":
		return show(m.assign(args))
	case "render":
		out, err := m.sess.Render(m.ctxFunc(), "<repl>", args)
		if err != nil {
			return show(errorStyle.Render("error: " + err.Error()))
		}

		return show(resultStyle.Render(out))
	case "edit":
		return m, tea.Sequence(echo, m.edit())
	case "clear":
		return m, tea.ClearScreen
	default:
		return m, tea.Println(
			errorStyle.Render("unknown command: " + name + " (try help)"),
		)
	}
}

// assign evaluates "NAME EXPR" and binds NAME to the value.
func (m model) assign(args string) string {
	name, expr, ok := strings.Cut(args, " ")
	if !ok || strings.TrimSpace(expr) == "" {
		return errorStyle.Render("usage: set NAME EXPR")
	}

	v, err := m.sess.Eval(m.ctxFunc(), strings.TrimSpace(expr))
	if err == nil {
		err = m.sess.Set(name, v)
	}

	if err != nil {
		return errorStyle.Render("error: " + err.Error())
	}

	return hintStyle.Render(name+" = ") + resultStyle.Render(lang.Inspect(v))
}

// edit runs the editor loop starting from the last rendered edit.
func (m model) edit() tea.Cmd {
	c := &editTemplateCommand{
		sess:    m.sess,
		source:  m.lastTemplate,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(c, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editCancelledMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case c.edited == "":
			return editCancelledMsg{}
		default:
			return editRenderedMsg{source: c.edited, output: c.output}
		}
	})
}

func (m model) helpView() string {
	var b strings.Builder

	b.WriteString(ctrlPromptStyle.Render("Commands") + hintStyle.Render(" (press esc to switch to command mode)") + "\n\n")

	for _, c := range commands {
		use := strings.TrimSpace(c.name + " " + c.usage)
		fmt.Fprintf(&b, "  %-20s %s %s\n",
			use, c.help, hintStyle.Render("("+strings.Join(c.aliases, ", ")+")"))
	}

	b.WriteString("\n" + promptStyle.Render("Expressions") + "\n\n")
	b.WriteString("  Type an expression to evaluate it, like user.name?upper_case\n")
	b.WriteString("  Completions follow the cursor; after ? they are built-ins\n\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))

	return b.String()
}

func (m model) listVariables() string {
	ctx := m.ctxFunc()
	names := m.sess.Names()

	if len(names) == 0 {
		return hintStyle.Render("  (no variables)")
	}

	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}

	var b strings.Builder

	for _, n := range names {
		fmt.Fprintf(&b, "  %-*s %s\n", width, n, hintStyle.Render(m.sess.Preview(ctx, n)))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// listBuiltins lays the built-in names out in columns that fit width.
func listBuiltins(width int) string {
	names := lang.Builtins()

	col := 0
	for _, n := range names {
		col = max(col, len(n))
	}

	col += 2
	perLine := max(1, (width-2)/col)

	var b strings.Builder

	for chunk := range slices.Chunk(names, perLine) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}

		b.WriteString("  ")

		for _, n := range chunk {
			b.WriteString(suggestionStyle.Render(fmt.Sprintf("%-*s", col, n)))
		}
	}

	return b.String()
}
