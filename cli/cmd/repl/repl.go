package repl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/ftl/log"
)

// editRenderedMsg is sent when an edited template rendered successfully.
type editRenderedMsg struct{ source, output string }

// editCancelledMsg is sent when the user cleared the editor content or
// declined to edit again after an error.
type editCancelledMsg struct{}

// editErrorMsg is sent when the edit process encounters a non-parse error.
type editErrorMsg struct{ err error }

// inputMode is what an input line is: an expression or a command.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

// Styles.
var (
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = suggestionStyle.Bold(true)
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
	selMatchStyle   = selectedStyle.Bold(true)
)

func modePrompt(mode inputMode) string {
	if mode == modeCtrl {
		return ctrlPromptStyle.Render(ctrlPrompt)
	}

	return promptStyle.Render(evalPrompt)
}

func evalEcho(line string) string { return modePrompt(modeEval) + inputStyle.Render(line) }

func ctrlEcho(line string) string { return modePrompt(modeCtrl) + inputStyle.Render(line) }

// completion is the candidate state of the word at the cursor.
type completion struct {
	matches    fuzzy.Matches
	start, end int        // byte bounds of the word
	selected   int        // index into matches while cycling, else -1
	cycling    bool       // tab was pressed since the last edit
	before     savedInput // input before cycling began
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc      func() context.Context
	sess         *Session
	logger       log.Logger
	keys         keyMap
	help         help.Model
	input        textinput.Model
	mode         inputMode
	saved        [2]savedInput // input of each mode while the other is shown
	history      *History
	histIdx      int        // history.Len() when not recalling
	alt          *altOrigin // set during command recall
	comp         completion
	lastTemplate string // source of the last rendered edit
	width        int
	quitting     bool
}

// Run starts the REPL over sess. The history is kept in the file at
// historyPath, or in memory when historyPath is empty.
func Run(
	ctx context.Context,
	sess *Session,
	historyPath string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	history := NewHistory(historyPath)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history",
			slog.String("history", historyPath),
			slog.Any("error", err),
		)
	}

	logger.TraceContext(ctx, "repl start",
		slog.String("history", historyPath),
		slog.Int("history_entries", history.Len()),
		slog.Int("variables", len(sess.Names())),
	)

	p := tea.NewProgram(newModel(ctx, sess, history, logger), tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	sess *Session,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = modePrompt(modeEval)
	ti.CharLimit = 1024
	ti.Width = defaultWidth
	ti.Focus()

	return model{
		ctxFunc: func() context.Context { return ctx },
		sess:    sess,
		logger:  logger,
		keys:    defaultKeyMap(),
		help:    help.New(),
		input:   ti,
		history: history,
		histIdx: history.Len(),
		comp:    completion{selected: -1},
		width:   defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2
		m.help.Width = msg.Width

		return m, nil

	case editRenderedMsg:
		m.lastTemplate = msg.source
		m.logger.TraceContext(m.ctxFunc(), "repl edit rendered",
			slog.Int("output_length", len(msg.output)),
		)

		return m, tea.Println(resultStyle.Render(msg.output))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var hint string

	switch {
	case m.histIdx < m.history.Len():
		hint = hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(fmt.Sprint(m.histIdx+1)),
			m.history.Len()))
	case strings.TrimSpace(m.input.Value()) == "" && m.mode == modeEval:
		hint = hintStyle.Render("Type an expression, or press esc for commands")
	case strings.TrimSpace(m.input.Value()) == "":
		hint = hintStyle.Render(strings.Join(ctrlCommands, ", ") + " (esc to return)")
	default:
		hint = candidateBar(m.comp.matches, m.comp.selected, m.width)
	}

	return m.input.View() + "\n" + hint + "\n"
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
	)

	switch {
	case key.Matches(msg, m.keys.Interrupt):
		if m.input.Value() == "" {
			return m.quit()
		}

		m.comp.cycling = false
		m.alt = nil
		m.histIdx = m.history.Len()
		m.setInput(savedInput{})

		return m, nil

	case key.Matches(msg, m.keys.Quit):
		if m.input.Value() == "" {
			return m.quit()
		}

		return m, nil

	case key.Matches(msg, m.keys.Submit):
		m.alt = nil

		if m.comp.cycling && len(m.comp.matches) > 0 {
			m.comp.cycling = false
			m.refresh(true)

			return m, nil
		}

		return m.submit()

	case key.Matches(msg, m.keys.Next):
		return m.cycle(1), nil

	case key.Matches(msg, m.keys.Prev):
		return m.cycle(-1), nil

	case key.Matches(msg, m.keys.HistoryPrev):
		return m.recall(-1, scopeAll), nil

	case key.Matches(msg, m.keys.HistoryNext):
		return m.recall(1, scopeAll), nil

	case key.Matches(msg, m.keys.ModePrev):
		return m.recall(-1, scopeMode), nil

	case key.Matches(msg, m.keys.ModeNext):
		return m.recall(1, scopeMode), nil

	case key.Matches(msg, m.keys.CtrlPrev):
		return m.recall(-1, scopeCtrl), nil

	case key.Matches(msg, m.keys.CtrlNext):
		return m.recall(1, scopeCtrl), nil

	case key.Matches(msg, m.keys.Toggle):
		if m.comp.cycling {
			m.comp.cycling = false
			m.setInput(m.comp.before)

			return m, nil
		}

		m.alt = nil

		return m.switchMode(1 - m.mode), nil
	}

	// Typing text may confirm a completion; editing and cursor keys don't.
	typed := msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace
	if !typed || msg.Type == tea.KeySpace {
		m.comp.cycling = false
	}

	if !typed {
		m.alt = nil
	}

	var cmd tea.Cmd

	m.histIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refresh(typed)

	return m, cmd
}

func (m model) quit() (model, tea.Cmd) {
	m.quitting = true

	return m, tea.Quit
}
