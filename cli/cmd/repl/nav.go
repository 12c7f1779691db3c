package repl

// historyScope selects the history entries a recall visits.
type historyScope int

const (
	scopeAll  historyScope = iota // every entry, switching mode to match
	scopeMode                     // entries of the current mode
	scopeCtrl                     // command entries, restoring on exit
)

// savedInput is the text and cursor of an input line.
type savedInput struct {
	text   string
	cursor int
}

func (m *model) current() savedInput {
	return savedInput{m.input.Value(), m.input.Position()}
}

// setInput replaces the input line and recomputes completions.
func (m *model) setInput(s savedInput) {
	m.input.SetValue(s.text)
	m.input.SetCursor(s.cursor)
	m.refresh(false)
}

// switchMode saves the input of the current mode and restores that of mode.
func (m model) switchMode(mode inputMode) model {
	m.saved[m.mode] = m.current()
	m.mode = mode
	m.input.Prompt = modePrompt(mode)
	m.setInput(m.saved[mode])

	return m
}

// recall steps through the history in direction dir (-1 older, +1 newer).
// Stepping past the newest entry clears the input. Command recall first
// switches to command mode and, when it runs off either end, restores the
// mode and input it started from.
func (m model) recall(dir int, scope historyScope) model {
	if scope != scopeCtrl {
		m.alt = nil
	} else if m.alt == nil {
		origin := altOrigin{mode: m.mode, input: m.current()}
		m = m.switchMode(modeCtrl)
		m.alt = &origin
	}

	for i := m.histIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		e, err := m.history.GetEntry(i)
		if err != nil {
			break
		}

		if (scope == scopeMode && e.Mode != m.mode) ||
			(scope == scopeCtrl && e.Mode != modeCtrl) {
			continue
		}

		m.histIdx = i

		if e.Mode != m.mode {
			m = m.switchMode(e.Mode)
		}

		m.setInput(savedInput{e.Line, len(e.Line)})

		return m
	}

	switch {
	case m.alt != nil:
		origin := *m.alt
		m.alt = nil

		if origin.mode != m.mode {
			m = m.switchMode(origin.mode)
		}

		m.histIdx = m.history.Len()
		m.setInput(origin.input)
	case dir > 0 && m.histIdx < m.history.Len():
		m.histIdx = m.history.Len()
		m.setInput(savedInput{})
	}

	return m
}

// altOrigin is where command recall started.
type altOrigin struct {
	mode  inputMode
	input savedInput
}
