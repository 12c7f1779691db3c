package repl

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the key bindings of the REPL. It implements [help.KeyMap].
type keyMap struct {
	Submit      key.Binding
	Next        key.Binding
	Prev        key.Binding
	Toggle      key.Binding
	HistoryPrev key.Binding
	HistoryNext key.Binding
	ModePrev    key.Binding
	ModeNext    key.Binding
	CtrlPrev    key.Binding
	CtrlNext    key.Binding
	Interrupt   key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "evaluate, or accept the selected candidate"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next candidate"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous candidate"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "toggle eval and command modes"),
		),
		HistoryPrev: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous input, switching mode"),
		),
		HistoryNext: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next input, switching mode"),
		),
		ModePrev: key.NewBinding(
			key.WithKeys("shift+up"),
			key.WithHelp("shift+↑", "previous input of this mode"),
		),
		ModeNext: key.NewBinding(
			key.WithKeys("shift+down"),
			key.WithHelp("shift+↓", "next input of this mode"),
		),
		CtrlPrev: key.NewBinding(
			key.WithKeys("alt+up"),
			key.WithHelp("alt+↑", "previous command"),
		),
		CtrlNext: key.NewBinding(
			key.WithKeys("alt+down"),
			key.WithHelp("alt+↓", "next command"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "clear input, or exit when empty"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "exit when empty"),
		),
	}
}

// ShortHelp implements [help.KeyMap].
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.HistoryPrev, k.Interrupt}
}

// FullHelp implements [help.KeyMap].
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Next, k.Prev, k.Toggle},
		{k.HistoryPrev, k.HistoryNext, k.ModePrev, k.ModeNext},
		{k.CtrlPrev, k.CtrlNext, k.Interrupt, k.Quit},
	}
}
