package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	SelectPrevMessage key.Binding
	SelectNextMessage key.Binding
	PrevSibling       key.Binding
	NextSibling       key.Binding
	StopResponse      key.Binding
	ScrollUp          key.Binding
	ScrollDown        key.Binding

	Help key.Binding
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	SelectPrevMessage: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev message")),
	SelectNextMessage: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next message")),
	PrevSibling:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev version")),
	NextSibling:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next version")),
	StopResponse:      key.NewBinding(key.WithKeys("s", "ctrl+g"), key.WithHelp("s", "stop response")),
	ScrollUp:          key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown:        key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),
	Help:              key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:              key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevSibling, k.NextSibling, k.StopResponse, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SelectPrevMessage, k.SelectNextMessage, k.ScrollUp, k.ScrollDown},
		{k.PrevSibling, k.NextSibling, k.StopResponse},
		{k.Help, k.Quit},
	}
}
