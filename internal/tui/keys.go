package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, Left, Right key.Binding
	NextEvent, PrevEvent  key.Binding
	Grab                  key.Binding
	Drop, Cancel          key.Binding
	Earlier, Later        key.Binding
	NudgeUp, NudgeDown    key.Binding
	PrevWeek, NextWeek    key.Binding
	PrevDay, NextDay      key.Binding
	Today                 key.Binding
	Detail                key.Binding
	Refresh               key.Binding
	Help                  key.Binding
	Quit                  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "row up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "row down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "day left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "day right")),
		NextEvent: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next job")),
		PrevEvent: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev job")),
		Grab:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "grab")),
		Drop:      key.NewBinding(key.WithKeys("enter", " ", "space"), key.WithHelp("enter", "drop")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Earlier:   key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "insert earlier")),
		Later:     key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "insert later")),
		NudgeUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		NudgeDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		PrevWeek:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev week")),
		NextWeek:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next week")),
		PrevDay:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev day")),
		NextDay:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next day")),
		Today:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Detail:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// dragKeys is the help shown while an event is grabbed.
type dragKeys keyMap

func (k dragKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Earlier, k.Later, k.Drop, k.Cancel}
}

func (k dragKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.NudgeUp, k.NudgeDown, k.PrevWeek, k.NextWeek, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.NextEvent, k.PrevEvent},
		{k.Grab, k.NudgeUp, k.NudgeDown, k.Detail},
		{k.PrevWeek, k.NextWeek, k.PrevDay, k.NextDay, k.Today},
		{k.Refresh, k.Help, k.Quit},
	}
}
