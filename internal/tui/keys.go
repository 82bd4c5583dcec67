package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	quit     key.Binding
	up       key.Binding
	down     key.Binding
	toggle   key.Binding
	sort     key.Binding
	search   key.Binding
	generate key.Binding
	copy     key.Binding
	dismiss  key.Binding
	back     key.Binding
	submit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "details"),
		),
		sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "score/date"),
		),
		search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "start crawl"),
		),
		generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "cover letter"),
		),
		copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy draft"),
		),
		dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss error"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.toggle, k.generate, k.copy, k.sort, k.search, k.dismiss, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.generate, k.copy, k.sort},
		{k.search, k.dismiss, k.back, k.quit},
	}
}
