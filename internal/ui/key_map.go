package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the board.
type keyMap struct {
	up           key.Binding
	down         key.Binding
	switchCat    key.Binding
	toggle       key.Binding
	add          key.Binding
	edit         key.Binding
	remove       key.Binding
	clear        key.Binding
	translate    key.Binding
	translateAll key.Binding
	reload       key.Binding
	submit       key.Binding
	cancel       key.Binding
	yes          key.Binding
	no           key.Binding
	help         key.Binding
	quit         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		switchCat:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "category")),
		toggle:       key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "check")),
		add:          key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		edit:         key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		remove:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		clear:        key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear all")),
		translate:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "translate")),
		translateAll: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "translate all")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		submit:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		cancel:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		yes:          key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:           key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.add, k.remove, k.switchCat, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.switchCat},
		{k.toggle, k.add, k.edit, k.remove, k.clear},
		{k.translate, k.translateAll, k.reload},
		{k.help, k.quit},
	}
}
