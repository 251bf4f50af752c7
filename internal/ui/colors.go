package ui

import "github.com/charmbracelet/lipgloss"

var styles = newPalette("#7D56F4", "#04B575", "#FF5F5F", "#626262")

// palette is a small stylesheet of named [lipgloss.Style] fields.
type palette struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	cursor    lipgloss.Style
	done      lipgloss.Style
	note      lipgloss.Style
	err       lipgloss.Style
	help      lipgloss.Style
}

func newPalette(accent, ok, bad, muted string) *palette {
	return &palette{
		title:     newBold(accent).MarginBottom(1),
		tab:       newStyle(muted).Padding(0, 1),
		activeTab: newBold(accent).Padding(0, 1).Underline(true),
		cursor:    newBold(ok),
		done:      newStyle(muted).Strikethrough(true),
		note:      newStyle(muted).Italic(true),
		err:       newBold(bad),
		help:      newStyle(muted),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}
