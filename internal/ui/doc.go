// Package ui implements the interactive board with Bubble Tea.
//
// The model owns a [board.State] and never mutates it outside Update: every
// backend call runs as a [tea.Cmd] through [board.Engine.Do] and comes back as
// a message whose result is folded in with [board.State.Apply].
//
// Keys follow vim conventions (j/k to move, space to check, a/e/d to add, edit
// and delete, tab to switch category) with contextual help from
// charmbracelet/bubbles/help.
package ui
