package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todo/internal/board"
	"todo/internal/service"
)

// Mode is what the keyboard currently drives.
type Mode int

const (
	BrowseMode Mode = iota
	AddMode
	EditMode
	ConfirmClearMode
)

// Options configures the board model.
type Options struct {
	// Language is the translation target.
	Language string

	// Watcher, when set, replaces the initial load with a live query.
	Watcher      service.Watcher
	PollInterval time.Duration
}

// Model is the Bubble Tea model of the board.
type Model struct {
	ctx       context.Context
	st        *board.State
	engine    *board.Engine
	opts      Options
	snapshots <-chan service.Snapshot

	mode    Mode
	cursor  int
	editID  string
	loading bool
	input   textinput.Model
	help    help.Model
	keys    keyMap
	width   int
	height  int
}

// NewModel creates a board model over st. Actions run through engine.
func NewModel(ctx context.Context, st *board.State, engine *board.Engine, opts Options) *Model {
	in := textinput.New()
	in.Placeholder = "What needs to be done?"
	in.CharLimit = 500

	return &Model{
		ctx:     ctx,
		st:      st,
		engine:  engine,
		opts:    opts,
		loading: true,
		input:   in,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run starts the interactive board and blocks until the user quits or ctx is done.
func Run(ctx context.Context, st *board.State, engine *board.Engine, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, st, engine, opts), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// State returns the board.
func (m *Model) State() *board.State {
	return m.st
}

// Mode returns the current input mode.
func (m *Model) Mode() Mode {
	return m.mode
}

// Init loads the board, or subscribes to the live query when there is one.
func (m *Model) Init() tea.Cmd {
	if m.opts.Watcher != nil {
		m.snapshots = m.opts.Watcher.Watch(m.ctx, m.opts.PollInterval)
		return m.waitForSnapshot()
	}
	return m.do(board.Load{})
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case resultMsg:
		if msg.result.Kind == board.KindLoaded {
			m.loading = false
		}
		m.st.Apply(msg.result)
		m.clampCursor()
		return m, nil

	case snapshotMsg:
		m.loading = false
		m.st.Apply(board.Result{Kind: board.KindLoaded, Op: "load", Tasks: msg.snap.Tasks, Err: msg.snap.Err})
		m.clampCursor()
		return m, m.waitForSnapshot()

	case watchClosedMsg:
		m.snapshots = nil
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case AddMode, EditMode:
			return m.handleInputKeys(msg)
		case ConfirmClearMode:
			return m.handleConfirmKeys(msg)
		default:
			return m.handleBrowseKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.st.Visible()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.switchCat):
		m.st.Apply(board.Result{Kind: board.KindCategory, Op: "switch", Category: m.otherCategory()})
		m.cursor = 0

	case key.Matches(msg, m.keys.toggle):
		if it, ok := m.selected(); ok {
			if a, ok := m.st.ToggleOf(it.Task.ID); ok {
				return m, m.do(a)
			}
		}

	case key.Matches(msg, m.keys.add):
		m.mode = AddMode
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.edit):
		if it, ok := m.selected(); ok {
			m.mode = EditMode
			m.editID = it.Task.ID
			m.input.SetValue(it.Task.Description)
			m.input.CursorEnd()
			return m, m.input.Focus()
		}

	case key.Matches(msg, m.keys.remove):
		if it, ok := m.selected(); ok {
			return m, m.do(board.Delete{ID: it.Task.ID})
		}

	case key.Matches(msg, m.keys.clear):
		if len(visible) > 0 {
			m.mode = ConfirmClearMode
		}

	case key.Matches(msg, m.keys.translate):
		if it, ok := m.selected(); ok {
			if m.engine.CanTranslate() {
				m.st.MarkTranslating([]string{it.Task.ID})
			}
			return m, m.do(board.Translate{ID: it.Task.ID, Text: it.Task.Description, Lang: m.opts.Language})
		}

	case key.Matches(msg, m.keys.translateAll):
		a := m.st.TranslateVisible(m.opts.Language)
		if m.engine.CanTranslate() {
			m.st.MarkTranslating(a.IDs)
		}
		return m, m.do(a)

	case key.Matches(msg, m.keys.reload):
		return m, m.do(board.Load{})

	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.closeInput()
		return m, nil

	case key.Matches(msg, m.keys.submit):
		text := m.input.Value()
		var a board.Action = board.Create{Description: text, Category: m.st.Category}
		if m.mode == EditMode {
			a = board.Edit{ID: m.editID, Description: text}
		}
		m.closeInput()
		return m, m.do(a)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.mode = BrowseMode
		return m, m.do(m.st.ClearVisible())
	case key.Matches(msg, m.keys.no):
		m.mode = BrowseMode
	}
	return m, nil
}

func (m *Model) closeInput() {
	m.mode = BrowseMode
	m.editID = ""
	m.input.Blur()
	m.input.SetValue("")
}

// do runs a on a goroutine managed by Bubble Tea.
func (m *Model) do(a board.Action) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{result: m.engine.Do(m.ctx, a)}
	}
}

func (m *Model) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	return func() tea.Msg {
		if ch == nil {
			return watchClosedMsg{}
		}
		snap, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return snapshotMsg{snap: snap}
	}
}

func (m *Model) selected() (board.Item, bool) {
	visible := m.st.Visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return board.Item{}, false
	}
	return visible[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.st.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) otherCategory() service.Category {
	for i, c := range service.Categories {
		if c == m.st.Category {
			return service.Categories[(i+1)%len(service.Categories)]
		}
	}
	return service.Categories[0]
}

// View renders the board.
func (m *Model) View() string {
	var b strings.Builder

	title := "Todo"
	if m.st.User != nil && m.st.User.Email != "" {
		title += " · " + m.st.User.Email
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderItems())

	if m.st.Message != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.st.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case AddMode, EditMode:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.cancel}))
	case ConfirmClearMode:
		b.WriteString(fmt.Sprintf("Delete all %d %s tasks?\n\n", len(m.st.Visible()), m.st.Category))
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no}))
	default:
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, len(service.Categories))
	for _, c := range service.Categories {
		if c == m.st.Category {
			tabs = append(tabs, styles.activeTab.Render(c.Title()))
		} else {
			tabs = append(tabs, styles.tab.Render(c.Title()))
		}
	}
	return strings.Join(tabs, " ")
}

func (m *Model) renderItems() string {
	if m.loading {
		return styles.note.Render("Loading...") + "\n"
	}
	if m.st.Empty() {
		return styles.note.Render("no tasks found") + "\n"
	}

	var b strings.Builder
	for i, it := range m.st.Visible() {
		prefix := "  "
		if i == m.cursor {
			prefix = styles.cursor.Render("> ")
		}
		mark, desc := "[ ]", it.Task.Description
		if strings.TrimSpace(desc) == "" {
			desc = "(untitled)"
		}
		if it.Task.Completed {
			mark = "[x]"
			desc = styles.done.Render(desc)
		}
		fmt.Fprintf(&b, "%s%s %s\n", prefix, mark, desc)
		if it.Translation != "" {
			fmt.Fprintf(&b, "      %s\n", styles.note.Render("→ "+it.Translation))
		}
	}
	return b.String()
}
