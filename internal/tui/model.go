// Package tui is an interactive terminal front end for the todo controller.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/benvon/todoms/internal/models"
	"github.com/benvon/todoms/internal/todos"
	"github.com/benvon/todoms/internal/validation"
	"github.com/benvon/todoms/internal/view"
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeAdd
	modeEdit
	modeConfirmDelete
)

// snapshotMsg carries controller state into the update loop
type snapshotMsg todos.Snapshot

// Model is the bubbletea model. Controller operations that hit the network run as
// commands; state comes back through the controller subscription.
type Model struct {
	ctx      context.Context
	ctrl     *todos.Controller
	userName string
	now      func() time.Time

	updates     chan todos.Snapshot
	done        chan struct{}
	unsubscribe func()

	snap    todos.Snapshot
	cursor  int
	mode    mode
	editing string
	formErr string

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// New creates a model bound to ctrl. Call Close when the program exits.
func New(ctx context.Context, ctrl *todos.Controller, userName string) *Model {
	input := textinput.New()
	input.CharLimit = validation.MaxTitleLength

	m := &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		userName: userName,
		now:      time.Now,
		updates:  make(chan todos.Snapshot, 1),
		done:     make(chan struct{}),
		snap:     ctrl.Snapshot(),
		input:    input,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
	m.unsubscribe = ctrl.Subscribe(m.push)
	return m
}

// push keeps only the newest snapshot. Deliveries are serialized by the controller,
// so after draining the send cannot block.
func (m *Model) push(s todos.Snapshot) {
	select {
	case <-m.updates:
	default:
	}
	m.updates <- s
}

// Close detaches the model from the controller
func (m *Model) Close() {
	m.unsubscribe()
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

func (m *Model) waitForSnapshot() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		select {
		case s := <-updates:
			return snapshotMsg(s)
		case <-done:
			return nil
		}
	}
}

// run executes op against the controller off the update loop
func (m *Model) run(op func(ctx context.Context, ctrl *todos.Controller)) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		op(ctx, ctrl)
		return nil
	}
}

// Init loads the collection and starts listening for changes
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitForSnapshot(),
		m.spinner.Tick,
		m.run(func(ctx context.Context, c *todos.Controller) { c.Load(ctx) }),
	)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = todos.Snapshot(msg)
		m.clampCursor()
		return m, m.waitForSnapshot()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeAdd, modeEdit:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected, hasSelection := m.selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if hasSelection {
			id, completed := selected.ID, !selected.IsCompleted
			return m, m.run(func(ctx context.Context, c *todos.Controller) { c.ToggleComplete(ctx, id, completed) })
		}
	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.formErr = ""
		m.input.Reset()
		m.input.Placeholder = "What needs doing?"
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Edit):
		if hasSelection {
			m.mode = modeEdit
			m.editing = selected.ID
			m.formErr = ""
			m.input.SetValue(selected.Title)
			m.input.CursorEnd()
			return m, m.input.Focus()
		}
	case key.Matches(msg, m.keys.Delete):
		if hasSelection {
			m.mode = modeConfirmDelete
			m.editing = selected.ID
		}
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.input.SetValue(m.snap.SearchTerm)
		m.input.Placeholder = "Search title or description"
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Sort):
		m.ctrl.SetSort(nextSortKey(m.snap.SortKey))
	case key.Matches(msg, m.keys.Reload):
		return m, m.run(func(ctx context.Context, c *todos.Controller) { c.Load(ctx) })
	case msg.Type == tea.KeyEsc:
		m.ctrl.DismissNotification()
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		m.input.Reset()
		m.ctrl.SetSearch("")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetSearch(m.input.Value())
	return m, cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		title := m.input.Value()
		if err := validation.ValidateTodoForm(title); err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		title = strings.TrimSpace(title)

		var op func(ctx context.Context, c *todos.Controller)
		if m.mode == modeAdd {
			op = func(ctx context.Context, c *todos.Controller) { c.Create(ctx, title, nil, nil) }
		} else {
			id := m.editing
			op = func(ctx context.Context, c *todos.Controller) {
				current, ok := c.Find(id)
				if !ok {
					return
				}
				req := models.UpdateRequestFrom(current)
				req.Title = title
				c.Update(ctx, id, req)
			}
		}
		m.mode = modeBrowse
		m.input.Blur()
		m.input.Reset()
		return m, m.run(op)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" {
		return m, nil
	}
	id := m.editing
	return m, m.run(func(ctx context.Context, c *todos.Controller) { c.Delete(ctx, id) })
}

func (m *Model) selected() (models.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Visible) {
		return models.Todo{}, false
	}
	return m.snap.Visible[m.cursor], true
}

func (m *Model) clampCursor() {
	m.cursor = max(0, min(m.cursor, len(m.snap.Visible)-1))
}

func nextSortKey(current view.SortKey) view.SortKey {
	i := slices.Index(view.SortKeys, current)
	return view.SortKeys[(i+1)%len(view.SortKeys)]
}

// View renders the screen
func (m *Model) View() string {
	var b strings.Builder

	header := "todoms"
	if m.userName != "" {
		header += " · " + m.userName
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	status := view.IncompleteText(m.snap.Items) + " · sorted by " + m.snap.SortKey.Label()
	if m.snap.SearchTerm != "" {
		status += fmt.Sprintf(" · filter %q", m.snap.SearchTerm)
	}
	b.WriteString(subtleStyle.Render(status))
	b.WriteString("\n\n")

	switch {
	case m.snap.IsLoading && len(m.snap.Items) == 0:
		b.WriteString(m.spinner.View() + " Loading todos...\n")
	case m.snap.LastError != "":
		b.WriteString(errorStyle.Render(m.snap.LastError) + "\n")
	case len(m.snap.Visible) == 0:
		b.WriteString(subtleStyle.Render(m.snap.EmptyText()) + "\n")
	default:
		now := m.now()
		for i, todo := range m.snap.Visible {
			b.WriteString(m.renderRow(i, todo, now))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch m.mode {
	case modeAdd:
		b.WriteString("New todo: " + m.input.View() + "\n")
	case modeEdit:
		b.WriteString("Edit title: " + m.input.View() + "\n")
	case modeSearch:
		b.WriteString("Search: " + m.input.View() + "\n")
	case modeConfirmDelete:
		b.WriteString(errorStyle.Render("Delete this todo? (y/N)") + "\n")
	}
	if m.formErr != "" && (m.mode == modeAdd || m.mode == modeEdit) {
		b.WriteString(errorStyle.Render(m.formErr) + "\n")
	}

	if n := m.snap.Notification; n != nil {
		b.WriteString(notificationStyle(n.Kind).Render(n.Message) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderRow(i int, todo models.Todo, now time.Time) string {
	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}
	check := "[ ]"
	title := todo.Title
	if todo.IsCompleted {
		check = "[x]"
		title = doneStyle.Render(title)
	}

	row := cursor + check + " " + title
	if todo.DueDate != nil {
		row += subtleStyle.Render("  due " + todo.DueDate.Local().Format("2006-01-02 15:04"))
	}
	if st := view.StatusOf(todo, now); st != view.StatusNone {
		row += "  " + statusStyle(st).Render(st.Label())
	}
	return row
}

// Run starts the interactive program and blocks until the user quits
func Run(ctx context.Context, ctrl *todos.Controller, userName string, opts ...tea.ProgramOption) error {
	m := New(ctx, ctrl, userName)
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}
	return nil
}
