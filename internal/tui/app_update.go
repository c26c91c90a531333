package tui

import (
	"fmt"

	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case storeChangedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.confirmOpen {
			return m.updateConfirm(msg)
		}
		switch m.focus {
		case focusSearch:
			return m.updateSearch(msg)
		case focusNew:
			return m.updateNew(msg)
		case focusEdit:
			return m.updateEdit(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil
	case "home", "g":
		m.cursor = 0
		return m, nil
	case "end", "G":
		m.cursor = len(m.rows) - 1
		m.clampCursor()
		return m, nil

	case "/", "ctrl+k":
		return m.withFocus(focusSearch)
	case "n":
		return m.withFocus(focusNew)
	case "tab":
		m.filter = m.filter.Next()
		m.refresh()
		return m, nil
	case "o":
		m.order = m.order.Toggle()
		m.refresh()
		m.setStatus(fmt.Sprintf("order: %s", m.order))
		return m, nil
	case "t":
		theme, err := store.ToggleTheme(m.ctx, m.blobs, m.themeKey)
		if m.fail(err, "toggle theme") {
			return m, nil
		}
		m.theme = theme
		applyTheme(theme)
		m.setStatus(fmt.Sprintf("theme: %s", theme))
		return m, nil
	case "r":
		if m.fail(m.store.Reload(m.ctx), "reload tasks") {
			return m, nil
		}
		m.refresh()
		m.setStatus("reloaded")
		return m, nil

	case " ", "space":
		if t, ok := m.selected(); ok {
			_, err := m.store.SetCompleted(m.ctx, t.ID, !t.Completed)
			m.fail(err, "toggle task")
			m.refresh()
		}
		return m, nil
	case "e", "enter":
		if t, ok := m.selected(); ok {
			m.editID = t.ID
			m.edit.SetValue(t.Title)
			m.edit.CursorEnd()
			return m.withFocus(focusEdit)
		}
		return m, nil
	case "c":
		if t, ok := m.selected(); ok {
			dup, _, err := m.store.Duplicate(m.ctx, t.ID)
			if !m.fail(err, "duplicate task") {
				m.setStatus(fmt.Sprintf("duplicated %q", dup.Title))
			}
			m.refresh()
		}
		return m, nil
	case "x", "delete":
		if t, ok := m.selected(); ok {
			_, err := m.store.Delete(m.ctx, t.ID)
			if !m.fail(err, "delete task") {
				m.setStatus(fmt.Sprintf("deleted %q", t.Title))
			}
			m.refresh()
		}
		return m, nil
	case "A":
		m.fail(m.store.CompleteAll(m.ctx), "complete all")
		m.refresh()
		return m, nil
	case "C":
		n, err := m.store.ClearCompleted(m.ctx)
		if !m.fail(err, "clear completed") {
			m.setStatus(fmt.Sprintf("cleared %s", view.CountLabel(n)))
		}
		m.refresh()
		return m, nil
	case "D":
		if m.store.Len() > 0 {
			m.confirmOpen = true
			m.confirmFocus = confirmFocusCancel
		}
		return m, nil

	case "shift+up", "K":
		return m.moveSelected(-1)
	case "shift+down", "J":
		return m.moveSelected(1)
	}
	return m, nil
}

// moveSelected shifts the selected task by delta within the visible rows. The list
// switches to manual order so the stored order the move produced is what is shown.
func (m appModel) moveSelected(delta int) (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	target := m.cursor + delta
	if target < 0 || target >= len(m.rows) {
		return m, nil
	}
	next := store.MoveWithin(view.IDs(m.rows), t.ID, target)
	if m.fail(m.store.Reorder(m.ctx, next), "reorder tasks") {
		return m, nil
	}
	m.order = view.OrderManual
	m.refresh()
	return m, nil
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "tab":
		return m.withFocus(focusList)
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refresh()
	return m, cmd
}

func (m appModel) updateNew(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.withFocus(focusList)
	case "ctrl+k":
		return m.withFocus(focusSearch)
	case "enter":
		q := parseQuickAdd(m.newTask.Value())
		t, err := m.store.Create(m.ctx, q.Title, q.Due, q.Priority)
		if m.fail(err, "create task") {
			return m, nil
		}
		m.newTask.SetValue("")
		m.refresh()
		for i, row := range m.rows {
			if row.ID == t.ID {
				m.cursor = i
			}
		}
		m.setStatus(fmt.Sprintf("added %q", t.Title))
		return m, nil
	}
	var cmd tea.Cmd
	m.newTask, cmd = m.newTask.Update(msg)
	return m, cmd
}

// updateEdit commits on enter; an empty title leaves the task unchanged.
func (m appModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editID = ""
		return m.withFocus(focusList)
	case "enter":
		_, err := m.store.UpdateTitle(m.ctx, m.editID, m.edit.Value())
		m.fail(err, "rename task")
		m.editID = ""
		m.refresh()
		return m.withFocus(focusList)
	}
	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g", "n":
		m.confirmOpen = false
		return m, nil
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirmFocus = m.confirmFocus.toggle()
		return m, nil
	case "y":
		return m.deleteAll()
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			return m.deleteAll()
		}
		m.confirmOpen = false
		return m, nil
	}
	return m, nil
}

func (m appModel) deleteAll() (tea.Model, tea.Cmd) {
	m.confirmOpen = false
	n, err := m.store.DeleteAll(m.ctx)
	if !m.fail(err, "delete all") {
		m.setStatus(fmt.Sprintf("deleted %s", view.CountLabel(n)))
	}
	m.refresh()
	return m, nil
}
