package tui

import (
	"fmt"
	"strings"

	"tasklist-cli/internal/view"

	"github.com/charmbracelet/lipgloss"
)

const defaultWidth = 80

func (m appModel) View() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	lines := []string{
		m.viewHeader(),
		"",
		m.viewInput(m.search, m.focus == focusSearch, width),
		m.viewInput(m.newTask, m.focus == focusNew, width),
		"",
	}
	lines = append(lines, m.viewRows(width, m.rowsHeight())...)
	lines = append(lines, "", m.viewFooter())
	if m.status != "" {
		st := styleMuted()
		if m.statusErr {
			st = styleError()
		}
		lines = append(lines, st.Render(singleLine(m.status)))
	}

	for i := range lines {
		lines[i] = fitLine(lines[i], width)
	}
	out := strings.Join(lines, "\n")

	if m.confirmOpen {
		modal := renderConfirmModal(width, "Delete all tasks",
			fmt.Sprintf("Delete all %s? This cannot be undone.", view.CountLabel(m.store.Len())),
			"Delete all", "Cancel", m.confirmFocus)
		height := m.height
		if height <= 0 {
			height = len(lines)
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
	}
	return out
}

// chromeLines counts the lines View draws around the rows: header, spacer, both
// inputs and a spacer above; spacer, footer and the optional status line below.
func (m appModel) chromeLines() int {
	n := 7
	if m.status != "" {
		n++
	}
	return n
}

// rowsHeight is the row budget for the current window; zero means unbounded.
func (m appModel) rowsHeight() int {
	if m.height <= 0 {
		return 0
	}
	return max(1, m.height-m.chromeLines())
}

func (m appModel) pages() int {
	h := m.rowsHeight()
	if h <= 0 || len(m.rows) <= h {
		return 1
	}
	return (len(m.rows) + h - 1) / h
}

func (m appModel) viewHeader() string {
	tabs := make([]string, 0, len(view.Filters))
	for _, f := range view.Filters {
		tabs = append(tabs, styleTab(f == m.filter).Render(filterLabel(f)))
	}
	meta := styleMuted().Render(fmt.Sprintf("  order: %s  theme: %s", m.order, m.theme))
	return styleTitle().Render("Tasks") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + meta
}

func filterLabel(f view.Filter) string {
	switch f {
	case view.FilterActive:
		return "Active"
	case view.FilterCompleted:
		return "Completed"
	default:
		return "All"
	}
}

func (m appModel) viewInput(in interface{ View() string }, focused bool, width int) string {
	line := " " + singleLine(in.View())
	st := lipgloss.NewStyle()
	if focused {
		st = st.Background(colorInputBg)
	}
	return st.Render(padRight(line, width))
}

// viewRows renders at most height rows, paged so the cursor row is always shown.
func (m appModel) viewRows(width, height int) []string {
	if len(m.rows) == 0 {
		hint := "No tasks yet. Press n to add one."
		if m.store.Len() > 0 {
			hint = "No matching tasks."
		}
		return []string{styleMuted().Render("  " + hint)}
	}
	if height <= 0 {
		height = len(m.rows)
	}

	l := m.list
	l.SetDelegate(taskDelegate{
		editing:  m.focus == focusEdit,
		editID:   m.editID,
		editView: singleLine(m.edit.View()),
		today:    m.now(),
	})
	l.SetSize(width, min(height, len(m.rows)))
	l.Select(m.cursor)
	return strings.Split(l.View(), "\n")
}

func (m appModel) viewFooter() string {
	label := view.CountLabel(len(m.rows))
	if pages := m.pages(); pages > 1 {
		label += fmt.Sprintf(" (%d/%d)", m.cursor+1, len(m.rows))
	}
	help := "n: new  /: search  tab: filter  space: done  e: edit  c: dup  x: delete  A/C/D: all done/clear/delete  shift+↑↓: move  o: order  t: theme  q: quit"
	return styleMuted().Render(label + "   " + help)
}
