package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/view"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type taskItem struct {
	task model.Task
}

func (i taskItem) FilterValue() string { return i.task.Title }
func (i taskItem) Title() string       { return i.task.Title }
func (i taskItem) Description() string { return i.task.ID }

func taskItems(tasks []model.Task) []list.Item {
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskItem{task: t})
	}
	return items
}

// newTaskList builds the list with its own chrome and filtering turned off; the
// screen draws the header, search and footer itself.
func newTaskList() list.Model {
	l := list.New(nil, taskDelegate{}, defaultWidth, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	return l
}

// taskDelegate renders one task per line. It is rebuilt on every View with the
// state the rows depend on.
type taskDelegate struct {
	editing  bool
	editID   string
	editView string
	today    time.Time
}

func (d taskDelegate) Height() int  { return 1 }
func (d taskDelegate) Spacing() int { return 0 }
func (d taskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(taskItem)
	if !ok {
		fmt.Fprint(w, "")
		return
	}
	fmt.Fprint(w, fitLine(d.row(it.task, index == m.Index(), m.Width()), m.Width()))
}

func (d taskDelegate) row(t model.Task, selected bool, width int) string {
	marker := "  "
	if selected {
		marker = "> "
	}
	box := "[ ] "
	if t.Completed {
		box = "[x] "
	}

	var title string
	switch {
	case d.editing && t.ID == d.editID:
		title = d.editView
	case t.Completed:
		title = styleDone().Render(t.Title)
	default:
		title = t.Title
	}

	var badges []string
	if due := t.DueString(); due != "" {
		st := styleMuted()
		switch {
		case !t.Completed && view.Overdue(t, d.today):
			st = lipgloss.NewStyle().Foreground(colorOverdue).Bold(true)
		case !t.Completed && view.DueSoon(t, d.today):
			st = lipgloss.NewStyle().Foreground(colorDueSoon).Bold(true)
		}
		badges = append(badges, st.Render("due "+due))
	}
	switch t.Priority {
	case model.PriorityHigh:
		badges = append(badges, lipgloss.NewStyle().Foreground(colorHigh).Bold(true).Render("!high"))
	case model.PriorityLow:
		badges = append(badges, lipgloss.NewStyle().Foreground(colorLow).Render("!low"))
	}

	row := marker + box + title
	if len(badges) > 0 {
		row += "  " + strings.Join(badges, " ")
	}
	if selected {
		return styleSelectedRow().Render(padRight(row, width))
	}
	return row
}
