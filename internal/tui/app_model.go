package tui

import (
	"context"
	"io"
	"time"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type focusArea int

const (
	focusList focusArea = iota
	focusSearch
	focusNew
	focusEdit
)

// storeChangedMsg is delivered after the store commits a change.
type storeChangedMsg struct{}

type appModel struct {
	ctx      context.Context
	store    *store.Store
	blobs    store.Blobs
	themeKey string
	log      logrus.FieldLogger
	changes  <-chan struct{}
	now      func() time.Time

	width  int
	height int

	filter view.Filter
	order  view.Order
	theme  store.Theme

	// rows is the current projection; cursor indexes it. list pages the same rows.
	rows   []model.Task
	cursor int
	list   list.Model

	focus   focusArea
	search  textinput.Model
	newTask textinput.Model
	edit    textinput.Model
	editID  string

	confirmOpen  bool
	confirmFocus confirmModalFocus

	status    string
	statusErr bool
}

type modelOptions struct {
	ThemeKey string
	Theme    store.Theme
	Log      logrus.FieldLogger
	Changes  <-chan struct{}
	Now      func() time.Time
}

func newAppModel(ctx context.Context, st *store.Store, blobs store.Blobs, opts modelOptions) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	theme := opts.Theme
	if theme == "" {
		theme = store.ThemeDark
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "Search tasks"

	newTask := textinput.New()
	newTask.Prompt = "+ "
	newTask.Placeholder = "New task (due:YYYY-MM-DD !high)"

	edit := textinput.New()
	edit.Prompt = ""

	m := appModel{
		ctx:      ctx,
		store:    st,
		blobs:    blobs,
		themeKey: opts.ThemeKey,
		log:      log,
		changes:  opts.Changes,
		now:      now,
		filter:   view.FilterAll,
		order:    view.OrderSmart,
		theme:    theme,
		search:   search,
		newTask:  newTask,
		edit:     edit,
		list:     newTaskList(),
	}
	m.refresh()
	return m
}

func (m appModel) Init() tea.Cmd { return waitForChange(m.changes) }

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// refresh re-projects the store snapshot and keeps the cursor on the same task when it
// is still visible.
func (m *appModel) refresh() {
	var selected string
	if m.cursor >= 0 && m.cursor < len(m.rows) {
		selected = m.rows[m.cursor].ID
	}
	m.rows = view.ProjectOrdered(m.store.Tasks(), m.filter, m.search.Value(), m.order)
	_ = m.list.SetItems(taskItems(m.rows))
	if selected != "" {
		for i, t := range m.rows {
			if t.ID == selected {
				m.cursor = i
				return
			}
		}
	}
	m.clampCursor()
}

func (m *appModel) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *appModel) selected() (model.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return model.Task{}, false
	}
	return m.rows[m.cursor], true
}

func (m *appModel) setStatus(msg string) {
	m.status = msg
	m.statusErr = false
}

// fail reports err in the status line. It returns true when err is non-nil.
func (m *appModel) fail(err error, what string) bool {
	if err == nil {
		return false
	}
	m.log.WithError(err).Warn(what)
	m.status = err.Error()
	m.statusErr = true
	return true
}

func (m *appModel) focusOn(f focusArea) tea.Cmd {
	m.search.Blur()
	m.newTask.Blur()
	m.edit.Blur()
	m.focus = f
	switch f {
	case focusSearch:
		return m.search.Focus()
	case focusNew:
		return m.newTask.Focus()
	case focusEdit:
		return m.edit.Focus()
	}
	return nil
}

func (m appModel) withFocus(f focusArea) (tea.Model, tea.Cmd) {
	cmd := m.focusOn(f)
	return m, cmd
}
