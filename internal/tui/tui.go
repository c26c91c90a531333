package tui

import (
	"context"
	"errors"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type Options struct {
	ThemeKey string
	Log      logrus.FieldLogger
}

// Run starts the interactive list over st and blocks until the user quits or ctx is
// cancelled. blobs holds the theme preference.
func Run(ctx context.Context, st *store.Store, blobs store.Blobs, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	applyColorProfilePreference()

	theme, err := store.LoadTheme(ctx, blobs, opts.ThemeKey)
	if err != nil {
		if opts.Log != nil {
			opts.Log.WithError(err).Warn("load theme")
		}
		theme = store.ThemeDark
	}
	applyTheme(theme)

	// One pending signal is enough; the model re-reads the whole snapshot.
	changes := make(chan struct{}, 1)
	unsubscribe := st.Subscribe(func([]model.Task) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	m := newAppModel(ctx, st, blobs, modelOptions{
		ThemeKey: opts.ThemeKey,
		Theme:    theme,
		Log:      opts.Log,
		Changes:  changes,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
