package cli

import (
	"context"
	"errors"
	"strings"

	"tasklist-cli/internal/kv"
	"tasklist-cli/internal/store"

	"github.com/spf13/cobra"
)

func newThemeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or set the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			blobs, err := kv.Open(ctx, app.cfg.KVOptions())
			if err != nil {
				return writeErr(cmd, err)
			}
			theme, err := applyTheme(ctx, blobs, app.cfg.Keys.Theme, args)
			if err := errors.Join(err, blobs.Close()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"theme": theme}})
		},
	}
}

func applyTheme(ctx context.Context, blobs store.Blobs, key string, args []string) (store.Theme, error) {
	if len(args) == 0 {
		return store.LoadTheme(ctx, blobs, key)
	}
	arg := strings.ToLower(strings.TrimSpace(args[0]))
	if arg == "toggle" {
		return store.ToggleTheme(ctx, blobs, key)
	}
	t, err := store.ParseTheme(arg)
	if err != nil {
		return "", err
	}
	return t, store.SaveTheme(ctx, blobs, key, t)
}
