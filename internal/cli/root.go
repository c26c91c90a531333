package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tasklist-cli/internal/config"
	"tasklist-cli/internal/format"
	"tasklist-cli/internal/kv"
	"tasklist-cli/internal/store"
	"tasklist-cli/internal/tui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Backend    string
	RedisAddr  string
	Format     string
	LogLevel   string
	PrettyJSON bool

	cfg *config.Config
	log *logrus.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tasklist",
		Short:        "Local task list (CLI + TUI + HTTP API + MCP)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  tasklist

  # Scriptable commands
  tasklist add "Buy milk" --due 2024-05-01 --priority high
  tasklist list --filter active
  tasklist done 1

  # Serve the JSON API for the browser front end
  tasklist serve
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Root().PersistentFlags())
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		app.log = newLogger(cmd, cfg.LogLevel)
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", "", "Data directory for the file and sqlite backends (default: ~/.tasklist)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", "", "Persistence backend (sqlite|file|redis|memory)")
	cmd.PersistentFlags().StringVar(&app.RedisAddr, "redis-addr", "", "Redis address for the redis backend")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|edn|yaml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newDoneCmd(app, true))
	cmd.AddCommand(newDoneCmd(app, false))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newRmCmd(app))
	cmd.AddCommand(newDupCmd(app))
	cmd.AddCommand(newCompleteAllCmd(app))
	cmd.AddCommand(newClearCompletedCmd(app))
	cmd.AddCommand(newDeleteAllCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newReorderCmd(app))
	cmd.AddCommand(newThemeCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newMCPCmd(app))

	return cmd
}

func newLogger(cmd *cobra.Command, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(cmd.ErrOrStderr())
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

func runTUI(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	runErr := tui.Run(ctx, sess.store, sess.blobs, tui.Options{
		ThemeKey: app.cfg.Keys.Theme,
		Log:      app.log,
	})
	if err := errors.Join(runErr, sess.close(ctx)); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

// session is one opened adapter plus the store hydrated from it.
type session struct {
	blobs kv.Adapter
	store *store.Store
}

func openSession(ctx context.Context, app *App) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	blobs, err := kv.Open(ctx, app.cfg.KVOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", app.cfg.Backend, err)
	}
	st, err := store.New(ctx, blobs,
		store.WithKey(app.cfg.Keys.Tasks),
		store.WithLogger(app.log.WithField("component", "store")),
	)
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}
	app.log.WithFields(logrus.Fields{
		"backend": app.cfg.Backend,
		"tasks":   st.Len(),
	}).Debug("store opened")
	return &session{blobs: blobs, store: st}, nil
}

func (s *session) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return errors.Join(s.store.Close(ctx), s.blobs.Close())
}

// withStore opens a session, runs fn, and closes the session.
func withStore(cmd *cobra.Command, app *App, fn func(ctx context.Context, st *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := openSession(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := errors.Join(fn(ctx, sess.store), sess.close(ctx)); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.cfg.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
