package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"tasklist-cli/internal/mcp"
	"tasklist-cli/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.cfg.Serve.Addr
			}
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			srv := web.New(sess.store, sess.blobs, web.Options{
				ThemeKey: app.cfg.Keys.Theme,
				Log:      app.log.WithField("component", "web"),
			})
			serveErr := srv.Serve(ctx, addr)
			srv.Close()
			if err := errors.Join(serveErr, sess.close(context.Background())); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config: 127.0.0.1:8787)")
	return cmd
}

func newMCPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio exposing the task tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			sess, err := openSession(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			s := mcp.NewServer(sess.store, app.log.WithField("component", "mcp"))
			if err := errors.Join(mcp.Serve(s), sess.close(ctx)); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}
