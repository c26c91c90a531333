package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	"github.com/spf13/cobra"
)

func newCompleteAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-all",
		Short: "Mark every task completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				if err := st.CompleteAll(ctx); err != nil {
					return err
				}
				tasks := view.Project(st.Tasks(), view.FilterAll, "")
				return writeOut(cmd, app, map[string]any{
					"data": tasks,
					"meta": map[string]any{"count": len(tasks), "label": view.CountLabel(len(tasks))},
				})
			})
		},
	}
}

func newClearCompletedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				n, err := st.ClearCompleted(ctx)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{"removed": n},
					"meta": map[string]any{"remaining": st.Len()},
				})
			})
		},
	}
}

var errAborted = errors.New("aborted")

func newDeleteAllCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every task (asks for confirmation unless --yes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				if st.Len() == 0 {
					return writeOut(cmd, app, map[string]any{"data": map[string]any{"removed": 0}})
				}
				if !yes {
					ok, err := confirm(cmd, fmt.Sprintf("Delete all %s? This cannot be undone. [y/N] ", view.CountLabel(st.Len())))
					if err != nil {
						return err
					}
					if !ok {
						return errAborted
					}
				}
				n, err := st.DeleteAll(ctx)
				if err != nil {
					return err
				}
				app.log.WithField("removed", n).Info("deleted all tasks")
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"removed": n}})
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// confirm prompts on stderr and reads one line from stdin. Only y/yes accepts.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		// EOF without an answer means no.
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
