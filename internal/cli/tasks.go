package cli

import (
	"context"
	"strings"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	"github.com/spf13/cobra"
)

func newAddCmd(app *App) *cobra.Command {
	var due string
	var priority string

	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a task at the end of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			var duePtr *string
			if cmd.Flags().Changed("due") {
				duePtr = &due
			}
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				t, err := st.Create(ctx, title, duePtr, model.Priority(priority))
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&priority, "priority", string(model.PriorityNormal), "Priority (high|normal|low)")
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	var p projection

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks (filtered, searched, sorted)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				tasks, err := p.apply(st.Tasks())
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data": tasks,
					"meta": map[string]any{
						"count": len(tasks),
						"label": view.CountLabel(len(tasks)),
						"total": st.Len(),
					},
				})
			})
		},
	}

	p.bind(cmd)
	return cmd
}

func newDoneCmd(app *App, completed bool) *cobra.Command {
	var p projection

	use, short := "done <ref>", "Mark a task completed"
	if !completed {
		use, short = "undone <ref>", "Mark a task not completed"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				t, err := resolveRef(st, p, args[0])
				if err != nil {
					return err
				}
				if _, err := st.SetCompleted(ctx, t.ID, completed); err != nil {
					return err
				}
				t, _ = st.Get(t.ID)
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}

	p.bind(cmd)
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var p projection

	cmd := &cobra.Command{
		Use:   "edit <ref> <title...>",
		Short: "Rename a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return writeErr(cmd, &store.ValidationError{Field: "title", Msg: "title must not be empty"})
			}
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				t, err := resolveRef(st, p, args[0])
				if err != nil {
					return err
				}
				if _, err := st.UpdateTitle(ctx, t.ID, title); err != nil {
					return err
				}
				t, _ = st.Get(t.ID)
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}

	p.bind(cmd)
	return cmd
}

func newRmCmd(app *App) *cobra.Command {
	var p projection

	cmd := &cobra.Command{
		Use:     "rm <ref>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				t, err := resolveRef(st, p, args[0])
				if err != nil {
					return err
				}
				ok, err := st.Delete(ctx, t.ID)
				if err != nil {
					return err
				}
				if !ok {
					return errNotFound("task", t.ID)
				}
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{"id": t.ID, "deleted": true},
				})
			})
		},
	}

	p.bind(cmd)
	return cmd
}

func newDupCmd(app *App) *cobra.Command {
	var p projection

	cmd := &cobra.Command{
		Use:   "dup <ref>",
		Short: "Duplicate a task (title, due date, priority)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				src, err := resolveRef(st, p, args[0])
				if err != nil {
					return err
				}
				t, ok, err := st.Duplicate(ctx, src.ID)
				if err != nil {
					return err
				}
				if !ok {
					return errNotFound("task", src.ID)
				}
				return writeOut(cmd, app, map[string]any{
					"data": t,
					"meta": map[string]any{"source": src.ID},
				})
			})
		},
	}

	p.bind(cmd)
	return cmd
}
