package cli

import (
	"context"
	"fmt"

	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	"github.com/spf13/cobra"
)

func newMoveCmd(app *App) *cobra.Command {
	var p projection
	var to int

	cmd := &cobra.Command{
		Use:   "move <ref> --to N",
		Short: "Move a task to position N within the visible list",
		Long: `Move a task within the list selected by --filter/--search/--order.

Only the positions of visible tasks are rewritten; hidden tasks keep theirs.
Use --order manual to see the stored order the move produces.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("to") {
				return writeErr(cmd, fmt.Errorf("missing --to"))
			}
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				t, err := resolveRef(st, p, args[0])
				if err != nil {
					return err
				}
				visible, err := p.apply(st.Tasks())
				if err != nil {
					return err
				}
				next := store.MoveWithin(view.IDs(visible), t.ID, to-1)
				if err := st.Reorder(ctx, next); err != nil {
					return err
				}
				tasks, err := p.apply(st.Tasks())
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data": tasks,
					"meta": map[string]any{"moved": t.ID},
				})
			})
		},
	}

	p.bind(cmd)
	cmd.Flags().IntVar(&to, "to", 0, "Target 1-based position in the visible list")
	return cmd
}

func newReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id...>",
		Short: "Apply a visible order: the given ids take the slots they occupy, in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, app, func(ctx context.Context, st *store.Store) error {
				if err := st.Reorder(ctx, args); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": st.Tasks()})
			})
		},
	}
}
