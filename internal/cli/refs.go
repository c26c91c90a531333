package cli

import (
	"fmt"
	"strconv"
	"strings"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	"github.com/spf13/cobra"
)

// projection holds the --filter/--search/--order flags shared by list and every
// command that takes a positional ref.
type projection struct {
	Filter string
	Search string
	Order  string
}

func (p *projection) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.Filter, "filter", string(view.FilterAll), "Filter (all|active|completed)")
	cmd.Flags().StringVar(&p.Search, "search", "", "Case-insensitive title substring")
	cmd.Flags().StringVar(&p.Order, "order", string(view.OrderSmart), "Order (smart|manual)")
}

func (p projection) apply(tasks []model.Task) ([]model.Task, error) {
	filter, err := view.ParseFilter(p.Filter)
	if err != nil {
		return nil, err
	}
	order, err := view.ParseOrder(p.Order)
	if err != nil {
		return nil, err
	}
	return view.ProjectOrdered(tasks, filter, p.Search, order), nil
}

// resolveRef finds the task a user typed. An all-digit ref is a 1-based position in
// the projection; anything else is an exact id or a unique id prefix.
func resolveRef(st *store.Store, p projection, ref string) (model.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Task{}, fmt.Errorf("missing task ref")
	}

	if isDigits(ref) {
		n, err := strconv.Atoi(ref)
		if err != nil {
			return model.Task{}, errNotFound("task", ref)
		}
		visible, err := p.apply(st.Tasks())
		if err != nil {
			return model.Task{}, err
		}
		if n < 1 || n > len(visible) {
			return model.Task{}, fmt.Errorf("task #%d out of range (1-%d)", n, len(visible))
		}
		return visible[n-1], nil
	}

	if t, ok := st.Get(ref); ok {
		return t, nil
	}
	var matches []model.Task
	for _, t := range st.Tasks() {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return model.Task{}, errNotFound("task", ref)
	case 1:
		return matches[0], nil
	default:
		return model.Task{}, ambiguousRefError{ref: ref, matches: view.IDs(matches)}
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
