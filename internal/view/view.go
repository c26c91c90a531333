// Package view derives the displayed task list from the canonical one.
// Everything here is pure: inputs are never modified.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tasklist-cli/internal/model"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists the filters in tab order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "completed", "done":
		return FilterCompleted, nil
	default:
		return "", fmt.Errorf("invalid filter: %q (expected all|active|completed)", s)
	}
}

// Next returns the filter after f in tab order, wrapping around.
func (f Filter) Next() Filter {
	for i, cur := range Filters {
		if cur == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

func (f Filter) keep(t model.Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Order selects how the projection is sorted.
type Order string

const (
	// OrderSmart sorts by completion, due date, priority, then creation time.
	OrderSmart Order = "smart"
	// OrderManual keeps canonical order, so reordering is visible.
	OrderManual Order = "manual"
)

func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "smart":
		return OrderSmart, nil
	case "manual":
		return OrderManual, nil
	default:
		return "", fmt.Errorf("invalid order: %q (expected smart|manual)", s)
	}
}

func (o Order) Toggle() Order {
	if o == OrderManual {
		return OrderSmart
	}
	return OrderManual
}

// Project filters by status, then by case-insensitive title substring, then sorts.
func Project(tasks []model.Task, filter Filter, search string) []model.Task {
	return ProjectOrdered(tasks, filter, search, OrderSmart)
}

func ProjectOrdered(tasks []model.Task, filter Filter, search string, order Order) []model.Task {
	needle := strings.ToLower(search)
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !filter.keep(t) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		out = append(out, t.Clone())
	}
	if order != OrderManual {
		sort.SliceStable(out, func(i, j int) bool {
			return Compare(out[i], out[j]) < 0
		})
	}
	return out
}

// Compare is the smart-order comparator. Tasks without a (parseable) due date sort
// after every dated task.
func Compare(a, b model.Task) int {
	if a.Completed != b.Completed {
		if !a.Completed {
			return -1
		}
		return 1
	}

	ad, aok := a.DueTime()
	bd, bok := b.DueTime()
	switch {
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	case aok && bok:
		if ad.Before(bd) {
			return -1
		}
		if ad.After(bd) {
			return 1
		}
	}

	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	if a.CreatedAt < b.CreatedAt {
		return -1
	}
	if a.CreatedAt > b.CreatedAt {
		return 1
	}
	return 0
}

// CountLabel renders n as "1 item" or "N items".
func CountLabel(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// dueSoonWindow is how far ahead a due date still counts as soon.
const dueSoonWindow = 2 * 24 * time.Hour

// DueSoon reports whether t is due between today and two days from today, inclusive.
// Dates are compared as calendar days, using today's calendar date in its location.
func DueSoon(t model.Task, today time.Time) bool {
	due, ok := t.DueTime()
	if !ok {
		return false
	}
	start := calendarDay(today)
	if due.Before(start) {
		return false
	}
	return due.Sub(start) <= dueSoonWindow
}

// Overdue reports whether t is incomplete and due before today.
func Overdue(t model.Task, today time.Time) bool {
	if t.Completed {
		return false
	}
	due, ok := t.DueTime()
	if !ok {
		return false
	}
	return due.Before(calendarDay(today))
}

// calendarDay maps ts to UTC midnight of its local calendar date, the same
// representation model.Task.DueTime uses.
func calendarDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// IDs returns the ids of tasks in order.
func IDs(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
