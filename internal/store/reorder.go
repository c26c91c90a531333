package store

import (
	"sort"
	"strings"

	"tasklist-cli/internal/model"
)

// Reconcile rewrites canonical so the tasks named in visible appear in that order.
//
// The visible tasks are placed back into the canonical slots they already occupy:
// the slots are collected, sorted ascending, and filled left to right with the new
// visible order. Tasks not named in visible (hidden by the current filter or search)
// keep their positions. Ids that do not exist and repeated ids are ignored.
//
// Example: canonical [A B C D], visible [C A] yields [C B A D].
func Reconcile(canonical []model.Task, visible []string) []model.Task {
	out := make([]model.Task, len(canonical))
	copy(out, canonical)
	if len(canonical) == 0 || len(visible) == 0 {
		return out
	}

	pos := make(map[string]int, len(canonical))
	for i, t := range canonical {
		pos[t.ID] = i
	}

	seen := make(map[string]bool, len(visible))
	order := make([]int, 0, len(visible))
	for _, id := range visible {
		id = strings.TrimSpace(id)
		i, ok := pos[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, i)
	}

	slots := append([]int(nil), order...)
	sort.Ints(slots)
	for k, slot := range slots {
		out[slot] = canonical[order[k]]
	}
	return out
}

// MoveWithin returns visible with movedID relocated. insertAt is the index to insert
// the moved id at *after removing it*, clamped to the list bounds. An unknown id
// returns an unchanged copy.
func MoveWithin(visible []string, movedID string, insertAt int) []string {
	movedID = strings.TrimSpace(movedID)
	idx := -1
	for i, id := range visible {
		if id == movedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return append([]string(nil), visible...)
	}

	rest := make([]string, 0, len(visible)-1)
	rest = append(rest, visible[:idx]...)
	rest = append(rest, visible[idx+1:]...)

	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(rest) {
		insertAt = len(rest)
	}

	final := make([]string, 0, len(visible))
	final = append(final, rest[:insertAt]...)
	final = append(final, movedID)
	final = append(final, rest[insertAt:]...)
	return final
}
