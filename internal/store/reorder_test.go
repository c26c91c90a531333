package store

import (
	"reflect"
	"testing"

	"tasklist-cli/internal/model"
)

func tasksWithIDs(idList ...string) []model.Task {
	out := make([]model.Task, 0, len(idList))
	for i, id := range idList {
		out = append(out, model.Task{ID: id, Title: id, CreatedAt: int64(i + 1), Priority: model.PriorityNormal})
	}
	return out
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		canonical []string
		visible   []string
		want      []string
	}{
		{name: "partial visible keeps hidden slots", canonical: []string{"A", "B", "C", "D"}, visible: []string{"C", "A"}, want: []string{"C", "B", "A", "D"}},
		{name: "full permutation", canonical: []string{"A", "B", "C"}, visible: []string{"C", "B", "A"}, want: []string{"C", "B", "A"}},
		{name: "identity", canonical: []string{"A", "B", "C"}, visible: []string{"A", "B", "C"}, want: []string{"A", "B", "C"}},
		{name: "stale ids ignored", canonical: []string{"A", "B", "C"}, visible: []string{"Z", "C", "A"}, want: []string{"C", "B", "A"}},
		{name: "duplicate ids ignored", canonical: []string{"A", "B", "C"}, visible: []string{"C", "C", "A"}, want: []string{"C", "B", "A"}},
		{name: "single visible is a no-op", canonical: []string{"A", "B", "C"}, visible: []string{"B"}, want: []string{"A", "B", "C"}},
		{name: "empty visible", canonical: []string{"A", "B"}, visible: nil, want: []string{"A", "B"}},
		{name: "empty canonical", canonical: nil, visible: []string{"A"}, want: []string{}},
		{name: "tail slots", canonical: []string{"A", "B", "C", "D", "E"}, visible: []string{"E", "B", "D"}, want: []string{"A", "E", "C", "B", "D"}},
	}
	for _, tt := range tests {
		got := ids(Reconcile(tasksWithIDs(tt.canonical...), tt.visible))
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: Reconcile(%v, %v) = %v, want %v", tt.name, tt.canonical, tt.visible, got, tt.want)
		}
	}
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := tasksWithIDs("A", "B", "C")
	_ = Reconcile(in, []string{"C", "A"})
	if got := ids(in); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("input mutated: %v", got)
	}
}

func TestReconcile_PreservesTaskCount(t *testing.T) {
	t.Parallel()

	in := tasksWithIDs("A", "B", "C", "D", "E", "F")
	out := Reconcile(in, []string{"F", "A", "D", "X", "A"})
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	seen := map[string]bool{}
	for _, task := range out {
		if seen[task.ID] {
			t.Fatalf("duplicate %s in %v", task.ID, ids(out))
		}
		seen[task.ID] = true
	}
}

func TestMoveWithin(t *testing.T) {
	t.Parallel()

	visible := []string{"a", "b", "c", "d"}
	tests := []struct {
		id       string
		insertAt int
		want     []string
	}{
		// insertAt is measured after removing the moved id.
		{id: "d", insertAt: 0, want: []string{"d", "a", "b", "c"}},
		{id: "a", insertAt: 3, want: []string{"b", "c", "d", "a"}},
		{id: "b", insertAt: 2, want: []string{"a", "c", "b", "d"}},
		{id: "c", insertAt: 2, want: []string{"a", "b", "c", "d"}},
		{id: "c", insertAt: -5, want: []string{"c", "a", "b", "d"}},
		{id: "a", insertAt: 99, want: []string{"b", "c", "d", "a"}},
		{id: "zzz", insertAt: 0, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		got := MoveWithin(visible, tt.id, tt.insertAt)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("MoveWithin(%q, %d) = %v, want %v", tt.id, tt.insertAt, got, tt.want)
		}
	}
	if !reflect.DeepEqual(visible, []string{"a", "b", "c", "d"}) {
		t.Fatalf("input mutated: %v", visible)
	}
}
