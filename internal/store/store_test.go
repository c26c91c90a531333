package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"tasklist-cli/internal/kv"
	"tasklist-cli/internal/model"
)

// failingBlobs wraps a memory adapter and fails saves while fail is set.
type failingBlobs struct {
	*kv.Memory
	mu    sync.Mutex
	fail  bool
	saves int
}

func (f *failingBlobs) Save(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Save(ctx, key, value)
}

func (f *failingBlobs) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *failingBlobs) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type loadErrBlobs struct{ kv.Memory }

func (l *loadErrBlobs) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func fixedWall(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newTestStore(t *testing.T, blobs Blobs) *Store {
	t.Helper()
	s, err := New(context.Background(), blobs, WithIDs(seqIDs("t")), WithClock(NewLogicalClockAt(fixedWall(1000))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func persisted(t *testing.T, blobs Blobs) []model.Task {
	t.Helper()
	b, ok, err := blobs.Load(context.Background(), DefaultTasksKey)
	if err != nil || !ok {
		t.Fatalf("load persisted: ok=%v err=%v", ok, err)
	}
	tasks, err := decodeTasks(b)
	if err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	return tasks
}

func strp(s string) *string { return &s }

func TestCreate_AppendsAndPersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	s := newTestStore(t, mem)

	a, err := s.Create(ctx, "  Buy milk  ", nil, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Title != "Buy milk" || a.Completed || a.Priority != model.PriorityNormal || a.Due != nil {
		t.Fatalf("unexpected task: %#v", a)
	}
	b, err := s.Create(ctx, "Call mom", strp("2024-05-01"), model.PriorityHigh)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.DueString() != "2024-05-01" || b.Priority != model.PriorityHigh {
		t.Fatalf("unexpected task: %#v", b)
	}
	if !(b.CreatedAt > a.CreatedAt) {
		t.Fatalf("expected strictly increasing createdAt; got %d then %d", a.CreatedAt, b.CreatedAt)
	}
	if got, want := ids(s.Tasks()), []string{a.ID, b.ID}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if got := persisted(t, mem); !reflect.DeepEqual(got, s.Tasks()) {
		t.Fatalf("persisted mismatch:\nwant: %#v\ngot:  %#v", s.Tasks(), got)
	}
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := &failingBlobs{Memory: kv.NewMemory()}
	s := newTestStore(t, mem)

	cases := []struct {
		name     string
		title    string
		due      *string
		priority model.Priority
		field    string
	}{
		{name: "empty title", title: "", field: "title"},
		{name: "whitespace title", title: "   \t", field: "title"},
		{name: "bad priority", title: "x", priority: "urgent", field: "priority"},
		{name: "bad due", title: "x", due: strp("tomorrow"), field: "due"},
	}
	for _, tc := range cases {
		_, err := s.Create(ctx, tc.title, tc.due, tc.priority)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation; got %v", tc.name, err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("%s: expected field %q; got %#v", tc.name, tc.field, err)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("expected no tasks after rejected creates; got %d", s.Len())
	}
	if mem.saveCount() != 0 {
		t.Fatalf("expected no saves; got %d", mem.saveCount())
	}
}

func TestCreate_EmptyDueIsNoDue(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, kv.NewMemory())
	task, err := s.Create(context.Background(), "x", strp(""), model.PriorityLow)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Due != nil {
		t.Fatalf("expected nil due; got %q", *task.Due)
	}
}

func TestCreate_IDsUnique(t *testing.T) {
	t.Parallel()

	// The generator repeats itself; the store must still mint unique ids.
	gen := func() string { return "same" }
	s, err := New(context.Background(), kv.NewMemory(), WithIDs(gen))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		task, err := s.Create(context.Background(), "x", nil, "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[task.ID] {
			t.Fatalf("duplicate id %q", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestUpdateTitle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, kv.NewMemory())
	a, _ := s.Create(ctx, "old", nil, "")

	ok, err := s.UpdateTitle(ctx, a.ID, "  new  ")
	if err != nil || !ok {
		t.Fatalf("UpdateTitle: ok=%v err=%v", ok, err)
	}
	if got, _ := s.Get(a.ID); got.Title != "new" {
		t.Fatalf("title = %q, want %q", got.Title, "new")
	}

	// Empty title reverts: nothing changes.
	ok, err = s.UpdateTitle(ctx, a.ID, "   ")
	if err != nil || ok {
		t.Fatalf("UpdateTitle(empty): ok=%v err=%v", ok, err)
	}
	if got, _ := s.Get(a.ID); got.Title != "new" {
		t.Fatalf("title after revert = %q, want %q", got.Title, "new")
	}

	ok, err = s.UpdateTitle(ctx, "missing", "x")
	if err != nil || ok {
		t.Fatalf("UpdateTitle(missing): ok=%v err=%v", ok, err)
	}
}

func TestSetCompleted_AndMissingIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := &failingBlobs{Memory: kv.NewMemory()}
	s := newTestStore(t, mem)
	a, _ := s.Create(ctx, "a", nil, "")
	before := mem.saveCount()

	ok, err := s.SetCompleted(ctx, a.ID, true)
	if err != nil || !ok {
		t.Fatalf("SetCompleted: ok=%v err=%v", ok, err)
	}
	if got, _ := s.Get(a.ID); !got.Completed {
		t.Fatalf("expected completed")
	}
	// Setting the same value again is found but does not save.
	ok, err = s.SetCompleted(ctx, a.ID, true)
	if err != nil || !ok {
		t.Fatalf("SetCompleted(again): ok=%v err=%v", ok, err)
	}
	if got := mem.saveCount() - before; got != 1 {
		t.Fatalf("expected 1 save; got %d", got)
	}

	snapshot := s.Tasks()
	if ok, err := s.SetCompleted(ctx, "nope", false); ok || err != nil {
		t.Fatalf("SetCompleted(missing): ok=%v err=%v", ok, err)
	}
	if ok, err := s.Delete(ctx, "nope"); ok || err != nil {
		t.Fatalf("Delete(missing): ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.Duplicate(ctx, "nope"); ok || err != nil {
		t.Fatalf("Duplicate(missing): ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(snapshot, s.Tasks()) {
		t.Fatalf("missing-id operations changed state")
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	a, _ := s.Create(ctx, "a", nil, "")
	b, _ := s.Create(ctx, "b", nil, "")
	c, _ := s.Create(ctx, "c", nil, "")

	ok, err := s.Delete(ctx, b.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if got, want := ids(s.Tasks()), []string{a.ID, c.ID}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if got := ids(persisted(t, mem)); !reflect.DeepEqual(got, []string{a.ID, c.ID}) {
		t.Fatalf("persisted = %v", got)
	}
}

func TestDuplicate_CopiesFieldsAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, kv.NewMemory())
	src, _ := s.Create(ctx, "Pay rent", strp("2024-06-01"), model.PriorityHigh)
	_, _ = s.SetCompleted(ctx, src.ID, true)
	_, _ = s.Create(ctx, "other", nil, "")

	dup, ok, err := s.Duplicate(ctx, src.ID)
	if err != nil || !ok {
		t.Fatalf("Duplicate: ok=%v err=%v", ok, err)
	}
	if dup.ID == src.ID || dup.Title != "Pay rent" || dup.DueString() != "2024-06-01" || dup.Priority != model.PriorityHigh {
		t.Fatalf("unexpected duplicate: %#v", dup)
	}
	if dup.Completed {
		t.Fatalf("duplicate must start incomplete")
	}
	if !(dup.CreatedAt > src.CreatedAt) {
		t.Fatalf("duplicate must get a fresh createdAt")
	}
	tasks := s.Tasks()
	if tasks[len(tasks)-1].ID != dup.ID {
		t.Fatalf("duplicate must be appended; got %v", ids(tasks))
	}
}

func TestBulkOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := &failingBlobs{Memory: kv.NewMemory()}
	s := newTestStore(t, mem)
	a, _ := s.Create(ctx, "a", nil, "")
	b, _ := s.Create(ctx, "b", nil, "")
	c, _ := s.Create(ctx, "c", nil, "")
	_, _ = s.SetCompleted(ctx, b.ID, true)

	before := mem.saveCount()
	if err := s.CompleteAll(ctx); err != nil {
		t.Fatalf("CompleteAll: %v", err)
	}
	if got := mem.saveCount() - before; got != 1 {
		t.Fatalf("CompleteAll saves = %d, want 1", got)
	}
	for _, task := range s.Tasks() {
		if !task.Completed {
			t.Fatalf("expected all completed; %s is not", task.ID)
		}
	}

	_, _ = s.SetCompleted(ctx, a.ID, false)
	n, err := s.ClearCompleted(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ClearCompleted: n=%d err=%v", n, err)
	}
	if got, want := ids(s.Tasks()), []string{a.ID}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after clear = %v, want %v", got, want)
	}
	_ = c

	n, err = s.DeleteAll(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteAll: n=%d err=%v", n, err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	if got := persisted(t, mem.Memory); len(got) != 0 {
		t.Fatalf("expected empty persisted list; got %v", ids(got))
	}
}

func TestClearCompleted_PreservesRelativeOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, kv.NewMemory())
	var all []model.Task
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		task, _ := s.Create(ctx, title, nil, "")
		all = append(all, task)
	}
	_, _ = s.SetCompleted(ctx, all[1].ID, true)
	_, _ = s.SetCompleted(ctx, all[3].ID, true)

	if _, err := s.ClearCompleted(ctx); err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if got, want := ids(s.Tasks()), []string{all[0].ID, all[2].ID, all[4].ID}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestReorder_SplicesVisibleIntoSlots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	s := newTestStore(t, mem)
	for _, title := range []string{"A", "B", "C", "D"} {
		_, _ = s.Create(ctx, title, nil, "")
	}
	all := ids(s.Tasks()) // t1..t4

	if err := s.Reorder(ctx, []string{all[2], all[0]}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	want := []string{all[2], all[1], all[0], all[3]}
	if got := ids(s.Tasks()); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if got := ids(persisted(t, mem)); !reflect.DeepEqual(got, want) {
		t.Fatalf("persisted order = %v, want %v", got, want)
	}
}

func TestPersistenceFailure_LeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := &failingBlobs{Memory: kv.NewMemory()}
	s := newTestStore(t, mem)
	a, _ := s.Create(ctx, "a", nil, "")

	var notified int
	s.Subscribe(func([]model.Task) { notified++ })

	mem.setFail(true)
	before := s.Tasks()

	if _, err := s.Create(ctx, "b", nil, ""); err == nil {
		t.Fatalf("expected Create to fail")
	}
	if _, err := s.SetCompleted(ctx, a.ID, true); err == nil {
		t.Fatalf("expected SetCompleted to fail")
	}
	if _, err := s.Delete(ctx, a.ID); err == nil {
		t.Fatalf("expected Delete to fail")
	}
	if _, err := s.DeleteAll(ctx); err == nil {
		t.Fatalf("expected DeleteAll to fail")
	}
	if !reflect.DeepEqual(before, s.Tasks()) {
		t.Fatalf("state changed after failed saves:\nwant: %#v\ngot:  %#v", before, s.Tasks())
	}
	if notified != 0 {
		t.Fatalf("subscribers notified of failed commits: %d", notified)
	}

	mem.setFail(false)
	if _, err := s.Create(ctx, "b", nil, ""); err != nil {
		t.Fatalf("Create after recovery: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 tasks; got %d", s.Len())
	}
}

func TestSubscribe_NotifiesInOrderAndUnsubscribes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, kv.NewMemory())

	var got [][]string
	unsub := s.Subscribe(func(tasks []model.Task) {
		got = append(got, ids(tasks))
	})

	a, _ := s.Create(ctx, "a", nil, "")
	_, _ = s.Create(ctx, "b", nil, "")
	_, _ = s.UpdateTitle(ctx, "missing", "x") // no-op: no notification
	_, _ = s.Delete(ctx, a.ID)
	unsub()
	_, _ = s.Create(ctx, "c", nil, "")

	want := [][]string{{"t1"}, {"t1", "t2"}, {"t2"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
}

func TestSubscribe_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, kv.NewMemory())
	s.Subscribe(func(tasks []model.Task) {
		for i := range tasks {
			tasks[i].Title = "mutated"
		}
	})
	a, _ := s.Create(ctx, "a", nil, "")
	if got, _ := s.Get(a.ID); got.Title != "a" {
		t.Fatalf("subscriber mutated store state: %q", got.Title)
	}

	out := s.Tasks()
	out[0].Title = "also mutated"
	if got, _ := s.Get(a.ID); got.Title != "a" {
		t.Fatalf("Tasks() leaked internal state: %q", got.Title)
	}
}

func TestHydrate_RoundTripAcrossInstances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	s1 := newTestStore(t, mem)
	_, _ = s1.Create(ctx, "a", strp("2024-01-02"), model.PriorityLow)
	b, _ := s1.Create(ctx, "b", nil, model.PriorityHigh)
	_, _ = s1.SetCompleted(ctx, b.ID, true)
	if err := s1.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := New(ctx, mem)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !reflect.DeepEqual(s1.Tasks(), s2.Tasks()) {
		t.Fatalf("rehydrated mismatch:\nwant: %#v\ngot:  %#v", s1.Tasks(), s2.Tasks())
	}
}

func TestHydrate_MalformedFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, raw := range []string{"", "not json", "{}", `{"id":"x"}`, "42", `"str"`, "null", "[1,2]"} {
		mem := kv.NewMemory()
		_ = mem.Save(ctx, DefaultTasksKey, []byte(raw))

		s, err := New(ctx, mem)
		if err != nil {
			t.Fatalf("New(%q): %v", raw, err)
		}
		if s.Len() != 0 {
			t.Fatalf("New(%q): expected empty list; got %v", raw, ids(s.Tasks()))
		}
		// Close must not overwrite an unreadable value before the first real mutation.
		if err := s.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
		b, _, _ := mem.Load(ctx, DefaultTasksKey)
		if string(b) != raw {
			t.Fatalf("Close rewrote malformed blob %q as %q", raw, b)
		}
	}
}

func TestHydrate_RepairsRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	raw := `[
		{"id":"a","title":"  keep  ","completed":false,"createdAt":5,"due":null,"priority":"high"},
		{"id":"","title":"no id","createdAt":6},
		{"id":"b","title":"   ","createdAt":7},
		{"id":"a","title":"dup","createdAt":8},
		{"id":"c","title":"odd priority","createdAt":9,"due":"","priority":"urgent"},
		{"id":"d","title":"missing priority","createdAt":10}
	]`
	_ = mem.Save(ctx, DefaultTasksKey, []byte(raw))

	clock := NewLogicalClockAt(fixedWall(1))
	s, err := New(ctx, mem, WithClock(clock), WithIDs(seqIDs("n")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tasks := s.Tasks()
	if got, want := ids(tasks), []string{"a", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if tasks[0].Title != "keep" {
		t.Fatalf("title not trimmed: %q", tasks[0].Title)
	}
	if tasks[1].Priority != model.PriorityNormal || tasks[1].Due != nil {
		t.Fatalf("record c not normalized: %#v", tasks[1])
	}
	if tasks[2].Priority != model.PriorityNormal {
		t.Fatalf("record d not normalized: %#v", tasks[2])
	}

	// The clock floor is raised past hydrated createdAt values.
	n, _ := s.Create(ctx, "new", nil, "")
	if n.CreatedAt <= 10 {
		t.Fatalf("createdAt = %d, want > 10", n.CreatedAt)
	}

	// The first mutation persists the repaired records.
	s2, err := New(ctx, mem)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s2.Tasks()) != 4 {
		t.Fatalf("expected repaired + new records persisted; got %v", ids(s2.Tasks()))
	}
}

func TestClose_FlushesRepairedState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	_ = mem.Save(ctx, DefaultTasksKey, []byte(`[{"id":"a","title":" x ","createdAt":1,"priority":"normal"}]`))

	s, err := New(ctx, mem)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got := persisted(t, mem)
	if len(got) != 1 || got[0].Title != "x" {
		t.Fatalf("expected repaired record flushed; got %#v", got)
	}
	if _, err := s.Create(ctx, "after close", nil, ""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
}

func TestNew_LoadErrorIsReturned(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), &loadErrBlobs{}); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestNew_CustomKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	s, err := New(ctx, mem, WithKey("other.tasks"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, _ = s.Create(ctx, "a", nil, "")
	if _, ok, _ := mem.Load(ctx, DefaultTasksKey); ok {
		t.Fatalf("default key should be untouched")
	}
	if _, ok, _ := mem.Load(ctx, "other.tasks"); !ok {
		t.Fatalf("expected custom key written")
	}
}

func TestReload_PicksUpExternalWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	s1 := newTestStore(t, mem)
	s2 := newTestStore(t, mem)

	var notified int
	s2.Subscribe(func([]model.Task) { notified++ })

	_, _ = s1.Create(ctx, "from s1", nil, "")
	if s2.Len() != 0 {
		t.Fatalf("s2 should not see s1's write before Reload")
	}
	if err := s2.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if s2.Len() != 1 || notified != 1 {
		t.Fatalf("after Reload: len=%d notified=%d", s2.Len(), notified)
	}
}

func TestConcurrentCreates_AllPersisted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := kv.NewMemory()
	s, err := New(ctx, mem)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Create(ctx, fmt.Sprintf("task %d", i), nil, ""); err != nil {
				t.Errorf("Create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Fatalf("expected 20 tasks; got %d", s.Len())
	}
	if got := persisted(t, mem); len(got) != 20 {
		t.Fatalf("expected 20 persisted; got %d", len(got))
	}
	seen := map[int64]bool{}
	for _, task := range s.Tasks() {
		if seen[task.CreatedAt] {
			t.Fatalf("duplicate createdAt %d", task.CreatedAt)
		}
		seen[task.CreatedAt] = true
	}
}

func TestClose_FailedFlushCanBeRetried(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := &failingBlobs{Memory: kv.NewMemory()}
	_ = mem.Memory.Save(ctx, DefaultTasksKey, []byte(`[{"id":"a","title":" x ","createdAt":1,"priority":"normal"}]`))

	s, err := New(ctx, mem)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mem.setFail(true)
	if err := s.Close(ctx); err == nil {
		t.Fatalf("expected flush error")
	}
	mem.setFail(false)
	if err := s.Close(ctx); err != nil {
		t.Fatalf("retry Close: %v", err)
	}
	if got := persisted(t, mem); len(got) != 1 || got[0].Title != "x" {
		t.Fatalf("expected repaired record flushed on retry; got %#v", got)
	}
	saves := mem.saveCount()
	if err := s.Close(ctx); err != nil || mem.saveCount() != saves {
		t.Fatalf("Close after success should be a no-op; err=%v saves=%d->%d", err, saves, mem.saveCount())
	}
}

func TestDuplicate_MissingSourceWritesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := &failingBlobs{Memory: kv.NewMemory()}
	s := newTestStore(t, mem)
	a, _ := s.Create(ctx, "a", nil, "")
	_, _ = s.Delete(ctx, a.ID)
	saves := mem.saveCount()

	if _, ok, err := s.Duplicate(ctx, a.ID); ok || err != nil {
		t.Fatalf("Duplicate of deleted task: ok=%v err=%v", ok, err)
	}
	if s.Len() != 0 || mem.saveCount() != saves {
		t.Fatalf("expected no write; len=%d saves=%d->%d", s.Len(), saves, mem.saveCount())
	}
}

func TestDuplicate_RacingDeleteNeverOrphansCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := New(ctx, kv.NewMemory())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var mu sync.Mutex
	var commits [][]string
	s.Subscribe(func(tasks []model.Task) {
		mu.Lock()
		commits = append(commits, ids(tasks))
		mu.Unlock()
	})
	contains := func(xs []string, id string) bool {
		for _, x := range xs {
			if x == id {
				return true
			}
		}
		return false
	}

	for i := 0; i < 50; i++ {
		src, err := s.Create(ctx, "src", nil, "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		mu.Lock()
		commits = nil
		mu.Unlock()

		var wg sync.WaitGroup
		var dup model.Task
		var dupOK bool
		wg.Add(2)
		go func() {
			defer wg.Done()
			dup, dupOK, _ = s.Duplicate(ctx, src.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Delete(ctx, src.ID)
		}()
		wg.Wait()

		if dupOK {
			mu.Lock()
			for _, c := range commits {
				if contains(c, dup.ID) {
					if !contains(c, src.ID) {
						t.Fatalf("copy %s committed after its source was deleted: %v", dup.ID, c)
					}
					break
				}
			}
			mu.Unlock()
		}
		_, _ = s.DeleteAll(ctx)
	}
}

func TestPatch_TitleAndCompletedInOneCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := &failingBlobs{Memory: kv.NewMemory()}
	s := newTestStore(t, mem)
	a, _ := s.Create(ctx, "old", nil, "")

	var notified int
	s.Subscribe(func([]model.Task) { notified++ })
	saves := mem.saveCount()

	done := true
	found, err := s.Patch(ctx, a.ID, strp("  new  "), &done)
	if err != nil || !found {
		t.Fatalf("Patch: found=%v err=%v", found, err)
	}
	got, _ := s.Get(a.ID)
	if got.Title != "new" || !got.Completed {
		t.Fatalf("unexpected task: %#v", got)
	}
	if mem.saveCount()-saves != 1 || notified != 1 {
		t.Fatalf("expected one save and one notification; saves=%d notified=%d", mem.saveCount()-saves, notified)
	}

	mem.setFail(true)
	undone := false
	if _, err := s.Patch(ctx, a.ID, strp("newer"), &undone); err == nil {
		t.Fatalf("expected save error")
	}
	mem.setFail(false)
	if got, _ := s.Get(a.ID); got.Title != "new" || !got.Completed {
		t.Fatalf("failed patch must change nothing; got %#v", got)
	}

	var ve *ValidationError
	if _, err := s.Patch(ctx, a.ID, strp("   "), nil); !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("blank title: err=%v", err)
	}
	if found, err := s.Patch(ctx, "missing", nil, &done); found || err != nil {
		t.Fatalf("missing id: found=%v err=%v", found, err)
	}
}
