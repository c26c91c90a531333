package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"tasklist-cli/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTasksKey is the storage key of the serialized task array.
const DefaultTasksKey = "todo.tasks.v1"

// Blobs is the persistence boundary: an opaque key-value store of raw bytes.
// kv.Adapter implementations satisfy it.
type Blobs interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Store owns the canonical ordered task list. It is the only component that mutates
// the list; everything else receives copies.
//
// Mutations are serialized and persisted synchronously before returning. A failed
// save leaves the in-memory list unchanged.
type Store struct {
	mu     sync.Mutex
	blobs  Blobs
	key    string
	clock  Clock
	newID  func() string
	log    logrus.FieldLogger
	tasks  []model.Task
	dirty  bool
	closed bool

	// notifyMu keeps change notifications in commit order.
	notifyMu sync.Mutex
	subMu    sync.Mutex
	subs     map[int]func([]model.Task)
	nextSub  int
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIDs overrides id minting (tests use deterministic ids).
func WithIDs(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New constructs a store and hydrates it from blobs.
//
// An absent, malformed, or non-array stored value hydrates to an empty list. Only
// an I/O error from the adapter itself is returned.
func New(ctx context.Context, blobs Blobs, opts ...Option) (*Store, error) {
	if blobs == nil {
		return nil, errors.New("store: nil blobs")
	}
	s := &Store{
		blobs: blobs,
		key:   DefaultTasksKey,
		clock: NewLogicalClock(),
		newID: uuid.NewString,
		subs:  map[int]func([]model.Task){},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	if err := s.hydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) hydrate(ctx context.Context) error {
	b, ok, err := s.blobs.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	log := s.log.WithField("key", s.key)
	if !ok {
		s.tasks = []model.Task{}
		s.dirty = false
		return nil
	}
	raw, err := decodeTasks(b)
	if err != nil {
		log.WithError(err).Warn("stored tasks are malformed; starting with an empty list")
		s.tasks = []model.Task{}
		s.dirty = false
		return nil
	}
	tasks, dropped, normalized := sanitize(raw)
	if dropped > 0 || normalized > 0 {
		log.WithFields(logrus.Fields{"dropped": dropped, "normalized": normalized}).Warn("repaired stored tasks")
	}
	if obs, ok := s.clock.(interface{ Observe(int64) }); ok {
		for _, t := range tasks {
			obs.Observe(t.CreatedAt)
		}
	}
	s.tasks = tasks
	s.dirty = dropped > 0 || normalized > 0
	return nil
}

// sanitize enforces the record invariants on hydrated data: unique non-empty ids,
// non-empty trimmed titles, known priorities, nil for empty due dates.
func sanitize(in []model.Task) (out []model.Task, dropped int, normalized int) {
	out = make([]model.Task, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		id := strings.TrimSpace(t.ID)
		title := strings.TrimSpace(t.Title)
		if id == "" || title == "" || seen[id] {
			dropped++
			continue
		}
		seen[id] = true
		fixed := false
		if t.ID != id || t.Title != title {
			t.ID = id
			t.Title = title
			fixed = true
		}
		if !t.Priority.Valid() {
			p, err := model.ParsePriority(string(t.Priority))
			if err != nil {
				p = model.PriorityNormal
			}
			t.Priority = p
			fixed = true
		}
		if t.Due != nil && strings.TrimSpace(*t.Due) == "" {
			t.Due = nil
			fixed = true
		}
		if fixed {
			normalized++
		}
		out = append(out, t)
	}
	return out, dropped, normalized
}

// Reload re-reads the persisted list, replacing the in-memory state. Subscribers are
// notified. Used when another process may have written the same key.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := s.hydrate(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.publishLocked()
	return nil
}

// Tasks returns a copy of the canonical list.
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.tasks, id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// Create appends a new task to the end of the canonical order.
//
// A nil due means "no due date"; an empty priority means normal.
func (s *Store) Create(ctx context.Context, title string, due *string, priority model.Priority) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, &ValidationError{Field: "title", Msg: "title must not be empty"}
	}
	p, err := model.ParsePriority(string(priority))
	if err != nil {
		return model.Task{}, &ValidationError{Field: "priority", Msg: err.Error()}
	}
	var d *string
	if due != nil {
		d, err = model.ParseDue(*due)
		if err != nil {
			return model.Task{}, &ValidationError{Field: "due", Msg: err.Error()}
		}
	}

	var created model.Task
	_, err = s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		created = model.Task{
			ID:        s.mintIDLocked(next),
			Title:     title,
			Completed: false,
			CreatedAt: s.clock.Now(),
			Due:       d,
			Priority:  p,
		}
		return append(next, created), true
	})
	if err != nil {
		return model.Task{}, err
	}
	return created.Clone(), nil
}

// UpdateTitle sets a new title. It reports false (and changes nothing) when the id is
// absent or the trimmed title is empty; callers treat the latter as a revert.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, nil
	}
	return s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		i := indexOf(next, id)
		if i < 0 {
			return next, false
		}
		if next[i].Title == title {
			return next, false
		}
		next[i].Title = title
		return next, true
	})
}

func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) (bool, error) {
	var found bool
	_, err := s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		i := indexOf(next, id)
		if i < 0 {
			return next, false
		}
		found = true
		if next[i].Completed == completed {
			return next, false
		}
		next[i].Completed = completed
		return next, true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	return s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		i := indexOf(next, id)
		if i < 0 {
			return next, false
		}
		return append(next[:i], next[i+1:]...), true
	})
}

// Duplicate creates a copy of id's title, due date, and priority. ok is false when
// the source does not exist.
func (s *Store) Duplicate(ctx context.Context, id string) (model.Task, bool, error) {
	var created model.Task
	found := false
	_, err := s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		i := indexOf(next, id)
		if i < 0 {
			return next, false
		}
		found = true
		src := next[i].Clone()
		created = model.Task{
			ID:        s.mintIDLocked(next),
			Title:     src.Title,
			Completed: false,
			CreatedAt: s.clock.Now(),
			Due:       src.Due,
			Priority:  src.Priority,
		}
		return append(next, created), true
	})
	if err != nil || !found {
		return model.Task{}, false, err
	}
	return created.Clone(), true, nil
}

// Patch applies a title and a completion change to id in one commit. A nil field is
// left alone. found is false when the id is absent. A blank title is a validation
// error and nothing is written.
func (s *Store) Patch(ctx context.Context, id string, title *string, completed *bool) (found bool, err error) {
	var trimmed string
	if title != nil {
		trimmed = strings.TrimSpace(*title)
		if trimmed == "" {
			return false, &ValidationError{Field: "title", Msg: "title must not be empty"}
		}
	}
	_, err = s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		i := indexOf(next, id)
		if i < 0 {
			return next, false
		}
		found = true
		changed := false
		if title != nil && next[i].Title != trimmed {
			next[i].Title = trimmed
			changed = true
		}
		if completed != nil && next[i].Completed != *completed {
			next[i].Completed = *completed
			changed = true
		}
		return next, changed
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// CompleteAll marks every task completed with a single save.
func (s *Store) CompleteAll(ctx context.Context) error {
	_, err := s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		changed := false
		for i := range next {
			if !next[i].Completed {
				next[i].Completed = true
				changed = true
			}
		}
		return next, changed
	})
	return err
}

// ClearCompleted removes completed tasks, keeping the relative order of the rest.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	removed := 0
	_, err := s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		kept := next[:0]
		for _, t := range next {
			if t.Completed {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		return kept, removed > 0
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteAll empties the store. It is unconditional: confirmation is the caller's job.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	removed := 0
	_, err := s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		removed = len(next)
		return []model.Task{}, removed > 0
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Reorder rewrites the canonical order so the ids in visible appear in that order,
// occupying the slots they held before. See Reconcile.
func (s *Store) Reorder(ctx context.Context, visible []string) error {
	_, err := s.apply(ctx, func(next []model.Task) ([]model.Task, bool) {
		out := Reconcile(next, visible)
		return out, !sameOrder(next, out)
	})
	return err
}

// Subscribe registers fn to receive a snapshot after every committed mutation.
// fn runs synchronously on the mutating goroutine and must not mutate the store.
func (s *Store) Subscribe(fn func([]model.Task)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Close flushes state that differs from what is stored (records repaired during
// hydration) and rejects further mutations. A failed flush leaves the store open so
// Close can be retried.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.dirty {
		if err := s.saveLocked(ctx, s.tasks); err != nil {
			return err
		}
		s.dirty = false
	}
	s.closed = true
	return nil
}

func (s *Store) apply(ctx context.Context, fn func(next []model.Task) ([]model.Task, bool)) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	next, changed := fn(cloneTasks(s.tasks))
	if !changed {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.saveLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.tasks = next
	s.dirty = false
	s.publishLocked()
	return true, nil
}

func (s *Store) saveLocked(ctx context.Context, tasks []model.Task) error {
	b, err := encodeTasks(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.blobs.Save(ctx, s.key, b); err != nil {
		s.log.WithError(err).WithField("key", s.key).Error("save tasks failed")
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// publishLocked releases s.mu and notifies subscribers. notifyMu is taken before the
// release so snapshots reach subscribers in commit order.
func (s *Store) publishLocked() {
	snap := cloneTasks(s.tasks)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	fns := make([]func([]model.Task), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(cloneTasks(snap))
	}
}

func (s *Store) mintIDLocked(tasks []model.Task) string {
	for i := 0; i < 16; i++ {
		id := strings.TrimSpace(s.newID())
		if id != "" && indexOf(tasks, id) < 0 {
			return id
		}
	}
	// The injected generator keeps colliding; fall back to a random UUID.
	return uuid.NewString()
}

func indexOf(tasks []model.Task, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(in []model.Task) []model.Task {
	out := make([]model.Task, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func sameOrder(a, b []model.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
