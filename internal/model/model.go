package model

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// DateLayout is the wire format of Task.Due (date only, no time of day).
const DateLayout = "2006-01-02"

// Task is the only persisted entity. The JSON shape matches the blob written by
// earlier versions of the list, so existing stored data hydrates unchanged.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`

	// CreatedAt is a logical clock value (unix millis, unique per store).
	CreatedAt int64 `json:"createdAt"`

	// Due is YYYY-MM-DD or nil.
	Due      *string  `json:"due"`
	Priority Priority `json:"priority"`
}

// Rank orders priorities for display: high=0, normal=1, low=2.
// Unknown values rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("invalid priority: %q (expected high|normal|low)", s)
	}
}

// ParseDue validates a due date. Empty input means "no due date".
func ParseDue(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return nil, fmt.Errorf("invalid due date: %q (expected YYYY-MM-DD)", s)
	}
	return &s, nil
}

// DueTime returns the due date as UTC midnight. ok is false when the task has no
// due date or the stored value does not parse.
func (t Task) DueTime() (time.Time, bool) {
	if t.Due == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(DateLayout, strings.TrimSpace(*t.Due))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// DueString returns the due date or "" when absent.
func (t Task) DueString() string {
	if t.Due == nil {
		return ""
	}
	return *t.Due
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	out := t
	if t.Due != nil {
		d := *t.Due
		out.Due = &d
	}
	return out
}
