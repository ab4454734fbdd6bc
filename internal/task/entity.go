package task

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in board column order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label is the human form used by views, e.g. "in progress".
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "in progress"
	default:
		return string(s)
	}
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q (want pending, in_progress or completed)", s)
	}
	return st, nil
}

// Priority is optional. The empty value means "not given" and is only
// legal on input; stored tasks always carry one of the three levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is assigned on create when the caller omits a priority.
const DefaultPriority = PriorityMedium

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q (want low, medium or high)", s)
	}
	return p, nil
}

// DateLayout is the calendar date format of DueDate.
const DateLayout = "2006-01-02"

type Task struct {
	ID          string    `yaml:"id" json:"id"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description" json:"description"`
	Status      Status    `yaml:"status" json:"status"`
	Priority    Priority  `yaml:"priority" json:"priority"`
	Assignee    string    `yaml:"assignee" json:"assignee"`
	DueDate     string    `yaml:"due_date" json:"due_date"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Equal compares field by field, timestamps by instant.
func (t *Task) Equal(o *Task) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.ID == o.ID &&
		t.Title == o.Title &&
		t.Description == o.Description &&
		t.Status == o.Status &&
		t.Priority == o.Priority &&
		t.Assignee == o.Assignee &&
		t.DueDate == o.DueDate &&
		t.CreatedAt.Equal(o.CreatedAt) &&
		t.UpdatedAt.Equal(o.UpdatedAt)
}

// NewID returns a fresh task identifier. ULIDs are unique for the life of
// the store and sort by creation time.
func NewID() string {
	return ulid.Make().String()
}

// ValidID reports whether id has the shape of a task id. Anything else
// cannot name a stored task and must never reach a storage path.
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Stamp prepares t for its first write: a fresh id when none is set and
// both timestamps set to now.
func Stamp(t *Task, now time.Time) {
	if t.ID == "" {
		t.ID = NewID()
	}
	t.CreatedAt = now
	t.UpdatedAt = now
}

// Touch refreshes the update timestamp, keeping it strictly after the
// previous one even when the clock has not advanced.
func Touch(t *Task, now time.Time) {
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = now
}
