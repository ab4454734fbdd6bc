package task

import (
	"strings"
	"time"

	"github.com/kazz187/taskboard/pkg/cerr"
)

// Fields are the caller supplied values of a new task.
type Fields struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Assignee    string
	DueDate     string
}

// Patch carries a partial update; nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	Assignee    *string
	DueDate     *string
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Assignee == nil && p.DueDate == nil
}

// NewTask builds an unsaved task from f, filling the documented defaults:
// status pending and DefaultPriority.
func NewTask(f Fields) *Task {
	t := &Task{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Status:      f.Status,
		Priority:    f.Priority,
		Assignee:    f.Assignee,
		DueDate:     f.DueDate,
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	return t
}

// Apply merges p into t.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
}

// Validate checks a complete task record. All problems are reported at
// once as violation details of a single InvalidArgument error.
func Validate(t *Task) error {
	e := cerr.NewError(cerr.InvalidArgument, "invalid task", nil)
	if t.Title == "" {
		_ = e.AddDetailMessageWithCode("title is required", "title.required")
	}
	if !t.Status.Valid() {
		_ = e.AddDetailMessageWithCode("status must be one of pending, in_progress, completed; got \""+string(t.Status)+"\"", "status.enum")
	}
	if !t.Priority.Valid() {
		_ = e.AddDetailMessageWithCode("priority must be one of low, medium, high; got \""+string(t.Priority)+"\"", "priority.enum")
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateLayout, t.DueDate); err != nil {
			_ = e.AddDetailMessageWithCode("due_date must be a calendar date (YYYY-MM-DD); got \""+t.DueDate+"\"", "due_date.format")
		}
	}
	if len(e.Details) > 0 {
		return e
	}
	return nil
}
