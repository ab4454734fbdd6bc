package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTaskDefaults(t *testing.T) {
	tk := NewTask(Fields{Title: "  Plan sprint  "})
	assert.Equal(t, "Plan sprint", tk.Title)
	assert.Equal(t, StatusPending, tk.Status)
	assert.Equal(t, PriorityMedium, tk.Priority)
	assert.NoError(t, Validate(tk))
}

func TestPatchApply(t *testing.T) {
	tk := NewTask(Fields{Title: "A", Assignee: "kaz", DueDate: "2025-03-01"})
	empty := ""
	high := PriorityHigh
	Patch{Assignee: &empty, Priority: &high}.Apply(tk)

	assert.Equal(t, "A", tk.Title)
	assert.Equal(t, "", tk.Assignee)
	assert.Equal(t, PriorityHigh, tk.Priority)
	assert.Equal(t, "2025-03-01", tk.DueDate)
	assert.True(t, Patch{}.Empty())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want int
	}{
		{"valid", Task{Title: "a", Status: StatusCompleted, Priority: PriorityLow, DueDate: "2024-02-29"}, 0},
		{"empty title", Task{Status: StatusPending, Priority: PriorityLow}, 1},
		{"unknown status", Task{Title: "a", Status: "done", Priority: PriorityLow}, 1},
		{"missing priority", Task{Title: "a", Status: StatusPending}, 1},
		{"bad date", Task{Title: "a", Status: StatusPending, Priority: PriorityHigh, DueDate: "2023-02-29"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.task)
			if tt.want == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestTouchIsStrictlyIncreasing(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tk := &Task{}
	Stamp(tk, now)
	assert.NotEmpty(t, tk.ID)

	Touch(tk, now)
	assert.True(t, tk.UpdatedAt.After(now))
}

func TestParseEnums(t *testing.T) {
	s, err := ParseStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, "in progress", s.Label())
	_, err = ParseStatus("In Progress")
	assert.Error(t, err)

	p, err := ParsePriority("high")
	assert.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)
	_, err = ParsePriority("")
	assert.Error(t, err)
}
