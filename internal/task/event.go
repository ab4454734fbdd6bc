package task

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// Event describes one committed mutation. Task is set for created and
// updated events; deleted events only carry TaskID.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TaskID     string    `json:"task_id"`
	Task       *Task     `json:"task,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(typ EventType, taskID string, t *Task) *Event {
	return &Event{
		ID:         ulid.Make().String(),
		Type:       typ,
		TaskID:     taskID,
		Task:       t,
		OccurredAt: time.Now().UTC(),
	}
}

func CreatedEvent(t *Task) *Event { return newEvent(EventCreated, t.ID, t.Clone()) }
func UpdatedEvent(t *Task) *Event { return newEvent(EventUpdated, t.ID, t.Clone()) }
func DeletedEvent(id string) *Event { return newEvent(EventDeleted, id, nil) }

// Publisher delivers change events to observers. Publish must not block.
type Publisher interface {
	Publish(e *Event)
}
