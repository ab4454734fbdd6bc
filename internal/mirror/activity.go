package mirror

import "time"

// ActivityCapacity is the number of activity entries kept.
const ActivityCapacity = 10

type ActivityEntry struct {
	Action    string    `yaml:"action"`
	TaskTitle string    `yaml:"task_title"`
	Timestamp time.Time `yaml:"timestamp"`
}

const (
	ActionCreated = "Task created"
	ActionUpdated = "Task updated"
	ActionDeleted = "Task deleted"
)

// activityLog holds the most recent entries, newest first.
type activityLog struct {
	capacity int
	entries  []ActivityEntry
}

func newActivityLog(capacity int) *activityLog {
	return &activityLog{capacity: capacity, entries: make([]ActivityEntry, 0, capacity)}
}

func (l *activityLog) add(e ActivityEntry) {
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, ActivityEntry{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = e
}

// reset replaces the log with entries loaded from disk, trimmed to capacity.
func (l *activityLog) reset(entries []ActivityEntry) {
	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	l.entries = append(l.entries[:0], entries...)
}

func (l *activityLog) list() []ActivityEntry {
	return append([]ActivityEntry(nil), l.entries...)
}
