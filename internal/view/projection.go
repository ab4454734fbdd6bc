package view

import (
	"fmt"
	"time"

	"github.com/kazz187/taskboard/internal/task"
)

// Filter narrows a list projection to one status. The zero value keeps
// every task.
type Filter struct {
	Status task.Status
}

func (f Filter) match(t *task.Task) bool {
	return f.Status == "" || t.Status == f.Status
}

// List returns the tasks passing f, in mirror order.
func List(tasks []*task.Task, f Filter) []*task.Task {
	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.match(t) {
			out = append(out, t)
		}
	}
	return out
}

type Column struct {
	Status task.Status
	Tasks  []*task.Task
}

func (c Column) Count() int { return len(c.Tasks) }

// Board groups tasks into one column per status, in workflow order.
func Board(tasks []*task.Task) []Column {
	cols := make([]Column, len(task.Statuses))
	index := make(map[task.Status]int, len(task.Statuses))
	for i, s := range task.Statuses {
		cols[i] = Column{Status: s}
		index[s] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

type Stats struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
}

func ComputeStats(tasks []*task.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusPending:
			s.Pending++
		case task.StatusInProgress:
			s.InProgress++
		case task.StatusCompleted:
			s.Completed++
		}
	}
	return s
}

var timeAgoUnits = []struct {
	name    string
	seconds int64
}{
	{"year", 31536000},
	{"month", 2592000},
	{"week", 604800},
	{"day", 86400},
	{"hour", 3600},
	{"minute", 60},
}

// TimeAgo labels t relative to now, e.g. "3 hours ago" or "just now".
func TimeAgo(now, t time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	for _, u := range timeAgoUnits {
		if n := seconds / u.seconds; n >= 1 {
			if n > 1 {
				return fmt.Sprintf("%d %ss ago", n, u.name)
			}
			return fmt.Sprintf("1 %s ago", u.name)
		}
	}
	return "just now"
}
