// Package mirror keeps the client's local copy of the task list. The copy
// is persisted to disk after every change so the client keeps working while
// the server is unreachable.
//
// Every change, whether made locally or received from the server, goes
// through the same reconciliation step: the event is applied, the mirror is
// persisted, an activity entry is recorded and observers are notified.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/filewatch"
	"github.com/kazz187/taskboard/pkg/storage"
)

// Snapshot is a copy of the mirror state handed to observers and views.
type Snapshot struct {
	Tasks       []*task.Task
	Activity    []ActivityEntry
	Pending     []string
	LostUpdates int
}

// Observer receives a snapshot after every effective change. Observers run
// with the mirror locked and must not call back into it.
type Observer func(Snapshot)

type Mirror struct {
	storage *storage.LocalStorage
	now     func() time.Time

	mu          sync.Mutex
	tasks       []*task.Task
	activity    *activityLog
	pending     []string
	lostUpdates int
	watcher     *filewatch.Watcher
	observers   []Observer
}

type Option func(*Mirror)

func WithClock(now func() time.Time) Option {
	return func(m *Mirror) {
		m.now = now
	}
}

// Open loads the mirror stored under dir. When no mirror exists yet it is
// seeded with the demo dataset and written out. An unreadable task file is
// backed up and treated the same way; the next sync restores server state.
func Open(ctx context.Context, dir string, opts ...Option) (*Mirror, error) {
	s, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open client directory: %w", err)
	}
	m := &Mirror{
		storage:  s,
		now:      time.Now,
		activity: newActivityLog(ActivityCapacity),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	found, err := m.load(ctx)
	if errors.Is(err, errCorrupt) {
		slog.WarnContext(ctx, "mirror unreadable, rebuilding it", "error", err, "backup", m.quarantine(ctx))
		found, err = false, nil
	}
	if err != nil {
		return nil, err
	}
	if !found {
		m.tasks = seedTasks(m.now().UTC())
		slog.InfoContext(ctx, "seeded mirror with demo tasks", "dir", dir, "count", len(m.tasks))
		if err := m.persist(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Subscribe registers an observer for subsequent changes.
func (m *Mirror) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Mirror) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Get returns a copy of the task with id, or a NotFound error.
func (m *Mirror) Get(id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return m.tasks[idx].Clone(), nil
}

func (m *Mirror) LostUpdates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lostUpdates
}

// Apply reconciles one event into the mirror. It reports whether the
// mirror changed; replays and events for unknown ids are no-ops.
func (m *Mirror) Apply(ctx context.Context, e *task.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(ctx, e)
}

func (m *Mirror) applyLocked(ctx context.Context, e *task.Event) (bool, error) {
	entry, changed := m.reconcile(ctx, e)
	if !changed {
		return false, nil
	}
	m.activity.add(entry)
	err := m.persist(ctx)
	m.notifyLocked()
	return true, err
}

// reconcile mutates the task list for e and returns the activity entry to
// record. It does not persist or notify.
func (m *Mirror) reconcile(ctx context.Context, e *task.Event) (ActivityEntry, bool) {
	switch e.Type {
	case task.EventCreated, task.EventUpdated:
		if e.Task == nil || e.Task.ID == "" {
			slog.WarnContext(ctx, "ignoring event without task", "event_id", e.ID, "type", e.Type)
			return ActivityEntry{}, false
		}
	}

	switch e.Type {
	case task.EventCreated:
		if m.indexOf(e.Task.ID) < 0 {
			m.tasks = append(m.tasks, e.Task.Clone())
			return m.entry(ActionCreated, e.Task.Title), true
		}
		return m.replace(ctx, e)
	case task.EventUpdated:
		return m.replace(ctx, e)
	case task.EventDeleted:
		idx := m.indexOf(e.TaskID)
		if idx < 0 {
			return ActivityEntry{}, false
		}
		removed := m.tasks[idx]
		m.tasks = slices.Delete(m.tasks, idx, idx+1)
		m.pending = slices.DeleteFunc(m.pending, func(id string) bool { return id == e.TaskID })
		return m.entry(ActionDeleted, removed.Title), true
	default:
		slog.WarnContext(ctx, "ignoring event of unknown type", "event_id", e.ID, "type", e.Type)
		return ActivityEntry{}, false
	}
}

func (m *Mirror) replace(ctx context.Context, e *task.Event) (ActivityEntry, bool) {
	idx := m.indexOf(e.Task.ID)
	if idx < 0 {
		m.lostUpdates++
		slog.DebugContext(ctx, "update for unknown task ignored", "task_id", e.Task.ID, "lost_updates", m.lostUpdates)
		return ActivityEntry{}, false
	}
	if m.tasks[idx].Equal(e.Task) {
		return ActivityEntry{}, false
	}
	m.tasks[idx] = e.Task.Clone()
	return m.entry(ActionUpdated, e.Task.Title), true
}

// Sync makes the mirror equal to tasks, which is the complete authoritative
// list. Differences are applied as individual created, updated and deleted
// events and the result takes the order of tasks. It returns the number of
// changes applied.
func (m *Mirror) Sync(ctx context.Context, tasks []*task.Task) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[string]struct{}, len(tasks))
	var events []*task.Event
	for _, t := range tasks {
		want[t.ID] = struct{}{}
		idx := m.indexOf(t.ID)
		switch {
		case idx < 0:
			events = append(events, task.CreatedEvent(t))
		case !m.tasks[idx].Equal(t):
			events = append(events, task.UpdatedEvent(t))
		}
	}
	for _, t := range m.tasks {
		if _, ok := want[t.ID]; !ok {
			events = append(events, task.DeletedEvent(t.ID))
		}
	}

	changes := 0
	for _, e := range events {
		if entry, changed := m.reconcile(ctx, e); changed {
			m.activity.add(entry)
			changes++
		}
	}

	ordered := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		ordered = append(ordered, t.Clone())
	}
	reordered := !sameOrder(m.tasks, ordered)
	m.tasks = ordered

	if changes == 0 && !reordered {
		return 0, nil
	}
	err := m.persist(ctx)
	m.notifyLocked()
	return changes, err
}

func sameOrder(a, b []*task.Task) bool {
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

func (m *Mirror) entry(action, title string) ActivityEntry {
	return ActivityEntry{Action: action, TaskTitle: title, Timestamp: m.now().UTC()}
}

func (m *Mirror) indexOf(id string) int {
	return slices.IndexFunc(m.tasks, func(t *task.Task) bool { return t.ID == id })
}

func (m *Mirror) snapshotLocked() Snapshot {
	tasks := make([]*task.Task, len(m.tasks))
	for i, t := range m.tasks {
		tasks[i] = t.Clone()
	}
	return Snapshot{
		Tasks:       tasks,
		Activity:    m.activity.list(),
		Pending:     slices.Clone(m.pending),
		LostUpdates: m.lostUpdates,
	}
}

func (m *Mirror) notifyLocked() {
	if len(m.observers) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for _, o := range m.observers {
		o(snap)
	}
}

// ErrNotPending is returned by ResolvePending for ids that were not created
// offline.
var ErrNotPending = errors.New("task is not pending")
