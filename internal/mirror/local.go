package mirror

import (
	"context"
	"slices"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// CreateLocal records a task created while the server is unreachable. The
// task gets a client-side id and stays pending until ResolvePending swaps
// in the server's copy.
func (m *Mirror) CreateLocal(ctx context.Context, f task.Fields) (*task.Task, error) {
	t := task.NewTask(f)
	if err := task.Validate(t); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	task.Stamp(t, m.now().UTC())
	m.pending = append(m.pending, t.ID)
	if _, err := m.applyLocked(ctx, task.CreatedEvent(t)); err != nil {
		return t, err
	}
	return t, nil
}

// UpdateLocal applies p to the local copy only.
func (m *Mirror) UpdateLocal(ctx context.Context, id string, p task.Patch) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	t := m.tasks[idx].Clone()
	p.Apply(t)
	if err := task.Validate(t); err != nil {
		return nil, err
	}
	task.Touch(t, m.now().UTC())
	if _, err := m.applyLocked(ctx, task.UpdatedEvent(t)); err != nil {
		return t, err
	}
	return t, nil
}

// DeleteLocal removes the local copy only.
func (m *Mirror) DeleteLocal(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(id) < 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	_, err := m.applyLocked(ctx, task.DeletedEvent(id))
	return err
}

// PendingTasks returns copies of the tasks created offline, oldest first.
func (m *Mirror) PendingTasks() []*task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*task.Task
	for _, id := range m.pending {
		if idx := m.indexOf(id); idx >= 0 {
			out = append(out, m.tasks[idx].Clone())
		}
	}
	return out
}

// ResolvePending replaces the offline task localID with created, the copy
// the server stored. The creation was already recorded in the activity log,
// so no new entry is added.
func (m *Mirror) ResolvePending(ctx context.Context, localID string, created *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.pending, localID) {
		return ErrNotPending
	}
	m.pending = slices.DeleteFunc(m.pending, func(id string) bool { return id == localID })

	idx := m.indexOf(localID)
	switch {
	case idx < 0:
		// deleted locally in the meantime
	case m.indexOf(created.ID) >= 0:
		// the broadcast of the server copy arrived first
		m.tasks = slices.Delete(m.tasks, idx, idx+1)
	default:
		m.tasks[idx] = created.Clone()
	}
	err := m.persist(ctx)
	m.notifyLocked()
	return err
}
