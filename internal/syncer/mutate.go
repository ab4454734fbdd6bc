package syncer

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/task"
)

// Result is the outcome of a client mutation. Local is set when the server
// could not be reached and only the mirror was changed.
type Result struct {
	Task  *task.Task
	Local bool
}

// Create sends the new task to the server and mirrors the stored record.
// When the server is unreachable the task is created locally and pushed on
// the next resync.
func (s *Syncer) Create(ctx context.Context, f task.Fields) (*Result, error) {
	res, err := s.tasks.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		Priority:    f.Priority,
		Assignee:    f.Assignee,
		DueDate:     f.DueDate,
	}))
	if err == nil {
		s.reconcile(ctx, task.CreatedEvent(res.Msg.Task))
		return &Result{Task: res.Msg.Task}, nil
	}
	if !unreachable(err) {
		return nil, err
	}
	s.degraded(ctx, "create", err)
	t, err := s.mirror.CreateLocal(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Result{Task: t, Local: true}, nil
}

func (s *Syncer) Update(ctx context.Context, id string, p task.Patch) (*Result, error) {
	if s.isPending(id) {
		t, err := s.mirror.UpdateLocal(ctx, id, p)
		if err != nil {
			return nil, err
		}
		return &Result{Task: t, Local: true}, nil
	}
	res, err := s.tasks.UpdateTask(ctx, connect.NewRequest(&api.UpdateTaskRequest{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		Priority:    p.Priority,
		Assignee:    p.Assignee,
		DueDate:     p.DueDate,
	}))
	if err == nil {
		s.reconcile(ctx, task.UpdatedEvent(res.Msg.Task))
		return &Result{Task: res.Msg.Task}, nil
	}
	if !unreachable(err) {
		return nil, err
	}
	s.degraded(ctx, "update", err)
	t, err := s.mirror.UpdateLocal(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return &Result{Task: t, Local: true}, nil
}

func (s *Syncer) Delete(ctx context.Context, id string) (*Result, error) {
	if s.isPending(id) {
		if err := s.mirror.DeleteLocal(ctx, id); err != nil {
			return nil, err
		}
		return &Result{Local: true}, nil
	}
	_, err := s.tasks.DeleteTask(ctx, connect.NewRequest(&api.DeleteTaskRequest{ID: id}))
	if err == nil {
		s.reconcile(ctx, task.DeletedEvent(id))
		return &Result{}, nil
	}
	if !unreachable(err) {
		return nil, err
	}
	s.degraded(ctx, "delete", err)
	if err := s.mirror.DeleteLocal(ctx, id); err != nil {
		return nil, err
	}
	return &Result{Local: true}, nil
}

// reconcile applies the server's answer right away; the broadcast echo of
// the same change is then a no-op.
func (s *Syncer) reconcile(ctx context.Context, e *task.Event) {
	if _, err := s.mirror.Apply(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to persist mirror", "task_id", e.TaskID, "error", err)
	}
}

func (s *Syncer) degraded(ctx context.Context, op string, err error) {
	slog.WarnContext(ctx, "server unreachable, applying change locally only",
		"op", op, "state", s.State().String(), "error", ErrChannelUnavailable, "cause", err)
}
