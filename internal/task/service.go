package task

import (
	"context"

	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

// Service is the sole writer of task records. Each mutation is validated,
// committed to the Repository and only then published, so observers never
// see an event for a write that failed.
type Service struct {
	repo      Repository
	publisher Publisher
}

func NewService(repo Repository, publisher Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) Create(ctx context.Context, f Fields) (*Task, error) {
	t := NewTask(f)
	if err := Validate(t); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	clog.AddAttribute(ctx, "task_id", t.ID)
	s.publisher.Publish(CreatedEvent(t))
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// List returns every task ordered by id. A non-empty status narrows the
// result to that column.
func (s *Service) List(ctx context.Context, status Status) ([]*Task, error) {
	if status != "" && !status.Valid() {
		return nil, cerr.NewError(cerr.InvalidArgument, "invalid status filter", nil).
			AddDetailMessageWithCode("status must be one of pending, in_progress, completed; got \""+string(status)+"\"", "status.enum")
	}
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return tasks, nil
	}
	filtered := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// Update merges p into the stored record. Fields absent from p keep their
// current values. Concurrent updates of the same id are last write wins.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Task, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	clog.AddAttribute(ctx, "task_id", id)
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(t)
	if err := Validate(t); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publisher.Publish(UpdatedEvent(t))
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	clog.AddAttribute(ctx, "task_id", id)
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(DeletedEvent(id))
	return nil
}

// checkID rejects ids before any Store access. A malformed id cannot name
// an existing task, so it is reported as NotFound.
func checkID(id string) error {
	if id == "" {
		return cerr.NewError(cerr.InvalidArgument, "invalid task", nil).
			AddDetailMessageWithCode("id is required", "id.required")
	}
	if !ValidID(id) {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}
