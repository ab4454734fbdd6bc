package repositoryimpl

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

const tasksPrefix = "tasks"

var _ task.Repository = (*YAMLRepository)(nil)

// YAMLRepository keeps one YAML document per task under tasks/<id>.yaml.
type YAMLRepository struct {
	storage storage.Storage
	now     func() time.Time
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s, now: utcNow}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func errNotFound() error {
	return cerr.NewError(cerr.NotFound, "task not found", nil)
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	task.Stamp(t, r.now())
	if !task.ValidID(t.ID) {
		return cerr.NewError(cerr.InvalidArgument, "invalid task id", nil)
	}
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	return r.write(ctx, t)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	if !task.ValidID(id) {
		return nil, errNotFound()
	}
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task %s: %w", id, err))
	}
	return &t, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}

	sort.Strings(paths)

	tasks := make([]*task.Task, 0, len(paths))
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			// deleted between List and Read
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			slog.WarnContext(ctx, "skipping unreadable task document", "path", p, "error", err)
			continue
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// Update rewrites an existing document. The existence check and the write
// are separate storage calls, so an Update racing a Delete of the same id
// can write the document back after it was removed (last write wins).
func (r *YAMLRepository) Update(ctx context.Context, t *task.Task) error {
	if !task.ValidID(t.ID) {
		return errNotFound()
	}
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if !exists {
		return errNotFound()
	}
	task.Touch(t, r.now())
	return r.write(ctx, t)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if !task.ValidID(id) {
		return errNotFound()
	}
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, path(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}
