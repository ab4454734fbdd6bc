package task

import "context"

// Repository is the durable task store. Create assigns the id and both
// timestamps; Update refreshes UpdatedAt. Update and Delete fail with a
// cerr.NotFound error when the id is unknown, other storage failures are
// cerr.Unavailable.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
