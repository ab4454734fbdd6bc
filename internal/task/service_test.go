package task_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/internal/task/repositoryimpl"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []*task.Event
}

func (r *recorder) Publish(e *task.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []*task.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*task.Event(nil), r.events...)
}

func newService(t *testing.T) (*task.Service, *recorder) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	rec := &recorder{}
	return task.NewService(repositoryimpl.NewYAMLRepository(local), rec), rec
}

func ptr[T any](v T) *T { return &v }

func TestService_CreateThenList(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	created, err := svc.Create(ctx, task.Fields{Title: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Equal(t, task.DefaultPriority, created.Priority)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, created.Equal(list[0]))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, task.EventCreated, events[0].Type)
	assert.Equal(t, created.ID, events[0].TaskID)
	assert.True(t, created.Equal(events[0].Task))
}

func TestService_CreateAndUpdateScenario(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	a, err := svc.Create(ctx, task.Fields{Title: "A", Status: task.StatusPending})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, task.Patch{Status: ptr(task.StatusCompleted)})
	require.NoError(t, err)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Title)
	assert.Equal(t, task.StatusCompleted, list[0].Status)
	assert.Equal(t, task.DefaultPriority, list[0].Priority, "absent priority on update is unchanged")
	assert.Len(t, rec.Events(), 2)
}

func TestService_DeletedTasksAreExcluded(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	a, err := svc.Create(ctx, task.Fields{Title: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, task.Fields{Title: "B"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, task.EventDeleted, events[2].Type)
	assert.Equal(t, a.ID, events[2].TaskID)
	assert.Nil(t, events[2].Task)
}

func TestService_UpdateUnknownIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)
	a, err := svc.Create(ctx, task.Fields{Title: "A"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "01UNKNOWN", task.Patch{Title: ptr("B")})
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))

	err = svc.Delete(ctx, "01UNKNOWN")
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, a.Equal(list[0]))
	assert.Len(t, rec.Events(), 1)
}

func TestService_ValidationRejectsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	_, err := svc.Create(ctx, task.Fields{Title: "   ", Status: "done", Priority: "urgent", DueDate: "tomorrow"})
	require.Error(t, err)
	var ce *cerr.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, cerr.InvalidArgument, ce.Code)
	assert.Len(t, ce.Violations(), 4)

	a, err := svc.Create(ctx, task.Fields{Title: "A"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, a.ID, task.Patch{Priority: ptr(task.Priority("urgent"))})
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, task.DefaultPriority, got.Priority)
	assert.Len(t, rec.Events(), 1)
}

func TestService_ListStatusFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, task.Fields{Title: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, task.Fields{Title: "B", Status: task.StatusInProgress})
	require.NoError(t, err)

	list, err := svc.List(ctx, task.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	_, err = svc.List(ctx, "archived")
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}

// gatedRepository blocks writes until release is closed.
type gatedRepository struct {
	task.Repository
	release chan struct{}
	fail    bool
}

func (g *gatedRepository) Create(ctx context.Context, t *task.Task) error {
	<-g.release
	if g.fail {
		return cerr.NewError(cerr.Unavailable, "store unavailable", errors.New("disk gone"))
	}
	return g.Repository.Create(ctx, t)
}

func TestService_PublishesOnlyAfterCommit(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	gated := &gatedRepository{Repository: repositoryimpl.NewYAMLRepository(local), release: make(chan struct{})}
	rec := &recorder{}
	svc := task.NewService(gated, rec)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Create(context.Background(), task.Fields{Title: "slow"})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.Events(), "event published before the write committed")

	close(gated.release)
	require.NoError(t, <-done)
	assert.Len(t, rec.Events(), 1)
}

func TestService_FailedWritePublishesNothing(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	gated := &gatedRepository{Repository: repositoryimpl.NewYAMLRepository(local), release: make(chan struct{}), fail: true}
	close(gated.release)
	rec := &recorder{}
	svc := task.NewService(gated, rec)

	_, err = svc.Create(context.Background(), task.Fields{Title: "lost"})
	assert.Equal(t, cerr.Unavailable, cerr.CodeOf(err))
	assert.Empty(t, rec.Events())
}

func TestService_ForeignIDNeverReachesStore(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	rec := &recorder{}
	svc := task.NewService(repositoryimpl.NewYAMLRepository(local), rec)
	require.NoError(t, local.Write(ctx, "push_subscriptions/sub1.yaml", []byte("endpoint: https://push.test/1\n")))

	ids := []string{"../push_subscriptions/sub1", "sub1", "01ARZ3NDEKTSV4RRFFQ69G5FA/../x"}
	for _, id := range ids {
		err := svc.Delete(ctx, id)
		assert.Equal(t, cerr.NotFound, cerr.CodeOf(err), id)

		_, err = svc.Get(ctx, id)
		assert.Equal(t, cerr.NotFound, cerr.CodeOf(err), id)

		_, err = svc.Update(ctx, id, task.Patch{Title: ptr("x")})
		assert.Equal(t, cerr.NotFound, cerr.CodeOf(err), id)
	}

	exists, err := local.Exists(ctx, "push_subscriptions/sub1.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Empty(t, rec.Events())

	err = svc.Delete(ctx, "")
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
}

func TestValidID(t *testing.T) {
	assert.True(t, task.ValidID(task.NewID()))
	assert.False(t, task.ValidID(""))
	assert.False(t, task.ValidID("missing"))
	assert.False(t, task.ValidID("../tasks/01ARZ3NDEKTSV4RRFFQ69G5FAV"))
}
