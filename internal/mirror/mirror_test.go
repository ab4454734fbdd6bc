package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/filewatch"
)

func serverTask(title string, status task.Status) *task.Task {
	t := task.NewTask(task.Fields{Title: title, Status: status})
	task.Stamp(t, time.Now().UTC())
	return t
}

func openEmpty(t *testing.T) (*Mirror, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := Open(context.Background(), dir)
	require.NoError(t, err)
	_, err = m.Sync(context.Background(), nil)
	require.NoError(t, err)
	return m, dir
}

func TestOpen_SeedsAndReloads(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := Open(ctx, dir)
	require.NoError(t, err)
	snap := m.Snapshot()
	require.Len(t, snap.Tasks, 3)
	assert.Equal(t, "Complete project documentation", snap.Tasks[0].Title)
	assert.Equal(t, task.StatusInProgress, snap.Tasks[0].Status)
	assert.Empty(t, snap.Activity)
	assert.FileExists(t, filepath.Join(dir, "mirror", "tasks.yaml"))

	again, err := Open(ctx, dir)
	require.NoError(t, err)
	reloaded := again.Snapshot()
	require.Len(t, reloaded.Tasks, 3)
	for i := range snap.Tasks {
		assert.True(t, snap.Tasks[i].Equal(reloaded.Tasks[i]))
	}
}

func TestOpen_RebuildsCorruptMirror(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	garbage := []byte("tasks: [\n  - {id: unterminated\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mirror"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mirror", "tasks.yaml"), garbage, 0o644))

	m, err := Open(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, m.Snapshot().Tasks, 3)

	backup, err := os.ReadFile(filepath.Join(dir, "mirror", "tasks.yaml.corrupt"))
	require.NoError(t, err)
	assert.Equal(t, garbage, backup)

	again, err := Open(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, again.Snapshot().Tasks, 3)
}

func TestOpen_DropsCorruptActivityAndPending(t *testing.T) {
	ctx := context.Background()
	m, dir := openEmpty(t)
	a := serverTask("A", task.StatusPending)
	_, err := m.Apply(ctx, task.CreatedEvent(a))
	require.NoError(t, err)

	for _, name := range []string{"activity.yaml", "pending.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mirror", name), []byte("{{not yaml"), 0o644))
	}

	again, err := Open(ctx, dir)
	require.NoError(t, err)
	snap := again.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, a.ID, snap.Tasks[0].ID)
	assert.Empty(t, snap.Activity)
	assert.Empty(t, snap.Pending)
}

func TestApply_SingleCodePath(t *testing.T) {
	ctx := context.Background()
	m, _ := openEmpty(t)

	a := serverTask("A", task.StatusPending)
	changed, err := m.Apply(ctx, task.CreatedEvent(a))
	require.NoError(t, err)
	assert.True(t, changed)

	a.Status = task.StatusCompleted
	changed, err = m.Apply(ctx, task.UpdatedEvent(a))
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)

	changed, err = m.Apply(ctx, task.DeletedEvent(a.ID))
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = m.Get(a.ID)
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))

	activity := m.Snapshot().Activity
	require.Len(t, activity, 3)
	assert.Equal(t, ActionDeleted, activity[0].Action)
	assert.Equal(t, ActionUpdated, activity[1].Action)
	assert.Equal(t, ActionCreated, activity[2].Action)
	assert.Equal(t, "A", activity[2].TaskTitle)
}

func TestApply_UpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := openEmpty(t)
	a := serverTask("A", task.StatusPending)
	_, err := m.Apply(ctx, task.CreatedEvent(a))
	require.NoError(t, err)

	a.Title = "A2"
	ev := task.UpdatedEvent(a)
	_, err = m.Apply(ctx, ev)
	require.NoError(t, err)
	first := m.Snapshot()

	changed, err := m.Apply(ctx, ev)
	require.NoError(t, err)
	assert.False(t, changed)
	second := m.Snapshot()

	require.Len(t, second.Tasks, 1)
	assert.True(t, first.Tasks[0].Equal(second.Tasks[0]))
	assert.Equal(t, first.Activity, second.Activity)
}

func TestApply_CreatedForExistingIDActsAsUpdate(t *testing.T) {
	ctx := context.Background()
	m, _ := openEmpty(t)
	a := serverTask("A", task.StatusPending)
	_, err := m.Apply(ctx, task.CreatedEvent(a))
	require.NoError(t, err)

	a.Title = "renamed"
	_, err = m.Apply(ctx, task.CreatedEvent(a))
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "renamed", snap.Tasks[0].Title)
	assert.Equal(t, ActionUpdated, snap.Activity[0].Action)
}

func TestApply_UnknownIDsAreNoOps(t *testing.T) {
	ctx := context.Background()
	m, _ := openEmpty(t)

	changed, err := m.Apply(ctx, task.UpdatedEvent(serverTask("ghost", task.StatusPending)))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, m.LostUpdates())

	changed, err = m.Apply(ctx, task.DeletedEvent("01GHOST"))
	require.NoError(t, err)
	assert.False(t, changed)

	snap := m.Snapshot()
	assert.Empty(t, snap.Tasks)
	assert.Empty(t, snap.Activity)
}

func TestActivity_KeepsTenNewestFirst(t *testing.T) {
	ctx := context.Background()
	m, dir := openEmpty(t)

	for i := range 15 {
		_, err := m.Apply(ctx, task.CreatedEvent(serverTask(fmt.Sprintf("task %d", i), task.StatusPending)))
		require.NoError(t, err)
	}

	activity := m.Snapshot().Activity
	require.Len(t, activity, ActivityCapacity)
	for i, e := range activity {
		assert.Equal(t, fmt.Sprintf("task %d", 14-i), e.TaskTitle)
	}

	reopened, err := Open(ctx, dir)
	require.NoError(t, err)
	persisted := reopened.Snapshot().Activity
	require.Len(t, persisted, ActivityCapacity)
	for i := range activity {
		assert.Equal(t, activity[i].TaskTitle, persisted[i].TaskTitle)
		assert.True(t, activity[i].Timestamp.Equal(persisted[i].Timestamp))
	}
}

func TestSync_AppliesDifferencesOnly(t *testing.T) {
	ctx := context.Background()
	m, _ := openEmpty(t)

	keep := serverTask("keep", task.StatusPending)
	change := serverTask("change", task.StatusPending)
	drop := serverTask("drop", task.StatusPending)
	for _, tk := range []*task.Task{keep, change, drop} {
		_, err := m.Apply(ctx, task.CreatedEvent(tk))
		require.NoError(t, err)
	}

	changed := change.Clone()
	changed.Status = task.StatusInProgress
	added := serverTask("added", task.StatusCompleted)

	n, err := m.Sync(ctx, []*task.Task{keep, changed, added})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	snap := m.Snapshot()
	require.Len(t, snap.Tasks, 3)
	assert.Equal(t, []string{keep.ID, changed.ID, added.ID}, []string{snap.Tasks[0].ID, snap.Tasks[1].ID, snap.Tasks[2].ID})
	assert.Equal(t, task.StatusInProgress, snap.Tasks[1].Status)

	n, err = m.Sync(ctx, []*task.Task{keep, changed, added})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLocalMutationsAndPending(t *testing.T) {
	ctx := context.Background()
	m, dir := openEmpty(t)

	local, err := m.CreateLocal(ctx, task.Fields{Title: "offline"})
	require.NoError(t, err)
	assert.Equal(t, task.DefaultPriority, local.Priority)
	assert.Equal(t, []string{local.ID}, m.Snapshot().Pending)

	_, err = m.CreateLocal(ctx, task.Fields{Title: ""})
	assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))

	done := task.StatusCompleted
	updated, err := m.UpdateLocal(ctx, local.ID, task.Patch{Status: &done})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(local.UpdatedAt))

	_, err = m.UpdateLocal(ctx, "01MISSING", task.Patch{Status: &done})
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))

	reopened, err := Open(ctx, dir)
	require.NoError(t, err)
	pending := reopened.PendingTasks()
	require.Len(t, pending, 1)
	assert.Equal(t, task.StatusCompleted, pending[0].Status)

	created := pending[0].Clone()
	created.ID = task.NewID()
	require.NoError(t, reopened.ResolvePending(ctx, local.ID, created))
	snap := reopened.Snapshot()
	assert.Empty(t, snap.Pending)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, created.ID, snap.Tasks[0].ID)
	assert.ErrorIs(t, reopened.ResolvePending(ctx, local.ID, created), ErrNotPending)

	require.NoError(t, reopened.DeleteLocal(ctx, created.ID))
	assert.Empty(t, reopened.Snapshot().Tasks)
}

func TestResolvePending_BroadcastArrivedFirst(t *testing.T) {
	ctx := context.Background()
	m, _ := openEmpty(t)

	local, err := m.CreateLocal(ctx, task.Fields{Title: "offline"})
	require.NoError(t, err)
	created := local.Clone()
	created.ID = task.NewID()
	_, err = m.Apply(ctx, task.CreatedEvent(created))
	require.NoError(t, err)

	require.NoError(t, m.ResolvePending(ctx, local.ID, created))
	snap := m.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, created.ID, snap.Tasks[0].ID)
}

func TestObserversReceiveSnapshots(t *testing.T) {
	ctx := context.Background()
	m, _ := openEmpty(t)

	var mu sync.Mutex
	var counts []int
	m.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, len(s.Tasks))
	})

	a := serverTask("A", task.StatusPending)
	_, err := m.Apply(ctx, task.CreatedEvent(a))
	require.NoError(t, err)
	_, err = m.Apply(ctx, task.UpdatedEvent(a)) // no-op
	require.NoError(t, err)
	_, err = m.Apply(ctx, task.DeletedEvent(a.ID))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, counts)
}

func TestWatch_ReloadsExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	m, err := Open(ctx, dir)
	require.NoError(t, err)
	other, err := Open(ctx, dir)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- m.Watch(ctx, filewatch.WithDebounce(10*time.Millisecond)) }()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.watcher != nil
	}, time.Second, 5*time.Millisecond)
	// let the watcher register the directory
	time.Sleep(50 * time.Millisecond)

	_, err = other.CreateLocal(ctx, task.Fields{Title: "from another process"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(m.Snapshot().Tasks) == 4
	}, 2*time.Second, 10*time.Millisecond)

	// own writes do not bounce back as reloads
	_, err = m.CreateLocal(ctx, task.Fields{Title: "mine"})
	require.NoError(t, err)
	assert.Len(t, m.Snapshot().Tasks, 5)

	cancel()
	require.NoError(t, <-errCh)
	_, statErr := os.Stat(filepath.Join(dir, "mirror", "pending.yaml"))
	assert.NoError(t, statErr)
}
