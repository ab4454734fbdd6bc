package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/filewatch"
	"github.com/kazz187/taskboard/pkg/storage"
)

const (
	tasksPath    = "mirror/tasks.yaml"
	activityPath = "mirror/activity.yaml"
	pendingPath  = "mirror/pending.yaml"
)

type tasksFile struct {
	Tasks []*task.Task `yaml:"tasks"`
}

type activityFile struct {
	Entries []ActivityEntry `yaml:"entries"`
}

type pendingFile struct {
	IDs []string `yaml:"ids"`
}

// errCorrupt marks a mirror file that exists but cannot be parsed.
var errCorrupt = errors.New("corrupt mirror file")

// load reads the persisted mirror. found is false when no task file exists.
// A corrupt task file is reported as errCorrupt; corrupt activity or
// pending files are dropped with a warning since the next sync rebuilds
// what matters.
func (m *Mirror) load(ctx context.Context) (found bool, err error) {
	var tf tasksFile
	found, err = m.readYAML(ctx, tasksPath, &tf)
	if err != nil || !found {
		return found, err
	}
	var af activityFile
	if _, err := m.readYAML(ctx, activityPath, &af); err != nil {
		if !errors.Is(err, errCorrupt) {
			return true, err
		}
		slog.WarnContext(ctx, "discarding unreadable activity log", "error", err)
		af = activityFile{}
	}
	var pf pendingFile
	if _, err := m.readYAML(ctx, pendingPath, &pf); err != nil {
		if !errors.Is(err, errCorrupt) {
			return true, err
		}
		slog.WarnContext(ctx, "discarding unreadable pending list", "error", err)
		pf = pendingFile{}
	}
	m.tasks = tf.Tasks
	m.activity.reset(af.Entries)
	m.pending = pf.IDs
	return true, nil
}

// quarantine keeps a copy of a corrupt task file next to the mirror so it
// can be inspected after the mirror has been rebuilt.
func (m *Mirror) quarantine(ctx context.Context) string {
	backup := tasksPath + ".corrupt"
	data, err := m.storage.Read(ctx, tasksPath)
	if err != nil {
		slog.WarnContext(ctx, "failed to read corrupt mirror", "error", err)
		return ""
	}
	if err := m.storage.Write(ctx, backup, data); err != nil {
		slog.WarnContext(ctx, "failed to back up corrupt mirror", "error", err)
		return ""
	}
	return m.storage.Path(backup)
}

func (m *Mirror) readYAML(ctx context.Context, path string, out any) (bool, error) {
	data, err := m.storage.Read(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w %s: %w", errCorrupt, path, err)
	}
	return true, nil
}

// persist writes the whole mirror. Each file is replaced atomically.
func (m *Mirror) persist(ctx context.Context) error {
	data, err := yaml.Marshal(&tasksFile{Tasks: m.tasks})
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}
	if m.watcher != nil {
		m.watcher.Acknowledge(filewatch.Sum(data))
	}
	if err := m.storage.Write(ctx, tasksPath, data); err != nil {
		return fmt.Errorf("failed to write tasks: %w", err)
	}
	if err := m.writeYAML(ctx, activityPath, &activityFile{Entries: m.activity.list()}); err != nil {
		return err
	}
	return m.writeYAML(ctx, pendingPath, &pendingFile{IDs: m.pending})
}

func (m *Mirror) writeYAML(ctx context.Context, path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := m.storage.Write(ctx, path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Watch reloads the mirror whenever another process rewrites the task
// file, e.g. a second CLI sharing the client directory. It blocks until ctx
// is cancelled.
func (m *Mirror) Watch(ctx context.Context, opts ...filewatch.Option) error {
	w, err := filewatch.New(m.storage.Path(tasksPath), func(uint64) {
		m.reloadFromDisk(ctx)
	}, opts...)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.watcher = w
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.watcher = nil
		m.mu.Unlock()
	}()
	return w.Run(ctx)
}

func (m *Mirror) reloadFromDisk(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found, err := m.load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to reload mirror", "error", err)
		return
	}
	if !found {
		return
	}
	slog.DebugContext(ctx, "mirror reloaded from disk", "tasks", len(m.tasks))
	m.notifyLocked()
}
