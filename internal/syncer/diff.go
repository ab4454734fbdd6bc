package syncer

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/task"
)

// Diff returns a unified diff from the local mirror to the server's task
// list, without changing either side. An empty string means they agree.
func (s *Syncer) Diff(ctx context.Context) (string, error) {
	res, err := s.tasks.ListTasks(ctx, connect.NewRequest(&api.ListTasksRequest{}))
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	local, err := renderTasks(s.mirror.Snapshot().Tasks)
	if err != nil {
		return "", err
	}
	remote, err := renderTasks(res.Msg.Tasks)
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(local),
		B:        difflib.SplitLines(remote),
		FromFile: "mirror",
		ToFile:   "server",
		Context:  2,
	})
}

func renderTasks(tasks []*task.Task) (string, error) {
	if tasks == nil {
		tasks = []*task.Task{}
	}
	data, err := yaml.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return string(data), nil
}
