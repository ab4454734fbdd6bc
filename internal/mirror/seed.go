package mirror

import (
	"time"

	"github.com/kazz187/taskboard/internal/task"
)

// seedTasks is the first-run dataset written when no mirror exists yet.
func seedTasks(now time.Time) []*task.Task {
	seeds := []task.Fields{
		{
			Title:       "Complete project documentation",
			Description: "Write comprehensive documentation for the enhanced task management system",
			Status:      task.StatusInProgress,
			Priority:    task.PriorityHigh,
			Assignee:    "John Doe",
			DueDate:     "2024-01-15",
		},
		{
			Title:       "Design new dashboard",
			Description: "Create mockups for the new analytics dashboard",
			Status:      task.StatusPending,
			Priority:    task.PriorityMedium,
			Assignee:    "Jane Smith",
			DueDate:     "2024-01-20",
		},
		{
			Title:       "Fix responsive issues",
			Description: "Address mobile responsiveness issues on the task board",
			Status:      task.StatusCompleted,
			Priority:    task.PriorityLow,
			Assignee:    "Mike Johnson",
			DueDate:     "2024-01-10",
		},
	}
	tasks := make([]*task.Task, 0, len(seeds))
	for _, f := range seeds {
		t := task.NewTask(f)
		task.Stamp(t, now)
		tasks = append(tasks, t)
	}
	return tasks
}
