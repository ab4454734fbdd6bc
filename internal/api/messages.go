package api

import "github.com/kazz187/taskboard/internal/task"

type CreateTaskRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      task.Status   `json:"status,omitempty"`
	Priority    task.Priority `json:"priority,omitempty"`
	Assignee    string        `json:"assignee,omitempty"`
	DueDate     string        `json:"due_date,omitempty"`
}

func (r *CreateTaskRequest) Fields() task.Fields {
	return task.Fields{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Assignee:    r.Assignee,
		DueDate:     r.DueDate,
	}
}

type CreateTaskResponse struct {
	Task *task.Task `json:"task"`
}

// UpdateTaskRequest carries the fields to change; omitted fields keep their
// stored values.
type UpdateTaskRequest struct {
	ID          string         `json:"id"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *task.Status   `json:"status,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Assignee    *string        `json:"assignee,omitempty"`
	DueDate     *string        `json:"due_date,omitempty"`
}

func (r *UpdateTaskRequest) Patch() task.Patch {
	return task.Patch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Assignee:    r.Assignee,
		DueDate:     r.DueDate,
	}
}

type UpdateTaskResponse struct {
	Task *task.Task `json:"task"`
}

type DeleteTaskRequest struct {
	ID string `json:"id"`
}

type DeleteTaskResponse struct{}

type GetTaskRequest struct {
	ID string `json:"id"`
}

type GetTaskResponse struct {
	Task *task.Task `json:"task"`
}

type ListTasksRequest struct {
	Status task.Status `json:"status,omitempty"`
}

type ListTasksResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

// SubscribeEventsRequest optionally narrows the stream to the given event
// types. An empty list subscribes to all of them.
type SubscribeEventsRequest struct {
	Types []task.EventType `json:"types,omitempty"`
}

// SubscribeEventsResponse is one message of the event stream. The first
// message only has Subscribed set and tells the client that every later
// change will be delivered; all others carry an Event.
type SubscribeEventsResponse struct {
	Subscribed bool        `json:"subscribed,omitempty"`
	Event      *task.Event `json:"event,omitempty"`
}
