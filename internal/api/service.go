package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	TaskServiceName  = "taskboard.v1.TaskService"
	EventServiceName = "taskboard.v1.EventService"
)

const (
	CreateTaskProcedure      = "/" + TaskServiceName + "/CreateTask"
	UpdateTaskProcedure      = "/" + TaskServiceName + "/UpdateTask"
	DeleteTaskProcedure      = "/" + TaskServiceName + "/DeleteTask"
	GetTaskProcedure         = "/" + TaskServiceName + "/GetTask"
	ListTasksProcedure       = "/" + TaskServiceName + "/ListTasks"
	SubscribeEventsProcedure = "/" + EventServiceName + "/SubscribeEvents"
)

type TaskServiceHandler interface {
	CreateTask(context.Context, *connect.Request[CreateTaskRequest]) (*connect.Response[CreateTaskResponse], error)
	UpdateTask(context.Context, *connect.Request[UpdateTaskRequest]) (*connect.Response[UpdateTaskResponse], error)
	DeleteTask(context.Context, *connect.Request[DeleteTaskRequest]) (*connect.Response[DeleteTaskResponse], error)
	GetTask(context.Context, *connect.Request[GetTaskRequest]) (*connect.Response[GetTaskResponse], error)
	ListTasks(context.Context, *connect.Request[ListTasksRequest]) (*connect.Response[ListTasksResponse], error)
}

type EventServiceHandler interface {
	SubscribeEvents(context.Context, *connect.Request[SubscribeEventsRequest], *connect.ServerStream[SubscribeEventsResponse]) error
}

// NewTaskServiceHandler returns the path prefix to mount and the handler
// serving every TaskService procedure.
func NewTaskServiceHandler(svc TaskServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithCodec()}, opts...)
	handlers := map[string]http.Handler{
		CreateTaskProcedure: connect.NewUnaryHandler(CreateTaskProcedure, svc.CreateTask, opts...),
		UpdateTaskProcedure: connect.NewUnaryHandler(UpdateTaskProcedure, svc.UpdateTask, opts...),
		DeleteTaskProcedure: connect.NewUnaryHandler(DeleteTaskProcedure, svc.DeleteTask, opts...),
		GetTaskProcedure:    connect.NewUnaryHandler(GetTaskProcedure, svc.GetTask, opts...),
		ListTasksProcedure:  connect.NewUnaryHandler(ListTasksProcedure, svc.ListTasks, opts...),
	}
	return "/" + TaskServiceName + "/", route(handlers)
}

func NewEventServiceHandler(svc EventServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithCodec()}, opts...)
	handlers := map[string]http.Handler{
		SubscribeEventsProcedure: connect.NewServerStreamHandler(SubscribeEventsProcedure, svc.SubscribeEvents, opts...),
	}
	return "/" + EventServiceName + "/", route(handlers)
}

func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// TaskServiceClient calls TaskService over the Connect protocol.
type TaskServiceClient struct {
	createTask *connect.Client[CreateTaskRequest, CreateTaskResponse]
	updateTask *connect.Client[UpdateTaskRequest, UpdateTaskResponse]
	deleteTask *connect.Client[DeleteTaskRequest, DeleteTaskResponse]
	getTask    *connect.Client[GetTaskRequest, GetTaskResponse]
	listTasks  *connect.Client[ListTasksRequest, ListTasksResponse]
}

func NewTaskServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TaskServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &TaskServiceClient{
		createTask: connect.NewClient[CreateTaskRequest, CreateTaskResponse](httpClient, baseURL+CreateTaskProcedure, opts...),
		updateTask: connect.NewClient[UpdateTaskRequest, UpdateTaskResponse](httpClient, baseURL+UpdateTaskProcedure, opts...),
		deleteTask: connect.NewClient[DeleteTaskRequest, DeleteTaskResponse](httpClient, baseURL+DeleteTaskProcedure, opts...),
		getTask:    connect.NewClient[GetTaskRequest, GetTaskResponse](httpClient, baseURL+GetTaskProcedure, opts...),
		listTasks:  connect.NewClient[ListTasksRequest, ListTasksResponse](httpClient, baseURL+ListTasksProcedure, opts...),
	}
}

func (c *TaskServiceClient) CreateTask(ctx context.Context, req *connect.Request[CreateTaskRequest]) (*connect.Response[CreateTaskResponse], error) {
	return c.createTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) UpdateTask(ctx context.Context, req *connect.Request[UpdateTaskRequest]) (*connect.Response[UpdateTaskResponse], error) {
	return c.updateTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) DeleteTask(ctx context.Context, req *connect.Request[DeleteTaskRequest]) (*connect.Response[DeleteTaskResponse], error) {
	return c.deleteTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) GetTask(ctx context.Context, req *connect.Request[GetTaskRequest]) (*connect.Response[GetTaskResponse], error) {
	return c.getTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) ListTasks(ctx context.Context, req *connect.Request[ListTasksRequest]) (*connect.Response[ListTasksResponse], error) {
	return c.listTasks.CallUnary(ctx, req)
}

type EventServiceClient struct {
	subscribeEvents *connect.Client[SubscribeEventsRequest, SubscribeEventsResponse]
}

func NewEventServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *EventServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &EventServiceClient{
		subscribeEvents: connect.NewClient[SubscribeEventsRequest, SubscribeEventsResponse](httpClient, baseURL+SubscribeEventsProcedure, opts...),
	}
}

func (c *EventServiceClient) SubscribeEvents(ctx context.Context, req *connect.Request[SubscribeEventsRequest]) (*connect.ServerStreamForClient[SubscribeEventsResponse], error) {
	return c.subscribeEvents.CallServerStream(ctx, req)
}
