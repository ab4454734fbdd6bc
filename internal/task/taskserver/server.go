package taskserver

import (
	"context"

	"connectrpc.com/connect"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/task"
)

var _ api.TaskServiceHandler = (*Server)(nil)

// Server exposes task.Service over Connect. Errors are returned as-is and
// converted to connect codes by the cerr interceptor.
type Server struct {
	service *task.Service
}

func NewServer(service *task.Service) *Server {
	return &Server{service: service}
}

func (s *Server) CreateTask(ctx context.Context, req *connect.Request[api.CreateTaskRequest]) (*connect.Response[api.CreateTaskResponse], error) {
	t, err := s.service.Create(ctx, req.Msg.Fields())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.CreateTaskResponse{Task: t}), nil
}

func (s *Server) UpdateTask(ctx context.Context, req *connect.Request[api.UpdateTaskRequest]) (*connect.Response[api.UpdateTaskResponse], error) {
	t, err := s.service.Update(ctx, req.Msg.ID, req.Msg.Patch())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.UpdateTaskResponse{Task: t}), nil
}

func (s *Server) DeleteTask(ctx context.Context, req *connect.Request[api.DeleteTaskRequest]) (*connect.Response[api.DeleteTaskResponse], error) {
	if err := s.service.Delete(ctx, req.Msg.ID); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.DeleteTaskResponse{}), nil
}

func (s *Server) GetTask(ctx context.Context, req *connect.Request[api.GetTaskRequest]) (*connect.Response[api.GetTaskResponse], error) {
	t, err := s.service.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetTaskResponse{Task: t}), nil
}

func (s *Server) ListTasks(ctx context.Context, req *connect.Request[api.ListTasksRequest]) (*connect.Response[api.ListTasksResponse], error) {
	tasks, err := s.service.List(ctx, req.Msg.Status)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.ListTasksResponse{Tasks: tasks}), nil
}
