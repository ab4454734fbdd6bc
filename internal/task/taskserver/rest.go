package taskserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// Routes mounts the JSON REST surface on r. Handlers report through the
// cerr response receiver, so r must use cerr.NewConvertConnectErrorChiMiddleware.
func (s *Server) Routes(r chi.Router) {
	r.Get("/tasks", s.listTasks)
	r.Post("/tasks", s.createTask)
	r.Get("/tasks/{id}", s.getTask)
	r.Put("/tasks/{id}", s.updateTask)
	r.Delete("/tasks/{id}", s.deleteTask)
}

func (s *Server) listTasks(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.service.List(ctx, task.Status(r.URL.Query().Get("status")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &api.ListTasksResponse{Tasks: tasks})
}

func (s *Server) createTask(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "malformed request body", err)
		return
	}
	t, err := s.service.Create(ctx, req.Fields())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, &api.CreateTaskResponse{Task: t})
}

func (s *Server) getTask(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &api.GetTaskResponse{Task: t})
}

func (s *Server) updateTask(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "malformed request body", err)
		return
	}
	t, err := s.service.Update(ctx, chi.URLParam(r, "id"), req.Patch())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &api.UpdateTaskResponse{Task: t})
}

func (s *Server) deleteTask(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.service.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
	}
}
