// Package syncer connects a client mirror to the taskboard server. It keeps
// the event stream open, reconciles every inbound event into the mirror and
// routes local mutations through the server, falling back to local-only
// changes while the server cannot be reached.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/mirror"
	"github.com/kazz187/taskboard/internal/task"
)

// ErrChannelUnavailable marks a mutation that could not reach the server
// and was applied to the local mirror only.
var ErrChannelUnavailable = errors.New("real-time channel unavailable")

type State int32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

type TaskClient interface {
	CreateTask(context.Context, *connect.Request[api.CreateTaskRequest]) (*connect.Response[api.CreateTaskResponse], error)
	UpdateTask(context.Context, *connect.Request[api.UpdateTaskRequest]) (*connect.Response[api.UpdateTaskResponse], error)
	DeleteTask(context.Context, *connect.Request[api.DeleteTaskRequest]) (*connect.Response[api.DeleteTaskResponse], error)
	ListTasks(context.Context, *connect.Request[api.ListTasksRequest]) (*connect.Response[api.ListTasksResponse], error)
}

type EventClient interface {
	SubscribeEvents(context.Context, *connect.Request[api.SubscribeEventsRequest]) (*connect.ServerStreamForClient[api.SubscribeEventsResponse], error)
}

const DefaultReconnectInterval = 5 * time.Second

type Syncer struct {
	mirror            *mirror.Mirror
	tasks             TaskClient
	events            EventClient
	reconnectInterval time.Duration
	onStateChange     func(State)

	state atomic.Int32
}

type Option func(*Syncer)

func WithReconnectInterval(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.reconnectInterval = d
		}
	}
}

// WithStateHandler registers fn to be called on every connection state
// change.
func WithStateHandler(fn func(State)) Option {
	return func(s *Syncer) {
		s.onStateChange = fn
	}
}

func New(m *mirror.Mirror, tasks TaskClient, events EventClient, opts ...Option) *Syncer {
	s := &Syncer{
		mirror:            m,
		tasks:             tasks,
		events:            events,
		reconnectInterval: DefaultReconnectInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports whether the event stream is currently open.
func (s *Syncer) State() State {
	return State(s.state.Load())
}

func (s *Syncer) setState(st State) {
	if State(s.state.Swap(int32(st))) == st {
		return
	}
	slog.Info("connection state changed", "state", st.String())
	if s.onStateChange != nil {
		s.onStateChange(st)
	}
}

// Run keeps the event stream open until ctx is cancelled, reconnecting after
// a fixed interval whenever it drops.
func (s *Syncer) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		s.setState(Disconnected)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("event stream closed, reconnecting", "error", err, "interval", s.reconnectInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.reconnectInterval):
		}
	}
}

func (s *Syncer) session(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.events.SubscribeEvents(ctx, connect.NewRequest(&api.SubscribeEventsRequest{}))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer stream.Close()

	// Wait for the server to confirm the subscription, then load the full
	// state. Changes committed after this point arrive on the stream.
	if !stream.Receive() {
		if err := stream.Err(); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		return errors.New("subscribe: stream closed before confirmation")
	}
	if !stream.Msg().Subscribed {
		return errors.New("subscribe: missing subscription confirmation")
	}
	if err := s.Resync(ctx); err != nil {
		return err
	}
	s.setState(Connected)

	for stream.Receive() {
		event := stream.Msg().Event
		if event == nil {
			continue
		}
		if _, err := s.mirror.Apply(ctx, event); err != nil {
			slog.ErrorContext(ctx, "failed to persist mirror", "event_id", event.ID, "error", err)
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return errors.New("stream closed by server")
}

// Resync pushes tasks created offline to the server and then replaces the
// mirror content with the server's full list. Offline updates and deletes
// of server tasks are overwritten: the server copy wins.
func (s *Syncer) Resync(ctx context.Context) error {
	pending := s.mirror.PendingTasks()
	for _, p := range pending {
		res, err := s.tasks.CreateTask(ctx, connect.NewRequest(createRequest(p)))
		if err != nil {
			return fmt.Errorf("push offline task %s: %w", p.ID, err)
		}
		if err := s.mirror.ResolvePending(ctx, p.ID, res.Msg.Task); err != nil && !errors.Is(err, mirror.ErrNotPending) {
			return err
		}
	}

	res, err := s.tasks.ListTasks(ctx, connect.NewRequest(&api.ListTasksRequest{}))
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	changes, err := s.mirror.Sync(ctx, res.Msg.Tasks)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "mirror synchronized", "tasks", len(res.Msg.Tasks), "changes", changes, "pushed", len(pending))
	return nil
}

// Refresh is Resync for one-shot commands: an unreachable server is not an
// error, the mirror is simply left as it is.
func (s *Syncer) Refresh(ctx context.Context) error {
	err := s.Resync(ctx)
	if unreachable(err) {
		slog.WarnContext(ctx, "server unreachable, showing local mirror", "error", err)
		return fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
	}
	return err
}

// unreachable reports whether err is a transport failure rather than an
// error returned by the server.
func unreachable(err error) bool {
	if err == nil {
		return false
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return false
	}
	if connect.IsWireError(connectErr) {
		return false
	}
	switch connectErr.Code() {
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded:
		return true
	}
	return false
}

func createRequest(t *task.Task) *api.CreateTaskRequest {
	return &api.CreateTaskRequest{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Assignee:    t.Assignee,
		DueDate:     t.DueDate,
	}
}

func (s *Syncer) isPending(id string) bool {
	return slices.Contains(s.mirror.Snapshot().Pending, id)
}
