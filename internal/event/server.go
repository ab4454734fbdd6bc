package event

import (
	"context"

	"connectrpc.com/connect"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/task"
)

var _ api.EventServiceHandler = (*Server)(nil)

const defaultBufferSize = 64

type Server struct {
	eventBus *eventbus.Bus
	bufSize  int
}

func NewServer(eventBus *eventbus.Bus, bufSize int) *Server {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	return &Server{eventBus: eventBus, bufSize: bufSize}
}

func (s *Server) SubscribeEvents(ctx context.Context, req *connect.Request[api.SubscribeEventsRequest], stream *connect.ServerStream[api.SubscribeEventsResponse]) error {
	subID, ch := s.eventBus.Subscribe(s.bufSize)
	defer s.eventBus.Unsubscribe(subID)

	// Build event type filter set.
	typeFilter := make(map[task.EventType]struct{}, len(req.Msg.Types))
	for _, et := range req.Msg.Types {
		typeFilter[et] = struct{}{}
	}

	// The subscription is live from here on; tell the client so it can load
	// the full state without missing changes.
	if err := stream.Send(&api.SubscribeEventsResponse{Subscribed: true}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if len(typeFilter) > 0 {
				if _, match := typeFilter[event.Type]; !match {
					continue
				}
			}
			if err := stream.Send(&api.SubscribeEventsResponse{Event: event}); err != nil {
				return err
			}
		}
	}
}
