package pushnotification

import (
	"context"
	"log/slog"

	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/task"
)

type notifier interface {
	SendToAll(ctx context.Context, payload *NotificationPayload)
}

// Dispatcher turns task events into push notifications: one when a task is
// created and one when a task moves into completed.
type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   notifier
	// last status seen per task, to detect transitions into completed
	statuses map[string]task.Status
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender) *Dispatcher {
	return newDispatcher(eventBus, sender)
}

func newDispatcher(eventBus *eventbus.Bus, sender notifier) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		sender:   sender,
		statuses: make(map[string]task.Status),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if payload := d.payloadFor(event); payload != nil {
				d.sender.SendToAll(ctx, payload)
			}
		}
	}
}

func (d *Dispatcher) payloadFor(event *task.Event) *NotificationPayload {
	switch event.Type {
	case task.EventCreated:
		d.statuses[event.TaskID] = event.Task.Status
		return &NotificationPayload{
			Title: "New task",
			Body:  event.Task.Title,
			URL:   "/api/tasks/" + event.TaskID,
			Tag:   event.TaskID,
		}
	case task.EventUpdated:
		prev, seen := d.statuses[event.TaskID]
		d.statuses[event.TaskID] = event.Task.Status
		if event.Task.Status != task.StatusCompleted || (seen && prev == task.StatusCompleted) {
			return nil
		}
		return &NotificationPayload{
			Title: "Task completed",
			Body:  event.Task.Title,
			URL:   "/api/tasks/" + event.TaskID,
			Tag:   event.TaskID,
		}
	case task.EventDeleted:
		delete(d.statuses, event.TaskID)
	}
	return nil
}
