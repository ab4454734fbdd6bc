package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskboard/internal/task"
)

var _ task.Publisher = (*Bus)(nil)

// Bus fans task events out to every subscriber. Delivery is at most once:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *task.Event
	dropped     atomic.Uint64
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *task.Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *task.Event) {
	id := ulid.Make().String()
	ch := make(chan *task.Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(event *task.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// buffer full, drop event for this subscriber
			b.dropped.Add(1)
		}
	}
}

// Len reports the number of connected subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped reports how many deliveries were skipped because a subscriber
// buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
