package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/task"
)

func TestBus_FanOut(t *testing.T) {
	b := New()
	id1, ch1 := b.Subscribe(4)
	_, ch2 := b.Subscribe(4)
	assert.Equal(t, 2, b.Len())

	ev := task.DeletedEvent("01TASK")
	b.Publish(ev)

	assert.Same(t, ev, <-ch1)
	assert.Same(t, ev, <-ch2)

	b.Unsubscribe(id1)
	assert.Equal(t, 1, b.Len())
	_, ok := <-ch1
	assert.False(t, ok, "unsubscribed channel is closed")
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	id, _ := b.Subscribe(1)
	b.Unsubscribe(id)
	assert.NotPanics(t, func() { b.Unsubscribe(id) })
	assert.Equal(t, 0, b.Len())
}

func TestBus_PublishWithoutSubscribersIsLost(t *testing.T) {
	b := New()
	b.Publish(task.DeletedEvent("01TASK"))

	_, ch := b.Subscribe(1)
	select {
	case ev := <-ch:
		t.Fatalf("late subscriber received %v", ev)
	default:
	}
}

func TestBus_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	_, slow := b.Subscribe(1)
	_, fast := b.Subscribe(3)

	first := task.DeletedEvent("a")
	b.Publish(first)
	b.Publish(task.DeletedEvent("b"))
	b.Publish(task.DeletedEvent("c"))

	require.Len(t, slow, 1)
	assert.Same(t, first, <-slow)
	assert.Len(t, fast, 3)
	assert.Equal(t, uint64(2), b.Dropped())
}
