package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/policymesh/core"
)

func keyPress(symbol string) core.Event {
	return core.NewKeyEvent(core.ActionPress, symbol)
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(0, DropOldest)

	q.Append(keyPress("a"))
	q.Append(keyPress("b"))
	q.Append(keyPress("c"))
	assert.Equal(t, 3, q.Len())

	ev, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "a", ev.Key.Symbol)

	ev, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "b", ev.Key.Symbol)

	ev, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "c", ev.Key.Symbol)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_DropOldest(t *testing.T) {
	q := NewQueue(2, DropOldest)

	assert.False(t, q.Append(keyPress("a")))
	assert.False(t, q.Append(keyPress("b")))
	assert.True(t, q.Append(keyPress("c"))) // evicts "a"

	ev, _ := q.Pop()
	assert.Equal(t, "b", ev.Key.Symbol)
	ev, _ = q.Pop()
	assert.Equal(t, "c", ev.Key.Symbol)
}

func TestQueue_DropNewest(t *testing.T) {
	q := NewQueue(2, DropNewest)

	assert.False(t, q.Append(keyPress("a")))
	assert.False(t, q.Append(keyPress("b")))
	assert.True(t, q.Append(keyPress("c"))) // discarded

	ev, _ := q.Pop()
	assert.Equal(t, "a", ev.Key.Symbol)
	ev, _ = q.Pop()
	assert.Equal(t, "b", ev.Key.Symbol)
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueue_BlockWaitsForSpace(t *testing.T) {
	q := NewQueue(1, Block)
	q.Append(keyPress("a"))

	appended := make(chan struct{})
	go func() {
		q.Append(keyPress("b")) // blocks until the consumer pops
		close(appended)
	}()

	select {
	case <-appended:
		t.Fatal("append should block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	ev, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "a", ev.Key.Symbol)

	select {
	case <-appended:
	case <-time.After(time.Second):
		t.Fatal("append did not resume after space was freed")
	}

	ev, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "b", ev.Key.Symbol)
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue(0, DropOldest)
	q.Append(keyPress("a"))
	q.Append(keyPress("b"))

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueue_ClearUnblocksBlockedProducer(t *testing.T) {
	q := NewQueue(1, Block)
	q.Append(keyPress("a"))

	appended := make(chan struct{})
	go func() {
		q.Append(keyPress("b"))
		close(appended)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Clear()

	select {
	case <-appended:
	case <-time.After(time.Second):
		t.Fatal("clear did not unblock the producer")
	}
}

func TestQueue_ReadySignal(t *testing.T) {
	q := NewQueue(0, DropOldest)

	select {
	case <-q.Ready():
		t.Fatal("empty queue should not signal ready")
	default:
	}

	q.Append(keyPress("a"))

	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("append did not signal ready")
	}

	// Pop with items remaining re-arms the signal so a consumer that
	// collapsed multiple signals still drains everything.
	q.Append(keyPress("b"))
	q.Append(keyPress("c"))
	<-q.Ready()
	q.Pop()
	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("pop with remaining items did not re-signal ready")
	}
}
