package bus

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/policymesh/core"
)

func drain(q *Queue) []core.Event {
	var evs []core.Event
	for {
		ev, ok := q.Pop()
		if !ok {
			return evs
		}
		evs = append(evs, ev)
	}
}

func TestBus_FanOutPreservesOrder(t *testing.T) {
	b := New()
	q1 := NewQueue(0, DropOldest)
	q2 := NewQueue(0, DropOldest)
	b.Register(q1)
	b.Register(q2)

	for i := 0; i < 10; i++ {
		b.Publish(keyPress(fmt.Sprintf("k%d", i)))
	}

	evs1 := drain(q1)
	evs2 := drain(q2)
	assert.Len(t, evs1, 10)
	assert.Len(t, evs2, 10)
	for i := range evs1 {
		assert.Equal(t, evs1[i].Seq, evs2[i].Seq)
		assert.Equal(t, evs1[i].Key.Symbol, evs2[i].Key.Symbol)
	}
}

func TestBus_SequenceIsStrictlyIncreasing(t *testing.T) {
	b := New()
	q := NewQueue(0, DropOldest)
	b.Register(q)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				b.Publish(keyPress("x"))
			}
		}()
	}
	wg.Wait()

	evs := drain(q)
	assert.Len(t, evs, 100)
	for i := 1; i < len(evs); i++ {
		assert.Greater(t, evs[i].Seq, evs[i-1].Seq)
	}
}

func TestBus_RegisterAfterPublish(t *testing.T) {
	b := New()
	b.Publish(keyPress("before"))

	q := NewQueue(0, DropOldest)
	b.Register(q)
	assert.Equal(t, 1, b.Registered())

	b.Publish(keyPress("after"))

	evs := drain(q)
	assert.Len(t, evs, 1)
	assert.Equal(t, "after", evs[0].Key.Symbol)
}

func TestBus_UnregisterStopsDelivery(t *testing.T) {
	b := New()
	q := NewQueue(0, DropOldest)
	b.Register(q)

	b.Publish(keyPress("a"))
	b.Unregister(q)
	b.Publish(keyPress("b"))

	evs := drain(q)
	assert.Len(t, evs, 1)
	assert.Equal(t, "a", evs[0].Key.Symbol)
	assert.Equal(t, 0, b.Registered())
}

func TestBus_PublishReturnsStampedEvent(t *testing.T) {
	b := New()
	ev := b.Publish(keyPress("a"))
	assert.Equal(t, uint64(1), ev.Seq)
	ev = b.Publish(keyPress("b"))
	assert.Equal(t, uint64(2), ev.Seq)
}
