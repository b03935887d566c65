package bus

import (
	"sync"

	"github.com/hupe1980/policymesh/core"
)

// Overflow selects the backpressure behavior applied when a bounded queue is
// full. It is fixed at registration time and never changes afterwards.
type Overflow int

const (
	// DropOldest evicts the oldest queued event to make room. This is the
	// default for interactive policies: stale input is worth less than
	// fresh input.
	DropOldest Overflow = iota
	// DropNewest discards the incoming event and keeps the queue as is.
	DropNewest
	// Block makes Publish wait until the consumer frees space. Choose this
	// only when the producer can tolerate being stalled by one policy.
	Block
)

// String returns a short label for logs.
func (o Overflow) String() string {
	switch o {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// Queue is a FIFO event queue owned by a single policy's runtime context.
// The bus appends, the policy pops. A capacity of 0 means unbounded.
//
// Queue implements core.EventQueue. Append and Clear are safe to call
// concurrently with Pop.
type Queue struct {
	mu       sync.Mutex
	space    *sync.Cond // signaled on Pop/Clear, used by Block mode
	items    []core.Event
	capacity int
	overflow Overflow
	ready    chan struct{}
}

// NewQueue creates a queue with the given capacity and overflow mode.
// capacity <= 0 yields an unbounded queue (overflow mode is then irrelevant).
func NewQueue(capacity int, overflow Overflow) *Queue {
	q := &Queue{
		capacity: capacity,
		overflow: overflow,
		ready:    make(chan struct{}, 1),
	}
	q.space = sync.NewCond(&q.mu)
	return q
}

// Append adds an event, applying the overflow mode when the queue is full.
// It reports whether an event (the incoming one or an evicted one) was
// dropped. For Block mode Append waits for space and never drops.
func (q *Queue) Append(ev core.Event) (dropped bool) {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		switch q.overflow {
		case DropOldest:
			q.items = q.items[1:]
			dropped = true
		case DropNewest:
			q.mu.Unlock()
			return true
		case Block:
			for len(q.items) >= q.capacity {
				q.space.Wait()
			}
		}
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	q.signal()
	return dropped
}

// Pop removes and returns the oldest event, if any.
func (q *Queue) Pop() (core.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return core.Event{}, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	q.space.Signal()
	if len(q.items) > 0 {
		q.signalLocked()
	}
	return ev, true
}

// Ready returns the notification channel; a signal means events may be
// available and the consumer should re-check Pop.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all queued events and returns how many were removed. Used
// by the scheduler to flush stale input when a policy is preempted.
func (q *Queue) Clear() int {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.space.Broadcast()
	q.mu.Unlock()
	return n
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// signalLocked is identical to signal; the ready channel send never blocks so
// it is safe while holding mu.
func (q *Queue) signalLocked() { q.signal() }

var _ core.EventQueue = (*Queue)(nil)
