// Package bus implements the Event Bus: it ingests normalized events from
// input adapters and fans them out, in arrival order, to every registered
// policy queue.
//
// The bus is the single owner of the delivery set. Input adapter callbacks
// never touch policy state directly; they call Publish and the bus walks its
// registrations under its own lock. Delivery order is total: the bus stamps
// a global sequence number and appends to every queue before releasing the
// lock, so no two policies can observe events in different relative orders.
package bus

import (
	"sync"

	"github.com/hupe1980/policymesh/core"
	"github.com/hupe1980/policymesh/logging"
)

// Options configures a Bus.
type Options struct {
	// Logger receives drop notices and delivery diagnostics.
	Logger logging.Logger
}

// Bus fans published events out to all registered queues.
type Bus struct {
	mu     sync.Mutex
	seq    uint64
	queues []*Queue
	logger logging.Logger
}

// New creates an empty bus.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{logger: opts.Logger}
}

// Publish stamps ev with the next global sequence number and appends it to
// every currently registered queue, in registration order. It returns the
// stamped event.
//
// Publish holds the bus lock for the duration of the fan-out, which is
// bounded by the number of registered queues; only a queue registered with
// Block overflow can extend that (by the caller's explicit choice).
func (b *Bus) Publish(ev core.Event) core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev.Seq = b.seq

	for _, q := range b.queues {
		if dropped := q.Append(ev); dropped {
			b.logger.Debug("event dropped by queue overflow policy", "seq", ev.Seq, "overflow", q.overflow.String())
		}
	}
	return ev
}

// Register adds a queue to the delivery set. Events published after Register
// returns are guaranteed to reach the queue.
func (b *Bus) Register(q *Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = append(b.queues, q)
}

// Unregister removes a queue from the delivery set. Events published after
// Unregister returns no longer reach the queue; already queued events stay.
func (b *Bus) Unregister(q *Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, registered := range b.queues {
		if registered == q {
			b.queues = append(b.queues[:i], b.queues[i+1:]...)
			return
		}
	}
}

// Registered returns the current number of delivery registrations.
func (b *Bus) Registered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues)
}
