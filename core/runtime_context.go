package core

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/policymesh/logging"
)

// ErrInterrupted is returned from RuntimeContext wait primitives when the
// policy's interrupt signal fires. It is advisory: the policy decides at the
// wait point whether to stop (return from Process) or keep going.
var ErrInterrupted = errors.New("policy interrupted")

// EventQueue is the consumption-side view of a policy's delivery queue. The
// bus package provides the implementation; the Event Bus itself holds only a
// non-owning registration for delivery.
type EventQueue interface {
	// Pop removes and returns the oldest queued event, if any.
	Pop() (Event, bool)

	// Ready returns a channel that receives a signal when new events may be
	// available. Consumers must re-check Pop after each signal.
	Ready() <-chan struct{}

	// Len returns the number of queued events.
	Len() int
}

// RuntimeContext is the per-policy execution environment: the event queue,
// the interrupt signal, the shared monotonic clock reference and the
// capability set handed to the policy at construction.
//
// A RuntimeContext is owned by exactly one policy and never shared.
type RuntimeContext struct {
	// Context is cancelled by the scheduler on Terminate and engine shutdown.
	Context context.Context

	// PolicyID identifies the owning policy in logs and transcripts.
	PolicyID string

	// StartTime is the shared clock reference: it carries a monotonic
	// reading, so Since() is safe against wall clock adjustments.
	StartTime time.Time

	// Capabilities is the read-only capability set for this policy.
	Capabilities *CapabilitySet

	// Logger is pre-scoped to the policy.
	Logger logging.Logger

	queue      EventQueue
	interrupts <-chan struct{}
	recorder   InvocationRecorder
	onState    func(PolicyState)
}

// NewRuntimeContext constructs a runtime context. recorder and onState may be
// nil; logger falls back to a NoOpLogger.
func NewRuntimeContext(
	ctx context.Context,
	policyID string,
	queue EventQueue,
	interrupts <-chan struct{},
	capabilities *CapabilitySet,
	logger logging.Logger,
	recorder InvocationRecorder,
	onState func(PolicyState),
) *RuntimeContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &RuntimeContext{
		Context:      ctx,
		PolicyID:     policyID,
		StartTime:    time.Now(),
		Capabilities: capabilities,
		Logger:       logger,
		queue:        queue,
		interrupts:   interrupts,
		recorder:     recorder,
		onState:      onState,
	}
}

// Since returns the monotonic elapsed time since the policy started.
func (rc *RuntimeContext) Since() time.Duration { return time.Since(rc.StartTime) }

// QueueLen returns the number of currently queued events.
func (rc *RuntimeContext) QueueLen() int {
	if rc.queue == nil {
		return 0
	}
	return rc.queue.Len()
}

// NextEvent blocks until the next event is available, the interrupt signal
// fires (ErrInterrupted), the per-wait ctx expires, or the policy context is
// cancelled. Pass nil or rc.Context as ctx when no wait-scoped deadline is
// needed.
//
// The interrupt signal is checked before dequeuing so a preempted policy
// observes the interrupt on its very next wait even if events are queued.
func (rc *RuntimeContext) NextEvent(ctx context.Context) (Event, error) {
	if ctx == nil {
		ctx = rc.Context
	}
	for {
		select {
		case <-rc.interrupts:
			rc.setState(StateInterrupted)
			return Event{}, ErrInterrupted
		default:
		}

		if ev, ok := rc.queue.Pop(); ok {
			rc.setState(StateRunning)
			if rc.recorder != nil {
				rc.recorder.RecordEvent(rc.PolicyID, ev)
			}
			return ev, nil
		}

		select {
		case <-rc.Context.Done():
			return Event{}, rc.Context.Err()
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-rc.interrupts:
			rc.setState(StateInterrupted)
			return Event{}, ErrInterrupted
		case <-rc.queue.Ready():
		}
	}
}

// Sleep pauses for d, honoring the interrupt signal (ErrInterrupted) and
// policy cancellation. This is the wait primitive for timed policy steps.
func (rc *RuntimeContext) Sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-rc.Context.Done():
		return rc.Context.Err()
	case <-rc.interrupts:
		rc.setState(StateInterrupted)
		return ErrInterrupted
	}
}

// Interrupted reports, without blocking, whether an interrupt signal is
// pending. Like the blocking wait primitives it consumes the signal and
// marks the policy Interrupted, so it counts as a wait point.
func (rc *RuntimeContext) Interrupted() bool {
	select {
	case <-rc.interrupts:
		rc.setState(StateInterrupted)
		return true
	default:
		return false
	}
}

func (rc *RuntimeContext) setState(s PolicyState) {
	if rc.onState != nil {
		rc.onState(s)
	}
}
