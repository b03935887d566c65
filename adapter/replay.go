package adapter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/policymesh/core"
)

// ErrReplayRunning is returned by Start while a previous replay is still
// live. Stop the adapter first or wait for Done.
var ErrReplayRunning = errors.New("replay already running")

// ScriptedEvent is one entry in a replay script: the event to publish and
// the pause before it, relative to the previous entry.
type ScriptedEvent struct {
	After time.Duration
	Event core.Event
}

// ReplayAdapter publishes a scripted event sequence on its own goroutine.
// It is the reference Adapter implementation and the workhorse for tests,
// demos and captured-session replay.
type ReplayAdapter struct {
	name   string
	script []ScriptedEvent

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReplayAdapter creates a replay adapter over the given script. The
// script is copied; later caller mutation has no effect.
func NewReplayAdapter(name string, script []ScriptedEvent) *ReplayAdapter {
	cp := make([]ScriptedEvent, len(script))
	copy(cp, script)
	return &ReplayAdapter{name: name, script: cp}
}

// Name identifies the adapter in logs.
func (a *ReplayAdapter) Name() string { return a.name }

// Start begins replaying the script. Replay runs once; the adapter is
// startable again after Stop or after the script has run out. Starting while
// a previous replay is still live returns ErrReplayRunning.
func (a *ReplayAdapter) Start(ctx context.Context, pub Publisher) error {
	a.mu.Lock()
	if a.done != nil {
		select {
		case <-a.done:
			// Previous replay finished on its own; release its context.
			a.cancel()
		default:
			a.mu.Unlock()
			return ErrReplayRunning
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		for _, entry := range a.script {
			if entry.After > 0 {
				timer := time.NewTimer(entry.After)
				select {
				case <-runCtx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			if runCtx.Err() != nil {
				return
			}
			pub.Publish(entry.Event)
		}
	}()

	return nil
}

// Stop halts replay and waits for the replay goroutine to exit. Stopping an
// adapter that never started is a no-op.
func (a *ReplayAdapter) Stop() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done returns a channel closed when the current replay has finished, either
// by exhausting the script or by Stop. It returns nil before Start.
func (a *ReplayAdapter) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

var _ Adapter = (*ReplayAdapter)(nil)
