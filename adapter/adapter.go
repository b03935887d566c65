// Package adapter defines the input side of the system: adapters translate
// raw signals from some source (device listeners, replayed captures, network
// feeds) into normalized events and hand them to a Publisher. Adapters never
// touch policies or queues directly; the bus is the only path in.
package adapter

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/policymesh/core"
	"github.com/hupe1980/policymesh/logging"
)

// Publisher accepts normalized events for delivery. The bus package provides
// the production implementation; tests substitute recorders.
type Publisher interface {
	Publish(ev core.Event) core.Event
}

// Adapter is one event source.
//
// Start must not return until the source is live: events observed after
// Start returns must reach the publisher. Stop must be idempotent and must
// not return until the adapter has stopped publishing.
type Adapter interface {
	// Name identifies the adapter in logs.
	Name() string

	// Start begins translating source signals into published events. The
	// context bounds the adapter's lifetime; cancellation is equivalent to
	// Stop.
	Start(ctx context.Context, pub Publisher) error

	// Stop halts the source and waits for in-flight publishes to finish.
	Stop() error
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Logger receives adapter lifecycle diagnostics.
	Logger logging.Logger
}

// Manager starts and stops a set of adapters as a unit. Stop errors are
// collected rather than short-circuiting, so every adapter gets its Stop
// call even when an earlier one fails.
type Manager struct {
	adapters []Adapter
	logger   logging.Logger
}

// NewManager creates a manager over the given adapters.
func NewManager(adapters []Adapter, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{adapters: adapters, logger: opts.Logger}
}

// StartAll starts every adapter. The first failure stops the rollout and
// already started adapters are stopped again before StartAll returns.
func (m *Manager) StartAll(ctx context.Context, pub Publisher) error {
	var started []Adapter
	for _, a := range m.adapters {
		if err := a.Start(ctx, pub); err != nil {
			m.logger.Error("Adapter start failed", "adapter", a.Name(), "error", err.Error())
			for _, s := range started {
				if stopErr := s.Stop(); stopErr != nil {
					m.logger.Warn("Adapter stop failed during rollback", "adapter", s.Name(), "error", stopErr.Error())
				}
			}
			return err
		}
		m.logger.Info("Adapter started", "adapter", a.Name())
		started = append(started, a)
	}
	return nil
}

// StopAll stops every adapter concurrently and returns the combined error.
func (m *Manager) StopAll() error {
	g := new(errgroup.Group)
	for _, a := range m.adapters {
		g.Go(func() error {
			if err := a.Stop(); err != nil {
				m.logger.Warn("Adapter stop failed", "adapter", a.Name(), "error", err.Error())
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
