// Package transcript records what each policy observed and did: every event
// delivered to its queue and every capability invocation it performed, in
// order. Transcripts are the engine's audit surface: because policies are
// opaque after validation, the transcript is how operators and tests see
// what a synthesized policy actually did.
package transcript

import (
	"sync"
	"time"

	"github.com/hupe1980/policymesh/core"
)

// Invocation is one capability call performed by a policy.
type Invocation struct {
	Capability string         `json:"capability"`
	Args       map[string]any `json:"args,omitempty"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Entry is one transcript line: exactly one of Event / Invocation is set.
type Entry struct {
	Time       time.Time   `json:"time"`
	Event      *core.Event `json:"event,omitempty"`
	Invocation *Invocation `json:"invocation,omitempty"`
}

// Store is the transcript persistence contract. The in-memory implementation
// below suffices for single-process use; durable implementations can replay
// policy behavior across restarts.
type Store interface {
	core.InvocationRecorder

	// Entries returns a snapshot of the policy's transcript in order.
	Entries(policyID string) []Entry

	// Invocations returns only the capability invocations, in order.
	Invocations(policyID string) []Invocation

	// Reset discards the transcript for a policy.
	Reset(policyID string)
}

// InMemoryStore is a process-local transcript store guarded by an RWMutex.
// Snapshots are copied so callers can never mutate internal buffers.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry // policyID -> ordered entries
}

// NewInMemoryStore returns an empty in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]Entry)}
}

// RecordEvent implements core.InvocationRecorder.
func (s *InMemoryStore) RecordEvent(policyID string, ev core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[policyID] = append(s.entries[policyID], Entry{Time: time.Now(), Event: &ev})
}

// RecordInvocation implements core.InvocationRecorder.
func (s *InMemoryStore) RecordInvocation(policyID, capability string, args map[string]any, result any, err error) {
	inv := Invocation{Capability: capability, Args: args, Result: result}
	if err != nil {
		inv.Error = err.Error()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[policyID] = append(s.entries[policyID], Entry{Time: time.Now(), Invocation: &inv})
}

// Entries returns a snapshot of the policy's transcript in order.
func (s *InMemoryStore) Entries(policyID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, len(s.entries[policyID]))
	copy(entries, s.entries[policyID])
	return entries
}

// Invocations returns only the capability invocations, in order.
func (s *InMemoryStore) Invocations(policyID string) []Invocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var invocations []Invocation
	for _, e := range s.entries[policyID] {
		if e.Invocation != nil {
			invocations = append(invocations, *e.Invocation)
		}
	}
	return invocations
}

// Reset discards the transcript for a policy.
func (s *InMemoryStore) Reset(policyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, policyID)
}

var _ Store = (*InMemoryStore)(nil)
