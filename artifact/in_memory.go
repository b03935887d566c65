// Package artifact stores accepted synthesized programs keyed by the policy
// id they were instantiated as. The store is the audit trail for "what code
// is this policy running": the raw program is kept verbatim as returned by
// the synthesis collaborator (post envelope normalization).
package artifact

import (
	"sync"
	"time"
)

// Record is one accepted synthesis result.
type Record struct {
	PolicyID  string    `json:"policy_id"`
	Prompt    string    `json:"prompt"`
	Program   []byte    `json:"program"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the artifact persistence contract.
type Store interface {
	// Save stores (or overwrites) the record for a policy id.
	Save(rec Record) error

	// Get returns the record for a policy id or ErrNotFound.
	Get(policyID string) (Record, error)

	// List returns all stored policy ids.
	List() ([]string, error)
}

// InMemoryStore is a trivial in-process Store implementation useful for
// tests, examples and single-process deployments. Program bytes are copied
// on save and retrieval to avoid accidental external mutation.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

// Save stores (or overwrites) the record for a policy id.
func (s *InMemoryStore) Save(rec Record) error {
	cp := make([]byte, len(rec.Program))
	copy(cp, rec.Program)
	rec.Program = cp
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.PolicyID] = rec
	return nil
}

// Get returns the record for a policy id or ErrNotFound.
func (s *InMemoryStore) Get(policyID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[policyID]
	if !ok {
		return Record{}, ErrNotFound
	}
	cp := make([]byte, len(rec.Program))
	copy(cp, rec.Program)
	rec.Program = cp
	return rec, nil
}

// List returns all stored policy ids. The slice is a snapshot and safe for
// caller mutation.
func (s *InMemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

var _ Store = (*InMemoryStore)(nil)
