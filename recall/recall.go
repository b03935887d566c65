// Package recall stores prompt/program pairs from past successful syntheses
// and retrieves the most similar ones for a new prompt. Recalled pairs are
// fed to the synthesis collaborator as few-shot examples, which stabilizes
// program shape across similar requests.
package recall

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one remembered synthesis: the prompt that produced it and the
// accepted program bytes.
type Entry struct {
	Prompt    string    `json:"prompt"`
	Program   []byte    `json:"program"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the recall contract.
type Store interface {
	// Remember stores a prompt/program pair.
	Remember(prompt string, program []byte) error

	// Search returns up to limit entries most similar to the prompt, best
	// first. Entries with no token overlap are not returned.
	Search(prompt string, limit int) ([]Entry, error)
}

// InMemoryStore keeps entries in memory and scores similarity by token
// overlap. Good enough for few-shot retrieval over a modest history; swap in
// an embedding-backed store for large corpora.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// InMemoryStoreOptions configures the in-memory recall store.
type InMemoryStoreOptions struct {
	// MaxSize bounds the history. Oldest entries are evicted first.
	// Zero means unbounded.
	MaxSize int
}

// NewInMemoryStore returns an empty in-memory recall store.
func NewInMemoryStore(optFns ...func(o *InMemoryStoreOptions)) *InMemoryStore {
	opts := InMemoryStoreOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{maxSize: opts.MaxSize}
}

// Remember stores a prompt/program pair, evicting the oldest entry when the
// store is full.
func (s *InMemoryStore) Remember(prompt string, program []byte) error {
	cp := make([]byte, len(program))
	copy(cp, program)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Prompt: prompt, Program: cp, CreatedAt: time.Now()})
	if s.maxSize > 0 && len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
	return nil
}

// Search returns up to limit entries most similar to the prompt, best first.
func (s *InMemoryStore) Search(prompt string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := tokenize(prompt)
	if len(query) == 0 {
		return nil, nil
	}

	type scored struct {
		entry Entry
		score float64
	}

	s.mu.RLock()
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if sc := overlap(query, tokenize(e.Prompt)); sc > 0 {
			candidates = append(candidates, scored{entry: e, score: sc})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.entry)
	}
	return results, nil
}

// tokenize lowercases and splits on non-letter/digit runs, returning the set
// of distinct tokens.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// overlap is the Jaccard similarity of two token sets.
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

var _ Store = (*InMemoryStore)(nil)
