package recall

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SearchRanksByOverlap(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Remember("click when I press the a key", []byte("p1")))
	require.NoError(t, s.Remember("scroll down every five seconds", []byte("p2")))
	require.NoError(t, s.Remember("click when I press the b key", []byte("p3")))

	results, err := s.Search("click when I press the enter key", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Both click prompts outrank the scroll prompt.
	for _, r := range results {
		assert.Contains(t, r.Prompt, "click")
	}
}

func TestInMemoryStore_SearchNoOverlap(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Remember("scroll down", []byte("p1")))

	results, err := s.Search("unrelated words entirely", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInMemoryStore_SearchLimits(t *testing.T) {
	s := NewInMemoryStore()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Remember(fmt.Sprintf("click variant %d", i), []byte("p")))
	}

	results, err := s.Search("click", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = s.Search("click", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInMemoryStore_EvictsOldestWhenFull(t *testing.T) {
	s := NewInMemoryStore(func(o *InMemoryStoreOptions) {
		o.MaxSize = 2
	})
	require.NoError(t, s.Remember("alpha click", []byte("1")))
	require.NoError(t, s.Remember("beta click", []byte("2")))
	require.NoError(t, s.Remember("gamma click", []byte("3")))

	results, err := s.Search("click", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "alpha click", r.Prompt)
	}
}

func TestInMemoryStore_ProgramCopyIsolation(t *testing.T) {
	s := NewInMemoryStore()
	program := []byte("abc")
	require.NoError(t, s.Remember("click here", program))

	program[0] = 'X'
	results, err := s.Search("click", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, byte('a'), results[0].Program[0])
}
