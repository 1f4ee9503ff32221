package numbering

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequential_Next(t *testing.T) {
	ctx := context.Background()
	s := NewSequential()

	first, err := s.Next(ctx, "INV", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", first.String())

	second, err := s.Next(ctx, "INV", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0002", second.String())

	t.Run("series and years are independent", func(t *testing.T) {
		cn, err := s.Next(ctx, "CN", 2026)
		require.NoError(t, err)
		assert.Equal(t, "CN-2026-0001", cn.String())

		next, err := s.Next(ctx, "INV", 2027)
		require.NoError(t, err)
		assert.Equal(t, "INV-2027-0001", next.String())
	})

	t.Run("rejects empty series", func(t *testing.T) {
		_, err := s.Next(ctx, "", 2026)
		require.Error(t, err)
	})
}

func TestSequential_NoDuplicatesUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := NewSequential()

	const workers = 20
	var mu sync.Mutex
	seen := make(map[string]bool, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Next(ctx, "INV", 2026)
			assert.NoError(t, err)
			mu.Lock()
			seen[n.String()] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
}
