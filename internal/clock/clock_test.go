package clock_test

import (
	"sync"
	"testing"

	"github.com/holochain/holo-persist/internal/clock"
	"github.com/stretchr/testify/require"
)

func TestNext_StrictlyIncreasing(t *testing.T) {
	c := clock.New()
	prev := c.Next()
	for i := 0; i < 1000; i++ {
		next := c.Next()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestNext_ConcurrentCallsAllUnique(t *testing.T) {
	c := clock.New()
	const n = 200
	results := make([]int64, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = c.Next()
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, v := range results {
		require.False(t, seen[v], "duplicate index %d", v)
		seen[v] = true
	}
}
