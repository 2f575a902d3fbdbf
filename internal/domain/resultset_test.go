package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResult(conf float64) AnalysisResult {
	return AnalysisResult{Recommendation: RecommendationHold, Confidence: conf}
}

func TestPartialResultSet_PutAndGet(t *testing.T) {
	set := NewPartialResultSet([]string{"fundamental", "sentiment", "technical"})

	require.True(t, set.Put("technical", validResult(0.8)))
	require.True(t, set.Put("sentiment", validResult(0.6)))

	assert.Equal(t, 2, set.Len())

	got, ok := set.Get("technical")
	require.True(t, ok)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)

	_, ok = set.Get("fundamental")
	assert.False(t, ok, "absent analyst should not be present")
}

func TestPartialResultSet_FreezeDiscardsLateWrites(t *testing.T) {
	set := NewPartialResultSet([]string{"a", "b"})

	require.True(t, set.Put("a", validResult(0.9)))

	set.Freeze()
	assert.True(t, set.Frozen())

	// A straggler completing after the deadline must not change the set.
	accepted := set.Put("b", validResult(0.7))
	assert.False(t, accepted, "write after freeze should be rejected")
	assert.Equal(t, 1, set.Len())
	_, ok := set.Get("b")
	assert.False(t, ok)

	// Freeze is idempotent.
	set.Freeze()
	assert.True(t, set.Frozen())
}

func TestPartialResultSet_IDsFollowSnapshotOrder(t *testing.T) {
	order := []string{"fundamental", "sentiment", "technical", "quant"}
	set := NewPartialResultSet(order)

	// Insert in a different order than the snapshot.
	require.True(t, set.Put("technical", validResult(0.5)))
	require.True(t, set.Put("fundamental", validResult(0.5)))
	require.True(t, set.Put("quant", validResult(0.5)))

	assert.Equal(t, []string{"fundamental", "technical", "quant"}, set.IDs(),
		"IDs should follow snapshot order, restricted to contributors")
}

func TestPartialResultSet_ResultsReturnsCopy(t *testing.T) {
	set := NewPartialResultSet([]string{"a"})
	require.True(t, set.Put("a", validResult(0.4)))

	out := set.Results()
	out["a"] = validResult(0.99)
	out["injected"] = validResult(0.1)

	got, ok := set.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9, "mutating the copy must not affect the set")
	assert.Equal(t, 1, set.Len())
}

func TestPartialResultSet_ConcurrentWriters(t *testing.T) {
	const writers = 32

	order := make([]string, writers)
	for i := range order {
		order[i] = fmt.Sprintf("analyst-%02d", i)
	}
	set := NewPartialResultSet(order)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			set.Put(id, validResult(0.5))
		}(order[i])
	}
	wg.Wait()
	set.Freeze()

	assert.Equal(t, writers, set.Len(), "every disjoint-key write should land")
	assert.Equal(t, order, set.IDs())
}
