package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreatesOnFirstReference(t *testing.T) {
	r := NewBookRegistry(DefaultFees)

	_, ok := r.Lookup("BTC-USD")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())

	b := r.Resolve("BTC-USD")
	require.NotNil(t, b)
	assert.Equal(t, "BTC-USD", b.Symbol())
	assert.Equal(t, 1, r.Count())

	// Same handle on every subsequent reference.
	assert.Same(t, b, r.Resolve("BTC-USD"))
	got, ok := r.Lookup("BTC-USD")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestRegistrySnapshotMissingBook(t *testing.T) {
	r := NewBookRegistry(DefaultFees)

	_, ok := r.Snapshot("ETH-USD", 5)
	assert.False(t, ok, "missing book is not an error, just absent")

	r.Resolve("ETH-USD")
	snap, ok := r.Snapshot("ETH-USD", 5)
	require.True(t, ok)
	assert.Equal(t, "ETH-USD", snap.Symbol)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestRegistryConcurrentResolveSingleBook(t *testing.T) {
	r := NewBookRegistry(DefaultFees)

	const n = 32
	books := make([]*OrderBook, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			books[i] = r.Resolve("BTC-USD")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, books[0], books[i])
	}
	assert.Equal(t, 1, r.Count())
}
