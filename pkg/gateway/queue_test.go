package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewIngestQueue(8)

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.TryEnqueue(Order{Symbol: "BTC-USD", Qty: float64(i)}))
	}
	assert.Equal(t, 3, q.Len())

	for i := 1; i <= 3; i++ {
		o, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, float64(i), o.Qty)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestQueueFailsFastWhenFull(t *testing.T) {
	q := NewIngestQueue(2)

	require.NoError(t, q.TryEnqueue(Order{}))
	require.NoError(t, q.TryEnqueue(Order{}))
	assert.ErrorIs(t, q.TryEnqueue(Order{}), ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	// Draining one slot admits one more.
	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.NoError(t, q.TryEnqueue(Order{}))
}

func TestQueueDequeueBlocksUntilOrder(t *testing.T) {
	q := NewIngestQueue(1)

	done := make(chan Order, 1)
	go func() {
		o, err := q.Dequeue(context.Background())
		if err == nil {
			done <- o
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.TryEnqueue(Order{Symbol: "BTC-USD"}))

	select {
	case o := <-done:
		assert.Equal(t, "BTC-USD", o.Symbol)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestQueueDequeueObservesCancellation(t *testing.T) {
	q := NewIngestQueue(1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dequeue ignored cancellation")
	}
}
