package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/pkg/engine"
)

func TestBroadcastSkipsSymbolWithoutBook(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	books := engine.NewBookRegistry(engine.DefaultFees)

	tr := newFakeTransport()
	attach(t, h, tr)

	b := NewBroadcaster(h, books, []string{"BTC-USD"}, 5, 50*time.Millisecond, zap.NewNop().Sugar())
	b.Tick()

	// No book yet: no frames, no errors, client still live.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, tr.messages())
	assert.Equal(t, 1, h.Len())
}

func TestBroadcastPublishesSnapshotFrame(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	books := engine.NewBookRegistry(engine.DefaultFees)

	book := books.Resolve("BTC-USD")
	_, err := book.AddOrder(100, 1.5, engine.Buy, engine.Limit)
	require.NoError(t, err)
	_, err = book.AddOrder(101, 2, engine.Sell, engine.Limit)
	require.NoError(t, err)

	tr := newFakeTransport()
	attach(t, h, tr)

	b := NewBroadcaster(h, books, []string{"BTC-USD", "ETH-USD"}, 5, 50*time.Millisecond, zap.NewNop().Sugar())
	b.Tick()

	// Only the live symbol produced a frame.
	require.Eventually(t, func() bool { return len(tr.messages()) == 1 }, time.Second, time.Millisecond)

	var msg SnapshotMessage
	require.NoError(t, json.Unmarshal(tr.messages()[0], &msg))
	assert.Equal(t, "BTC-USD", msg.Snapshot.Symbol)
	require.Len(t, msg.Snapshot.Bids, 1)
	assert.Equal(t, 100.0, msg.Snapshot.Bids[0].Price)
	assert.Equal(t, 1.5, msg.Snapshot.Bids[0].Qty)
	require.Len(t, msg.Snapshot.Asks, 1)
	assert.Equal(t, 101.0, msg.Snapshot.Asks[0].Price)
}

func TestBroadcastRunStopsOnCancel(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	books := engine.NewBookRegistry(engine.DefaultFees)

	b := NewBroadcaster(h, books, []string{"BTC-USD"}, 5, time.Millisecond, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster ignored cancellation")
	}
}

func TestFailedClientAbsentFromNextTick(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	books := engine.NewBookRegistry(engine.DefaultFees)

	book := books.Resolve("BTC-USD")
	_, err := book.AddOrder(100, 1, engine.Buy, engine.Limit)
	require.NoError(t, err)

	healthy, broken := newFakeTransport(), newFakeTransport()
	broken.failSend = true
	attach(t, h, healthy)
	attach(t, h, broken)

	b := NewBroadcaster(h, books, []string{"BTC-USD"}, 5, 50*time.Millisecond, zap.NewNop().Sugar())

	b.Tick()
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, time.Millisecond)

	b.Tick()
	require.Eventually(t, func() bool { return len(healthy.messages()) == 2 }, time.Second, time.Millisecond)
	// The broken connection got nothing after removal.
	assert.Empty(t, broken.messages())
	assert.True(t, broken.isClosed())
}
