package api

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/pkg/engine"
)

// Broadcaster pushes periodic depth snapshots for the configured
// symbols to every hub client. A symbol with no live book yet is
// skipped for that tick; that is the normal state before first trade
// interest, not an error.
type Broadcaster struct {
	hub      *Hub
	books    *engine.BookRegistry
	symbols  []string
	depth    int
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewBroadcaster(hub *Hub, books *engine.BookRegistry, symbols []string, depth int, interval time.Duration, log *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{
		hub:      hub,
		books:    books,
		symbols:  symbols,
		depth:    depth,
		interval: interval,
		log:      log,
	}
}

// Run ticks at the broadcast interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}

// Tick publishes one snapshot frame per tracked symbol.
func (b *Broadcaster) Tick() {
	if b.hub.Len() == 0 {
		return
	}
	for _, symbol := range b.symbols {
		snap, ok := b.books.Snapshot(symbol, b.depth)
		if !ok {
			continue
		}
		payload, err := json.Marshal(SnapshotMessage{Snapshot: snap})
		if err != nil {
			b.log.Errorw("marshal snapshot", "symbol", symbol, "err", err)
			continue
		}
		b.hub.Publish(payload)
	}
}
