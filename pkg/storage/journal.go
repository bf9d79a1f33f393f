package storage

import (
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/pkg/engine"
)

// TradeJournal is an append-only record of executed fills, persisted
// to pebble and mirrored in a small per-symbol ring for the
// recent-trades endpoint. Recording is best-effort: a storage failure
// is logged and the order pipeline never sees it.
//
// keys: t:<8-byte big-endian sequence>
type TradeJournal struct {
	db  *pebble.DB
	log *zap.SugaredLogger

	mu     sync.Mutex
	seq    uint64
	recent map[string][]engine.Trade
	limit  int
}

// OpenTradeJournal opens (or creates) the journal at path. historyLimit
// bounds the in-memory ring per symbol.
func OpenTradeJournal(path string, historyLimit int, log *zap.SugaredLogger) (*TradeJournal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	if historyLimit < 1 {
		historyLimit = 1
	}

	j := &TradeJournal{
		db:     db,
		log:    log,
		recent: make(map[string][]engine.Trade),
		limit:  historyLimit,
	}
	if err := j.restore(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// restore resumes the sequence counter and warms the recent rings from
// the tail of the journal.
func (j *TradeJournal) restore() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: seqKey(0),
		UpperBound: []byte{'t', ';'},
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	var loaded int
	for ok := iter.Last(); ok && loaded < j.limit; ok = iter.Prev() {
		seq, valid := seqOfKey(iter.Key())
		if !valid {
			continue
		}
		if seq > j.seq {
			j.seq = seq
		}
		var tr engine.Trade
		if err := decodeGob(iter.Value(), &tr); err != nil {
			j.log.Warnw("journal entry undecodable", "seq", seq, "err", err)
			continue
		}
		// walking backwards, prepend to keep chronological order
		j.recent[tr.Symbol] = append([]engine.Trade{tr}, j.recent[tr.Symbol]...)
		loaded++
	}
	return iter.Error()
}

// Record appends the fills of one applied order.
func (j *TradeJournal) Record(trades []engine.Trade) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, tr := range trades {
		j.seq++
		val, err := encodeGob(tr)
		if err != nil {
			j.log.Errorw("encode trade", "trade_id", tr.ID, "err", err)
			continue
		}
		if err := j.db.Set(seqKey(j.seq), val, pebble.NoSync); err != nil {
			j.log.Errorw("journal trade", "trade_id", tr.ID, "err", err)
		}

		ring := append(j.recent[tr.Symbol], tr)
		if len(ring) > j.limit {
			ring = ring[len(ring)-j.limit:]
		}
		j.recent[tr.Symbol] = ring
	}
}

// Recent returns up to n most recent trades for symbol, oldest first.
func (j *TradeJournal) Recent(symbol string, n int) []engine.Trade {
	j.mu.Lock()
	defer j.mu.Unlock()

	ring := j.recent[symbol]
	if n > 0 && len(ring) > n {
		ring = ring[len(ring)-n:]
	}
	out := make([]engine.Trade, len(ring))
	copy(out, ring)
	return out
}

// Seq returns the last assigned journal sequence.
func (j *TradeJournal) Seq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

func (j *TradeJournal) Close() error {
	return j.db.Close()
}
