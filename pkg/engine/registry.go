package engine

import (
	"sync"
)

// BookRegistry owns one OrderBook per traded symbol. Books are created
// lazily on first reference and live for the rest of the process. All
// methods are safe for concurrent use; ordering of mutations within a
// symbol is up to the caller.
type BookRegistry struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
	fees  FeeSchedule
}

// NewBookRegistry creates an empty registry.
func NewBookRegistry(fees FeeSchedule) *BookRegistry {
	return &BookRegistry{
		books: make(map[string]*OrderBook),
		fees:  fees,
	}
}

// Resolve returns the book for symbol, creating it on first reference.
func (r *BookRegistry) Resolve(symbol string) *OrderBook {
	r.mu.RLock()
	b, ok := r.books[symbol]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.books[symbol]; ok {
		return b
	}
	b = NewOrderBook(symbol, r.fees)
	r.books[symbol] = b
	return b
}

// Lookup returns the book for symbol without creating it.
func (r *BookRegistry) Lookup(symbol string) (*OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[symbol]
	return b, ok
}

// Snapshot returns a depth snapshot for symbol. ok is false when no
// book exists yet; that is not an error, the symbol simply has not
// traded.
func (r *BookRegistry) Snapshot(symbol string, depth int) (Snapshot, bool) {
	b, ok := r.Lookup(symbol)
	if !ok {
		return Snapshot{}, false
	}
	return b.Snapshot(depth), true
}

// Symbols returns the symbols with live books.
func (r *BookRegistry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.books))
	for s := range r.books {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live books.
func (r *BookRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}
