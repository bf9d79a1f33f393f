package gateway

import (
	"context"
	"errors"
)

// ErrQueueFull is the fail-fast backpressure signal on enqueue.
var ErrQueueFull = errors.New("ingest queue full")

// IngestQueue is a bounded FIFO of normalized orders. Enqueue is
// non-blocking and fails fast when full; dequeue blocks until an order
// arrives or the context is cancelled. An order dequeued here is owned
// by exactly one collector from that point on.
type IngestQueue struct {
	ch chan Order
}

func NewIngestQueue(capacity int) *IngestQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &IngestQueue{ch: make(chan Order, capacity)}
}

// TryEnqueue admits o or returns ErrQueueFull.
func (q *IngestQueue) TryEnqueue(o Order) error {
	select {
	case q.ch <- o:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until an order is available or ctx is done.
func (q *IngestQueue) Dequeue(ctx context.Context) (Order, error) {
	select {
	case o := <-q.ch:
		return o, nil
	case <-ctx.Done():
		return Order{}, ctx.Err()
	}
}

// TryDequeue returns immediately; ok is false when the queue is empty.
func (q *IngestQueue) TryDequeue() (Order, bool) {
	select {
	case o := <-q.ch:
		return o, true
	default:
		return Order{}, false
	}
}

func (q *IngestQueue) Len() int { return len(q.ch) }
func (q *IngestQueue) Cap() int { return cap(q.ch) }
