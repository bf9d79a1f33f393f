package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/pkg/metrics"
	"github.com/jwhyun/matchgate/pkg/util"
)

// BatchSink receives assembled batches.
type BatchSink interface {
	Dispatch(batch []Order)
}

// Collector drains one ingest partition into bounded, time-boxed
// batches. It blocks for the first order, then drains opportunistically
// until the batch is full, the delay budget is spent, or the queue is
// empty. Every dequeued order lands in exactly one batch.
type Collector struct {
	queue    *IngestQueue
	sink     BatchSink
	maxSize  int
	maxDelay time.Duration
	clock    util.Clock
	log      *zap.SugaredLogger
}

func NewCollector(queue *IngestQueue, sink BatchSink, maxSize int, maxDelay time.Duration, clock util.Clock, log *zap.SugaredLogger) *Collector {
	if maxSize < 1 {
		maxSize = 1
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Collector{
		queue:    queue,
		sink:     sink,
		maxSize:  maxSize,
		maxDelay: maxDelay,
		clock:    clock,
		log:      log,
	}
}

// Run loops until ctx is cancelled. Orders still buffered at shutdown
// are abandoned; queued-order durability is out of scope.
func (c *Collector) Run(ctx context.Context) {
	for {
		first, err := c.queue.Dequeue(ctx)
		if err != nil {
			return
		}

		batch := make([]Order, 1, c.maxSize)
		batch[0] = first
		start := c.clock.Now()

		for len(batch) < c.maxSize && c.clock.Now().Sub(start) < c.maxDelay {
			o, ok := c.queue.TryDequeue()
			if !ok {
				break
			}
			batch = append(batch, o)
		}

		metrics.BatchSize.Observe(float64(len(batch)))
		c.sink.Dispatch(batch)
	}
}
