package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/params"
	"github.com/jwhyun/matchgate/pkg/util"
)

// Pipeline wires the ingest path end to end: partitioned queues, one
// collector per partition, and the symbol-pinned worker pool. The
// partition count equals the collector count, so a symbol's orders
// flow through exactly one queue, one collector, and one worker, which
// preserves submission order per symbol across the whole path.
type Pipeline struct {
	queues     []*IngestQueue
	submitter  *Submitter
	collectors []*Collector
	dispatcher *Dispatcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.SugaredLogger
}

func NewPipeline(cfg params.Gateway, eng Engine, recorder TradeRecorder, log *zap.SugaredLogger) *Pipeline {
	k := cfg.Collectors
	if k < 1 {
		k = 1
	}
	perQueue := cfg.QueueCapacity / k
	if perQueue < 1 {
		perQueue = 1
	}

	queues := make([]*IngestQueue, k)
	for i := range queues {
		queues[i] = NewIngestQueue(perQueue)
	}

	dispatcher := NewDispatcher(eng, cfg.Workers, recorder, log)

	collectors := make([]*Collector, k)
	for i := range collectors {
		collectors[i] = NewCollector(queues[i], dispatcher, cfg.MaxBatchSize, cfg.MaxBatchDelay, util.RealClock{}, log)
	}

	return &Pipeline{
		queues:     queues,
		submitter:  NewSubmitter(queues, log),
		collectors: collectors,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Start launches the dispatcher workers and collector loops.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.dispatcher.Start()
	for _, c := range p.collectors {
		p.wg.Add(1)
		go func(c *Collector) {
			defer p.wg.Done()
			c.Run(ctx)
		}(c)
	}
	p.log.Infow("pipeline started",
		"partitions", len(p.queues),
		"queue_capacity", p.queues[0].Cap()*len(p.queues),
		"workers", len(p.dispatcher.workers),
	)
}

// Stop cancels the collectors, then drains and stops the worker pool.
// Orders still buffered in the ingest queues are abandoned.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.dispatcher.Stop()
	p.log.Infow("pipeline stopped", "abandoned", p.submitter.Pending())
}

// Submit admits one request's orders with fail-fast backpressure.
func (p *Pipeline) Submit(reqs []OrderRequest) Result {
	return p.submitter.Submit(reqs)
}

// Pending reports orders buffered but not yet collected.
func (p *Pipeline) Pending() int {
	return p.submitter.Pending()
}
