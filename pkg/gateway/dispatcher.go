package gateway

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/pkg/engine"
	"github.com/jwhyun/matchgate/pkg/metrics"
)

// Engine is the matching engine surface the dispatcher consumes.
type Engine interface {
	AddOrder(symbol string, price, qty float64, side engine.Side, typ engine.OrderType) ([]engine.Trade, error)
}

// TradeRecorder receives fills after each applied order. Recording is
// best-effort; failures never affect order processing.
type TradeRecorder interface {
	Record(trades []engine.Trade)
}

// Dispatcher applies batches through a fixed worker pool. Each order is
// routed to worker fnv(symbol) % W, so every mutation for a symbol runs
// on one worker: at most one in-flight engine call per symbol, while
// distinct symbols execute in parallel. An engine failure is isolated
// to its order; the rest of the batch proceeds.
type Dispatcher struct {
	eng      Engine
	recorder TradeRecorder
	workers  []chan Order
	wg       sync.WaitGroup
	log      *zap.SugaredLogger
}

func NewDispatcher(eng Engine, workers int, recorder TradeRecorder, log *zap.SugaredLogger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		eng:      eng,
		recorder: recorder,
		workers:  make([]chan Order, workers),
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Order, 256)
	}
	return d
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := range d.workers {
		d.wg.Add(1)
		go d.runWorker(d.workers[i])
	}
}

// Stop closes the worker channels and waits for queued orders to
// drain. Callers must stop every collector first; Dispatch after Stop
// panics on a closed channel.
func (d *Dispatcher) Stop() {
	for _, ch := range d.workers {
		close(ch)
	}
	d.wg.Wait()
}

// Dispatch routes each order of the batch to its symbol's worker,
// preserving batch order per symbol. Blocks when a worker is saturated,
// which backpressures the collector rather than dropping orders.
func (d *Dispatcher) Dispatch(batch []Order) {
	n := len(d.workers)
	for _, o := range batch {
		d.workers[partition(o.Symbol, n)] <- o
	}
}

func (d *Dispatcher) runWorker(ch chan Order) {
	defer d.wg.Done()
	for o := range ch {
		d.apply(o)
	}
}

func (d *Dispatcher) apply(o Order) {
	trades, err := d.eng.AddOrder(o.Symbol, o.Price, o.Qty, o.Side, o.Type)
	if err != nil {
		metrics.EngineErrors.Inc()
		d.log.Warnw("engine rejected order",
			"symbol", o.Symbol,
			"side", o.Side.String(),
			"type", o.Type.String(),
			"err", err,
		)
		return
	}
	if len(trades) > 0 {
		metrics.TradesExecuted.Add(float64(len(trades)))
		if d.recorder != nil {
			d.recorder.Record(trades)
		}
	}
}

// BookEngine adapts a BookRegistry to the Engine interface, resolving
// (and lazily creating) the book for each order's symbol.
type BookEngine struct {
	Registry *engine.BookRegistry
}

func (b BookEngine) AddOrder(symbol string, price, qty float64, side engine.Side, typ engine.OrderType) ([]engine.Trade, error) {
	return b.Registry.Resolve(symbol).AddOrder(price, qty, side, typ)
}
