package gateway

import (
	"errors"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/pkg/metrics"
)

// Result reports partial acceptance of one submission request.
// Accepted + Rejected always equals the number of candidates.
type Result struct {
	Accepted   int
	Rejected   int
	Overloaded bool
}

// Submitter normalizes inbound orders and admits them to the ingest
// partitions with fail-fast backpressure. Orders for one symbol always
// land in the same partition, so per-symbol submission order survives
// concurrent collectors.
type Submitter struct {
	queues []*IngestQueue
	log    *zap.SugaredLogger
}

func NewSubmitter(queues []*IngestQueue, log *zap.SugaredLogger) *Submitter {
	return &Submitter{queues: queues, log: log}
}

// Submit processes candidates in order. A validation failure rejects
// only that order; a full queue stops the rest of the request. Orders
// already admitted are never rolled back.
func (s *Submitter) Submit(reqs []OrderRequest) Result {
	var res Result

	for _, req := range reqs {
		o, err := Normalize(req)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				s.log.Warnw("order rejected", "field", verr.Field, "reason", verr.Reason, "symbol", req.Symbol)
			}
			metrics.OrdersRejected.WithLabelValues("validation").Inc()
			continue
		}

		if err := s.queue(o.Symbol).TryEnqueue(o); err != nil {
			res.Overloaded = true
			metrics.OrdersRejected.WithLabelValues("overloaded").Inc()
			break
		}
		res.Accepted++
		metrics.OrdersAccepted.Inc()
	}

	res.Rejected = len(reqs) - res.Accepted
	metrics.QueueDepth.Set(float64(s.Pending()))
	return res
}

// Pending reports the total number of buffered orders.
func (s *Submitter) Pending() int {
	var n int
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

func (s *Submitter) queue(symbol string) *IngestQueue {
	return s.queues[partition(symbol, len(s.queues))]
}

// partition maps a symbol to a stable index in [0, n).
func partition(symbol string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(n))
}
