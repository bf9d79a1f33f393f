package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_orders_accepted_total",
		Help: "Orders admitted to the ingest queue.",
	})

	OrdersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_orders_rejected_total",
		Help: "Orders rejected before enqueue, by reason.",
	}, []string{"reason"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_queue_depth",
		Help: "Orders currently buffered across all ingest partitions.",
	})

	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_batch_size",
		Help:    "Orders per dispatched batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	EngineErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_engine_errors_total",
		Help: "Orders the matching engine rejected or failed to apply.",
	})

	TradesExecuted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_trades_executed_total",
		Help: "Fills produced by the matching engine.",
	})

	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "marketdata_stream_clients",
		Help: "Live market data stream connections.",
	})

	BroadcastDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marketdata_broadcast_drops_total",
		Help: "Connections dropped during snapshot fanout.",
	})
)

func InitMetrics() {
	prometheus.MustRegister(OrdersAccepted)
	prometheus.MustRegister(OrdersRejected)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(EngineErrors)
	prometheus.MustRegister(TradesExecuted)
	prometheus.MustRegister(StreamClients)
	prometheus.MustRegister(BroadcastDrops)
}
