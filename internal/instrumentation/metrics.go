package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics of the bot.
type Metrics struct {
	AlertsCreated    prometheus.Counter
	AlertRejections  *prometheus.CounterVec
	PaperOrders      *prometheus.CounterVec
	PaperRejections  *prometheus.CounterVec
	PaperResets      prometheus.Counter
	OrderFills       prometheus.Counter
	ProcessorCalls   *prometheus.CounterVec
	ProcessorLatency *prometheus.HistogramVec
	LockWait         prometheus.Histogram
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AlertsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "alpha_alerts_created_total",
			Help: "Price alerts accepted and persisted",
		}),
		AlertRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alpha_alert_rejections_total",
			Help: "Alert requests rejected by kind",
		}, []string{"kind"}),
		PaperOrders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alpha_paper_orders_total",
			Help: "Committed paper orders by side and execution",
		}, []string{"side", "execution"}),
		PaperRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alpha_paper_rejections_total",
			Help: "Paper orders rejected by kind",
		}, []string{"kind"}),
		PaperResets: f.NewCounter(prometheus.CounterOpts{
			Name: "alpha_paper_resets_total",
			Help: "Paper balance resets",
		}),
		OrderFills: f.NewCounter(prometheus.CounterOpts{
			Name: "alpha_paper_fills_total",
			Help: "Open limit orders filled by the watcher",
		}),
		ProcessorCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alpha_processor_requests_total",
			Help: "Processor requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		ProcessorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alpha_processor_latency_ms",
			Help:    "Processor round trip in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"endpoint"}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "alpha_owner_lock_wait_ms",
			Help:    "Time spent waiting for a per-owner lock",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
	}
}

// NewNop: метрики на отдельном реестре, для тестов.
func NewNop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
