package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	CycleCount             prometheus.Counter
	FetchFailures          prometheus.Counter
	MessagesProcessed      prometheus.Counter
	ConfidentialDetections prometheus.Counter
	SummaryFallbacks       prometheus.Counter
	DispatchSuccesses      prometheus.Counter
	DispatchFailures       prometheus.Counter
	CycleDuration          prometheus.Histogram
	ProcessedTotal         prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates the metrics on a specific registry, which keeps
// repeated construction in tests from colliding
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CycleCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_digest_cycle_count",
			Help: "Total number of poll cycles started",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_digest_fetch_failures",
			Help: "Total number of poll cycles aborted by a mailbox fetch error",
		}),
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_digest_messages_processed",
			Help: "Total number of messages fully processed and recorded",
		}),
		ConfidentialDetections: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_digest_confidential_detections",
			Help: "Total number of messages classified as confidential",
		}),
		SummaryFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_digest_summary_fallbacks",
			Help: "Total number of summaries degraded to the local fallback",
		}),
		DispatchSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_digest_dispatch_successes",
			Help: "Total number of notifications delivered",
		}),
		DispatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_digest_dispatch_failures",
			Help: "Total number of notifications that failed delivery",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mail_digest_cycle_duration_seconds",
			Help:    "Time spent running one poll cycle",
			Buckets: prometheus.DefBuckets,
		}),
		ProcessedTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mail_digest_processed_ids",
			Help: "Number of message ids in the dedup store",
		}),
	}
}
