package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the sync
// core: queue drains, connectivity, the live report feed, cluster queries,
// and verification.
type Metrics struct {
	Online      prometheus.Gauge
	SyncRunning prometheus.Gauge

	// Drain metrics.
	SyncDrains        prometheus.Counter
	SyncItemsComplete prometheus.Counter
	SyncItemsErrored  prometheus.Counter
	SyncDrainDuration prometheus.Histogram

	// Live report feed metrics.
	FeedMessagesApplied prometheus.Counter
	FeedParseErrors     prometheus.Counter

	// Admin-side metrics.
	ClusterQueryDuration prometheus.Histogram
	VerificationsCreated prometheus.Counter
	VerificationSkips    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Online,
		m.SyncRunning,
		m.SyncDrains,
		m.SyncItemsComplete,
		m.SyncItemsErrored,
		m.SyncDrainDuration,
		m.FeedMessagesApplied,
		m.FeedParseErrors,
		m.ClusterQueryDuration,
		m.VerificationsCreated,
		m.VerificationSkips,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "infounity",
			Name:      "online",
			Help:      "1 when the upstream backend is reachable, 0 when offline.",
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "infounity",
			Name:      "sync_running",
			Help:      "1 while a queue drain is in progress.",
		}),
		SyncDrains: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infounity",
			Name:      "sync_drains_total",
			Help:      "Total queue drain attempts that performed work.",
		}),
		SyncItemsComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infounity",
			Name:      "sync_items_completed_total",
			Help:      "Queued reports and attachments successfully delivered upstream.",
		}),
		SyncItemsErrored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infounity",
			Name:      "sync_items_errored_total",
			Help:      "Queued items that failed during a drain and remain pending.",
		}),
		SyncDrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "infounity",
			Name:      "sync_drain_duration_seconds",
			Help:      "Duration of a complete queue drain.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FeedMessagesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infounity",
			Name:      "feed_messages_applied_total",
			Help:      "Report feed messages applied to the in-memory snapshot.",
		}),
		FeedParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infounity",
			Name:      "feed_parse_errors_total",
			Help:      "Report feed messages dropped because they could not be parsed.",
		}),
		ClusterQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "infounity",
			Name:      "cluster_query_duration_seconds",
			Help:      "Duration of a viewport cluster query, including lazy index builds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		VerificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infounity",
			Name:      "verifications_created_total",
			Help:      "Verified disaster records created from merged reports.",
		}),
		VerificationSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infounity",
			Name:      "verification_skips_total",
			Help:      "Report ids skipped during verification (missing or already consumed).",
		}),
	}
}
