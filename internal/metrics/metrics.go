package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound API calls to Propora.
	ProporaRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propora_api_requests_total",
			Help: "Total number of Propora API requests made (by endpoint and method).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Measures duration of API requests to Propora.
	ProporaRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "propora_api_request_duration_seconds",
			Help:    "Duration of Propora API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	// Tracks access-token refreshes against the auth endpoint.
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propora_token_refresh_total",
			Help: "Number of access-token refresh attempts by result.",
		},
		[]string{"result"}, // ok | error
	)

	// Counts lead sync runs by outcome.
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propora_sync_runs_total",
			Help: "Total number of lead sync runs by result.",
		},
		[]string{"result"}, // ok | error
	)

	// Counts leads upserted by sync runs.
	LeadsSyncedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "propora_leads_synced_total",
			Help: "Total number of leads upserted into the CRM store.",
		},
	)

	// Tracks location cache hits and misses.
	LocationCacheAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propora_location_cache_access_total",
			Help: "Number of cache hits/misses when resolving locations.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_errors_total",
			Help: "Count of adapter-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful lead sync time (seconds since epoch).
	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "propora_last_sync_timestamp",
			Help: "Timestamp (unix seconds) of the last successful lead sync run.",
		},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncProporaRequest(endpoint, method, status string) {
	ProporaRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

func IncTokenRefresh(result string) {
	TokenRefreshTotal.WithLabelValues(result).Inc()
}

func IncSyncRun(result string) {
	SyncRunsTotal.WithLabelValues(result).Inc()
}

func AddLeadsSynced(n int) {
	LeadsSyncedTotal.Add(float64(n))
}

func IncLocationCache(result string) {
	LocationCacheAccess.WithLabelValues(result).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastSync(t time.Time) {
	LastSyncTimestamp.Set(float64(t.Unix()))
}
