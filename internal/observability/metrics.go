// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesStarted   prometheus.Counter
	CyclesCompleted prometheus.Counter
	CycleFailures   *prometheus.CounterVec
	CycleDuration   prometheus.Histogram

	// Burn metrics
	BurnsSubmitted  prometheus.Counter
	BurnsConfirmed  prometheus.Counter
	BurnConfirmTime prometheus.Histogram
	TokensBurnedRaw prometheus.Counter

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationLatency  prometheus.Histogram
	GenerationTimeouts prometheus.Counter

	// Scoring metrics
	EffectivenessScores prometheus.Histogram

	// Ledger metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryErrors *prometheus.CounterVec

	// Leaderboard metrics
	LeaderboardWallets   prometheus.Gauge
	TotalBurnedRawGauge  prometheus.Gauge
	LastSnapshotUnixtime prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "garlic_defense"
	}

	return &Metrics{
		CyclesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "started_total",
			Help:      "Total number of cycles started",
		}),
		CyclesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "completed_total",
			Help:      "Total number of cycles completed through aggregation",
		}),
		CycleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "failures_total",
			Help:      "Total number of failed cycles by state and burn outcome",
		}, []string{"state", "tokens_burned"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Full cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		BurnsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "burn",
			Name:      "submitted_total",
			Help:      "Total number of burn transactions submitted",
		}),
		BurnsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "burn",
			Name:      "confirmed_total",
			Help:      "Total number of burn transactions confirmed",
		}),
		BurnConfirmTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "burn",
			Name:      "confirm_seconds",
			Help:      "Time from submission to confirmation in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		TokensBurnedRaw: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "burn",
			Name:      "tokens_raw_total",
			Help:      "Total raw token units burned",
		}),

		GenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total generation requests by language and outcome",
		}, []string{"language", "outcome"}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "Generation request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		GenerationTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "timeouts_total",
			Help:      "Total generation requests that hit the timeout ceiling",
		}),

		EffectivenessScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "effectiveness",
			Help:      "Distribution of effectiveness scores",
			Buckets:   []float64{70, 75, 80, 85, 90, 95},
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_errors_total",
			Help:      "Total database query errors by backend and operation",
		}, []string{"database", "operation"}),

		LeaderboardWallets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "wallets",
			Help:      "Number of wallets on the most recent snapshot",
		}),
		TotalBurnedRawGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "total_burned_raw",
			Help:      "Total raw token units burned across all wallets",
		}),
		LastSnapshotUnixtime: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "last_snapshot_timestamp",
			Help:      "Unix timestamp of the last daily snapshot",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycleStarted increments the cycles started counter.
func RecordCycleStarted() {
	DefaultMetrics.CyclesStarted.Inc()
}

// RecordCycleCompleted records a successful cycle.
func RecordCycleCompleted(durationSeconds float64, effectiveness int64, burnedRaw uint64) {
	DefaultMetrics.CyclesCompleted.Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
	DefaultMetrics.EffectivenessScores.Observe(float64(effectiveness))
	DefaultMetrics.TokensBurnedRaw.Add(float64(burnedRaw))
}

// RecordBurnSubmitted increments the submitted burns counter.
func RecordBurnSubmitted() {
	DefaultMetrics.BurnsSubmitted.Inc()
}

// RecordBurnConfirmed records a confirmed burn and how long confirmation took.
func RecordBurnConfirmed(seconds float64) {
	DefaultMetrics.BurnsConfirmed.Inc()
	DefaultMetrics.BurnConfirmTime.Observe(seconds)
}

// RecordCycleFailure records a failed cycle.
func RecordCycleFailure(state string, tokensBurned bool) {
	burned := "false"
	if tokensBurned {
		burned = "true"
	}
	DefaultMetrics.CycleFailures.WithLabelValues(state, burned).Inc()
}

// RecordGeneration records one generation request outcome.
func RecordGeneration(language, outcome string, seconds float64) {
	DefaultMetrics.GenerationsTotal.WithLabelValues(language, outcome).Inc()
	DefaultMetrics.GenerationLatency.Observe(seconds)
	if outcome == "timeout" {
		DefaultMetrics.GenerationTimeouts.Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBError records a database query error.
func RecordDBError(database, operation string) {
	DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
}

// UpdateLeaderboard updates the leaderboard gauges after a snapshot.
func UpdateLeaderboard(wallets int, totalBurnedRaw uint64, snapshotUnix int64) {
	DefaultMetrics.LeaderboardWallets.Set(float64(wallets))
	DefaultMetrics.TotalBurnedRawGauge.Set(float64(totalBurnedRaw))
	DefaultMetrics.LastSnapshotUnixtime.Set(float64(snapshotUnix))
}
