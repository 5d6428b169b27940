package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreErrors counts failed store operations by backend and operation.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_store_errors_total",
		Help: "Total number of store errors by backend and operation",
	}, []string{"backend", "operation"})

	// StoreOperationLatency records store round-trip latency.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arcade_store_operation_latency_seconds",
		Help:    "Store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// StoreTransactionRetries counts optimistic transactions re-run after a conflict.
	StoreTransactionRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_store_transaction_retries_total",
		Help: "Total number of store transactions retried after a conflict",
	}, []string{"backend"})

	// ProfilesCreated counts first-login profile creations.
	ProfilesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arcade_profiles_created_total",
		Help: "Total number of profiles created",
	})

	// ScoreSubmissions counts score submissions by game and outcome.
	ScoreSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_score_submissions_total",
		Help: "Total number of score submissions by game and whether they improved the personal best",
	}, []string{"game", "improved"})

	// FriendTransitions counts social graph state changes.
	FriendTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_friend_transitions_total",
		Help: "Total number of friend request and friendship transitions",
	}, []string{"transition"})
)

// StoreMetrics records latency and errors for one store backend.
type StoreMetrics struct {
	backend string
}

// NewStoreMetrics returns a new StoreMetrics instance.
func NewStoreMetrics(backend string) *StoreMetrics {
	return &StoreMetrics{backend: backend}
}

// Backend returns the backend label.
func (m *StoreMetrics) Backend() string {
	return m.backend
}

// Track returns a function that records latency, and the error if any, when
// called (e.g. defer).
func (m *StoreMetrics) Track(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		StoreOperationLatency.WithLabelValues(m.backend, operation).Observe(time.Since(start).Seconds())
		if err != nil {
			StoreErrors.WithLabelValues(m.backend, operation).Inc()
		}
	}
}

// RedisErrors counts failed Redis commands by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "arcade_redis_errors_total",
	Help: "Total number of Redis errors by command",
}, []string{"command"})
