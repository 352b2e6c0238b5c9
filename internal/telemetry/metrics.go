package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal — количество обработанных HTTP-запросов.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actual_bridge_http_requests_total",
		Help: "Total HTTP requests handled by actual-bridge",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration — длительность HTTP-запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actual_bridge_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// SyncPassesTotal — количество проходов синхронизации.
	SyncPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actual_bridge_sync_passes_total",
		Help: "Sync passes by trigger and status",
	}, []string{"trigger", "status"})

	// SyncDuration — длительность прохода синхронизации.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "actual_bridge_sync_duration_seconds",
		Help:    "Sync pass latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// SyncMessagesApplied — количество применённых сообщений синхронизации.
	SyncMessagesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actual_bridge_sync_messages_applied_total",
		Help: "CRDT messages applied to the local replica",
	})

	// ReadinessState — текущее состояние готовности (0, 1, 2).
	ReadinessState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "actual_bridge_readiness_state",
		Help: "0 = uninitialized, 1 = sdk ready, 2 = fully ready",
	})
)

// ObserveHTTP записывает метрики одного HTTP-запроса.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveSync записывает метрики одного прохода синхронизации.
func ObserveSync(trigger, status string, applied int, d time.Duration) {
	SyncPassesTotal.WithLabelValues(trigger, status).Inc()
	SyncDuration.Observe(d.Seconds())
	if applied > 0 {
		SyncMessagesApplied.Add(float64(applied))
	}
}
