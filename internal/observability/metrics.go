package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ContainerOperations counts state-container operations by outcome (ok, error, stale).
	ContainerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkd_container_operations_total",
		Help: "Total number of state-container operations by outcome",
	}, []string{"container", "operation", "outcome"})

	// ContainerOperationLatency records how long container operations take end to end.
	ContainerOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkd_container_operation_latency_seconds",
		Help:    "State-container operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"container", "operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkd_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WorkspacesActive is the number of live per-session workspaces.
	WorkspacesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkd_workspaces_active",
		Help: "Number of live per-session workspaces",
	})

	// WorkspacesEvicted counts workspaces closed by the idle janitor.
	WorkspacesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkd_workspaces_evicted_total",
		Help: "Total number of workspaces evicted for inactivity",
	})

	// StorageBytes counts bytes written to object storage per bucket.
	StorageBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkd_storage_bytes_total",
		Help: "Total bytes written to object storage",
	}, []string{"bucket"})

	// AssistantJobs counts simulated assistant jobs by kind and outcome.
	AssistantJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkd_assistant_jobs_total",
		Help: "Total number of assistant background jobs",
	}, []string{"kind", "outcome"})

	// WebSocketConnectionsTotal is the gauge of open push connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkd_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts pushed change events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkd_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts events dropped because a client fell behind.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkd_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackOperation returns a function that records the latency and outcome of a container operation.
func TrackOperation(container, operation string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		ContainerOperationLatency.WithLabelValues(container, operation).Observe(time.Since(start).Seconds())
		ContainerOperations.WithLabelValues(container, operation, outcome).Inc()
	}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
