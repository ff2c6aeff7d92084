package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the gateway.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	TurnOutcomes   *prometheus.CounterVec
	UpstreamErrors *prometheus.CounterVec
	StageLatency   *prometheus.HistogramVec

	stageWindow *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live voice sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		TurnOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_outcomes_total",
			Help:      "Processed chunk outcomes by category.",
		}, []string{"outcome"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Upstream capability errors by stage and class.",
		}, []string{"stage", "class"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Pipeline stage latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000},
		}, []string{"stage"}),
		stageWindow: newStageWindow(256),
	}
}

// ObserveStage records a stage duration in both the histogram and the
// rolling window behind the stats endpoint.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.stageWindow.Observe(stage, ms)
}

// SnapshotStages returns the rolling per-stage latency summary.
func (m *Metrics) SnapshotStages() StageSnapshot {
	return m.stageWindow.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
