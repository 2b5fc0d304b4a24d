package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	AnalyzeTotal       *prometheus.CounterVec
	BlockedTotal       prometheus.Counter
	HighRiskDetections prometheus.Counter
	EmergencyBlocks    prometheus.Counter
	AnalyzeLatency     prometheus.Histogram
	AuditDropped       prometheus.Counter
	ActiveStreams      prometheus.Gauge

	// Latency keeps recent percentile detail for the stats endpoint.
	Latency *LatencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AnalyzeTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyze_total",
			Help:      "Completed analyses by resulting risk level.",
		}, []string{"risk"}),
		BlockedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocked_total",
			Help:      "Analyses that produced an unsafe verdict.",
		}),
		HighRiskDetections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "high_risk_detections_total",
			Help:      "Verdicts at high risk or above.",
		}),
		EmergencyBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergency_blocks_total",
			Help:      "Analyses that failed internally and fell back to a blocking verdict.",
		}),
		AnalyzeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analyze_latency_ms",
			Help:      "End-to-end analysis latency in milliseconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_dropped_total",
			Help:      "High-risk audit events dropped because the queue was full.",
		}),
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of open analysis WebSocket streams.",
		}),
		Latency: NewLatencyWindow(512),
	}
}

func (m *Metrics) ObserveAnalyzeLatency(d time.Duration) {
	m.AnalyzeLatency.Observe(float64(d.Nanoseconds()) / 1e6)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
