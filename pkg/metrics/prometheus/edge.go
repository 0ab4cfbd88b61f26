package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vingest/vingest/pkg/edge"
	"github.com/vingest/vingest/pkg/metrics"
)

func init() {
	metrics.RegisterEdgeMetricsConstructor(NewEdgeMetrics)
}

// edgeMetrics is the Prometheus implementation of edge.EdgeMetrics.
type edgeMetrics struct {
	proxyTotal    *prometheus.CounterVec
	proxyDuration *prometheus.HistogramVec
	backendUp     *prometheus.GaugeVec
	noHealthy     prometheus.Counter
}

// NewEdgeMetrics creates a new Prometheus-backed EdgeMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewEdgeMetrics() edge.EdgeMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &edgeMetrics{
		proxyTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_edge_proxy_requests_total",
				Help: "Total number of proxied requests by backend and upstream status code",
			},
			[]string{"backend", "code"},
		),
		proxyDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "vingest_edge_proxy_duration_milliseconds",
				Help: "Duration of proxied requests in milliseconds",
				Buckets: []float64{
					10,    // 10ms - status checks
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms - chunk uploads
					1000,  // 1s
					5000,  // 5s
					30000, // 30s - completing chunk with assembly
				},
			},
			[]string{"backend"},
		),
		backendUp: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vingest_edge_backend_healthy",
				Help: "Backend health as seen by the checker (1 healthy, 0 ejected)",
			},
			[]string{"backend"},
		),
		noHealthy: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "vingest_edge_no_healthy_backends_total",
				Help: "Total number of requests dropped because no backend was available",
			},
		),
	}
}

func (m *edgeMetrics) ObserveProxy(backend string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	m.proxyTotal.WithLabelValues(backend, strconv.Itoa(status)).Inc()
	m.proxyDuration.WithLabelValues(backend).Observe(duration.Seconds() * 1000)
}

func (m *edgeMetrics) RecordBackendHealth(backend string, healthy bool) {
	if m == nil {
		return
	}

	v := 0.0
	if healthy {
		v = 1.0
	}
	m.backendUp.WithLabelValues(backend).Set(v)
}

func (m *edgeMetrics) RecordNoHealthyBackends() {
	if m == nil {
		return
	}
	m.noHealthy.Inc()
}
