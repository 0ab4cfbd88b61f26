package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vingest/vingest/pkg/catalog"
	"github.com/vingest/vingest/pkg/metrics"
)

func init() {
	metrics.RegisterPoolMetricsConstructor(NewPoolMetrics)
}

// poolMetrics is the Prometheus implementation of catalog.PoolMetrics.
type poolMetrics struct {
	acquiresTotal *prometheus.CounterVec
	releasesTotal prometheus.Counter
	reapedTotal   prometheus.Counter
	connections   *prometheus.GaugeVec
	execTotal     *prometheus.CounterVec
	execDuration  *prometheus.HistogramVec
}

// NewPoolMetrics creates a new Prometheus-backed PoolMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPoolMetrics() catalog.PoolMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &poolMetrics{
		acquiresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_catalog_pool_acquires_total",
				Help: "Total number of connection acquisition attempts by status",
			},
			[]string{"status"},
		),
		releasesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "vingest_catalog_pool_releases_total",
				Help: "Total number of connections returned to the pool",
			},
		),
		reapedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "vingest_catalog_pool_reaped_total",
				Help: "Total number of idle connections closed by the reaper",
			},
		),
		connections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vingest_catalog_pool_connections",
				Help: "Current pool occupancy by connection state",
			},
			[]string{"state"},
		),
		execTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_catalog_exec_total",
				Help: "Total number of catalog statement executions by operation and status",
			},
			[]string{"operation", "status"},
		),
		execDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "vingest_catalog_exec_duration_milliseconds",
				Help: "Duration of catalog statement executions in milliseconds",
				Buckets: []float64{
					1,    // 1ms - warm page cache
					5,    // 5ms
					10,   // 10ms - fsync on commodity disk
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
					1000, // 1s
					5000, // 5s - busy timeout territory
				},
			},
			[]string{"operation"},
		),
	}
}

func (m *poolMetrics) RecordAcquire(err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "exhausted"
	}

	m.acquiresTotal.WithLabelValues(status).Inc()
}

func (m *poolMetrics) RecordRelease() {
	if m == nil {
		return
	}
	m.releasesTotal.Inc()
}

func (m *poolMetrics) RecordReap(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.reapedTotal.Add(float64(count))
}

func (m *poolMetrics) SetPoolState(inUse, idle int) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues("in_use").Set(float64(inUse))
	m.connections.WithLabelValues("idle").Set(float64(idle))
}

func (m *poolMetrics) ObserveExec(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.execTotal.WithLabelValues(operation, status).Inc()
	m.execDuration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}
