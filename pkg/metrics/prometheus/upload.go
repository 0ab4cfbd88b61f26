// Package prometheus contains the Prometheus implementations of the
// per-component metrics interfaces.
//
// Importing this package (usually blank-imported from the command wiring)
// registers the constructors with pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vingest/vingest/pkg/metrics"
	"github.com/vingest/vingest/pkg/upload"
)

func init() {
	metrics.RegisterUploadMetricsConstructor(NewUploadMetrics)
}

// uploadMetrics is the Prometheus implementation of upload.UploadMetrics.
type uploadMetrics struct {
	initializeTotal    *prometheus.CounterVec
	initializeDuration prometheus.Histogram
	chunksTotal        *prometheus.CounterVec
	chunkDuration      prometheus.Histogram
	chunkBytes         prometheus.Counter
	assemblyTotal      *prometheus.CounterVec
	assemblyDuration   prometheus.Histogram
	assemblyBytes      prometheus.Histogram
	rejectedTotal      *prometheus.CounterVec
	sessionsTotal      *prometheus.CounterVec
}

// NewUploadMetrics creates a new Prometheus-backed UploadMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewUploadMetrics() upload.UploadMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &uploadMetrics{
		initializeTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_upload_initialize_total",
				Help: "Total number of session initializations by status",
			},
			[]string{"status"},
		),
		initializeDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "vingest_upload_initialize_duration_milliseconds",
				Help: "Duration of session initialization in milliseconds",
				Buckets: []float64{
					1,    // 1ms - memory store
					5,    // 5ms
					10,   // 10ms - redis round trip
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
					1000, // 1s - degraded store
				},
			},
		),
		chunksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_upload_chunks_total",
				Help: "Total number of chunk ingests by status",
			},
			[]string{"status"},
		),
		chunkDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "vingest_upload_chunk_duration_milliseconds",
				Help: "Duration of chunk ingest in milliseconds",
				Buckets: []float64{
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms - chunk write plus session update
					100,  // 100ms
					500,  // 500ms
					1000, // 1s
					5000, // 5s - slow disk or store
				},
			},
		),
		chunkBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "vingest_upload_chunk_bytes_total",
				Help: "Total chunk bytes accepted",
			},
		),
		assemblyTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_upload_assembly_total",
				Help: "Total number of file assemblies by status",
			},
			[]string{"status"},
		),
		assemblyDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "vingest_upload_assembly_duration_milliseconds",
				Help: "Duration of file assembly in milliseconds",
				Buckets: []float64{
					50,     // 50ms - small files
					100,    // 100ms
					500,    // 500ms
					1000,   // 1s
					5000,   // 5s
					10000,  // 10s
					30000,  // 30s
					120000, // 2m - files near the size limit
				},
			},
		),
		assemblyBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "vingest_upload_assembly_bytes",
				Help: "Distribution of assembled file sizes in bytes",
				Buckets: []float64{
					1048576,    // 1MiB - single chunk
					10485760,   // 10MiB
					52428800,   // 50MiB
					104857600,  // 100MiB
					262144000,  // 250MiB
					524288000,  // 500MiB
					1048576000, // 1000MiB - size limit
				},
			},
		),
		rejectedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_upload_rejected_total",
				Help: "Total number of requests rejected before any session change",
			},
			[]string{"reason"},
		),
		sessionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vingest_upload_sessions_total",
				Help: "Total number of session status transitions",
			},
			[]string{"status"},
		),
	}
}

func (m *uploadMetrics) ObserveInitialize(duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.initializeTotal.WithLabelValues(status).Inc()
	m.initializeDuration.Observe(duration.Seconds() * 1000)
}

func (m *uploadMetrics) ObserveChunk(bytes int64, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.chunksTotal.WithLabelValues(status).Inc()
	m.chunkDuration.Observe(duration.Seconds() * 1000)

	if err == nil && bytes > 0 {
		m.chunkBytes.Add(float64(bytes))
	}
}

func (m *uploadMetrics) ObserveAssembly(bytes int64, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.assemblyTotal.WithLabelValues(status).Inc()
	m.assemblyDuration.Observe(duration.Seconds() * 1000)

	if err == nil && bytes > 0 {
		m.assemblyBytes.Observe(float64(bytes))
	}
}

func (m *uploadMetrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *uploadMetrics) RecordSessionStatus(status string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(status).Inc()
}
