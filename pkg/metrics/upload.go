package metrics

import (
	"github.com/vingest/vingest/pkg/upload"
)

// NewUploadMetrics creates a new Prometheus-backed UploadMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the upload coordinator,
// which results in zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	uploadMetrics := metrics.NewUploadMetrics()
//	coord := upload.NewCoordinator(cfg, store, ..., uploadMetrics)
//
//	// Without metrics (zero overhead)
//	coord := upload.NewCoordinator(cfg, store, ..., nil)
func NewUploadMetrics() upload.UploadMetrics {
	if !IsEnabled() {
		return nil
	}

	return newPrometheusUploadMetrics()
}

// newPrometheusUploadMetrics is implemented in pkg/metrics/prometheus/upload.go
// This indirection avoids import cycles while keeping the API clean
var newPrometheusUploadMetrics func() upload.UploadMetrics

// RegisterUploadMetricsConstructor registers the Prometheus upload metrics
// constructor. Called by pkg/metrics/prometheus/upload.go during package
// initialization.
func RegisterUploadMetricsConstructor(constructor func() upload.UploadMetrics) {
	newPrometheusUploadMetrics = constructor
}
