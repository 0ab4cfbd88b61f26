package metrics

import (
	"github.com/vingest/vingest/pkg/catalog"
)

// NewPoolMetrics creates a new Prometheus-backed PoolMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the catalog writer,
// which results in zero overhead.
func NewPoolMetrics() catalog.PoolMetrics {
	if !IsEnabled() {
		return nil
	}

	return newPrometheusPoolMetrics()
}

// newPrometheusPoolMetrics is implemented in pkg/metrics/prometheus/pool.go
// This indirection avoids import cycles while keeping the API clean
var newPrometheusPoolMetrics func() catalog.PoolMetrics

// RegisterPoolMetricsConstructor registers the Prometheus pool metrics
// constructor. Called by pkg/metrics/prometheus/pool.go during package
// initialization.
func RegisterPoolMetricsConstructor(constructor func() catalog.PoolMetrics) {
	newPrometheusPoolMetrics = constructor
}
