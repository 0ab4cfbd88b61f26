package metrics

import (
	"github.com/vingest/vingest/pkg/edge"
)

// NewEdgeMetrics creates a new Prometheus-backed EdgeMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the edge router,
// which results in zero overhead.
func NewEdgeMetrics() edge.EdgeMetrics {
	if !IsEnabled() {
		return nil
	}

	return newPrometheusEdgeMetrics()
}

// newPrometheusEdgeMetrics is implemented in pkg/metrics/prometheus/edge.go
// This indirection avoids import cycles while keeping the API clean
var newPrometheusEdgeMetrics func() edge.EdgeMetrics

// RegisterEdgeMetricsConstructor registers the Prometheus edge metrics
// constructor. Called by pkg/metrics/prometheus/edge.go during package
// initialization.
func RegisterEdgeMetricsConstructor(constructor func() edge.EdgeMetrics) {
	newPrometheusEdgeMetrics = constructor
}
