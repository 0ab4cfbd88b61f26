// Package edge implements the health-checked reverse proxy that spreads
// upload traffic across vingest backends.
//
// This file contains metrics-related types for observability of proxy
// routing decisions.
package edge

import (
	"time"
)

// EdgeMetrics provides observability for edge router operations.
//
// Implementations can use this interface to collect metrics about proxied
// requests and backend health transitions. This is optional - if not
// provided, metrics collection is skipped.
type EdgeMetrics interface {
	// ObserveProxy records a proxied request and its upstream outcome
	ObserveProxy(backend string, status int, duration time.Duration)

	// RecordBackendHealth records a backend health transition
	RecordBackendHealth(backend string, healthy bool)

	// RecordNoHealthyBackends records a request dropped with no backend available
	RecordNoHealthyBackends()
}
