// Package upload coordinates chunked upload sessions from initialization
// through chunk ingest to final assembly.
//
// This file contains metrics-related types for observability of upload
// operations.
package upload

import (
	"time"
)

// UploadMetrics provides observability for upload coordinator operations.
//
// Implementations can use this interface to collect metrics about session
// lifecycle, chunk throughput and assembly latency. This is optional - if
// not provided, metrics collection is skipped.
//
// Example implementations:
//   - Prometheus metrics
//   - In-memory counters for testing
type UploadMetrics interface {
	// ObserveInitialize records a session initialization
	ObserveInitialize(duration time.Duration, err error)

	// ObserveChunk records a chunk ingest operation
	ObserveChunk(bytes int64, duration time.Duration, err error)

	// ObserveAssembly records a file assembly operation
	ObserveAssembly(bytes int64, duration time.Duration, err error)

	// RecordRejected records a request rejected before any session change
	RecordRejected(reason string)

	// RecordSessionStatus records a session status transition
	RecordSessionStatus(status string)
}
