// Package catalog persists chunk and file records to the SQLite catalog
// through a bounded pool of dedicated connections.
//
// This file contains metrics-related types for observability of pool and
// statement activity.
package catalog

import (
	"time"
)

// PoolMetrics provides observability for catalog connection pool operations.
//
// Implementations can use this interface to collect metrics about connection
// churn, pool occupancy and statement latency. This is optional - if not
// provided, metrics collection is skipped.
type PoolMetrics interface {
	// RecordAcquire records a connection acquisition attempt
	RecordAcquire(err error)

	// RecordRelease records a connection release
	RecordRelease()

	// RecordReap records idle connections closed by the reaper
	RecordReap(count int)

	// SetPoolState records the current pool occupancy
	SetPoolState(inUse, idle int)

	// ObserveExec records a catalog statement execution
	ObserveExec(operation string, duration time.Duration, err error)
}
