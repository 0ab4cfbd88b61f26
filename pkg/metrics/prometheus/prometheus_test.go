package prometheus_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vingest/vingest/pkg/metrics"
	_ "github.com/vingest/vingest/pkg/metrics/prometheus"
)

// Collectors register against the process-global registry, so each factory
// is exercised exactly once in this test binary.
func TestPrometheusCollectors(t *testing.T) {
	metrics.InitRegistry()

	um := metrics.NewUploadMetrics()
	require.NotNil(t, um)
	um.ObserveInitialize(5*time.Millisecond, nil)
	um.ObserveChunk(1<<20, 12*time.Millisecond, nil)
	um.ObserveChunk(0, time.Millisecond, errors.New("session not found"))
	um.ObserveAssembly(5<<20, 300*time.Millisecond, nil)
	um.RecordRejected("invalid_chunk_index")
	um.RecordSessionStatus("completed")

	pm := metrics.NewPoolMetrics()
	require.NotNil(t, pm)
	pm.RecordAcquire(nil)
	pm.RecordAcquire(errors.New("no available connections"))
	pm.RecordRelease()
	pm.RecordReap(2)
	pm.SetPoolState(1, 3)
	pm.ObserveExec("upsert_chunk", 3*time.Millisecond, nil)

	em := metrics.NewEdgeMetrics()
	require.NotNil(t, em)
	em.ObserveProxy("http://127.0.0.1:8080", 201, 40*time.Millisecond)
	em.RecordBackendHealth("http://127.0.0.1:8080", true)
	em.RecordNoHealthyBackends()

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"vingest_upload_chunks_total",
		"vingest_upload_assembly_bytes",
		"vingest_upload_rejected_total",
		"vingest_catalog_pool_acquires_total",
		"vingest_catalog_exec_duration_milliseconds",
		"vingest_edge_proxy_requests_total",
		"vingest_edge_backend_healthy",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}
