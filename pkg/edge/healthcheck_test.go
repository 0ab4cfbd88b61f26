package edge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckerEjectsAndRestores(t *testing.T) {
	var up atomic.Bool
	up.Store(true)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if up.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(backend.Close)

	pool, err := NewPool([]string{backend.URL})
	require.NoError(t, err)
	b := pool.Backends()[0]

	rec := &recordingEdgeMetrics{}
	hc := NewHealthChecker(pool, HealthConfig{UnhealthyThreshold: 3, HealthyThreshold: 2}, rec)
	ctx := t.Context()

	// Passing probes keep the backend in rotation.
	hc.CheckAll(ctx)
	hc.CheckAll(ctx)
	assert.True(t, b.Healthy())

	up.Store(false)
	hc.CheckAll(ctx)
	hc.CheckAll(ctx)
	assert.True(t, b.Healthy(), "two failures stay under the threshold")
	hc.CheckAll(ctx)
	assert.False(t, b.Healthy(), "third consecutive failure ejects")

	up.Store(true)
	hc.CheckAll(ctx)
	assert.False(t, b.Healthy(), "one success is not enough to restore")
	hc.CheckAll(ctx)
	assert.True(t, b.Healthy(), "second consecutive success restores")

	assert.Equal(t, []string{"down", "up"}, rec.healthTransitions())
}

func TestHealthCheckerTreats4xxAsPassed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(backend.Close)

	pool, err := NewPool([]string{backend.URL})
	require.NoError(t, err)

	hc := NewHealthChecker(pool, HealthConfig{UnhealthyThreshold: 1, HealthyThreshold: 1}, nil)
	hc.CheckAll(t.Context())

	assert.True(t, pool.Backends()[0].Healthy())
}

func TestHealthCheckerTransportFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := backend.URL
	backend.Close()

	pool, err := NewPool([]string{deadURL})
	require.NoError(t, err)

	hc := NewHealthChecker(pool, HealthConfig{UnhealthyThreshold: 1, HealthyThreshold: 1}, nil)
	hc.CheckAll(t.Context())

	assert.False(t, pool.Backends()[0].Healthy())
}

func TestHealthCheckerProbesEveryBackend(t *testing.T) {
	var hits [2]atomic.Int32
	servers := make([]*httptest.Server, 2)
	urls := make([]string, 2)
	for i := range servers {
		servers[i] = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits[i].Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(servers[i].Close)
		urls[i] = servers[i].URL
	}

	pool, err := NewPool(urls)
	require.NoError(t, err)

	hc := NewHealthChecker(pool, HealthConfig{}, nil)
	hc.CheckAll(t.Context())

	assert.Equal(t, int32(1), hits[0].Load())
	assert.Equal(t, int32(1), hits[1].Load())
}

func TestHealthCheckerRunStopsOnCancel(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(backend.Close)

	pool, err := NewPool([]string{backend.URL})
	require.NoError(t, err)

	hc := NewHealthChecker(pool, HealthConfig{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hc.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("health checker did not stop after cancellation")
	}
	assert.True(t, pool.Backends()[0].Healthy())
}
