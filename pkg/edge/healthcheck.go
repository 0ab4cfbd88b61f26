package edge

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vingest/vingest/internal/logger"
)

// HealthChecker actively probes every backend and moves it in and out of
// the rotation by consecutive-result thresholds.
type HealthChecker struct {
	pool      *Pool
	client    *http.Client
	interval  time.Duration
	unhealthy int
	healthy   int
	metrics   EdgeMetrics
}

// NewHealthChecker creates a checker for the pool. em may be nil.
func NewHealthChecker(pool *Pool, cfg HealthConfig, em EdgeMetrics) *HealthChecker {
	cfg.applyDefaults()

	return &HealthChecker{
		pool:      pool,
		client:    &http.Client{Timeout: cfg.Timeout},
		interval:  cfg.Interval,
		unhealthy: cfg.UnhealthyThreshold,
		healthy:   cfg.HealthyThreshold,
		metrics:   em,
	}
}

// Run probes all backends until the context is cancelled. The first round
// runs immediately rather than one interval in.
func (hc *HealthChecker) Run(ctx context.Context) {
	logger.Debug("Health checker started",
		"backends", len(hc.pool.Backends()),
		"interval", hc.interval.String(),
	)

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	hc.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Health checker stopped")
			return
		case <-ticker.C:
			hc.CheckAll(ctx)
		}
	}
}

// CheckAll runs one probe round over every backend.
func (hc *HealthChecker) CheckAll(ctx context.Context) {
	for _, b := range hc.pool.Backends() {
		hc.check(ctx, b)
	}
}

func (hc *HealthChecker) check(ctx context.Context, b *Backend) {
	if hc.probe(ctx, b) {
		if b.recordSuccess(hc.healthy) {
			logger.Info("Backend restored to rotation", logger.Backend(b.Name()))
			if hc.metrics != nil {
				hc.metrics.RecordBackendHealth(b.Name(), true)
			}
		}
		return
	}

	if b.recordFailure(hc.unhealthy) {
		logger.Warn("Backend removed from rotation",
			logger.Backend(b.Name()),
			"consecutive_failures", hc.unhealthy,
		)
		if hc.metrics != nil {
			hc.metrics.RecordBackendHealth(b.Name(), false)
		}
	}
}

// probe issues one GET / against the backend. Any status in [200, 499]
// counts as passed: the replica is up even if it rejects the probe
// request itself. 5xx and transport errors count as failed.
func (hc *HealthChecker) probe(ctx context.Context, b *Backend) bool {
	target := url.URL{Scheme: b.url.Scheme, Host: b.url.Host, Path: "/"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return false
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		logger.Debug("Health probe failed", logger.Backend(b.Name()), logger.Err(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusInternalServerError
}
