package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthCheckTimeout is the maximum time allowed for dependency health
// checks, so a slow backend cannot block health probes indefinitely.
const HealthCheckTimeout = 5 * time.Second

// HealthChecker is anything that can report backend reachability. The
// session store, chunk store and catalog all satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check names one dependency to probe.
type Check struct {
	Name    string
	Type    string
	Checker HealthChecker
}

// HealthResponse is the body of health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func healthyResponse(data any) HealthResponse {
	return HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func unhealthyResponseWithData(data any) HealthResponse {
	return HealthResponse{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// HealthHandler handles the unauthenticated info and health endpoints.
//
// GET / is the target of the edge router's health checks and answers with
// basic service info. GET /health is a liveness probe. GET /health/stores
// probes every registered dependency.
type HealthHandler struct {
	service   string
	version   string
	checks    []Check
	startTime time.Time
}

// NewHealthHandler creates a health handler probing the given dependencies.
func NewHealthHandler(service, version string, checks ...Check) *HealthHandler {
	return &HealthHandler{
		service:   service,
		version:   version,
		checks:    checks,
		startTime: time.Now(),
	}
}

// Root handles GET / with service identification.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, map[string]any{
		"service": h.service,
		"version": h.version,
		"status":  "ok",
	})
}

// Liveness handles GET /health.
//
// Always 200 while the process serves requests; dependency failures are
// reported by Stores, not here.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSONOK(w, healthyResponse(map[string]any{
		"service":    h.service,
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
	}))
}

// StoreHealth is the health status of a single dependency.
type StoreHealth struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Stores handles GET /health/stores with per-dependency health.
//
// Returns 200 when every dependency is reachable, 503 otherwise.
func (h *HealthHandler) Stores(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	results := make([]StoreHealth, 0, len(h.checks))
	allHealthy := true

	for _, check := range h.checks {
		health := StoreHealth{
			Name: check.Name,
			Type: check.Type,
		}

		start := time.Now()
		err := check.Checker.HealthCheck(ctx)
		health.Latency = time.Since(start).String()

		if err != nil {
			health.Status = "unhealthy"
			health.Error = err.Error()
			allHealthy = false
		} else {
			health.Status = "healthy"
		}

		results = append(results, health)
	}

	if allHealthy {
		WriteJSON(w, http.StatusOK, healthyResponse(results))
		return
	}
	WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(results))
}
