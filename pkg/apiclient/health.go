package apiclient

import (
	"context"
	"time"
)

// ServiceInfo identifies the server behind a base URL. Edge routers
// answer here too, so it also tells you what you are talking to.
type ServiceInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// Health is the liveness report from GET /health.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// ServiceInfo fetches the service identification from the root endpoint.
func (c *Client) ServiceInfo(ctx context.Context) (*ServiceInfo, error) {
	var info ServiceInfo
	if err := c.getJSON(ctx, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Health fetches the liveness report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.getJSON(ctx, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}
