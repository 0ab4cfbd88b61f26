package edge

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrNoHealthyBackends is returned by Next when every backend has been
// ejected from the rotation.
var ErrNoHealthyBackends = errors.New("no healthy backends")

// Pool holds the fixed backend set and hands them out round-robin.
type Pool struct {
	backends []*Backend
	cursor   atomic.Uint64
}

// NewPool builds a pool from backend base URLs. At least one backend is
// required and every URL must validate.
func NewPool(rawURLs []string) (*Pool, error) {
	if len(rawURLs) == 0 {
		return nil, errors.New("edge: at least one backend is required")
	}

	backends := make([]*Backend, 0, len(rawURLs))
	for _, raw := range rawURLs {
		b, err := newBackend(raw)
		if err != nil {
			return nil, fmt.Errorf("edge: %w", err)
		}
		backends = append(backends, b)
	}

	return &Pool{backends: backends}, nil
}

// Next returns the next healthy backend in round-robin order. Unhealthy
// backends are skipped; if none remain, ErrNoHealthyBackends is returned.
func (p *Pool) Next() (*Backend, error) {
	for range p.backends {
		idx := p.cursor.Add(1) - 1
		b := p.backends[idx%uint64(len(p.backends))]
		if b.Healthy() {
			return b, nil
		}
	}
	return nil, ErrNoHealthyBackends
}

// Backends returns all backends in configuration order.
func (p *Pool) Backends() []*Backend {
	return p.backends
}

// HealthyCount returns how many backends are currently in rotation.
func (p *Pool) HealthyCount() int {
	count := 0
	for _, b := range p.backends {
		if b.Healthy() {
			count++
		}
	}
	return count
}
