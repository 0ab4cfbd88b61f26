package edge

import (
	"fmt"
	"net/url"
	"sync/atomic"
)

// Backend is one ingest replica behind the router.
//
// Health state is read by every request goroutine through Healthy, while
// the consecutive-result counters are only touched by the health checker
// goroutine.
type Backend struct {
	url *url.URL

	healthy   atomic.Bool
	failures  atomic.Int32
	successes atomic.Int32
}

// newBackend parses and validates a backend base URL. Backends start out
// healthy so traffic flows before the first probe round completes.
func newBackend(raw string) (*Backend, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend URL %q has no host", raw)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("backend URL %q must carry scheme and host only", raw)
	}
	u.Path = ""

	b := &Backend{url: u}
	b.healthy.Store(true)
	return b, nil
}

// URL returns the backend base URL.
func (b *Backend) URL() *url.URL {
	return b.url
}

// Name returns the backend host:port, used in logs and metric labels.
func (b *Backend) Name() string {
	return b.url.Host
}

// Healthy reports whether the backend is in rotation.
func (b *Backend) Healthy() bool {
	return b.healthy.Load()
}

// recordSuccess counts one passed probe and reports whether the backend
// just rejoined the rotation. A success resets any failure streak.
func (b *Backend) recordSuccess(threshold int) bool {
	b.failures.Store(0)
	if b.healthy.Load() {
		return false
	}
	if int(b.successes.Add(1)) >= threshold {
		b.successes.Store(0)
		b.healthy.Store(true)
		return true
	}
	return false
}

// recordFailure counts one failed probe and reports whether the backend
// just left the rotation. A failure resets any recovery streak.
func (b *Backend) recordFailure(threshold int) bool {
	b.successes.Store(0)
	if !b.healthy.Load() {
		return false
	}
	if int(b.failures.Add(1)) >= threshold {
		b.failures.Store(0)
		b.healthy.Store(false)
		return true
	}
	return false
}
