package indexer

import "time"

// Config holds search indexer settings.
type Config struct {
	// Enabled turns lifecycle indexing on. When false, New returns a nil
	// client and every call is a no-op.
	Enabled bool

	// BaseURL is the search engine endpoint, e.g. "http://localhost:9200".
	BaseURL string

	// IndexPrefix is prepended to every lifecycle index name. Useful when
	// several deployments share one search cluster.
	IndexPrefix string

	// Timeout bounds a single indexing request.
	Timeout time.Duration
}

// DefaultConfig returns the default indexer configuration (disabled).
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		BaseURL: "http://localhost:9200",
		Timeout: 5 * time.Second,
	}
}
