package indexer

import "sync"

var (
	defaultMu   sync.Mutex
	defaultOnce sync.Once
	defaultCfg  = DefaultConfig()
	defaultC    *Client
)

// Init installs the configuration for the process-wide client and builds
// it. The client is built exactly once per process; whichever of Init or
// Default runs first wins, so call Init during startup before any handler
// can reach Default.
func Init(cfg Config) *Client {
	defaultMu.Lock()
	defaultCfg = cfg
	defaultMu.Unlock()
	return Default()
}

// Default returns the process-wide client, building it on first use. When
// Init was never called the build uses DefaultConfig, which is disabled,
// so the returned client is nil and indexing is a no-op.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		cfg := defaultCfg
		defaultMu.Unlock()
		defaultC = New(cfg)
	})
	return defaultC
}
