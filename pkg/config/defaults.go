package config

import (
	"strings"
	"time"

	"github.com/vingest/vingest/internal/bytesize"
	"github.com/vingest/vingest/pkg/api"
	"github.com/vingest/vingest/pkg/edge"
	"github.com/vingest/vingest/pkg/upload"
)

// DefaultDevToken is the bearer token GetDefaultConfig puts in the
// allowlist so a config-less development server accepts requests.
// Production deployments generate their own tokens with vingest init.
const DefaultDevToken = "dev-token"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyUploadDefaults(&cfg.Upload)
	applySessionStoreDefaults(&cfg.SessionStore)
	applyChunkStoreDefaults(&cfg.ChunkStore)
	applyCatalogDefaults(&cfg.Catalog)
	applyIndexerDefaults(&cfg.Indexer)
	applyMediaDefaults(&cfg.Media)
	applyEdgeDefaults(&cfg.Edge)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyServerDefaults sets ingest API server defaults. The values mirror
// what api.NewServer applies on its own, so a saved config and the
// running server agree.
func applyServerDefaults(cfg *api.Config) {
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

// applyUploadDefaults sets upload protocol defaults.
func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = bytesize.ByteSize(upload.ChunkSize)
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = bytesize.ByteSize(upload.MaxFileSize)
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4
	}
}

// applySessionStoreDefaults sets session store defaults.
//
// The default backend is memory: it keeps a config-less single replica
// working out of the box. Fleets must configure redis (or badger behind a
// single host) so replicas share session state.
func applySessionStoreDefaults(cfg *SessionStoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
}

// applyChunkStoreDefaults sets chunk store defaults.
func applyChunkStoreDefaults(cfg *ChunkStoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "fs"
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
}

// applyCatalogDefaults sets catalog database defaults.
func applyCatalogDefaults(cfg *CatalogConfig) {
	if cfg.Path == "" {
		cfg.Path = "catalog.db"
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 5
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// applyIndexerDefaults sets lifecycle indexer defaults.
func applyIndexerDefaults(cfg *IndexerConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:9200"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
}

// applyMediaDefaults sets media processing defaults.
func applyMediaDefaults(cfg *MediaConfig) {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.MaxDuration == 0 {
		cfg.MaxDuration = 3600
	}
}

// applyEdgeDefaults sets edge router defaults. The values mirror what
// edge.NewServer applies on its own.
func applyEdgeDefaults(cfg *edge.Config) {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.Health.Interval == 0 {
		cfg.Health.Interval = 10 * time.Second
	}
	if cfg.Health.Timeout == 0 {
		cfg.Health.Timeout = 5 * time.Second
	}
	if cfg.Health.UnhealthyThreshold == 0 {
		cfg.Health.UnhealthyThreshold = 3
	}
	if cfg.Health.HealthyThreshold == 0 {
		cfg.Health.HealthyThreshold = 2
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 2 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Running without a configuration file
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Auth: AuthConfig{
			Tokens: []string{DefaultDevToken},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
