package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for structural and cross-field
// problems. It does not normalize values; ApplyDefaults does that before
// validation runs.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}

	return validateCrossField(cfg)
}

// validateCrossField covers the constraints struct tags cannot express:
// requirements that only apply when a subsystem is enabled, and
// relationships between fields.
func validateCrossField(cfg *Config) error {
	if cfg.Upload.ChunkSize == 0 {
		return fmt.Errorf("upload: chunk_size must be greater than zero")
	}
	if cfg.Upload.MaxFileSize < cfg.Upload.ChunkSize {
		return fmt.Errorf("upload: max_file_size (%s) must be at least one chunk_size (%s)",
			cfg.Upload.MaxFileSize, cfg.Upload.ChunkSize)
	}

	switch cfg.SessionStore.Backend {
	case "redis":
		if cfg.SessionStore.Redis.Addr == "" {
			return fmt.Errorf("session_store: redis backend requires redis.addr")
		}
	case "badger":
		if cfg.SessionStore.Badger.Dir == "" {
			return fmt.Errorf("session_store: badger backend requires badger.dir")
		}
	}

	if cfg.ChunkStore.Backend == "s3" && cfg.ChunkStore.S3.Bucket == "" {
		return fmt.Errorf("chunk_store: s3 backend requires s3.bucket")
	}

	if cfg.Indexer.Enabled && cfg.Indexer.BaseURL == "" {
		return fmt.Errorf("indexer: enabled but base_url is empty")
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry: enabled but endpoint is empty")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry: profiling enabled but profiling.endpoint is empty")
	}

	return nil
}
