package config

import (
	"strings"
	"testing"

	"github.com/vingest/vingest/internal/bytesize"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidServerPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 70000 // Out of range

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_NegativePort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Edge.Port = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for negative port")
	}
}

func TestValidate_MissingCatalogPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Catalog.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing catalog path")
	}
	// The error should mention Catalog.Path in some form
	errStr := strings.ToLower(err.Error())
	if !strings.Contains(errStr, "catalog") || !strings.Contains(errStr, "path") {
		t.Errorf("Expected error about catalog path, got: %v", err)
	}
}

func TestValidate_MissingUploadDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Upload.UploadDir = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing upload dir")
	}
}

func TestValidate_MaxFileSizeBelowChunkSize(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Upload.ChunkSize = 4 * bytesize.MiB
	cfg.Upload.MaxFileSize = 2 * bytesize.MiB

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for max_file_size below chunk_size")
	}
	if !strings.Contains(err.Error(), "max_file_size") {
		t.Errorf("Expected error about max_file_size, got: %v", err)
	}
}

func TestValidate_ZeroChunkSize(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Upload.ChunkSize = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for zero chunk size")
	}
}

func TestValidate_RedisBackendWithoutAddr(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.SessionStore.Backend = "redis"
	cfg.SessionStore.Redis.Addr = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for redis backend without addr")
	}
	if !strings.Contains(err.Error(), "redis.addr") {
		t.Errorf("Expected error about redis.addr, got: %v", err)
	}
}

func TestValidate_BadgerBackendWithoutDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.SessionStore.Backend = "badger"
	cfg.SessionStore.Badger.Dir = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for badger backend without dir")
	}
	if !strings.Contains(err.Error(), "badger.dir") {
		t.Errorf("Expected error about badger.dir, got: %v", err)
	}
}

func TestValidate_UnknownSessionBackend(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.SessionStore.Backend = "etcd"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown session store backend")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_S3BackendWithoutBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ChunkStore.Backend = "s3"
	cfg.ChunkStore.S3.Bucket = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for s3 backend without bucket")
	}
	if !strings.Contains(err.Error(), "s3.bucket") {
		t.Errorf("Expected error about s3.bucket, got: %v", err)
	}
}

func TestValidate_IndexerEnabledWithoutBaseURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Indexer.Enabled = true
	cfg.Indexer.BaseURL = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for indexer enabled without base_url")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("Expected error about base_url, got: %v", err)
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "telemetry") && !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("Expected error about telemetry endpoint, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	// Test that validation accepts both uppercase and lowercase log levels
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		err := Validate(cfg)
		if err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validation should NOT normalize - level should remain as-is
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}
}
