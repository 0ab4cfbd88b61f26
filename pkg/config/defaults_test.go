package config

import (
	"testing"
	"time"

	"github.com/vingest/vingest/internal/bytesize"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Port != 5000 {
		t.Errorf("Expected default server port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("Expected default read timeout 60s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 10*time.Minute {
		t.Errorf("Expected default write timeout 10m, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.Server.IdleTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_Upload(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Upload.UploadDir != "uploads" {
		t.Errorf("Expected default upload dir 'uploads', got %q", cfg.Upload.UploadDir)
	}
	if cfg.Upload.ChunkSize != bytesize.MiB {
		t.Errorf("Expected default chunk size 1Mi, got %v", cfg.Upload.ChunkSize)
	}
	if cfg.Upload.MaxFileSize != 1000*bytesize.MiB {
		t.Errorf("Expected default max file size 1000Mi, got %v", cfg.Upload.MaxFileSize)
	}
	if cfg.Upload.MaxWorkers != 4 {
		t.Errorf("Expected default max workers 4, got %d", cfg.Upload.MaxWorkers)
	}
}

func TestApplyDefaults_Stores(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.SessionStore.Backend != "memory" {
		t.Errorf("Expected default session store backend 'memory', got %q", cfg.SessionStore.Backend)
	}
	if cfg.SessionStore.TTL != 24*time.Hour {
		t.Errorf("Expected default session TTL 24h, got %v", cfg.SessionStore.TTL)
	}
	if cfg.SessionStore.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected default redis addr 'localhost:6379', got %q", cfg.SessionStore.Redis.Addr)
	}
	if cfg.ChunkStore.Backend != "fs" {
		t.Errorf("Expected default chunk store backend 'fs', got %q", cfg.ChunkStore.Backend)
	}
	if cfg.ChunkStore.S3.Region != "us-east-1" {
		t.Errorf("Expected default S3 region 'us-east-1', got %q", cfg.ChunkStore.S3.Region)
	}
	if cfg.Catalog.Path != "catalog.db" {
		t.Errorf("Expected default catalog path 'catalog.db', got %q", cfg.Catalog.Path)
	}
	if cfg.Catalog.MaxConnections != 5 {
		t.Errorf("Expected default catalog pool of 5, got %d", cfg.Catalog.MaxConnections)
	}
	if cfg.Catalog.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default catalog idle timeout 60s, got %v", cfg.Catalog.IdleTimeout)
	}
}

func TestApplyDefaults_Edge(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Edge.Port != 8000 {
		t.Errorf("Expected default edge port 8000, got %d", cfg.Edge.Port)
	}
	if cfg.Edge.Health.Interval != 10*time.Second {
		t.Errorf("Expected default health interval 10s, got %v", cfg.Edge.Health.Interval)
	}
	if cfg.Edge.Health.UnhealthyThreshold != 3 {
		t.Errorf("Expected default unhealthy threshold 3, got %d", cfg.Edge.Health.UnhealthyThreshold)
	}
	if cfg.Edge.Health.HealthyThreshold != 2 {
		t.Errorf("Expected default healthy threshold 2, got %d", cfg.Edge.Health.HealthyThreshold)
	}
	if cfg.Edge.RequestTimeout != 5*time.Minute {
		t.Errorf("Expected default edge request timeout 5m, got %v", cfg.Edge.RequestTimeout)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/vingest.log",
		},
		Upload: UploadConfig{
			UploadDir:  "/srv/uploads",
			ChunkSize:  512 * bytesize.KiB,
			MaxWorkers: 16,
		},
		SessionStore: SessionStoreConfig{
			Backend: "redis",
			TTL:     time.Hour,
		},
	}

	ApplyDefaults(cfg)

	// Verify explicit values were preserved
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/vingest.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Upload.UploadDir != "/srv/uploads" {
		t.Errorf("Expected explicit upload dir to be preserved, got %q", cfg.Upload.UploadDir)
	}
	if cfg.Upload.ChunkSize != 512*bytesize.KiB {
		t.Errorf("Expected explicit chunk size to be preserved, got %v", cfg.Upload.ChunkSize)
	}
	if cfg.Upload.MaxWorkers != 16 {
		t.Errorf("Expected explicit max workers to be preserved, got %d", cfg.Upload.MaxWorkers)
	}
	if cfg.SessionStore.Backend != "redis" {
		t.Errorf("Expected explicit backend 'redis' to be preserved, got %q", cfg.SessionStore.Backend)
	}
	if cfg.SessionStore.TTL != time.Hour {
		t.Errorf("Expected explicit TTL 1h to be preserved, got %v", cfg.SessionStore.TTL)
	}
}

func TestApplyDefaults_NormalizesLogLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	// The default config should pass validation
	err := Validate(cfg)
	if err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Server.Port == 0 {
		t.Error("Default config missing server port")
	}
	if cfg.Upload.UploadDir == "" {
		t.Error("Default config missing upload dir")
	}
	if cfg.Catalog.Path == "" {
		t.Error("Default config missing catalog path")
	}
	if len(cfg.Auth.Tokens) == 0 {
		t.Error("Default config missing the dev token")
	}
}
