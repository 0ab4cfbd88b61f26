package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vingest/vingest/internal/bytesize"
	"github.com/vingest/vingest/pkg/api"
	"github.com/vingest/vingest/pkg/edge"
)

// Config represents the vingest configuration.
//
// This structure captures all static configuration of an ingest replica
// and of the edge router:
//   - Logging configuration
//   - Telemetry/tracing configuration
//   - Ingest API server settings
//   - Bearer token allowlist
//   - Upload protocol settings (directory, chunk size, limits, workers)
//   - Session store (the shared coordination state)
//   - Chunk store (filesystem or S3 staging and publish)
//   - Catalog database (SQLite audit record)
//   - Search indexer (lifecycle documents)
//   - Media processing (ffmpeg trim and join)
//   - Edge router (backends and health checking)
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (VINGEST_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server configures the ingest HTTP server
	Server api.Config `mapstructure:"server" yaml:"server"`

	// Auth holds the bearer token allowlist for the /api surface
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Upload configures the chunked upload protocol
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`

	// SessionStore selects and configures the shared session store.
	// Every replica of a fleet must point at the same store.
	SessionStore SessionStoreConfig `mapstructure:"session_store" yaml:"session_store"`

	// ChunkStore selects where chunk blobs are staged and artifacts
	// published
	ChunkStore ChunkStoreConfig `mapstructure:"chunk_store" yaml:"chunk_store"`

	// Catalog configures the SQLite catalog database
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`

	// Indexer configures lifecycle indexing into the search engine
	Indexer IndexerConfig `mapstructure:"indexer" yaml:"indexer"`

	// Media configures ffmpeg-backed video trim and join
	Media MediaConfig `mapstructure:"media" yaml:"media"`

	// Edge configures the edge router process (vingest router)
	Edge edge.Config `mapstructure:"edge" yaml:"edge"`

	// Metrics controls Prometheus metrics exposition
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040" (standard Pyroscope port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// AuthConfig holds the bearer token allowlist.
type AuthConfig struct {
	// Tokens lists the accepted bearer tokens. Every request under /api
	// must carry one of these in its Authorization header. An empty list
	// rejects every request.
	Tokens []string `mapstructure:"tokens" yaml:"tokens"`
}

// UploadConfig configures the chunked upload protocol.
type UploadConfig struct {
	// UploadDir is the directory chunks are staged in and artifacts are
	// published to. With the fs chunk store backend, every replica of a
	// fleet must mount the same directory.
	// Default: "uploads"
	UploadDir string `mapstructure:"upload_dir" validate:"required" yaml:"upload_dir"`

	// ChunkSize is the protocol chunk size. Every chunk except the last
	// must be exactly this size.
	// Supports human-readable formats: "1Mi", "512Ki"
	// Default: 1Mi
	ChunkSize bytesize.ByteSize `mapstructure:"chunk_size" yaml:"chunk_size,omitempty"`

	// MaxFileSize is the largest accepted file.
	// Default: 1000Mi
	MaxFileSize bytesize.ByteSize `mapstructure:"max_file_size" yaml:"max_file_size,omitempty"`

	// MaxWorkers caps concurrent chunk persistence per replica.
	// Default: 4
	MaxWorkers int `mapstructure:"max_workers" validate:"omitempty,min=1" yaml:"max_workers"`
}

// SessionStoreConfig selects and configures the session store backend.
type SessionStoreConfig struct {
	// Backend is one of redis, badger or memory. Redis is the choice for
	// multi-replica fleets; badger persists sessions on a single host;
	// memory is for development and tests.
	// Default: memory
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=redis badger memory" yaml:"backend"`

	// TTL bounds how long an abandoned session survives. Every mutation
	// slides the expiry. Zero disables expiry.
	// Default: 24h
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// Redis configures the redis backend
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`

	// Badger configures the badger backend
	Badger BadgerConfig `mapstructure:"badger" yaml:"badger"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	// Default: "localhost:6379"
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Password authenticates the connection; empty for none.
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// DB is the logical database number.
	DB int `mapstructure:"db" yaml:"db"`

	// PoolSize caps the client connection pool. Zero uses the client
	// default.
	PoolSize int `mapstructure:"pool_size" validate:"omitempty,min=1" yaml:"pool_size,omitempty"`

	// DialTimeout bounds connection establishment. Zero uses the client
	// default.
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout,omitempty"`
}

// BadgerConfig configures the embedded Badger session store.
type BadgerConfig struct {
	// Dir is the database directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ChunkStoreConfig selects the chunk store backend.
type ChunkStoreConfig struct {
	// Backend is "fs" or "s3". The fs backend stages under the upload
	// directory; the s3 backend needs no shared volume and is the way to
	// run a multi-host fleet.
	// Default: fs
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=fs s3" yaml:"backend"`

	// S3 configures the s3 backend
	S3 S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config holds settings for the s3 chunk store backend.
type S3Config struct {
	// Bucket is the bucket name (required for the s3 backend)
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Prefix is prepended to every object key
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`

	// Region is the AWS region
	// Default: "us-east-1"
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint (for MinIO or localstack).
	// Setting it switches the client to path-style addressing.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey are static credentials. Empty values
	// fall back to the default AWS credential chain.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// UsePathStyle forces path-style addressing
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style,omitempty"`
}

// CatalogConfig configures the SQLite catalog database.
type CatalogConfig struct {
	// Path is the SQLite database file.
	// Default: "catalog.db"
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// MaxConnections caps the catalog connection pool.
	// Default: 5
	MaxConnections int `mapstructure:"max_connections" validate:"omitempty,min=1" yaml:"max_connections"`

	// IdleTimeout reaps pool connections unused for this long.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IndexerConfig configures lifecycle indexing.
type IndexerConfig struct {
	// Enabled turns lifecycle indexing on.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BaseURL is the search engine endpoint.
	// Default: "http://localhost:9200"
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// IndexPrefix is prepended to every lifecycle index name.
	IndexPrefix string `mapstructure:"index_prefix" yaml:"index_prefix,omitempty"`

	// Timeout bounds a single indexing request.
	// Default: 5s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MediaConfig configures ffmpeg-backed video processing.
type MediaConfig struct {
	// Enabled turns the /api/video endpoints on. When false they answer
	// 503.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// FFmpegPath is the ffmpeg binary.
	// Default: "ffmpeg" from PATH
	FFmpegPath string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`

	// FFprobePath is the ffprobe binary.
	// Default: "ffprobe" from PATH
	FFprobePath string `mapstructure:"ffprobe_path" yaml:"ffprobe_path"`

	// MaxDuration caps the trim duration in seconds.
	// Default: 3600
	MaxDuration int `mapstructure:"max_duration" validate:"omitempty,min=1" yaml:"max_duration"`
}

// MetricsConfig controls Prometheus metrics exposition.
// When Enabled is false, no metrics are collected (zero overhead) and
// /metrics answers 404.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (VINGEST_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: User-friendly error with instructions if config not found
func MustLoad(configPath string) (*Config, error) {
	// Determine config path
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  vingest init\n\n"+
				"Or specify a custom config file:\n"+
				"  vingest <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  vingest init --config %s",
				configPath, configPath)
		}
	}

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with restricted permissions; the file carries bearer tokens
	// and possibly S3 credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use VINGEST_ prefix and underscores
	// Example: VINGEST_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("VINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/vingest/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Other errors are problems
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize. This enables config files to use
// human-readable sizes like "1Mi", "500Mi", "100MB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to ByteSize
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse human-readable string like "1Gi", "500Mi", "100MB"
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vingest")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "vingest")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
