package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/internal/telemetry"
	"github.com/vingest/vingest/pkg/api"
	"github.com/vingest/vingest/pkg/api/handlers"
	"github.com/vingest/vingest/pkg/config"
	"github.com/vingest/vingest/pkg/metrics"
	"github.com/vingest/vingest/pkg/upload"

	// Import prometheus metrics to register init() functions
	_ "github.com/vingest/vingest/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an ingest replica",
	Long: `Start a vingest ingest replica with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Replicas sharing a session store backend (redis or badger on a shared
volume) form a fleet: any replica accepts any chunk of any upload. Put
'vingest router' in front to spread traffic across them.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/vingest/config.yaml.

Examples:
  # Start in background (default)
  vingest start

  # Start in foreground
  vingest start --foreground

  # Start with custom config file
  vingest start --config /etc/vingest/config.yaml

  # Start with environment variable overrides
  VINGEST_LOGGING_LEVEL=DEBUG vingest start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/vingest/vingest.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/vingest/vingest.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		pidPath := pidFile
		if pidPath == "" {
			pidPath = GetDefaultPidFile()
		}
		logPath := logFile
		if logPath == "" {
			logPath = GetDefaultLogFile()
		}
		return startDaemon("start", pidPath, logPath)
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "vingest",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "vingest",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("vingest - Resumable chunked video ingest")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics (if enabled)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "endpoint", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Shared session store: every replica of the fleet must point at the
	// same backend for chunk coordination to work.
	sessionStore, err := config.CreateSessionStore(ctx, cfg.SessionStore)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer func() { _ = sessionStore.Close() }()
	logger.Info("Session store ready", "backend", cfg.SessionStore.Backend, "ttl", cfg.SessionStore.TTL)

	chunkStore, err := config.CreateChunkStore(ctx, cfg.ChunkStore, cfg.Upload.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to initialize chunk store: %w", err)
	}
	defer func() { _ = chunkStore.Close() }()
	logger.Info("Chunk store ready", "backend", cfg.ChunkStore.Backend, "upload_dir", cfg.Upload.UploadDir)

	cat, err := config.CreateCatalog(cfg.Catalog, metrics.NewPoolMetrics())
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()
	logger.Info("Catalog ready", "path", cfg.Catalog.Path, "pool_size", cfg.Catalog.MaxConnections)

	idx := config.CreateIndexer(cfg.Indexer)
	if idx != nil {
		logger.Info("Search indexer enabled", "base_url", cfg.Indexer.BaseURL)
	} else {
		logger.Info("Search indexer disabled")
	}

	processor, err := config.CreateMediaProcessor(cfg.Media, cfg.Upload.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to initialize media processor: %w", err)
	}
	if processor != nil {
		logger.Info("Media processing enabled", "ffmpeg", cfg.Media.FFmpegPath)
	} else {
		logger.Info("Media processing disabled")
	}

	coordinator, err := upload.New(config.CoordinatorConfig(cfg.Upload), upload.Deps{
		Sessions: sessionStore,
		Chunks:   chunkStore,
		Catalog:  cat,
		Indexer:  idx,
		Metrics:  metrics.NewUploadMetrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create upload coordinator: %w", err)
	}

	apiServer := api.NewServer(cfg.Server, api.Deps{
		Coordinator: coordinator,
		Media:       processor,
		Tokens:      cfg.Auth.Tokens,
		ChunkSize:   int64(cfg.Upload.ChunkSize),
		Version:     Version,
		Checks: []handlers.Check{
			{Name: "sessions", Type: cfg.SessionStore.Backend, Checker: sessionStore},
			{Name: "chunks", Type: cfg.ChunkStore.Backend, Checker: chunkStore},
			{Name: "catalog", Type: "sqlite", Checker: cat},
		},
	})

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
