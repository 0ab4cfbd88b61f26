package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/config"
	"github.com/vingest/vingest/pkg/edge"
	"github.com/vingest/vingest/pkg/metrics"
)

var (
	routerForeground bool
	routerPidFile    string
	routerLogFile    string
)

var routerCmd = &cobra.Command{
	Use:   "router",
	Short: "Start the edge router",
	Long: `Start the vingest edge router: a reverse proxy that spreads upload
traffic across the backend replicas listed in edge.backends.

The router health-checks every backend on its /health endpoint and only
routes to backends that pass. A backend is dropped after consecutive
failures and readmitted after consecutive successes.

By default, the router runs in the background (daemon mode). Use
--foreground to run in the foreground.

Examples:
  # Start the router in background (default)
  vingest router

  # Start in foreground with a custom config
  vingest router --foreground --config /etc/vingest/config.yaml`,
	RunE: runRouter,
}

func init() {
	routerCmd.Flags().BoolVarP(&routerForeground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	routerCmd.Flags().StringVar(&routerPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/vingest/vingest-router.pid)")
	routerCmd.Flags().StringVar(&routerLogFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/vingest/vingest-router.log)")
}

func runRouter(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !routerForeground {
		pidPath := routerPidFile
		if pidPath == "" {
			pidPath = GetDefaultRouterPidFile()
		}
		logPath := routerLogFile
		if logPath == "" {
			logPath = GetDefaultRouterLogFile()
		}
		return startDaemon("router", pidPath, logPath)
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("vingest router - Edge proxy for ingest replicas")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled")
	}

	if len(cfg.Edge.Backends) == 0 {
		return fmt.Errorf("no backends configured: set edge.backends in %s", getConfigSource(GetConfigFile()))
	}

	router, err := edge.NewServer(cfg.Edge, metrics.NewEdgeMetrics())
	if err != nil {
		return fmt.Errorf("failed to create edge router: %w", err)
	}

	// Write PID file if specified
	if routerPidFile != "" {
		if err := os.WriteFile(routerPidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(routerPidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- router.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Router is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Router shutdown error", "error", err)
			return err
		}
		logger.Info("Router stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Router error", "error", err)
			return err
		}
		logger.Info("Router stopped")
	}

	return nil
}
