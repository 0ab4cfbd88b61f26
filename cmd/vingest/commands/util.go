package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// GetDefaultStateDir returns the default state directory path.
func GetDefaultStateDir() string {
	if runtime.GOOS == "windows" {
		// On Windows, use %LOCALAPPDATA%\vingest
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, "vingest")
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "vingest")
		}
		return filepath.Join(homeDir, "AppData", "Local", "vingest")
	}

	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "vingest")
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "vingest")
}

// GetDefaultPidFile returns the default PID file path for the ingest server.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "vingest.pid")
}

// GetDefaultRouterPidFile returns the default PID file path for the edge router.
func GetDefaultRouterPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "vingest-router.pid")
}

// GetDefaultLogFile returns the default log file path for daemon mode.
func GetDefaultLogFile() string {
	return filepath.Join(GetDefaultStateDir(), "vingest.log")
}

// GetDefaultRouterLogFile returns the default router log file path for daemon mode.
func GetDefaultRouterLogFile() string {
	return filepath.Join(GetDefaultStateDir(), "vingest-router.log")
}
