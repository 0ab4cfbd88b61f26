package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/cli/output"
	"github.com/vingest/vingest/internal/cli/timeutil"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
	statusRouter  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of a vingest server.

This command checks the server health by calling the health endpoint
and displays status, uptime, and store health information.

With --router, checks the edge router instead: a healthy router means
the router process is up and at least one backend passes health checks.

Examples:
  # Check server status (uses default settings)
  vingest status

  # Check the edge router
  vingest status --router

  # Check status with custom API port
  vingest status --api-port 5001

  # Output as JSON
  vingest status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/vingest/vingest.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 5000, "API server port (8000 with --router unless set)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
	statusCmd.Flags().BoolVar(&statusRouter, "router", false, "Check the edge router instead of the ingest server")
}

// healthResponse mirrors the body of GET /health.
type healthResponse struct {
	Status string `json:"status"`
	Data   struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
	} `json:"data"`
	Error string `json:"error"`
}

// storesResponse mirrors the body of GET /health/stores.
type storesResponse struct {
	Status string        `json:"status"`
	Data   []StoreStatus `json:"data"`
}

// StoreStatus is the reported health of one backend dependency.
type StoreStatus struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Status  string `json:"status" yaml:"status"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Latency string `json:"latency,omitempty" yaml:"latency,omitempty"`
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running   bool          `json:"running" yaml:"running"`
	PID       int           `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message   string        `json:"message" yaml:"message"`
	StartedAt string        `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string        `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Healthy   bool          `json:"healthy" yaml:"healthy"`
	Stores    []StoreStatus `json:"stores,omitempty" yaml:"stores,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	what := "Server"
	if statusRouter {
		what = "Router"
	}

	status := ServerStatus{
		Running: false,
		Healthy: false,
		Message: fmt.Sprintf("%s is not running", what),
	}

	// Use default PID file if not specified
	pidPath := statusPidFile
	if pidPath == "" {
		if statusRouter {
			pidPath = GetDefaultRouterPidFile()
		} else {
			pidPath = GetDefaultPidFile()
		}
	}

	port := statusAPIPort
	if statusRouter && !cmd.Flags().Changed("api-port") {
		port = 8000
	}

	// Check PID file first
	pidData, err := os.ReadFile(pidPath)
	if err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
		if err == nil {
			// Check if process is running
			process, err := os.FindProcess(pid)
			if err == nil {
				// On Unix, FindProcess always succeeds, we need to send signal 0 to check
				err = process.Signal(syscall.Signal(0))
				if err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	// Check health endpoint (works for both daemon and foreground mode).
	// Through the router this probes whatever backend it picks, so a 200
	// means the router is up and routing.
	healthURL := fmt.Sprintf("http://localhost:%d/health", port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(healthURL)
	if err == nil {
		defer func() { _ = resp.Body.Close() }()

		var health healthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err == nil && resp.StatusCode == http.StatusOK {
			status.Running = true
			status.Healthy = health.Status == "healthy"
			status.StartedAt = health.Data.StartedAt
			status.Uptime = health.Data.Uptime
			if status.Healthy {
				status.Message = fmt.Sprintf("%s is running and healthy", what)
			} else {
				status.Message = fmt.Sprintf("%s is running but unhealthy: %s", what, health.Error)
			}
		} else if statusRouter && resp.StatusCode == http.StatusBadGateway {
			status.Message = "Router is running but no healthy backends"
		} else {
			status.Running = true
			status.Message = fmt.Sprintf("%s is running but health response invalid", what)
		}
	} else if status.Running {
		// PID file says running but health check failed
		status.Message = fmt.Sprintf("%s process exists but health check failed", what)
	}

	// Per-store health, server mode only
	if !statusRouter && status.Running {
		if stores, err := fetchStoreHealth(client, port); err == nil {
			status.Stores = stores
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status, what)
	}

	return nil
}

func fetchStoreHealth(client *http.Client, port int) ([]StoreStatus, error) {
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health/stores", port))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var stores storesResponse
	if err := json.NewDecoder(resp.Body).Decode(&stores); err != nil {
		return nil, err
	}
	return stores.Data, nil
}

func printStatusTable(status ServerStatus, what string) {
	fmt.Println()
	fmt.Printf("vingest %s Status\n", what)
	fmt.Println("=====================")
	fmt.Println()

	if status.Running {
		if status.Healthy {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (unhealthy)\033[0m\n")
		}
		fmt.Printf("  PID:        %d\n", status.PID)
		if status.StartedAt != "" {
			fmt.Printf("  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	if len(status.Stores) > 0 {
		fmt.Println()
		fmt.Println("  Stores:")
		for _, s := range status.Stores {
			mark := "\033[32m●\033[0m"
			if s.Status != "healthy" {
				mark = "\033[31m●\033[0m"
			}
			line := fmt.Sprintf("    %s %-10s %-8s %s", mark, s.Name, s.Type, s.Latency)
			if s.Error != "" {
				line += fmt.Sprintf("  (%s)", s.Error)
			}
			fmt.Println(line)
		}
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
