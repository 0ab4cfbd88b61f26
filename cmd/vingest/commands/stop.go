package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopForce   bool
	stopRouter  bool
)

// errProcessDone signals that the target process had already exited
// before we sent it anything.
var errProcessDone = errors.New("process already done")

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running vingest process",
	Long: `Stop a running vingest server or router.

By default, sends SIGTERM for graceful shutdown. Use --force for immediate
termination with SIGKILL.

Examples:
  # Stop the ingest server (uses default PID file)
  vingest stop

  # Stop the edge router
  vingest stop --router

  # Stop using a custom PID file
  vingest stop --pid-file /var/run/vingest.pid

  # Force stop (SIGKILL)
  vingest stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/vingest/vingest.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Force kill (SIGKILL) instead of graceful shutdown (SIGTERM)")
	stopCmd.Flags().BoolVar(&stopRouter, "router", false, "Stop the edge router instead of the ingest server")
}

func runStop(cmd *cobra.Command, args []string) error {
	// Use default PID file if not specified
	pidPath := stopPidFile
	if pidPath == "" {
		if stopRouter {
			pidPath = GetDefaultRouterPidFile()
		} else {
			pidPath = GetDefaultPidFile()
		}
	}

	what, title := "server", "Server"
	if stopRouter {
		what, title = "router", "Router"
	}

	// Read PID file
	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PID file not found: %s\n\nIs the %s running?", pidPath, what)
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	// Parse PID
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return fmt.Errorf("invalid PID in file: %s", string(pidData))
	}

	// Find the process
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := stopProcess(process, pid, stopForce); err != nil {
		if errors.Is(err, errProcessDone) {
			fmt.Printf("%s already stopped\n", title)
			// Clean up PID file
			_ = os.Remove(pidPath)
			return nil
		}
		return err
	}

	if stopForce {
		fmt.Printf("%s terminated\n", title)
	} else {
		fmt.Printf("Shutdown signal sent. %s will stop gracefully.\n", title)
	}

	return nil
}
