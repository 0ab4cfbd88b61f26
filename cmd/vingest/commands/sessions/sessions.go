// Package sessions implements upload session inspection commands.
package sessions

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/pkg/config"
	"github.com/vingest/vingest/pkg/session/store"
)

// Cmd is the parent command for session management.
var Cmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and clean up upload sessions",
	Long: `Inspect and clean up upload sessions in the session store.

These commands talk to the session store directly, so they work against
whatever backend the configuration names. Note that with the memory
backend sessions live inside the server process and none are visible
here; use redis (or badger when the server is stopped) for these
commands to be useful.

Examples:
  # List all sessions
  vingest sessions list

  # Show one session with its missing chunks
  vingest sessions show 9f8e7d6c5b4a39281706f5e4d3c2b1a0

  # Delete failed sessions and their staged chunks
  vingest sessions reap --failed`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(reapCmd)
}

// openStore loads the configuration and connects to the session store it
// names.
func openStore(ctx context.Context, cmd *cobra.Command) (store.Store, *config.Config, error) {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return nil, nil, err
	}

	st, err := config.CreateSessionStore(ctx, cfg.SessionStore)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}

	return st, cfg, nil
}
