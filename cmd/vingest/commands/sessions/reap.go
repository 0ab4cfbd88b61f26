package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/cli/prompt"
	"github.com/vingest/vingest/pkg/config"
	"github.com/vingest/vingest/pkg/session"
)

var (
	reapOlderThan time.Duration
	reapFailed    bool
	reapYes       bool
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Delete stale sessions and their staged chunks",
	Long: `Delete sessions from the session store along with their staged chunks.

At least one filter is required. With --failed, failed sessions are
deleted. With --older-than, sessions not yet completed whose last
activity is older than the given duration are deleted. Combining both
deletes failed sessions older than the given duration.

Completed sessions are never touched: their staging is already gone and
the session record expires with the store TTL.

Examples:
  # Delete all failed sessions
  vingest sessions reap --failed

  # Delete sessions abandoned for more than a day
  vingest sessions reap --older-than 24h

  # Delete failed sessions older than an hour, without confirmation
  vingest sessions reap --failed --older-than 1h --yes`,
	RunE: runReap,
}

func init() {
	reapCmd.Flags().DurationVar(&reapOlderThan, "older-than", 0, "Only sessions idle longer than this duration")
	reapCmd.Flags().BoolVar(&reapFailed, "failed", false, "Only failed sessions")
	reapCmd.Flags().BoolVarP(&reapYes, "yes", "y", false, "Skip confirmation prompt")
}

func runReap(cmd *cobra.Command, args []string) error {
	if !reapFailed && reapOlderThan == 0 {
		return fmt.Errorf("refusing to reap everything: pass --failed and/or --older-than")
	}

	ctx := context.Background()
	st, cfg, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	chunks, err := config.CreateChunkStore(ctx, cfg.ChunkStore, cfg.Upload.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer func() { _ = chunks.Close() }()

	list, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := time.Now().Add(-reapOlderThan).Unix()
	victims := make([]*session.Session, 0)
	for _, s := range list {
		if s.Status == session.StatusCompleted {
			continue
		}
		if reapFailed && s.Status != session.StatusFailed {
			continue
		}
		if reapOlderThan > 0 && s.UpdatedAt >= cutoff {
			continue
		}
		victims = append(victims, s)
	}

	if len(victims) == 0 {
		fmt.Println("Nothing to reap.")
		return nil
	}

	ok, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Delete %d session(s) and their staged chunks", len(victims)), reapYes)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("Aborted.")
			return nil
		}
		return err
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	reaped := 0
	for _, s := range victims {
		// Staged chunks first so a failure leaves the session visible
		if err := chunks.RemoveStaging(ctx, s.FileID); err != nil {
			fmt.Printf("  %s: failed to remove staging: %v\n", s.FileID, err)
			continue
		}
		if err := st.Delete(ctx, s.FileID); err != nil {
			fmt.Printf("  %s: failed to delete session: %v\n", s.FileID, err)
			continue
		}
		fmt.Printf("  %s: reaped (%s, %d%% uploaded)\n", s.FileID, s.Status, s.Progress())
		reaped++
	}

	fmt.Printf("Reaped %d of %d session(s)\n", reaped, len(victims))
	return nil
}
