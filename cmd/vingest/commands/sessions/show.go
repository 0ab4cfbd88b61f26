package sessions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/bytesize"
	"github.com/vingest/vingest/internal/cli/output"
	"github.com/vingest/vingest/internal/cli/timeutil"
	"github.com/vingest/vingest/pkg/session"
	"github.com/vingest/vingest/pkg/session/store"
)

// maxMissingShown caps the missing chunk list in table output.
const maxMissingShown = 20

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show <file_id>",
	Short: "Show one upload session",
	Long: `Show the full state of one upload session, including which chunks
are still missing.

Examples:
  # Show session details
  vingest sessions show 9f8e7d6c5b4a39281706f5e4d3c2b1a0

  # Show as JSON (includes the chunk bitmap)
  vingest sessions show 9f8e7d6c5b4a39281706f5e4d3c2b1a0 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sess, err := st.Load(ctx, args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no session for file ID %s", args[0])
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, sess)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, sess)
	}

	return output.KeyValues(os.Stdout, [][2]string{
		{"File ID", sess.FileID},
		{"File name", sess.FileName},
		{"Status", string(sess.Status)},
		{"Progress", fmt.Sprintf("%d%%", sess.Progress())},
		{"Chunks", fmt.Sprintf("%d/%d", sess.UploadedChunks, sess.TotalChunks)},
		{"Chunk size", bytesize.ByteSize(sess.ChunkSize).String()},
		{"Uploaded", bytesize.ByteSize(sess.UploadedSize).String()},
		{"Total size", bytesize.ByteSize(sess.TotalSize).String()},
		{"Missing", formatMissing(sess)},
		{"Created", timeutil.FormatUnix(sess.CreatedAt)},
		{"Updated", timeutil.FormatUnix(sess.UpdatedAt)},
	})
}

// formatMissing lists the chunk IDs not yet uploaded, truncated past
// maxMissingShown.
func formatMissing(sess *session.Session) string {
	missing := sess.TotalChunks - sess.UploadedChunks
	if missing <= 0 {
		return "none"
	}

	ids := make([]string, 0, maxMissingShown)
	for i := 0; i < sess.TotalChunks && len(ids) < maxMissingShown; i++ {
		if !sess.ChunkStatus.IsSet(i) {
			ids = append(ids, fmt.Sprintf("%d", i))
		}
	}

	out := strings.Join(ids, ", ")
	if missing > maxMissingShown {
		out += fmt.Sprintf(", ... (%d total)", missing)
	}
	return out
}
