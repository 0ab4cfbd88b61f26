package sessions

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/bytesize"
	"github.com/vingest/vingest/internal/cli/output"
	"github.com/vingest/vingest/internal/cli/timeutil"
	"github.com/vingest/vingest/pkg/session"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List upload sessions",
	Long: `List all upload sessions in the session store, newest first.

Examples:
  # List sessions as table
  vingest sessions list

  # List as JSON
  vingest sessions list -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// SessionList is a list of sessions for table rendering.
type SessionList []*session.Session

// Headers implements TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"FILE ID", "FILE NAME", "STATUS", "PROGRESS", "CHUNKS", "SIZE", "CREATED"}
}

// Rows implements TableRenderer.
func (sl SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.FileID,
			s.FileName,
			string(s.Status),
			fmt.Sprintf("%d%%", s.Progress()),
			fmt.Sprintf("%d/%d", s.UploadedChunks, s.TotalChunks),
			bytesize.ByteSize(s.TotalSize).String(),
			timeutil.Ago(s.CreatedAt),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, _, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	list, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})

	return output.Print(os.Stdout, format, list, SessionList(list), "No sessions found.")
}
