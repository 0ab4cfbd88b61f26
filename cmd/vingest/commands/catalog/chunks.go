package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/cli/output"
	"github.com/vingest/vingest/internal/cli/timeutil"
)

var chunksOutput string

var chunksCmd = &cobra.Command{
	Use:   "chunks <file_id>",
	Short: "Show chunk bookkeeping for one file",
	Long: `Show the per-chunk rows the catalog recorded while a file was
uploading. Useful for checking what a crashed upload left behind.

Examples:
  # Show chunk rows
  vingest catalog chunks 9f8e7d6c5b4a39281706f5e4d3c2b1a0

  # As JSON
  vingest catalog chunks 9f8e7d6c5b4a39281706f5e4d3c2b1a0 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runChunks,
}

func init() {
	chunksCmd.Flags().StringVarP(&chunksOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// Chunk is one chunk bookkeeping row for rendering.
type Chunk struct {
	ChunkID     int       `json:"chunk_id" yaml:"chunk_id"`
	TotalChunks int       `json:"total_chunks" yaml:"total_chunks"`
	Location    string    `json:"location" yaml:"location"`
	Complete    bool      `json:"complete" yaml:"complete"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// ChunkList is a list of chunk rows for table rendering.
type ChunkList []Chunk

// Headers implements TableRenderer.
func (cl ChunkList) Headers() []string {
	return []string{"CHUNK", "LOCATION", "COMPLETE", "UPDATED"}
}

// Rows implements TableRenderer.
func (cl ChunkList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		complete := "no"
		if c.Complete {
			complete = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d/%d", c.ChunkID, c.TotalChunks),
			c.Location,
			complete,
			c.UpdatedAt.Local().Format(timeutil.LocalTimeFormat),
		})
	}
	return rows
}

func runChunks(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(chunksOutput)
	if err != nil {
		return err
	}

	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	rows, err := cat.ChunksForFile(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to query chunks: %w", err)
	}

	chunks := make(ChunkList, 0, len(rows))
	for _, r := range rows {
		chunks = append(chunks, Chunk{
			ChunkID:     r.ChunkID,
			TotalChunks: r.TotalChunks,
			Location:    r.ChunkLocations,
			Complete:    r.IsComplete,
			UpdatedAt:   r.UpdatedAt,
		})
	}

	return output.Print(os.Stdout, format, chunks, chunks, fmt.Sprintf("No chunk rows for %s.", args[0]))
}
