package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/bytesize"
	"github.com/vingest/vingest/internal/cli/output"
	"github.com/vingest/vingest/internal/cli/timeutil"
	"github.com/vingest/vingest/pkg/catalog"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show <file_id>",
	Short: "Show the published record for one file",
	Long: `Show the final catalog record for one file ID: where the assembled
artifact was published, its size and when assembly finished.

Examples:
  # Show one published file
  vingest catalog show 9f8e7d6c5b4a39281706f5e4d3c2b1a0

  # As JSON
  vingest catalog show 9f8e7d6c5b4a39281706f5e4d3c2b1a0 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// Published is the final record view for rendering.
type Published struct {
	FileID    string    `json:"file_id" yaml:"file_id"`
	FileSize  int64     `json:"file_size" yaml:"file_size"`
	Location  string    `json:"location" yaml:"location"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	row, err := cat.FinalForFile(context.Background(), args[0])
	if errors.Is(err, catalog.ErrFinalNotFound) {
		return fmt.Errorf("no published record for %s; try 'vingest catalog chunks %s' for in-flight bookkeeping", args[0], args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to query final record: %w", err)
	}

	published := Published{
		FileID:    row.FileID,
		FileSize:  row.FileSize,
		Location:  row.FileLocations,
		CreatedAt: row.CreatedAt,
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, published)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, published)
	}

	return output.KeyValues(os.Stdout, [][2]string{
		{"File ID", published.FileID},
		{"Location", published.Location},
		{"Size", bytesize.ByteSize(published.FileSize).String()},
		{"Published", published.CreatedAt.Local().Format(timeutil.LocalTimeFormat)},
	})
}
