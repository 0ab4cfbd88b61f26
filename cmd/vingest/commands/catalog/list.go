package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/bytesize"
	"github.com/vingest/vingest/internal/cli/output"
	"github.com/vingest/vingest/internal/cli/timeutil"
)

var (
	listOutput string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published files",
	Long: `List the files recorded in the catalog, newest first.

Examples:
  # List all published files
  vingest catalog list

  # List the ten most recent
  vingest catalog list --limit 10

  # List as JSON
  vingest catalog list -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of rows (0 = all)")
}

// Final is one published file for rendering.
type Final struct {
	FileID    string    `json:"file_id" yaml:"file_id"`
	FileSize  int64     `json:"file_size" yaml:"file_size"`
	Location  string    `json:"location" yaml:"location"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// FinalList is a list of published files for table rendering.
type FinalList []Final

// Headers implements TableRenderer.
func (fl FinalList) Headers() []string {
	return []string{"FILE ID", "SIZE", "LOCATION", "CREATED"}
}

// Rows implements TableRenderer.
func (fl FinalList) Rows() [][]string {
	rows := make([][]string, 0, len(fl))
	for _, f := range fl {
		rows = append(rows, []string{
			f.FileID,
			bytesize.ByteSize(f.FileSize).String(),
			f.Location,
			f.CreatedAt.Local().Format(timeutil.LocalTimeFormat),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	cat, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	rows, err := cat.ListFinal(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list catalog: %w", err)
	}

	if listLimit > 0 && len(rows) > listLimit {
		rows = rows[:listLimit]
	}

	finals := make(FinalList, 0, len(rows))
	for _, r := range rows {
		finals = append(finals, Final{
			FileID:    r.FileID,
			FileSize:  r.FileSize,
			Location:  r.FileLocations,
			CreatedAt: r.CreatedAt,
		})
	}

	return output.Print(os.Stdout, format, finals, finals, "No published files.")
}
