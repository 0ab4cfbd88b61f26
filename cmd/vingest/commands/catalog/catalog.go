// Package catalog implements catalog inspection commands.
package catalog

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/pkg/catalog"
	"github.com/vingest/vingest/pkg/config"
)

// Cmd is the parent command for catalog inspection.
var Cmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the ingest catalog",
	Long: `Inspect the SQLite catalog that records published files and their
chunk bookkeeping.

The catalog opens read-only from the CLI point of view, but SQLite still
takes its locks, so prefer running these against a catalog snapshot when
the fleet is under heavy write load.

Examples:
  # List published files
  vingest catalog list

  # Show the chunk rows behind one file
  vingest catalog chunks 9f8e7d6c5b4a39281706f5e4d3c2b1a0`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(chunksCmd)
}

// openCatalog loads the configuration and opens the catalog it names.
func openCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return nil, err
	}

	cat, err := config.CreateCatalog(cfg.Catalog, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	return cat, nil
}
