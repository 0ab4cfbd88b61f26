package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/catalog"
	"github.com/vingest/vingest/pkg/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run catalog migrations",
	Long: `Apply pending schema migrations to the catalog database.

The server runs migrations automatically at startup, so this command is
only needed to migrate a catalog out of band, for example before a rolling
upgrade of a fleet sharing one catalog volume.

Examples:
  # Run migrations with default config
  vingest migrate

  # Run migrations with custom config
  vingest migrate --config /etc/vingest/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Running catalog migrations", "path", cfg.Catalog.Path)

	if err := catalog.Migrate(cfg.Catalog.Path); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := catalog.MigrationVersion(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}
	if dirty {
		return fmt.Errorf("catalog schema is dirty at version %d, manual intervention required", version)
	}

	fmt.Printf("Migrations completed successfully (schema version: %d)\n", version)
	return nil
}
