package config

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/vingest/vingest/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the vingest configuration file.

Checks for syntax errors, missing required fields, and invalid values,
and warns about settings that load fine but will bite in production.

Examples:
  # Validate default config
  vingest config validate

  # Validate specific config file
  vingest config validate --config /etc/vingest/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	if len(cfg.Auth.Tokens) == 0 {
		warnings = append(warnings, "auth.tokens is empty - every /api request will be rejected")
	}
	if slices.Contains(cfg.Auth.Tokens, config.DefaultDevToken) {
		warnings = append(warnings, "the development token is in auth.tokens - replace it before exposing the service")
	}
	if cfg.SessionStore.Backend == "memory" {
		warnings = append(warnings, "memory session store only works with a single replica - use redis for a fleet")
	}
	if len(cfg.Edge.Backends) == 0 {
		warnings = append(warnings, "edge.backends is empty - 'vingest router' will refuse to start")
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Session backend: %s\n", cfg.SessionStore.Backend)
	fmt.Printf("  Chunk backend:   %s\n", cfg.ChunkStore.Backend)
	fmt.Printf("  API port:        %d\n", cfg.Server.Port)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
