package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vingest/vingest/internal/cli/prompt"
	"github.com/vingest/vingest/pkg/config"
)

var (
	initForce bool
	initYes   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize a vingest configuration file.

Runs an interactive wizard asking for the common settings (port, upload
directory, session store backend, chunk store backend). Use --yes to skip
the wizard and write a config with default values.

By default, the configuration file is created at $XDG_CONFIG_HOME/vingest/config.yaml.
Use --config to specify a custom path.

Examples:
  # Interactive setup
  vingest init

  # Accept defaults without prompting
  vingest init --yes

  # Initialize with custom path
  vingest init --config /etc/vingest/config.yaml

  # Force overwrite existing config
  vingest init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Skip the wizard and write defaults")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	if initYes {
		var configPath string
		var err error

		if configFile != "" {
			// Use custom path
			err = config.InitConfigToPath(configFile, initForce)
			configPath = configFile
		} else {
			// Use default path
			configPath, err = config.InitConfig(initForce)
		}

		if err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		printNextSteps(configPath, "")
		return nil
	}

	configPath := configFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	cfg, err := runWizard()
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("Aborted.")
			return nil
		}
		return err
	}

	// Mint an API token so the generated config works out of the box
	token := uuid.NewString()
	cfg.Auth.Tokens = []string{token}

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printNextSteps(configPath, token)
	return nil
}

// runWizard collects the common settings interactively, starting from the
// defaults.
func runWizard() (*config.Config, error) {
	cfg := config.GetDefaultConfig()

	port, err := prompt.InputPort("API port", cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = port

	uploadDir, err := prompt.Input("Upload directory", cfg.Upload.UploadDir)
	if err != nil {
		return nil, err
	}
	cfg.Upload.UploadDir = uploadDir

	sessionBackend, err := prompt.Select("Session store backend", []prompt.SelectOption{
		{Label: "memory", Value: "memory", Description: "In-process store, single replica only"},
		{Label: "redis", Value: "redis", Description: "Shared store for multi-replica fleets"},
		{Label: "badger", Value: "badger", Description: "Embedded store, persists across restarts"},
	})
	if err != nil {
		return nil, err
	}
	cfg.SessionStore.Backend = sessionBackend

	switch sessionBackend {
	case "redis":
		addr, err := prompt.Input("Redis address", cfg.SessionStore.Redis.Addr)
		if err != nil {
			return nil, err
		}
		cfg.SessionStore.Redis.Addr = addr
	case "badger":
		dir, err := prompt.Input("Badger directory", "sessions.badger")
		if err != nil {
			return nil, err
		}
		cfg.SessionStore.Badger.Dir = dir
	}

	chunkBackend, err := prompt.Select("Chunk store backend", []prompt.SelectOption{
		{Label: "fs", Value: "fs", Description: "Local or mounted filesystem"},
		{Label: "s3", Value: "s3", Description: "S3-compatible object storage"},
	})
	if err != nil {
		return nil, err
	}
	cfg.ChunkStore.Backend = chunkBackend

	if chunkBackend == "s3" {
		bucket, err := prompt.InputWithValidation("S3 bucket", func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("bucket name is required")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		cfg.ChunkStore.S3.Bucket = bucket

		region, err := prompt.Input("S3 region", cfg.ChunkStore.S3.Region)
		if err != nil {
			return nil, err
		}
		cfg.ChunkStore.S3.Region = region

		endpoint, err := prompt.Input("S3 endpoint (empty for AWS)", "")
		if err != nil {
			return nil, err
		}
		cfg.ChunkStore.S3.Endpoint = endpoint
	}

	catalogPath, err := prompt.Input("Catalog database path", cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	cfg.Catalog.Path = catalogPath

	mediaEnabled, err := prompt.Confirm("Enable media processing (requires ffmpeg)", cfg.Media.Enabled)
	if err != nil {
		return nil, err
	}
	cfg.Media.Enabled = mediaEnabled

	return cfg, nil
}

func printNextSteps(configPath, token string) {
	fmt.Printf("Configuration file created at: %s\n", configPath)
	if token != "" {
		fmt.Println("\nAPI token (keep it secret):")
		fmt.Printf("  %s\n", token)
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Review the configuration file")
	fmt.Println("  2. Start the server with: vingest start")
	fmt.Printf("  3. Or specify custom config: vingest start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random API token has been generated for development use.")
	fmt.Println("  Clients must send it as: Authorization: Bearer <token>")
}
