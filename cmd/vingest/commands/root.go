// Package commands implements the CLI commands for vingest server management.
package commands

import (
	"github.com/spf13/cobra"
	catalogcmd "github.com/vingest/vingest/cmd/vingest/commands/catalog"
	configcmd "github.com/vingest/vingest/cmd/vingest/commands/config"
	"github.com/vingest/vingest/cmd/vingest/commands/sessions"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vingest",
	Short: "vingest - Resumable chunked video ingest",
	Long: `vingest is a horizontally scalable ingest service for chunked, resumable
video uploads. Replicas coordinate through a shared session store, so any
replica can accept any chunk of any upload; completed files are assembled
exactly once, published atomically, and recorded in a SQLite catalog.

The same binary runs an ingest replica ("vingest start") or the
health-checked round-robin edge router in front of a fleet
("vingest router").

Use "vingest [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/vingest/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(routerCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(sessions.Cmd)
	rootCmd.AddCommand(catalogcmd.Cmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
