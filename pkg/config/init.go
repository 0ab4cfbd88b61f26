package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// configHeader is written at the top of generated configuration files.
const configHeader = `# vingest Configuration File
#
# Generated by "vingest init". Every value can also be set through a
# VINGEST_-prefixed environment variable, e.g. VINGEST_SERVER_PORT=5001.
#
# auth.tokens holds the bearer token generated for this installation.
# Clients send it as "Authorization: Bearer <token>".

`

// InitConfig creates a configuration file at the default location with a
// freshly generated bearer token. It refuses to overwrite an existing
// file unless force is set.
//
// Returns the path of the written file.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a configuration file at the given path with a
// freshly generated bearer token. It refuses to overwrite an existing
// file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()
	cfg.Auth.Tokens = []string{uuid.NewString()}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries the token allowlist
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
