package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first.
// Environment variables:
//   - REORC_CONFIG_PATH: settings file location (default: ~/.config/reorc.toml)
//   - REORC_HOME: base directory for the local workspace (default: current directory)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir := getBaseDir()

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the settings file path, checking REORC_CONFIG_PATH
// first, then falling back to the default ~/.config/reorc.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("REORC_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "reorc.toml"), nil
}

// getBaseDir returns the workspace base directory, checking REORC_HOME
// first. The workspace defaults to the current directory: the tool is
// meant to run inside the checkout that holds the local project roots.
func getBaseDir() string {
	if path := os.Getenv("REORC_HOME"); path != "" {
		return path
	}
	return "."
}
