package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetDefaults returns application default paths, checking environment variables first.
// A .env file in the working directory is loaded before resolution, so it can
// supply DATABASE_PATH and the SNAPFEED_* variables; its absence is fine.
// Environment variables:
//   - SNAPFEED_CONFIG_PATH: config file location (default: ~/.config/snapfeed.toml)
//   - SNAPFEED_HOME: base directory for snapfeed data (default: ~/.local/share/snapfeed)
func GetDefaults() (map[string]string, error) {
	_ = godotenv.Load()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking SNAPFEED_CONFIG_PATH env var first,
// then falling back to the default ~/.config/snapfeed.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SNAPFEED_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "snapfeed.toml"), nil
}

// getBaseDir returns the base directory for snapfeed data, checking SNAPFEED_HOME env var first,
// then falling back to the XDG default ~/.local/share/snapfeed.
func getBaseDir() (string, error) {
	if path := os.Getenv("SNAPFEED_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "snapfeed"), nil
}
