package vault

import (
	"fmt"
	"os"
	"path/filepath"
)

// Vault is the managed data directory of stasher
type Vault struct {
	RootPath   string
	ConfigPath string
}

// New creates a new Vault instance with XDG-compliant paths
func New() (*Vault, error) {
	rootPath, rootErr := getVaultRoot()
	configPath, configErr := getConfigPath()
	if rootErr != nil {
		return nil, fmt.Errorf("failed to determine vault root: %w", rootErr)
	}
	if configErr != nil {
		return nil, fmt.Errorf("failed to determine config path: %w", configErr)
	}

	return &Vault{
		RootPath:   rootPath,
		ConfigPath: configPath,
	}, nil
}

// getVaultRoot returns the data directory.
// STASHER_HOME wins, then XDG_DATA_HOME, then APPDATA on Windows, then
// ~/.local/share/stasher.
func getVaultRoot() (string, error) {
	if home := os.Getenv("STASHER_HOME"); home != "" {
		return home, nil
	}
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "stasher"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "stasher"), nil
	}

	return filepath.Join(homeDir, ".local", "share", "stasher"), nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("STASHER_CONFIG"); path != "" {
		return path, nil
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "stasher", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "stasher-config", "config.yaml"), nil
	}

	return filepath.Join(homeDir, ".config", "stasher", "config.yaml"), nil
}

// Initialize creates the given directories below or beside the vault root
func (v *Vault) Initialize(dirs ...string) error {
	for _, dir := range append([]string{v.RootPath}, dirs...) {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Exists checks if the vault has been initialized
func (v *Vault) Exists() bool {
	info, err := os.Stat(v.RootPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Path joins elem onto the vault root
func (v *Vault) Path(elem ...string) string {
	return filepath.Join(append([]string{v.RootPath}, elem...)...)
}
