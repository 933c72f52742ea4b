package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLifetime      = 7200
	DefaultGCProbability = 25
	DefaultConnection    = "default"

	DriverSQLite   = "sqlite"
	DriverManifest = "manifest"
)

type Config struct {
	Stash    StashConfig       `yaml:"stash"`
	ORMFiles map[string]string `yaml:"orm_files"`
	Database DatabaseConfig    `yaml:"database"`
	Inbox    string            `yaml:"inbox"`
	LogLevel string            `yaml:"log_level"`

	// Daemon Settings
	DaemonDebounceMS int `yaml:"daemon_debounce_ms"`
	DaemonGCInterval int `yaml:"daemon_gc_interval"`
}

type StashConfig struct {
	Directory string `yaml:"directory"`
	// Lifetime in seconds; values <= 0 fall back to DefaultLifetime
	Lifetime int `yaml:"lifetime"`
	// GCProbability is the percent chance (0-100) that a save collects
	GCProbability int `yaml:"gc_probability"`
}

type DatabaseConfig struct {
	Connection  string `yaml:"connection"`
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	TablePrefix string `yaml:"table_prefix"`
}

// DefaultConfig returns a Config rooted at dataDir
func DefaultConfig(dataDir string) *Config {
	return &Config{
		Stash: StashConfig{
			Directory:     filepath.Join(dataDir, "stash"),
			Lifetime:      DefaultLifetime,
			GCProbability: DefaultGCProbability,
		},
		ORMFiles: map[string]string{
			DefaultConnection: filepath.Join(dataDir, "files"),
		},
		Database: DatabaseConfig{
			Connection: DefaultConnection,
			Driver:     DriverSQLite,
			DSN:        filepath.Join(dataDir, "records.db"),
		},
		Inbox:            filepath.Join(dataDir, "inbox"),
		LogLevel:         "info",
		DaemonDebounceMS: 500,
		DaemonGCInterval: 300,
	}
}

// Load reads configuration from path, layering a .env file and STASHER_*
// environment variables on top. A missing file yields the defaults.
func Load(path, dataDir string) (*Config, error) {
	cfg := DefaultConfig(dataDir)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("STASHER_STASH_DIRECTORY"); ok {
		cfg.Stash.Directory = v
	}
	cfg.Stash.Lifetime = getEnvAsInt("STASHER_STASH_LIFETIME", cfg.Stash.Lifetime)
	cfg.Stash.GCProbability = getEnvAsInt("STASHER_STASH_GC_PROBABILITY", cfg.Stash.GCProbability)
	if v, ok := os.LookupEnv("STASHER_FILES_ROOT"); ok {
		if cfg.ORMFiles == nil {
			cfg.ORMFiles = make(map[string]string)
		}
		cfg.ORMFiles[cfg.connection()] = v
	}
	if v, ok := os.LookupEnv("STASHER_DB_DRIVER"); ok {
		cfg.Database.Driver = v
	}
	if v, ok := os.LookupEnv("STASHER_DB_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := os.LookupEnv("STASHER_INBOX"); ok {
		cfg.Inbox = v
	}
	if v, ok := os.LookupEnv("STASHER_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}

func (c *Config) connection() string {
	if c.Database.Connection == "" {
		return DefaultConnection
	}
	return c.Database.Connection
}

func (c *Config) applyDefaults() {
	if c.Stash.Lifetime <= 0 {
		c.Stash.Lifetime = DefaultLifetime
	}
	if c.ORMFiles == nil {
		c.ORMFiles = make(map[string]string)
	}
	c.Database.Connection = c.connection()
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DaemonDebounceMS <= 0 {
		c.DaemonDebounceMS = 500
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error
	if c.Stash.GCProbability < 0 || c.Stash.GCProbability > 100 {
		errs = append(errs, fmt.Errorf("stash.gc_probability must be between 0 and 100, got %d", c.Stash.GCProbability))
	}
	if c.Database.Driver != DriverSQLite && c.Database.Driver != DriverManifest {
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverManifest, c.Database.Driver))
	}
	return errors.Join(errs...)
}

// FilesRoot returns the files root of the configured connection
func (c *Config) FilesRoot() string {
	return c.ORMFiles[c.connection()]
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
