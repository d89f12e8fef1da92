package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	DataDir       string        `mapstructure:"data_dir" yaml:"data_dir"`
	Store         StoreConfig   `mapstructure:"store" yaml:"store"`
	Sync          SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Auth          AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Server        ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging       LoggingConfig `mapstructure:"log" yaml:"log"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
	BackendMemory = "memory"
)

// StoreConfig selects where user documents live.
type StoreConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	URL        string `mapstructure:"url" yaml:"url"`
}

// SyncConfig toggles remote semantics. With Remote set a missing document is
// an error; without it the list starts empty.
type SyncConfig struct {
	Remote bool `mapstructure:"remote" yaml:"remote"`
}

// AuthConfig locates the credentials file.
type AuthConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ServerConfig configures `todo serve`.
type ServerConfig struct {
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// LoggingConfig controls the pslog level.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Structured bool   `mapstructure:"structured" yaml:"structured"`
}

// BaseDir is ~/.tada.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada"), nil
}

// DefaultConfigPath is ~/.tada/config.yaml.
func DefaultConfigPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() (Config, error) {
	base, err := BaseDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		DataDir:       filepath.Join(base, "data"),
		Store: StoreConfig{
			Backend:    BackendFile,
			SQLitePath: filepath.Join(base, "todos.sqlite3"),
			URL:        "http://127.0.0.1:8087",
		},
		Sync:   SyncConfig{Remote: false},
		Auth:   AuthConfig{Dir: base},
		Server: ServerConfig{Addr: "127.0.0.1:8087", Backend: BackendSQLite},
		Logging: LoggingConfig{
			Level: "info",
		},
	}, nil
}

// Validate checks values that can't be fixed up silently.
func (c Config) Validate() error {
	if !validBackend(c.Store.Backend) {
		return fmt.Errorf("unsupported store.backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendHTTP && strings.TrimSpace(c.Store.URL) == "" {
		return fmt.Errorf("store.url is required for the %s backend", BackendHTTP)
	}
	if c.Store.Backend == BackendFile && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required for the %s backend", BackendFile)
	}
	if c.Store.Backend == BackendSQLite && strings.TrimSpace(c.Store.SQLitePath) == "" {
		return fmt.Errorf("store.sqlite_path is required for the %s backend", BackendSQLite)
	}
	switch c.Server.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unsupported server.backend %q", c.Server.Backend)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "error":
	default:
		return fmt.Errorf("unsupported log.level %q", c.Logging.Level)
	}
	return nil
}

func validBackend(b string) bool {
	switch b {
	case BackendFile, BackendSQLite, BackendHTTP, BackendMemory:
		return true
	}
	return false
}
