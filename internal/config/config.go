// Package config loads the application configuration from a YAML file
// with environment variable overrides (TASKSYNC_ prefix).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	// DatabasePath is the local SQLite database location.
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`

	Remote RemoteConfig `yaml:"remote" mapstructure:"remote"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Daemon DaemonConfig `yaml:"daemon" mapstructure:"daemon"`
}

// RemoteConfig configures the cloud document store client.
type RemoteConfig struct {
	// BaseURL is the root of the remote API, e.g. https://sync.example.com.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// LogConfig configures daemon log output.
type LogConfig struct {
	// File is the daemon log path. Empty means stderr.
	File string `yaml:"file" mapstructure:"file"`

	// MaxSizeMB rotates the log file once it exceeds this size.
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups limits how many rotated files are kept.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
}

// DaemonConfig configures the background sync daemon.
type DaemonConfig struct {
	// FlushInterval is how often pending local changes are replayed
	// against the remote store.
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval"`

	// EscalateInterval is how often the due-date escalation sweep runs.
	EscalateInterval time.Duration `yaml:"escalate_interval" mapstructure:"escalate_interval"`
}

// Dir returns the application's data directory (~/.tasksync).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tasksync"
	}
	return filepath.Join(home, ".tasksync")
}

// Path returns the default config file location.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DatabasePath: filepath.Join(Dir(), "tasks.db"),
		Log: LogConfig{
			File:       filepath.Join(Dir(), "daemon.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Daemon: DaemonConfig{
			FlushInterval:    30 * time.Second,
			EscalateInterval: 15 * time.Minute,
		},
	}
}

// Load reads the config file at path, falling back to defaults for any
// unset key. Environment variables with the TASKSYNC_ prefix override
// file values (e.g. TASKSYNC_REMOTE_BASE_URL).
//
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("remote.base_url", cfg.Remote.BaseURL)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("daemon.flush_interval", cfg.Daemon.FlushInterval)
	v.SetDefault("daemon.escalate_interval", cfg.Daemon.EscalateInterval)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes a commented default config file, creating the data
// directory if needed. Existing files are left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := `# tasksync configuration

# Local SQLite database location.
#database_path: ~/.tasksync/tasks.db

remote:
  # Root of the sync server API. Leave empty for local-only use.
  base_url: ""

log:
  # Daemon log file. Empty logs to stderr.
  #file: ~/.tasksync/daemon.log
  max_size_mb: 10
  max_backups: 3

daemon:
  # How often pending offline changes are replayed to the server.
  flush_interval: 30s
  # How often the due-date escalation sweep runs.
  escalate_interval: 15m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
