package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// LogConfig controls where and how verbosely councildeck logs.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config holds all councildeck configuration.
type Config struct {
	BaseURL     string    `toml:"base_url"`
	Timeout     Duration  `toml:"timeout"`
	PollTimeout *Duration `toml:"poll_timeout"`
	UserAgent   string    `toml:"user_agent"`
	Output      string    `toml:"output"`
	Log         LogConfig `toml:"log"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s" or "3m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

const (
	defaultBaseURL     = "http://localhost:8001"
	defaultPollTimeout = 3 * time.Minute
	defaultLogLevel    = "info"
	defaultOutput      = "table"
)

// BaseURLOrDefault returns BaseURL if set, otherwise the local backend address.
func (c Config) BaseURLOrDefault() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

// PollTimeoutOrDefault returns the client-side bound for a verification request.
// An explicit zero disables the bound and leaves the wait entirely to the backend.
func (c Config) PollTimeoutOrDefault() time.Duration {
	if c.PollTimeout == nil {
		return defaultPollTimeout
	}
	return c.PollTimeout.Duration
}

// LogLevelOrDefault returns Log.Level if set, otherwise "info".
func (c Config) LogLevelOrDefault() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return defaultLogLevel
}

// OutputOrDefault returns Output if set, otherwise "table".
func (c Config) OutputOrDefault() string {
	if c.Output != "" {
		return c.Output
	}
	return defaultOutput
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - COUNCIL_API_URL   overrides base_url
//   - COUNCIL_LOG_LEVEL overrides log.level
//   - COUNCIL_LOG_FILE  overrides log.file
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the councildeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "councildeck", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COUNCIL_API_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("COUNCIL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("COUNCIL_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
