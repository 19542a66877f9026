// Package config loads the lvnode configuration file.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete lvnode configuration.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Log        LogConfig        `yaml:"log"`
	Output     OutputConfig     `yaml:"output"`
	Journal    JournalConfig    `yaml:"journal"`
	Server     ServerConfig     `yaml:"server"`
}

// ConnectionConfig defines how to reach the libvirt daemon.
type ConnectionConfig struct {
	URI     string        `yaml:"uri"`
	Timeout time.Duration `yaml:"timeout"`
	// Socket overrides the daemon socket, locally or on the SSH host.
	Socket string    `yaml:"socket,omitempty"`
	SSH    SSHConfig `yaml:"ssh,omitempty"`
}

// SSHConfig is used by qemu+ssh:// URIs.
type SSHConfig struct {
	User       string `yaml:"user,omitempty"`
	KeyFile    string `yaml:"key_file,omitempty"`
	KnownHosts string `yaml:"known_hosts,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Development bool   `yaml:"development"` // console encoder instead of JSON
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Format    string `yaml:"format"` // table, yaml, json
	NoHeaders bool   `yaml:"no_headers"`
}

// JournalConfig controls the operation journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// JWTSecret enables bearer-token auth on the API when set.
	JWTSecret string        `yaml:"jwt_secret,omitempty"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

const minSecretLength = 16

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"table", "yaml", "json"}
)

// DefaultPath is where the CLI looks for a config file when none is given.
func DefaultPath() string {
	return expandPath("~/.config/lvnode/config.yaml")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			URI:     "qemu:///system",
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Format: "table",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "~/.local/share/lvnode/journal.db",
		},
		Server: ServerConfig{
			Listen:   ":8080",
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if given. With an empty path it loads
// DefaultPath when that file exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	if _, err := os.Stat(DefaultPath()); err == nil {
		return Load(DefaultPath())
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to check config file: %w", err)
	}

	cfg := Default()
	cfg.Normalize()
	return cfg, nil
}

// Normalize cleans user input: trims strings, lowercases enums and expands
// "~/" in paths.
func (c *Config) Normalize() {
	c.Connection.URI = strings.TrimSpace(c.Connection.URI)
	c.Connection.Socket = expandPath(strings.TrimSpace(c.Connection.Socket))
	c.Connection.SSH.KeyFile = expandPath(strings.TrimSpace(c.Connection.SSH.KeyFile))
	c.Connection.SSH.KnownHosts = expandPath(strings.TrimSpace(c.Connection.SSH.KnownHosts))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Journal.Path = expandPath(strings.TrimSpace(c.Journal.Path))
	c.Server.Listen = strings.TrimSpace(c.Server.Listen)
}

// Validate checks the configuration for errors.
// It does not contact the hypervisor.
func (c *Config) Validate() error {
	if c.Connection.URI == "" {
		return fmt.Errorf("connection.uri is required")
	}
	u, err := url.Parse(c.Connection.URI)
	if err != nil {
		return fmt.Errorf("connection.uri %q is invalid: %w", c.Connection.URI, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("connection.uri %q has no driver (expected e.g. qemu:///system)", c.Connection.URI)
	}
	if c.Connection.Timeout <= 0 {
		return fmt.Errorf("connection.timeout must be positive, got %s", c.Connection.Timeout)
	}

	if !contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level %q is invalid (valid: %s)", c.Log.Level, strings.Join(validLevels, ", "))
	}
	if !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("output.format %q is invalid (valid: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen %q is invalid: %w", c.Server.Listen, err)
	}
	if c.Server.JWTSecret != "" && len(c.Server.JWTSecret) < minSecretLength {
		return fmt.Errorf("server.jwt_secret must be at least %d characters", minSecretLength)
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl must be positive, got %s", c.Server.TokenTTL)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(homeDir, path[2:])
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
