package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
	"github.com/chaz8081/fastpair-seeker/internal/bluez"
)

// Config holds all application configuration.
type Config struct {
	Adapter     string        `yaml:"adapter"`      // e.g. "hci0"
	ServiceUUID string        `yaml:"service_uuid"` // 16-bit service data UUID to look for
	Scan        ScanConfig    `yaml:"scan"`
	Pairing     PairingConfig `yaml:"pairing"`
	LogLevel    string        `yaml:"log_level"`
}

// ScanConfig holds advertisement scanning settings.
type ScanConfig struct {
	BufferSize    int           `yaml:"buffer_size"`    // pending candidates, at least 16
	Active        bool          `yaml:"active"`         // request scan responses
	AllowExtended bool          `yaml:"allow_extended"` // used only if the adapter supports it
	Duration      time.Duration `yaml:"duration"`       // 0 scans until stopped
}

// PairingConfig holds pairing agent settings.
type PairingConfig struct {
	AgentCapability string `yaml:"agent_capability"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fastpair-seeker")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Adapter:     "hci0",
		ServiceUUID: advert.FormatUUID16(advert.FastPairServiceUUID),
		Scan: ScanConfig{
			BufferSize:    ble.MinBufferSize,
			Active:        true,
			AllowExtended: true,
		},
		Pairing: PairingConfig{
			AgentCapability: bluez.CapabilityKeyboardDisplay,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Adapter == "" {
		return fmt.Errorf("adapter must not be empty")
	}

	if _, err := c.ServiceUUIDValue(); err != nil {
		return fmt.Errorf("service_uuid: %w", err)
	}

	if c.Scan.BufferSize < ble.MinBufferSize {
		return fmt.Errorf("scan.buffer_size must be >= %d, got %d", ble.MinBufferSize, c.Scan.BufferSize)
	}

	if c.Scan.Duration < 0 {
		return fmt.Errorf("scan.duration must not be negative, got %s", c.Scan.Duration)
	}

	if !bluez.ValidCapability(c.Pairing.AgentCapability) {
		return fmt.Errorf("pairing.agent_capability must be one of DisplayOnly, DisplayYesNo, KeyboardOnly, NoInputNoOutput, KeyboardDisplay, got %q", c.Pairing.AgentCapability)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ServiceUUIDValue returns the parsed service UUID.
func (c *Config) ServiceUUIDValue() (uint16, error) {
	return advert.ParseUUID16(c.ServiceUUID)
}

// ParseLogLevel maps a config log level to a slog.Level. Unknown values
// map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = "# fastpair-seeker configuration\n\n"

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there. It returns the path written, or "" when a config already
// exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}
