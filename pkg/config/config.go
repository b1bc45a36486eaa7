// Package config loads cookiescope settings from an optional YAML file layered
// over built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete cookiescope configuration
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Plain HTTP fetch settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Headless browser fetch settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Target host restrictions
	Targets TargetsConfig `yaml:"targets" json:"targets"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig defines the listening endpoint
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"` // Must outlast the slowest fetch
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins"` // "*" allows any origin
}

// HTTPConfig defines the plain HTTP fetcher
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	MaxRedirects int           `yaml:"max_redirects" json:"max_redirects"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
}

// BrowserConfig defines the headless browser fetcher
type BrowserConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	Headless          bool          `yaml:"headless" json:"headless"`
	LaunchTimeout     time.Duration `yaml:"launch_timeout" json:"launch_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	SkipInstall       bool          `yaml:"skip_install" json:"skip_install"` // Driver and Chromium are provisioned ahead of time
}

// TargetsConfig defines which hosts may be fetched
type TargetsConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts" json:"allowed_hosts"`
	DeniedHosts  []string `yaml:"denied_hosts" json:"denied_hosts"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// File writes logs under Dir instead of stderr
	File bool   `yaml:"file" json:"file"`
	Dir  string `yaml:"dir" json:"dir"`
}

// DefaultConfig returns a configuration suitable for most deployments
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			MaxRedirects: 10,
		},
		Browser: BrowserConfig{
			Enabled:           true,
			Headless:          true,
			LaunchTimeout:     30 * time.Second,
			NavigationTimeout: 25 * time.Second,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server address is required")
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}

	if c.HTTP.MaxRedirects < 1 {
		return fmt.Errorf("max_redirects must be at least 1, got %d", c.HTTP.MaxRedirects)
	}

	if c.Browser.Enabled {
		if c.Browser.LaunchTimeout <= 0 {
			return fmt.Errorf("browser launch_timeout must be positive")
		}
		if c.Browser.NavigationTimeout <= 0 {
			return fmt.Errorf("browser navigation_timeout must be positive")
		}
	}

	// A write timeout shorter than a fetch would cut responses off mid-flight
	if c.Server.WriteTimeout > 0 {
		if c.Server.WriteTimeout <= c.HTTP.Timeout {
			return fmt.Errorf("server write_timeout (%s) must exceed http timeout (%s)", c.Server.WriteTimeout, c.HTTP.Timeout)
		}
		if browserTotal := c.Browser.LaunchTimeout + c.Browser.NavigationTimeout; c.Browser.Enabled && c.Server.WriteTimeout <= browserTotal {
			return fmt.Errorf("server write_timeout (%s) must exceed browser launch_timeout plus navigation_timeout (%s)", c.Server.WriteTimeout, browserTotal)
		}
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// Load reads the YAML file at path over DefaultConfig and validates the
// result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
