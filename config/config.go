// Package config loads the provider configuration from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/machinefabric/unirun-apps/unirun"
)

// Config holds the provider configuration.
type Config struct {
	// ShowOnEmpty lists every application for an empty query instead of none.
	ShowOnEmpty bool            `yaml:"show_on_empty"`
	Logging     LoggingConfig   `yaml:"logging"`
	Transport   TransportConfig `yaml:"transport"`
	Limits      unirun.Limits   `yaml:"limits"`
	Directory   DirectoryConfig `yaml:"directory"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, dev, local (default: prod)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// TransportConfig selects the byte stream to the host.
type TransportConfig struct {
	Socket string `yaml:"socket"` // unix socket path; empty means stdin/stdout
}

// DirectoryConfig holds application directory settings.
type DirectoryConfig struct {
	Paths    []string `yaml:"paths"`    // empty means the XDG defaults
	Workers  int      `yaml:"workers"`  // desktop-file parsing pool size
	Watch    *bool    `yaml:"watch"`    // invalidate the app list on changes (default: true)
	Terminal []string `yaml:"terminal"` // prefix for Terminal=true entries
	Locale   string   `yaml:"locale"`   // empty means $LC_ALL/$LC_MESSAGES/$LANG
}

// WatchEnabled reports whether directory watching is on
func (d DirectoryConfig) WatchEnabled() bool {
	return d.Watch == nil || *d.Watch
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if raw != nil {
		if err := validateSchema(raw); err != nil {
			return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Logging.Env == "" {
		c.Logging.Env = "prod"
	}
	c.Limits = c.Limits.Effective()
	if c.Directory.Workers <= 0 {
		c.Directory.Workers = 4
	}
	if len(c.Directory.Terminal) == 0 {
		c.Directory.Terminal = []string{"xterm", "-e"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Logging.Env {
	case "prod", "dev", "local":
	default:
		return fmt.Errorf("logging.env must be prod, dev or local, got %q", c.Logging.Env)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Limits.MaxFrame > unirun.MaxFrameHardLimit {
		return fmt.Errorf("limits.max_frame must not exceed %d", unirun.MaxFrameHardLimit)
	}
	for _, p := range c.Directory.Paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("directory.paths must be absolute, got %q", p)
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
