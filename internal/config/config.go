// Package config loads the scaffold configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SCAFFOLD_DATABASE_URL.
const EnvPrefix = "SCAFFOLD_"

// Config holds the runtime settings of the scaffold server.
type Config struct {
	// DatabaseURL selects the driver by scheme: postgres://, mysql:// or sqlite://
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	Listen      string `yaml:"listen" env:"LISTEN"`

	// Namespace is the database schema checked by `scaffold check`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	PageSize uint64 `yaml:"page_size" env:"PAGE_SIZE"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DatabaseURL: "sqlite://scaffold.db",
		Listen:      ":8080",
		PageSize:    20,
		LogLevel:    "info",
	}
}

// Load reads path over the defaults, then applies SCAFFOLD_* environment
// variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.PageSize == 0 {
		return fmt.Errorf("page_size must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (must be debug, info, warn or error)", c.LogLevel)
	}
	return nil
}
