package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment
const EnvPrefix = "AGROSTOCK"

// Config holds the runtime settings; each field maps to AGROSTOCK_<KEY>
type Config struct {
	// DBPath is the SQLite file; empty keeps everything in memory
	DBPath            string `mapstructure:"DB_PATH"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogFormat         string `mapstructure:"LOG_FORMAT"` // console | json
	ExpiryWarningDays int    `mapstructure:"EXPIRY_WARNING_DAYS"`
	HTTPAddr          string `mapstructure:"HTTP_ADDR"`
	RulesFile         string `mapstructure:"RULES_FILE"`
}

var defaults = map[string]any{
	"DB_PATH":             "",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "console",
	"EXPIRY_WARNING_DAYS": 90,
	"HTTP_ADDR":           ":8080",
	"RULES_FILE":          "",
}

// Load reads the optional .env files (".env" when none are named) into the
// process environment without overriding variables already set, then
// resolves every key from the environment or its default.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the binary cannot start with
func (c *Config) Validate() error {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("%s_LOG_FORMAT must be console or json, got %q", EnvPrefix, c.LogFormat)
	}
	if c.ExpiryWarningDays <= 0 {
		return fmt.Errorf("%s_EXPIRY_WARNING_DAYS must be > 0, got %d", EnvPrefix, c.ExpiryWarningDays)
	}
	return nil
}
