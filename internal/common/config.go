// Package common provides shared utilities for fonradar
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for fonradar
type Config struct {
	Environment string        `toml:"environment"`
	Store       StoreConfig   `toml:"store"`
	Routing     RoutingConfig `toml:"routing"`
	Clients     ClientsConfig `toml:"clients"`
	Refresh     RefreshConfig `toml:"refresh"`
	Logging     LoggingConfig `toml:"logging"`
}

// StoreConfig holds the materialized-view store configuration.
type StoreConfig struct {
	Path    string `toml:"path"`    // sqlite database file holding the mv_* views
	Timeout string `toml:"timeout"` // per-query timeout, duration string
}

// GetTimeout parses and returns the per-query timeout duration
func (c *StoreConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// RoutingConfig holds routing orchestrator configuration.
type RoutingConfig struct {
	MaxRoutes  int    `toml:"max_routes"`  // truncate ranked routes (default 5)
	CacheSize  int    `toml:"cache_size"`  // route cache entries (default 256)
	CacheTTL   string `toml:"cache_ttl"`   // route cache TTL (default "1h")
	SampleSize int    `toml:"sample_size"` // canonical codes shown on parse failure (default 10)
}

// GetCacheTTL parses and returns the route cache TTL
func (c *RoutingConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Gemini GeminiConfig `toml:"gemini"`
}

// GeminiConfig holds the optional commentary sink configuration
type GeminiConfig struct {
	APIKey    string  `toml:"api_key"`
	Model     string  `toml:"model"`
	RateLimit float64 `toml:"rate_limit"` // requests per second
}

// RefreshConfig holds the view refresh scheduler configuration.
type RefreshConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // cron spec, default hourly
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Store: StoreConfig{
			Path:    "data/funds.db",
			Timeout: "10s",
		},
		Routing: RoutingConfig{
			MaxRoutes:  5,
			CacheSize:  256,
			CacheTTL:   "1h",
			SampleSize: 10,
		},
		Clients: ClientsConfig{
			Gemini: GeminiConfig{
				Model:     "gemini-2.0-flash",
				RateLimit: 1,
			},
		},
		Refresh: RefreshConfig{
			Enabled: false,
			Cron:    "0 * * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FONRADAR_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("FONRADAR_STORE_PATH"); path != "" {
		config.Store.Path = path
	}

	if level := os.Getenv("FONRADAR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("FONRADAR_MAX_ROUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Routing.MaxRoutes = n
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	} else if v := os.Getenv("FONRADAR_GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
