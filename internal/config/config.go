// Package config loads the head catalog server configuration.
package config

import (
	"time"
)

// Config is the full server configuration.
//
// Example headcatalog.yaml:
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//	  log_level: info
//	  session_idle_timeout: 30m
//	catalog:
//	  categories_file: ./categories.yml
//	  items_dir: ./heads
//	grid:
//	  category_page_size: 28
//	  item_page_size: 45
//	storage:
//	  type: sqlite
//	  filename: ./headcatalog.db
//	  table_prefix: headcatalog
//	ledger:
//	  type: file
//	  path: ./ledger.json
//	  starting_balance: 100
//	rate_limit:
//	  enabled: true
//	  events_per_second: 10
//	  burst: 20
//	auth:
//	  api_keys:
//	    - name: frontend
//	      key_hash: "sha256:..."
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Tracing   TracingConfig   `yaml:"tracing" mapstructure:"tracing"`

	// DevMode forces debug logging.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener and process-wide settings.
type ServerConfig struct {
	// HTTPAddr is the listen address. Default "127.0.0.1:8080".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel is one of debug, info, warn, error. Default "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// SessionIdleTimeout reclaims browsing sessions idle for this long. Default "30m".
	SessionIdleTimeout string `yaml:"session_idle_timeout" mapstructure:"session_idle_timeout" validate:"omitempty,duration"`

	TLSCertFile string `yaml:"tls_cert_file" mapstructure:"tls_cert_file" validate:"required_with=TLSKeyFile"`
	TLSKeyFile  string `yaml:"tls_key_file" mapstructure:"tls_key_file" validate:"required_with=TLSCertFile"`

	// PIDFile is written by start and read by stop.
	PIDFile string `yaml:"pid_file" mapstructure:"pid_file"`
}

// CatalogConfig locates the catalog definitions.
type CatalogConfig struct {
	CategoriesFile string `yaml:"categories_file" mapstructure:"categories_file" validate:"required"`
	ItemsDir       string `yaml:"items_dir" mapstructure:"items_dir" validate:"required"`
}

// GridConfig sets the page sizes of the two grids.
type GridConfig struct {
	CategoryPageSize int `yaml:"category_page_size" mapstructure:"category_page_size" validate:"min=1"`
	ItemPageSize     int `yaml:"item_page_size" mapstructure:"item_page_size" validate:"min=1"`
}

// StorageConfig selects the favorites backend.
type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type" validate:"oneof=memory sqlite postgres redis"`
	Filename    string `yaml:"filename" mapstructure:"filename" validate:"required_if=Type sqlite"`
	DSN         string `yaml:"dsn" mapstructure:"dsn" validate:"required_if=Type postgres"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr" validate:"required_if=Type redis"`
	RedisDB     int    `yaml:"redis_db" mapstructure:"redis_db" validate:"min=0"`
	TablePrefix string `yaml:"table_prefix" mapstructure:"table_prefix" validate:"omitempty,table_prefix"`
}

// LedgerConfig selects the balance backend.
type LedgerConfig struct {
	Type            string  `yaml:"type" mapstructure:"type" validate:"oneof=memory file"`
	Path            string  `yaml:"path" mapstructure:"path" validate:"required_if=Type file"`
	StartingBalance float64 `yaml:"starting_balance" mapstructure:"starting_balance" validate:"gte=0"`
}

// RateLimitConfig limits UI events per user.
type RateLimitConfig struct {
	Enabled         bool    `yaml:"enabled" mapstructure:"enabled"`
	EventsPerSecond float64 `yaml:"events_per_second" mapstructure:"events_per_second" validate:"gt=0"`
	Burst           int     `yaml:"burst" mapstructure:"burst" validate:"min=1"`
	CleanupInterval string  `yaml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"omitempty,duration"`
	MaxTTL          string  `yaml:"max_ttl" mapstructure:"max_ttl" validate:"omitempty,duration"`
}

// AuthConfig lists the API keys accepted on /v1. Without keys the API is open.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"api_keys" mapstructure:"api_keys" validate:"omitempty,dive"`
}

// APIKeyConfig is one accepted key, stored as a hash.
type APIKeyConfig struct {
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// KeyHash is "sha256:<hex>" or an argon2id PHC string from `headcatalog hash-key`.
	KeyHash string `yaml:"key_hash" mapstructure:"key_hash" validate:"required,key_hash"`
}

// TracingConfig enables span export to stdout.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Pretty  bool `yaml:"pretty" mapstructure:"pretty"`
}

// SetDevDefaults applies development settings when DevMode is on.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
}

// SetDefaults fills every unset optional field.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.SessionIdleTimeout == "" {
		c.Server.SessionIdleTimeout = "30m"
	}

	if c.Catalog.CategoriesFile == "" {
		c.Catalog.CategoriesFile = "./categories.yml"
	}
	if c.Catalog.ItemsDir == "" {
		c.Catalog.ItemsDir = "./heads"
	}

	if c.Grid.CategoryPageSize == 0 {
		c.Grid.CategoryPageSize = 28
	}
	if c.Grid.ItemPageSize == 0 {
		c.Grid.ItemPageSize = 45
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.Type == "sqlite" && c.Storage.Filename == "" {
		c.Storage.Filename = "./headcatalog.db"
	}
	if c.Storage.TablePrefix == "" {
		c.Storage.TablePrefix = "headcatalog"
	}

	if c.Ledger.Type == "" {
		c.Ledger.Type = "memory"
	}
	if c.Ledger.Type == "file" && c.Ledger.Path == "" {
		c.Ledger.Path = "./ledger.json"
	}

	// Sub-defaults are populated even when disabled.
	if c.RateLimit.EventsPerSecond == 0 {
		c.RateLimit.EventsPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.RateLimit.CleanupInterval == "" {
		c.RateLimit.CleanupInterval = "5m"
	}
	if c.RateLimit.MaxTTL == "" {
		c.RateLimit.MaxTTL = "1h"
	}
}

// SessionIdleTimeout returns the parsed idle timeout, 30m if unparsable.
func (c *Config) SessionIdleTimeout() time.Duration {
	return parseDuration(c.Server.SessionIdleTimeout, 30*time.Minute)
}

// RateLimitCleanupInterval returns the parsed cleanup interval.
func (c *Config) RateLimitCleanupInterval() time.Duration {
	return parseDuration(c.RateLimit.CleanupInterval, 5*time.Minute)
}

// RateLimitMaxTTL returns the parsed limiter entry TTL.
func (c *Config) RateLimitMaxTTL() time.Duration {
	return parseDuration(c.RateLimit.MaxTTL, time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
