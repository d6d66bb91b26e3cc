// Package config loads application configuration from environment variables
// (optionally seeded from a .env file) with defaults, and validates it on
// startup.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Run      RunConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds template store settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty selects the in-memory store.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns int `env:"DB_MAX_CONNS" default:"10"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `env:"SERVER_ADDR" default:":8080"`

	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// DataDir is the directory run input and output paths are confined to.
	DataDir string `env:"SERVER_DATA_DIR" default:"."`
}

// RunConfig holds defaults for transformation runs.
type RunConfig struct {
	// Timeout bounds a single run (default: 10m)
	Timeout time.Duration `env:"RUN_TIMEOUT" default:"10m"`

	// ProgressInterval is the number of rows between progress notifications.
	ProgressInterval int `env:"RUN_PROGRESS_INTERVAL" default:"100"`

	// HeaderRows is the number of leading input rows skipped.
	HeaderRows int `env:"RUN_HEADER_ROWS" default:"1"`

	// Sheet is the sheet to read; empty uses the active sheet.
	Sheet string `env:"RUN_SHEET"`

	UnresolvedMarker string `env:"RUN_UNRESOLVED_MARKER" default:"#UNRESOLVED"`

	// ReferenceYear pins two-digit year pivoting; 0 uses the current year.
	ReferenceYear int `env:"RUN_REFERENCE_YEAR" default:"0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Server.Addr == "" {
		errs = append(errs, "SERVER_ADDR must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Run.Timeout <= 0 {
		errs = append(errs, "RUN_TIMEOUT must be positive")
	}
	if c.Run.ProgressInterval <= 0 {
		errs = append(errs, "RUN_PROGRESS_INTERVAL must be positive")
	}
	if c.Run.HeaderRows < 0 {
		errs = append(errs, "RUN_HEADER_ROWS must be non-negative")
	}
	if c.Run.ReferenceYear < 0 || c.Run.ReferenceYear > 9999 {
		errs = append(errs, "RUN_REFERENCE_YEAR must be 0 or a year between 1 and 9999")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// UsePostgres reports whether a database URL is configured.
func (c *Config) UsePostgres() bool {
	return c.Database.URL != ""
}

// String returns a representation safe for logging; the database URL is masked.
func (c *Config) String() string {
	db := "memory"
	if c.UsePostgres() {
		db = "[MASKED]"
	}
	return fmt.Sprintf("Config{Database: {URL: %s, MaxConns: %d}, Server: {Addr: %q}, Run: {Timeout: %s, ProgressInterval: %d, HeaderRows: %d, Sheet: %q}, Logging: {Level: %q, Format: %q}}",
		db, c.Database.MaxConns, c.Server.Addr,
		c.Run.Timeout, c.Run.ProgressInterval, c.Run.HeaderRows, c.Run.Sheet,
		c.Logging.Level, c.Logging.Format)
}
