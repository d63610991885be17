// Package config provides configuration loading for assessd.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then ASSESSD_* environment variables. See LoadWithFile for precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the complete assessd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Import    ImportConfig    `koanf:"import"`
	Autosave  AutosaveConfig  `koanf:"autosave"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// BodyLimit is an echo body-limit string such as "10M".
	BodyLimit string `koanf:"body_limit"`
	// ImportRatePerMinute bounds admin CSV uploads per client IP.
	ImportRatePerMinute int `koanf:"import_rate_per_minute"`
}

// DatabaseConfig selects the relational backend.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    Secret `koanf:"dsn"`
	// MaxOpenConns is ignored for sqlite, which is pinned to one connection.
	MaxOpenConns int  `koanf:"max_open_conns"`
	AutoMigrate  bool `koanf:"auto_migrate"`
}

// ImportConfig names the standard release the CSV importer targets.
type ImportConfig struct {
	StandardCode string `koanf:"standard_code"`
	StandardName string `koanf:"standard_name"`
}

// AutosaveConfig holds the client-side batching defaults.
type AutosaveConfig struct {
	Debounce        time.Duration `koanf:"debounce"`
	SavedDisplay    time.Duration `koanf:"saved_display"`
	TeardownTimeout time.Duration `koanf:"teardown_timeout"`
}

// LoggingConfig holds the subset of logging settings exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "localhost",
			Port:                9090,
			ShutdownTimeout:     10 * time.Second,
			BodyLimit:           "10M",
			ImportRatePerMinute: 10,
		},
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			DSN:          Secret("assessd.db"),
			MaxOpenConns: 10,
			AutoMigrate:  true,
		},
		Import: ImportConfig{
			StandardCode: "R2V3_1",
			StandardName: "R2 v3.1",
		},
		Autosave: AutosaveConfig{
			Debounce:        600 * time.Millisecond,
			SavedDisplay:    2 * time.Second,
			TeardownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "assessd",
			SampleRate:  1.0,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.ImportRatePerMinute < 0 {
		return errors.New("import rate must not be negative")
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q (want %s or %s)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}
	if !c.Database.DSN.IsSet() {
		return errors.New("database dsn is required")
	}

	if strings.TrimSpace(c.Import.StandardCode) == "" {
		return errors.New("import standard code is required")
	}

	if c.Autosave.Debounce <= 0 {
		return errors.New("autosave debounce must be positive")
	}
	if c.Autosave.SavedDisplay < 0 {
		return errors.New("autosave saved display must not be negative")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry endpoint required when telemetry is enabled")
		}
		if c.Telemetry.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
	}

	return nil
}
