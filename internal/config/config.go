// Package config loads providerhub settings from the environment, an
// optional env-format config file and command-line flags, via viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Keys double as environment variable names once upper-cased.
const (
	KeyConfigFile         = "config_file"
	KeyPort               = "port"
	KeyDatabasePath       = "database_path"
	KeyImportMaxBytes     = "import_max_bytes"
	KeyImportDisplayLimit = "import_error_display_limit"
	KeyEventWorkers       = "event_workers"
	KeyLogLevel           = "log_level"
	KeyLogFormat          = "log_format"
	KeyOTelServiceName    = "otel_service_name"
	KeyOTelServiceVersion = "otel_service_version"
	KeyOTelEnvironment    = "otel_environment"
	KeyOTelExporter       = "otel_exporter"
)

// Config is the complete runtime configuration.
type Config struct {
	Port         int
	DatabasePath string
	Import       ImportConfig
	EventWorkers int
	Log          LogConfig
	Telemetry    TelemetryConfig
}

// ImportConfig bounds CSV imports.
type ImportConfig struct {
	MaxBytes     int64
	DisplayLimit int
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       string
}

// Insecure reports whether OTLP export should use plain HTTP.
func (t TelemetryConfig) Insecure() bool {
	return t.Environment == "development"
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyDatabasePath, "providerhub.db")
	v.SetDefault(KeyImportMaxBytes, 5_000_000)
	v.SetDefault(KeyImportDisplayLimit, 10)
	v.SetDefault(KeyEventWorkers, 2)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyOTelServiceName, "providerhub")
	v.SetDefault(KeyOTelServiceVersion, "0.1.0")
	v.SetDefault(KeyOTelEnvironment, "development")
	v.SetDefault(KeyOTelExporter, "stdout")
}

// Load reads configuration from the environment only.
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, which may already carry bound
// flags. Environment variables override the config file; bound flags that
// were set on the command line override both.
func LoadFrom(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:         v.GetInt(KeyPort),
		DatabasePath: v.GetString(KeyDatabasePath),
		Import: ImportConfig{
			MaxBytes:     v.GetInt64(KeyImportMaxBytes),
			DisplayLimit: v.GetInt(KeyImportDisplayLimit),
		},
		EventWorkers: v.GetInt(KeyEventWorkers),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString(KeyLogLevel)),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
		Telemetry: TelemetryConfig{
			ServiceName:    v.GetString(KeyOTelServiceName),
			ServiceVersion: v.GetString(KeyOTelServiceVersion),
			Environment:    v.GetString(KeyOTelEnvironment),
			Exporter:       strings.ToLower(v.GetString(KeyOTelExporter)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, errors.New("DATABASE_PATH is required"))
	}
	if c.Import.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_MAX_BYTES must be positive, got %d", c.Import.MaxBytes))
	}
	if c.Import.DisplayLimit <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_ERROR_DISPLAY_LIMIT must be positive, got %d", c.Import.DisplayLimit))
	}
	if c.EventWorkers <= 0 {
		errs = append(errs, fmt.Errorf("EVENT_WORKERS must be positive, got %d", c.EventWorkers))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	switch c.Telemetry.Exporter {
	case "stdout", "otlp", "none":
	default:
		errs = append(errs, fmt.Errorf("OTEL_EXPORTER must be stdout, otlp or none, got %q", c.Telemetry.Exporter))
	}

	return errors.Join(errs...)
}
