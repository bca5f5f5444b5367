package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DatabasePath != "providerhub.db" {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "providerhub.db")
	}
	if cfg.Import.MaxBytes != 5_000_000 {
		t.Errorf("Import.MaxBytes = %d, want 5000000", cfg.Import.MaxBytes)
	}
	if cfg.Import.DisplayLimit != 10 {
		t.Errorf("Import.DisplayLimit = %d, want 10", cfg.Import.DisplayLimit)
	}
	if cfg.Telemetry.ServiceName != "providerhub" || cfg.Telemetry.Exporter != "stdout" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	if !cfg.Telemetry.Insecure() {
		t.Error("development environment should export insecurely")
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/p.db")
	t.Setenv("IMPORT_MAX_BYTES", "1024")
	t.Setenv("IMPORT_ERROR_DISPLAY_LIMIT", "3")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("OTEL_ENVIRONMENT", "production")
	t.Setenv("OTEL_EXPORTER", "otlp")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9090 || cfg.DatabasePath != "/tmp/p.db" {
		t.Errorf("Port/DatabasePath = %d/%q", cfg.Port, cfg.DatabasePath)
	}
	if cfg.Import.MaxBytes != 1024 || cfg.Import.DisplayLimit != 3 {
		t.Errorf("Import = %+v", cfg.Import)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Telemetry.Insecure() {
		t.Error("production should not export insecurely")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providerhub.env")
	if err := os.WriteFile(path, []byte("PORT=7070\nIMPORT_MAX_BYTES=2048\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("IMPORT_MAX_BYTES", "4096")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from file", cfg.Port)
	}
	if cfg.Import.MaxBytes != 4096 {
		t.Errorf("Import.MaxBytes = %d, want env to win over file", cfg.Import.MaxBytes)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFrom_FlagsWin(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/from/env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "", "")
	if err := flags.Parse([]string{"--db=/from/flag.db"}); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	if err := v.BindPFlag(KeyDatabasePath, flags.Lookup("db")); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.DatabasePath != "/from/flag.db" {
		t.Errorf("DatabasePath = %q, want flag value", cfg.DatabasePath)
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	t.Setenv("PORT", "0")
	t.Setenv("IMPORT_MAX_BYTES", "-1")
	t.Setenv("OTEL_EXPORTER", "zipkin")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"PORT", "IMPORT_MAX_BYTES", "OTEL_EXPORTER", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}
