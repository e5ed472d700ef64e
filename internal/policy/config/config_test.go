package config

import (
	"errors"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
)

func TestLoad_Defaults(t *testing.T) {
	// DatabaseURL has no usable default and must come from the environment.
	t.Setenv("SENDGATE_DATABASE_URL", "postgres://sendgate@localhost/sendgate?sslmode=disable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %q", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel=info, got %q", cfg.LogLevel)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.Port)
	}
	if cfg.SnapshotPath != "/var/lib/sendgate/snapshots.db" {
		t.Errorf("expected SnapshotPath=/var/lib/sendgate/snapshots.db, got %q", cfg.SnapshotPath)
	}
	if cfg.DefaultZone != "UTC" {
		t.Errorf("expected DefaultZone=UTC, got %q", cfg.DefaultZone)
	}
	if cfg.ReevalSeconds != 60 {
		t.Errorf("expected ReevalSeconds=60, got %d", cfg.ReevalSeconds)
	}
	if cfg.CacheSize != 4096 {
		t.Errorf("expected CacheSize=4096, got %d", cfg.CacheSize)
	}
	if cfg.BloomFPRate != 0.01 {
		t.Errorf("expected BloomFPRate=0.01, got %v", cfg.BloomFPRate)
	}
	if cfg.ReevalInterval() != 60*time.Second {
		t.Errorf("expected ReevalInterval=60s, got %v", cfg.ReevalInterval())
	}
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("SENDGATE_ENV", "dev")
	t.Setenv("SENDGATE_LOG_LEVEL", "debug")
	t.Setenv("SENDGATE_PORT", "9090")
	t.Setenv("SENDGATE_DATABASE_URL", "postgres://sendgate@db/sendgate")
	t.Setenv("SENDGATE_SNAPSHOT_PATH", "/tmp/snapshots.db")
	t.Setenv("SENDGATE_DEFAULT_ZONE", "America/New_York")
	t.Setenv("SENDGATE_REEVAL_SECONDS", "15")
	t.Setenv("SENDGATE_CACHE_SIZE", "100")
	t.Setenv("SENDGATE_BLOOM_FP_RATE", "0.05")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Env != "dev" {
		t.Errorf("expected Env=dev, got %q", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel=debug, got %q", cfg.LogLevel)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected Port=9090, got %d", cfg.Port)
	}
	if cfg.DefaultZone != "America/New_York" {
		t.Errorf("expected DefaultZone=America/New_York, got %q", cfg.DefaultZone)
	}
	if cfg.ReevalInterval() != 15*time.Second {
		t.Errorf("expected ReevalInterval=15s, got %v", cfg.ReevalInterval())
	}
	if cfg.BloomFPRate != 0.05 {
		t.Errorf("expected BloomFPRate=0.05, got %v", cfg.BloomFPRate)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad env", "SENDGATE_ENV", "staging"},
		{"bad log level", "SENDGATE_LOG_LEVEL", "verbose"},
		{"port out of range", "SENDGATE_PORT", "70000"},
		{"missing database url", "SENDGATE_DATABASE_URL", ""},
		{"bad zone", "SENDGATE_DEFAULT_ZONE", "Not/A_Zone"},
		{"zero reeval", "SENDGATE_REEVAL_SECONDS", "0"},
		{"fp rate too high", "SENDGATE_BLOOM_FP_RATE", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SENDGATE_DATABASE_URL", "postgres://sendgate@localhost/sendgate")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected validation error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_EnvLoaderFailure(t *testing.T) {
	orig := envLoader
	defer func() { envLoader = orig }()
	envLoader = func(k *koanf.Koanf) error {
		return errors.New("boom")
	}

	if _, err := Load(); err == nil {
		t.Error("expected error when env loading fails")
	}
}
