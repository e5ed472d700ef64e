// Package config loads sendgate settings from SENDGATE_-prefixed
// environment variables, layered over defaults and validated before the
// application starts.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the network port the HTTP server will bind to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// DatabaseURL is the Postgres connection string for the authoritative
	// rule and work-record store.
	DatabaseURL string `koanf:"database_url" validate:"required"`

	// SnapshotPath is the bolt database file holding per-list rule
	// snapshots for the advisory fallback path.
	SnapshotPath string `koanf:"snapshot_path" validate:"required"`

	// DefaultZone is the IANA timezone used when a list has none configured.
	DefaultZone string `koanf:"default_zone" validate:"required,timezone"`

	// ReevalSeconds is the advisory re-evaluation interval.
	ReevalSeconds uint `koanf:"reeval_seconds" validate:"required,gte=1"`

	// CacheSize bounds each list's domain-match decision cache.
	CacheSize int `koanf:"cache_size" validate:"required,gte=1"`

	// BloomFPRate is the target false-positive rate for the blocklist
	// Bloom prefilter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"required,gt=0,lt=1"`
}

// ReevalInterval returns the advisory re-evaluation interval as a Duration.
func (c *AppConfig) ReevalInterval() time.Duration {
	return time.Duration(c.ReevalSeconds) * time.Second
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:           "prod",
	LogLevel:      "info",
	Port:          8080,
	DatabaseURL:   "",
	SnapshotPath:  "/var/lib/sendgate/snapshots.db",
	DefaultZone:   "UTC",
	ReevalSeconds: 60,
	CacheSize:     4096,
	BloomFPRate:   0.01,
}

// envLoader loads environment variables with the prefix "SENDGATE_",
// lowercasing keys and trimming the prefix. It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SENDGATE_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "SENDGATE_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default values using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
