// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Donor    DonorConfig
}

// ServiceConfig identifies the running service instance.
type ServiceConfig struct {
	Name        string `env:"SERVICE_NAME" envDefault:"be-donor-pipeline"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8086"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host        string        `env:"DB_HOST" envDefault:"localhost"`
	Port        int           `env:"DB_PORT" envDefault:"5432"`
	User        string        `env:"DB_USER" envDefault:"postgres"`
	Password    string        `env:"DB_PASSWORD"`
	Database    string        `env:"DB_NAME" envDefault:"donor_pipeline"`
	SSLMode     string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns    int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns    int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnTime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxIdleTime time.Duration `env:"DB_MAX_CONN_IDLE" envDefault:"30m"`
}

// NATSConfig holds the notification event bus settings. URL may be empty,
// in which case event publishing is disabled.
type NATSConfig struct {
	URL string `env:"NATS_URL"`
}

// DonorConfig holds tunables for the commitment and attention logic.
type DonorConfig struct {
	// GracePeriodDays is the tolerance window before a missed expected
	// gift counts as late.
	GracePeriodDays int `env:"PLEDGE_GRACE_PERIOD_DAYS" envDefault:"5"`
	// AtRiskThresholdDays is how long since the last gift before a donor
	// with giving history is considered at risk.
	AtRiskThresholdDays int `env:"AT_RISK_THRESHOLD_DAYS" envDefault:"60"`
	// AttentionPreviewLimit caps the per-category previews in the
	// needs-attention summary.
	AttentionPreviewLimit int `env:"ATTENTION_PREVIEW_LIMIT" envDefault:"5"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Donor.GracePeriodDays < 0 {
		return nil, fmt.Errorf("PLEDGE_GRACE_PERIOD_DAYS must not be negative")
	}
	if cfg.Donor.AtRiskThresholdDays <= 0 {
		return nil, fmt.Errorf("AT_RISK_THRESHOLD_DAYS must be positive")
	}
	return cfg, nil
}
