package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// #region config

// Config holds the runtime settings for the governance daemon.
type Config struct {
	// AuditDB is the SQLite file backing the audit trail. Empty selects
	// the in-memory sink.
	AuditDB string `env:"GOVERND_AUDIT_DB" envDefault:"governance_audit.db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"GOVERND_LOG_LEVEL" envDefault:"info"`

	// SweepSeconds is the admission window maintenance interval.
	SweepSeconds int `env:"GOVERND_SWEEP_SECONDS" envDefault:"30"`

	// OTELEndpoint enables tracing when non-empty.
	OTELEndpoint string `env:"GOVERND_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// #endregion config
