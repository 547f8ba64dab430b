// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (gate, backend client, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the portal gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Backend API that owns users, findings, statistics and imports.
	BackendURL string `env:"BACKEND_URL,required"`

	// IdentityTimeout bounds a single "who am I" verification. A timeout is
	// handled exactly like a network failure (fail closed).
	IdentityTimeout time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"5s"`

	// BackendTimeout bounds every other backend call (imports can be slow).
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`

	// Key-Value Cache (Redis) for portal sessions and import status.
	RedisURL string `env:"REDIS_URL,required"`

	// SessionSecret signs the portal session cookie.
	SessionSecret string `env:"SESSION_SECRET,required"`

	// SecureCookies marks every cookie issued by the portal as Secure.
	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"true"`

	// Relational Database (PostgreSQL). Optional: the access audit trail is
	// disabled when empty.
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// ImportSchedule is a five-field cron expression for the batch import
	// of all servers. Empty disables the scheduler.
	ImportSchedule string `env:"IMPORT_SCHEDULE"`

	// LogoutHosts lists identity-provider hosts that a logout may redirect to.
	LogoutHosts []string `env:"LOGOUT_HOSTS" envSeparator:","`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`

	// TrustedProxies are the CIDRs or addresses of the reverse proxies whose
	// X-Real-IP and X-Forwarded-For headers are believed. Empty trusts none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// MigrationConfig is the subset of settings the migrate command needs.
type MigrationConfig struct {
	DatabaseURL   string `env:"DATABASE_URL,notEmpty"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`
}

// BackendConfig is the subset of settings needed to talk to the backend
// without the session store.
type BackendConfig struct {
	BackendURL      string        `env:"BACKEND_URL,required"`
	IdentityTimeout time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"5s"`
	BackendTimeout  time.Duration `env:"BACKEND_TIMEOUT"  envDefault:"30s"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadMigration parses the settings of the migrate command.
func LoadMigration() (*MigrationConfig, error) {
	cfg := &MigrationConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// LoadBackend parses the backend settings used by the diagnostic commands.
func LoadBackend() (*BackendConfig, error) {
	cfg := &BackendConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := validateBackendURL(cfg.BackendURL); err != nil {
		return nil, err
	}
	if cfg.IdentityTimeout <= 0 {
		return nil, fmt.Errorf("config: IDENTITY_TIMEOUT must be positive")
	}

	return cfg, nil
}

func validateBackendURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("config: BACKEND_URL must be an absolute URL, got %q", raw)
	}
	return nil
}

// validate checks cross-field constraints that struct tags cannot express.
func (c *Config) validate() error {
	if err := validateBackendURL(c.BackendURL); err != nil {
		return err
	}

	if c.IdentityTimeout <= 0 {
		return fmt.Errorf("config: IDENTITY_TIMEOUT must be positive")
	}

	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("config: SESSION_SECRET must be at least 32 bytes")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuditEnabled reports whether the access audit trail has a database.
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

// AllowedOrigins returns the CORS origins accepted outside development.
func (c *Config) AllowedOrigins() []string {
	return c.ExtraOrigins
}
