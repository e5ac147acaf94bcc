// Package config provides application configuration management.
// Configuration is read from environment variables (optionally preloaded
// from a .env file) following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Store
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/bounty.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Logging. LogFormat defaults to "text" in development and "json"
	// everywhere else.
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`

	// Server timeouts. WriteTimeout bounds the CSV download too.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Identity sync policy
	AllowedEmailDomains []string `env:"ALLOWED_EMAIL_DOMAINS" envSeparator:"," envDefault:"qed42.com"`
	DefaultRole         string   `env:"DEFAULT_USER_ROLE" envDefault:"authenticated"`
	MaxUsernameAttempts int      `env:"MAX_USERNAME_ATTEMPTS" envDefault:"1000"`

	// Content model names
	TeamVocabulary string `env:"TEAM_VOCABULARY" envDefault:"project_team"`
	ProjectType    string `env:"PROJECT_CONTENT_TYPE" envDefault:"project"`

	// Export
	ExportTempDir string `env:"EXPORT_TEMP_DIR"`
	ExportURL     string `env:"EXPORT_URL" envDefault:"/admin/projects/export/csv"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Validate checks cross-field rules and normalises list values in place.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("config: DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (want %q or %q)", c.DBDriver, DriverSQLite, DriverPostgres)
	}

	c.AllowedEmailDomains = normalizeDomains(c.AllowedEmailDomains)
	if len(c.AllowedEmailDomains) == 0 {
		return errors.New("config: ALLOWED_EMAIL_DOMAINS must list at least one domain")
	}

	if c.DefaultRole == "" {
		return errors.New("config: DEFAULT_USER_ROLE must not be empty")
	}
	if c.TeamVocabulary == "" || c.ProjectType == "" {
		return errors.New("config: TEAM_VOCABULARY and PROJECT_CONTENT_TYPE must not be empty")
	}
	if c.MaxUsernameAttempts <= 0 {
		return fmt.Errorf("config: MAX_USERNAME_ATTEMPTS must be positive, got %d", c.MaxUsernameAttempts)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}

	if c.LogFormat == "" {
		c.LogFormat = "json"
		if c.IsDevelopment() {
			c.LogFormat = "text"
		}
	}

	return nil
}

// normalizeDomains trims, lowercases and drops a leading "@" from each
// entry, skipping blanks and duplicates.
func normalizeDomains(domains []string) []string {
	result := make([]string, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))

	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "@")
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		result = append(result, d)
	}

	return result
}

// Load reads an optional .env file, parses environment variables and
// validates the result.
//
// Variables already present in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
