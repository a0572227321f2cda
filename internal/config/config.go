// Package config loads the server configuration: defaults, then an
// optional YAML file, then .env and HERA_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all server configuration.
type Config struct {
	Database DatabaseConfig   `yaml:"database"`
	Limits   guardrail.Limits `yaml:"limits"`
	Ledger   LedgerConfig     `yaml:"ledger"`
	Logging  LoggingConfig    `yaml:"logging"`
	Server   ServerConfig     `yaml:"server"`
	// NodeID seeds transaction code generation. Instances sharing a
	// database need distinct ids.
	NodeID int64 `yaml:"node_id" validate:"gte=0,lte=1023"`
}

// DatabaseConfig locates the row store.
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LedgerConfig tunes the write path.
type LedgerConfig struct {
	// Tolerance is the largest accepted debit/credit difference, as a
	// decimal string. "0" demands an exact balance.
	Tolerance string `yaml:"tolerance" validate:"required,numeric"`
	// DefaultWindow is how far back transaction queries look without a start.
	DefaultWindow    time.Duration `yaml:"default_window" validate:"gt=0"`
	StrictSmartCodes bool          `yaml:"strict_smart_codes"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// ServerConfig configures the transport. An empty HTTPAddr serves stdio.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "hera.db"},
		Limits:   guardrail.DefaultLimits(),
		Ledger: LedgerConfig{
			Tolerance:     guardrail.DefaultTolerance.String(),
			DefaultWindow: 30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		NodeID:  1,
	}
}

// Load builds the configuration. A missing file at path is not an
// error; an empty path skips the file. Values in a .env file in the
// working directory are exported before overrides are read, without
// replacing variables that are already set.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies HERA_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HERA_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("HERA_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("HERA_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("HERA_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("HERA_STRICT_SMART_CODES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HERA_STRICT_SMART_CODES: %w", err)
		}
		c.Ledger.StrictSmartCodes = b
	}
	if v := os.Getenv("HERA_NODE_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HERA_NODE_ID: %w", err)
		}
		c.NodeID = n
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and the relations between limits.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	tol, err := decimal.NewFromString(c.Ledger.Tolerance)
	if err != nil {
		return fmt.Errorf("invalid config: ledger.tolerance: %w", err)
	}
	if tol.IsNegative() {
		return fmt.Errorf("invalid config: ledger.tolerance %s is negative", c.Ledger.Tolerance)
	}
	return nil
}

// Tolerance returns Ledger.Tolerance as a decimal. Validate guarantees it
// parses.
func (c *Config) Tolerance() decimal.Decimal {
	d, err := decimal.NewFromString(c.Ledger.Tolerance)
	if err != nil {
		return guardrail.DefaultTolerance
	}
	return d
}
