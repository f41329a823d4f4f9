// Package config loads the settings of the ledger driver from the
// environment (LEDGER_*), an optional .env file and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ardanlabs/conf/v3"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Prefix of every environment variable, e.g. LEDGER_AUDIT_ADDR.
const Prefix = "LEDGER"

// ErrHelpWanted is returned by Load when --help or --version was requested.
// The usage text is carried by the returned Help string.
var ErrHelpWanted = conf.ErrHelpWanted

// ErrInvalid is wrapped by Load when a parsed value is out of range.
var ErrInvalid = errors.New("config: invalid value")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	LogLevel string `conf:"default:info,help:log level (debug|info|warn|error)" validate:"oneof=debug info warn error"`
	// AuditAddr is the listen address of the audit API. Empty disables it.
	AuditAddr string `conf:"help:listen address of the read-only audit API such as :8080"`
	// FixedClock stamps blocks with a logical clock so that hashes are the
	// same on every run.
	FixedClock bool `conf:"default:false,help:use a deterministic clock for block timestamps"`
}

// Load parses the configuration from os.Args and the environment. When help
// is requested it returns the usage text together with an error matching
// ErrHelpWanted.
func Load() (Config, string, error) {
	_ = godotenv.Load()

	var cfg Config
	help, err := conf.Parse(Prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return cfg, help, err
		}
		return cfg, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, "", fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, "", nil
}

// Level converts LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String renders the configuration for startup logs.
func (c Config) String() string {
	out, err := conf.String(&c)
	if err != nil {
		return fmt.Sprintf("%+v", struct {
			LogLevel   string
			AuditAddr  string
			FixedClock bool
		}{c.LogLevel, c.AuditAddr, c.FixedClock})
	}
	return out
}
