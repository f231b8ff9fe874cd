// Package daemon holds the process configuration and the service wiring
// behind `greencred serve`.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/greencred/greencred/internal/app/verifier"
	"github.com/greencred/greencred/internal/infra/observability"
)

// EnvPrefix is the environment override prefix, e.g. GREENCRED_API_PORT.
const EnvPrefix = "greencred"

// Config is the full daemon configuration, read from config.toml.
type Config struct {
	API          APIConfig          `toml:"api"`
	Verification VerificationConfig `toml:"verification"`
	Ledger       LedgerConfig       `toml:"ledger"`
	Journal      JournalConfig      `toml:"journal"`
	Telemetry    TelemetryConfig    `toml:"telemetry"`
	Log          LogConfig          `toml:"log"`
	Catalog      CatalogConfig      `toml:"catalog"`
}

type APIConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Timeout     string `toml:"timeout"`
	MaxUploadMB int    `toml:"max_upload_mb" split_words:"true"`
}

// Addr returns host:port.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type VerificationConfig struct {
	MinDelay     string  `toml:"min_delay" split_words:"true"`
	MaxDelay     string  `toml:"max_delay" split_words:"true"`
	ApprovalRate float64 `toml:"approval_rate" split_words:"true"`
}

type LedgerConfig struct {
	Seed           string `toml:"seed"` // "demo" or "empty"
	OpeningBalance int    `toml:"opening_balance" split_words:"true"`
	WeeklyGoal     int    `toml:"weekly_goal" split_words:"true"`
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // default: $GREENCRED_HOME/journal.db
}

type TelemetryConfig struct {
	Metrics      bool    `toml:"metrics"`
	Tracing      bool    `toml:"tracing"`
	Exporter     string  `toml:"exporter"` // stdout, otlp_http
	OTLPEndpoint string  `toml:"otlp_endpoint" envconfig:"otlp_endpoint"`
	OTLPInsecure bool    `toml:"otlp_insecure" envconfig:"otlp_insecure"`
	SampleRate   float64 `toml:"sample_rate" split_words:"true"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text, json
}

type CatalogConfig struct {
	Path string `toml:"path"` // empty: built-in tables
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8420,
			Timeout:     "30s",
			MaxUploadMB: 32,
		},
		Verification: VerificationConfig{
			MinDelay:     "3s",
			MaxDelay:     "5s",
			ApprovalRate: verifier.DefaultApprovalRate,
		},
		Ledger: LedgerConfig{
			Seed:       "demo",
			WeeklyGoal: 50,
		},
		Journal: JournalConfig{
			Enabled: false,
		},
		Telemetry: TelemetryConfig{
			Metrics:    true,
			Tracing:    false,
			Exporter:   string(observability.ExporterStdout),
			SampleRate: 1.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Home returns $GREENCRED_HOME, or ~/.greencred.
func Home() string {
	if h := os.Getenv("GREENCRED_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".greencred"
	}
	return filepath.Join(home, ".greencred")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads path over the defaults, then applies GREENCRED_* environment
// overrides. An empty path means ConfigPath(); a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = ConfigPath()
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("process environment: %w", err)
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(Home(), "journal.db")
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}
	if _, err := parseDuration(c.API.Timeout, 30*time.Second); err != nil {
		errs = append(errs, fmt.Errorf("api.timeout: %w", err))
	}
	if c.API.MaxUploadMB < 0 {
		errs = append(errs, errors.New("api.max_upload_mb must be non-negative"))
	}

	if _, err := c.VerifierConfig(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Ledger.Seed) {
	case "", "demo", "empty":
	default:
		errs = append(errs, fmt.Errorf("ledger.seed %q must be demo or empty", c.Ledger.Seed))
	}
	if c.Ledger.OpeningBalance < 0 {
		errs = append(errs, errors.New("ledger.opening_balance must be non-negative"))
	}

	if c.Telemetry.Tracing {
		switch observability.ExporterType(c.Telemetry.Exporter) {
		case observability.ExporterStdout, observability.ExporterOTLPHTTP, observability.ExporterNone:
		default:
			errs = append(errs, fmt.Errorf("telemetry.exporter %q not supported", c.Telemetry.Exporter))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// VerifierConfig converts the [verification] section.
func (c Config) VerifierConfig() (verifier.Config, error) {
	def := verifier.DefaultConfig()
	lo, err := parseDuration(c.Verification.MinDelay, def.MinDelay)
	if err != nil {
		return def, fmt.Errorf("verification.min_delay: %w", err)
	}
	hi, err := parseDuration(c.Verification.MaxDelay, def.MaxDelay)
	if err != nil {
		return def, fmt.Errorf("verification.max_delay: %w", err)
	}
	if lo < 0 || hi < lo {
		return def, fmt.Errorf("verification delays must satisfy 0 <= min_delay (%s) <= max_delay (%s)", lo, hi)
	}
	rate := c.Verification.ApprovalRate
	if rate < 0 || rate > 1 {
		return def, fmt.Errorf("verification.approval_rate %v must be within [0, 1]", rate)
	}
	return verifier.Config{MinDelay: lo, MaxDelay: hi, ApprovalRate: rate}, nil
}

// TracingConfig converts the [telemetry] section.
func (c Config) TracingConfig(version string) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:        c.Telemetry.Tracing,
		ServiceName:    "greencred",
		ServiceVersion: version,
		Exporter:       observability.ExporterType(c.Telemetry.Exporter),
		OTLPEndpoint:   c.Telemetry.OTLPEndpoint,
		OTLPInsecure:   c.Telemetry.OTLPInsecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// RequestTimeout returns the parsed [api].timeout.
func (c Config) RequestTimeout() time.Duration {
	d, _ := parseDuration(c.API.Timeout, 30*time.Second)
	return d
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
