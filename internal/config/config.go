package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the degiro tools.
type Config struct {
	Degiro  Degiro        `yaml:"degiro"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Storage Storage       `yaml:"storage"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
	Metrics Metrics       `yaml:"metrics"`
}

// Degiro holds credentials and an optional pre-existing session. When both
// SessionID and AccountID are set, login can be skipped.
type Degiro struct {
	Username  string `yaml:"username" env:"DEGIRO_USER"`
	Password  string `yaml:"password" env:"DEGIRO_PASS"`
	SessionID string `yaml:"session_id" env:"DEGIRO_SID"`
	AccountID int64  `yaml:"account_id" env:"DEGIRO_ACCOUNT"`
	BaseURL   string `yaml:"base_url" env:"DEGIRO_BASE_URL"`
	Debug     bool   `yaml:"debug" env:"DEGIRO_DEBUG"`

	// ProductType narrows symbol lookups when placing orders ("shares",
	// "etfs", ..., or "all").
	ProductType string `yaml:"product_type"`
}

// HasSession reports whether a complete pre-existing session is configured.
func (d Degiro) HasSession() bool {
	return d.SessionID != "" && d.AccountID != 0
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key" env:"ALPACA_API_KEY"`
	APISecret string `yaml:"api_secret" env:"ALPACA_API_SECRET"`
	BaseURL   string `yaml:"base_url" env:"ALPACA_BASE_URL"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir" env:"DATA_DIR"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format"`
}

// TradingConfig selects the broker backend ("degiro" or "alpaca") and the
// pre-trade risk limits.
type TradingConfig struct {
	Broker         string  `yaml:"broker" env:"BROKER"`
	MaxPositionPct float64 `yaml:"max_position_pct"`
	MaxOrderValue  float64 `yaml:"max_order_value"`
}

// Metrics configures the Prometheus textfile export. Commands write the
// registry to TextfilePath on exit when it is set.
type Metrics struct {
	TextfilePath string `yaml:"textfile" env:"DEGIRO_METRICS_FILE"`
}

// LogLevel returns the effective log level; the degiro debug flag wins.
func (c *Config) LogLevel() string {
	if c.Degiro.Debug {
		return "debug"
	}
	return c.Logging.Level
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides and fills in defaults. A missing file is
// not an error: configuration may come from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	applyDefaults(cfg)

	switch cfg.Trading.Broker {
	case "degiro", "alpaca":
	default:
		return nil, fmt.Errorf("unknown trading broker %q (want degiro or alpaca)", cfg.Trading.Broker)
	}

	return cfg, nil
}

// applyDefaults fills fields left empty by both the file and the
// environment.
func applyDefaults(cfg *Config) {
	if cfg.Degiro.BaseURL == "" {
		cfg.Degiro.BaseURL = "https://trader.degiro.nl"
	}
	if cfg.Degiro.ProductType == "" {
		cfg.Degiro.ProductType = "shares"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/degiro.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Trading.Broker == "" {
		cfg.Trading.Broker = "degiro"
	}
}
