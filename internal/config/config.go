// Package config loads the botboard YAML configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level configuration for the botboard platform.
type Config struct {
	Storage Storage     `yaml:"storage"`
	Server  Server      `yaml:"server"`
	Alpaca  Alpaca      `yaml:"alpaca"`
	Logging Logging     `yaml:"logging"`
	Ledger  Ledger      `yaml:"ledger"`
	Stats   StatsConfig `yaml:"stats"`
	Sync    SyncConfig  `yaml:"sync"`
	Bots    []BotConfig `yaml:"bots"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir      string `yaml:"data_dir"`       // root for the perf archive
	BotDBPath    string `yaml:"bot_db_path"`    // accounts, positions, orders
	MarketDBPath string `yaml:"market_db_path"` // daily close history
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Ledger configures the order submission engine.
type Ledger struct {
	InitialCash float64 `yaml:"initial_cash"` // 0 means the engine default
}

// StatsConfig configures the statistics refresher.
type StatsConfig struct {
	RefreshInterval Duration `yaml:"refresh_interval"` // 0 means 1m
	ActiveWindow    Duration `yaml:"active_window"`    // 0 means 72h
}

// SyncConfig configures the daily close sync job.
type SyncConfig struct {
	Symbols   []string `yaml:"symbols"`
	Interval  Duration `yaml:"interval"` // 0 means 24h
	Lookback  int      `yaml:"lookback_days"`
	BatchSize int      `yaml:"batch_size"`
	PerMinute int      `yaml:"rate_limit_per_min"`
}

// BotConfig binds one paper-trading bot to a strategy.
type BotConfig struct {
	Account  string   `yaml:"account"`
	Strategy string   `yaml:"strategy"`
	Symbol   string   `yaml:"symbol"`
	Qty      float64  `yaml:"qty"`
	Interval Duration `yaml:"interval"` // 0 means 24h
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations the engines would silently misbehave on.
func (cfg *Config) validate() error {
	for i, bot := range cfg.Bots {
		if bot.Account == "" {
			return fmt.Errorf("bots[%d]: account is required", i)
		}
		if bot.Symbol == "" {
			return fmt.Errorf("bot %s: symbol is required", bot.Account)
		}
		if bot.Qty < 0 {
			return fmt.Errorf("bot %s: qty must not be negative", bot.Account)
		}
	}
	if cfg.Ledger.InitialCash < 0 {
		return fmt.Errorf("ledger.initial_cash must not be negative")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("BOT_DB_PATH"); v != "" {
		cfg.Storage.BotDBPath = v
	}
	if v := os.Getenv("MARKET_DB_PATH"); v != "" {
		cfg.Storage.MarketDBPath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
