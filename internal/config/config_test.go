package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATA_DIR", "BOT_DB_PATH", "MARKET_DB_PATH",
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_DATA_URL",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadFull(t *testing.T) {
	clearEnvOverrides(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/botboard/data"
  bot_db_path: "/tmp/botboard/bots.db"
  market_db_path: "/tmp/botboard/market.db"
server:
  host: "0.0.0.0"
  port: 8080
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
logging:
  level: "info"
  format: "json"
ledger:
  initial_cash: 1000000
stats:
  refresh_interval: 30s
  active_window: 72h
sync:
  symbols: ["AAPL", "MSFT"]
  interval: 24h
  lookback_days: 300
  batch_size: 100
  rate_limit_per_min: 200
bots:
  - account: "momentum-1"
    strategy: "momentum"
    symbol: "AAPL"
    qty: 1
    interval: 24h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.BotDBPath != "/tmp/botboard/bots.db" {
		t.Errorf("Storage.BotDBPath = %q, want /tmp/botboard/bots.db", cfg.Storage.BotDBPath)
	}
	if cfg.Storage.MarketDBPath != "/tmp/botboard/market.db" {
		t.Errorf("Storage.MarketDBPath = %q, want /tmp/botboard/market.db", cfg.Storage.MarketDBPath)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("Server = %+v, want 0.0.0.0:8080", cfg.Server)
	}
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca = %+v, want test-key/test-secret", cfg.Alpaca)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
	if cfg.Ledger.InitialCash != 1_000_000 {
		t.Errorf("Ledger.InitialCash = %v, want 1000000", cfg.Ledger.InitialCash)
	}
	if cfg.Stats.RefreshInterval.Std() != 30*time.Second {
		t.Errorf("Stats.RefreshInterval = %v, want 30s", cfg.Stats.RefreshInterval.Std())
	}
	if cfg.Stats.ActiveWindow.Std() != 72*time.Hour {
		t.Errorf("Stats.ActiveWindow = %v, want 72h", cfg.Stats.ActiveWindow.Std())
	}
	if len(cfg.Sync.Symbols) != 2 || cfg.Sync.Symbols[0] != "AAPL" {
		t.Errorf("Sync.Symbols = %v, want [AAPL MSFT]", cfg.Sync.Symbols)
	}
	if cfg.Sync.Lookback != 300 || cfg.Sync.PerMinute != 200 {
		t.Errorf("Sync = %+v, want lookback 300, rate 200", cfg.Sync)
	}
	if len(cfg.Bots) != 1 {
		t.Fatalf("got %d bots, want 1", len(cfg.Bots))
	}
	bot := cfg.Bots[0]
	if bot.Account != "momentum-1" || bot.Strategy != "momentum" || bot.Symbol != "AAPL" || bot.Qty != 1 {
		t.Errorf("bot = %+v, want momentum-1/momentum/AAPL/1", bot)
	}
	if bot.Interval.Std() != 24*time.Hour {
		t.Errorf("bot.Interval = %v, want 24h", bot.Interval.Std())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnvOverrides(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  bot_db_path: "/original/bots.db"
`)

	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("BOT_DB_PATH", "/env/bots.db")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("BOT_DB_PATH")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want env-key (env override)", cfg.Alpaca.APIKey)
	}
	// api_secret stays from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want yaml-secret (from YAML)", cfg.Alpaca.APISecret)
	}
	if cfg.Storage.BotDBPath != "/env/bots.db" {
		t.Errorf("Storage.BotDBPath = %q, want /env/bots.db (env override)", cfg.Storage.BotDBPath)
	}
}

func TestLoadRejectsInvalidBots(t *testing.T) {
	clearEnvOverrides(t)

	cases := []struct {
		name    string
		content string
	}{
		{"missing account", "bots:\n  - strategy: momentum\n    symbol: AAPL\n    qty: 1\n"},
		{"missing symbol", "bots:\n  - account: bot-1\n    strategy: momentum\n    qty: 1\n"},
		{"negative qty", "bots:\n  - account: bot-1\n    strategy: momentum\n    symbol: AAPL\n    qty: -1\n"},
		{"negative initial cash", "ledger:\n  initial_cash: -5\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("Load() returned nil error, want validation failure")
			}
		})
	}
}
