// Command momentum-bot runs one momentum evaluation for a single account
// and exits. It is designed for cron: every run reads the last two closes,
// submits at most one order, and leaves everything else alone.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"botboard/internal/bots"
	"botboard/internal/config"
	"botboard/internal/ledger"
	"botboard/internal/markethist"
	"botboard/internal/store"
	"botboard/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "config/botboard.yaml"
	if p := os.Getenv("BOTBOARD_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	account := envOr("BOT_MOMENTUM_ACCOUNT", "momentum-1")
	symbol := envOr("BOT_MOMENTUM_SYMBOL", "AAPL")
	qty, err := strconv.ParseFloat(envOr("BOT_MOMENTUM_QTY", "1"), 64)
	if err != nil {
		log.Fatalf("invalid BOT_MOMENTUM_QTY: %v", err)
	}

	botStore, err := store.NewSQLiteStore(cfg.Storage.BotDBPath)
	if err != nil {
		log.Fatalf("opening bot store: %v", err)
	}
	defer botStore.Close()

	marketDB, err := markethist.Open(cfg.Storage.MarketDBPath)
	if err != nil {
		log.Fatalf("opening market history: %v", err)
	}
	defer marketDB.CloseDB()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	submitter := ledger.NewSubmitter(botStore, cfg.Ledger.InitialCash)
	runner := bots.NewRunner(bots.NewRegistry(), marketDB, botStore, botStore, submitter)

	slog.Info("momentum bot tick", "account", account, "symbol", symbol, "qty", qty)
	err = runner.TickOnce(ctx, bots.Bot{
		AccountID: account,
		Strategy:  "momentum",
		Symbol:    symbol,
		Qty:       qty,
	})
	if err != nil {
		log.Fatalf("tick failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
