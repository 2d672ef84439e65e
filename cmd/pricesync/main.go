// Command pricesync pulls daily closes from Alpaca into the market history
// database. By default it syncs once and exits (cron friendly); with
// -daemon it keeps syncing on the configured interval.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"botboard/internal/config"
	"botboard/internal/markethist"
	"botboard/internal/pricesync"
	"botboard/internal/util"
)

func main() {
	daemon := flag.Bool("daemon", false, "keep syncing on the configured interval")
	flag.Parse()

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

	marketDB, err := markethist.Open(cfg.Storage.MarketDBPath)
	if err != nil {
		log.Fatalf("opening market history: %v", err)
	}
	defer marketDB.CloseDB()

	syncer := pricesync.NewSyncer(marketDB, pricesync.Options{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
		DataURL:   cfg.Alpaca.DataURL,
		Symbols:   cfg.Sync.Symbols,
		Lookback:  cfg.Sync.Lookback,
		BatchSize: cfg.Sync.BatchSize,
		PerMinute: cfg.Sync.PerMinute,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *daemon {
		if err := syncer.Run(ctx, cfg.Sync.Interval.Std()); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("pricesync: %v", err)
		}
		return
	}
	if err := syncer.Sync(ctx); err != nil {
		log.Fatalf("pricesync: %v", err)
	}
	slog.Info("pricesync done", "symbols", len(cfg.Sync.Symbols))
}
