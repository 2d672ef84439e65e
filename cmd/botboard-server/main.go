package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"botboard/internal/bots"
	"botboard/internal/config"
	"botboard/internal/httpapi"
	"botboard/internal/ledger"
	"botboard/internal/markethist"
	"botboard/internal/perf"
	"botboard/internal/stats"
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

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

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

	submitter := ledger.NewSubmitter(botStore, cfg.Ledger.InitialCash)
	service := stats.NewService(
		botStore, botStore, botStore, marketDB,
		cfg.Ledger.InitialCash, cfg.Stats.ActiveWindow.Std(),
	)

	accounts := make([]string, 0, len(cfg.Bots))
	for _, bot := range cfg.Bots {
		accounts = append(accounts, bot.Account)
	}
	refresher := stats.NewRefresher(service, accounts, cfg.Stats.RefreshInterval.Std())

	archive := perf.NewArchive(cfg.Storage.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go refresher.Run(ctx)
	go recordPerformance(ctx, refresher, archive, accounts)

	// Paper-trading bots, one runner loop each.
	runner := bots.NewRunner(bots.NewRegistry(), marketDB, botStore, botStore, submitter)
	for _, bc := range cfg.Bots {
		go runner.Run(ctx, bots.Bot{
			AccountID: bc.Account,
			Strategy:  bc.Strategy,
			Symbol:    bc.Symbol,
			Qty:       bc.Qty,
			Interval:  bc.Interval.Std(),
		})
	}

	api := httpapi.NewDashboardServer(refresher, submitter, botStore, botStore, marketDB, archive)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	slog.Info("botboard-server listening", "addr", addr, "bots", len(cfg.Bots))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	slog.Info("botboard-server stopped")
}

// recordPerformance archives the latest snapshot of every account once per
// hour. The archive deduplicates by day, so this yields one point per bot
// per day regardless of cadence.
func recordPerformance(ctx context.Context, refresher *stats.Refresher, archive *perf.Archive, accounts []string) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range accounts {
				snap, ok := refresher.Latest(id)
				if !ok {
					continue
				}
				if err := archive.RecordSnapshot(ctx, snap); err != nil {
					slog.Warn("recording performance point", "account", id, "error", err)
				}
			}
		}
	}
}
