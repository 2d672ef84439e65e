// Package pricesync pulls daily closes for the watched symbols from the
// Alpaca market-data API into the local market history database. The bots
// and the statistics engine read prices only from that database, so this is
// the single place the external feed is touched.
package pricesync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"botboard/internal/markethist"
	"botboard/internal/util"
)

// barClient is the slice of the Alpaca market-data client the syncer uses.
type barClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// Syncer fetches daily bars in batches and upserts their closes.
type Syncer struct {
	client    barClient
	db        *markethist.DB
	symbols   []string
	lookback  int // calendar days of history per sync
	batchSize int
	limiter   *util.RateLimiter
	log       *slog.Logger
}

// Options configures NewSyncer. Zero values get sensible defaults.
type Options struct {
	APIKey    string
	APISecret string
	DataURL   string
	Symbols   []string
	Lookback  int // days; default 300 so the slowest strategy has history
	BatchSize int // symbols per API call; default 100
	PerMinute int // API rate limit; default 200
}

// NewSyncer creates a Syncer over the given market history database.
func NewSyncer(db *markethist.DB, opts Options) *Syncer {
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 300
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.PerMinute <= 0 {
		opts.PerMinute = 200
	}
	return &Syncer{
		client:    marketdata.NewClient(clientOpts),
		db:        db,
		symbols:   opts.Symbols,
		lookback:  opts.Lookback,
		batchSize: opts.BatchSize,
		limiter:   util.NewRateLimiter(opts.PerMinute),
		log:       slog.Default().With("component", "pricesync"),
	}
}

// Sync fetches the lookback window of daily bars for every configured symbol
// and upserts the closes. Re-running is idempotent; already-stored days are
// overwritten with identical values.
func (s *Syncer) Sync(ctx context.Context) error {
	if len(s.symbols) == 0 {
		s.log.Info("no symbols configured, nothing to sync")
		return nil
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -s.lookback)
	runStart := time.Now()
	var totalRows int

	for i := 0; i < len(s.symbols); i += s.batchSize {
		batch := s.symbols[i:min(i+s.batchSize, len(s.symbols))]

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		var bars map[string][]marketdata.Bar
		err := util.Retry(ctx, 3, time.Second, func() error {
			var fetchErr error
			bars, fetchErr = s.client.GetMultiBars(batch, marketdata.GetBarsRequest{
				TimeFrame: marketdata.OneDay,
				Start:     start,
				End:       end,
				Feed:      "iex",
			})
			return fetchErr
		})
		if err != nil {
			return fmt.Errorf("fetching bars for %v: %w", batch, err)
		}

		closes := flattenCloses(bars)
		if err := s.db.UpsertCloses(ctx, closes); err != nil {
			return fmt.Errorf("storing closes: %w", err)
		}
		totalRows += len(closes)

		s.log.Info("batch synced",
			"symbols", len(batch), "rows", len(closes),
			"elapsed", time.Since(runStart).Round(time.Second))
	}

	s.log.Info("sync complete", "symbols", len(s.symbols), "rows", totalRows)
	return nil
}

// Run syncs immediately and then once per interval until ctx is cancelled.
// interval of 0 defaults to 24 hours.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if err := s.Sync(ctx); err != nil {
		s.log.Error("sync failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("pricesync stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.log.Error("sync failed", "error", err)
			}
		}
	}
}

// flattenCloses converts an Alpaca multi-bar response into close rows.
func flattenCloses(bars map[string][]marketdata.Bar) []markethist.Close {
	var closes []markethist.Close
	for symbol, symbolBars := range bars {
		upper := strings.ToUpper(symbol)
		for _, b := range symbolBars {
			closes = append(closes, markethist.Close{
				Symbol:     upper,
				RecordDate: b.Timestamp.UTC().Format("2006-01-02"),
				CloseValue: b.Close,
			})
		}
	}
	return closes
}
