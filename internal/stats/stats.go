// Package stats implements the statistics recomputation engine: a pure,
// idempotent replay of an account's full order history that rebuilds every
// symbol's FIFO lot book from scratch and derives the performance snapshot
// shown on the dashboard. Nothing here mutates stored state.
package stats

import (
	"sort"
	"time"

	"botboard/internal/domain"
	"botboard/internal/fifo"
)

// DefaultActiveWindow is the recency window used to classify a bot as
// active: a trade within the last 3 days.
const DefaultActiveWindow = 3 * 24 * time.Hour

// Input carries everything Compute needs. Callers assemble it from the
// order log, the account record, and current mark-to-market values; Compute
// itself performs no I/O.
type Input struct {
	AccountID      string
	Orders         []domain.Order
	InitialCredits float64
	Cash           float64
	MarketValue    float64 // mark-to-market of all open positions
	OpenPositions  []domain.OpenPosition
	PriceGaps      []string // symbols whose price lookup failed
	Now            time.Time
	ActiveWindow   time.Duration // defaults to DefaultActiveWindow
}

// Compute replays the order history and returns the derived statistics.
// It is deterministic and side-effect-free: identical input yields an
// identical snapshot, and the input is never modified.
func Compute(in Input) domain.Stats {
	window := in.ActiveWindow
	if window <= 0 {
		window = DefaultActiveWindow
	}

	valid, malformed := normalizeOrders(in.Orders)

	totalValue := in.Cash + in.MarketValue
	totalPnL := domain.Round6(totalValue - in.InitialCredits)
	var roi float64
	if in.InitialCredits > domain.Epsilon {
		roi = totalPnL / in.InitialCredits
	}

	// Replay every symbol's lot book from scratch, independent of the live
	// position store.
	books := make(map[string][]domain.Lot)
	var (
		realized    float64
		wins        int
		losses      int
		closed      int
		divergences int
		lastTradeAt int64
	)
	for _, o := range valid {
		if o.Timestamp > lastTradeAt {
			lastTradeAt = o.Timestamp
		}
		switch o.Side {
		case domain.OrderSideBuy:
			books[o.Symbol] = fifo.Buy(books[o.Symbol], o.Qty, o.FillPrice, o.Timestamp)
		case domain.OrderSideSell:
			remaining, pnl, err := fifo.Sell(books[o.Symbol], o.Qty, o.FillPrice)
			if err != nil {
				// The order log cannot reproduce this sell: the log and the
				// position store have diverged. Flag it, never fabricate lots.
				divergences++
				continue
			}
			books[o.Symbol] = remaining
			closed++
			realized = domain.Round6(realized + pnl)
			switch {
			case pnl > domain.Epsilon:
				wins++
			case pnl < -domain.Epsilon:
				losses++
			}
		}
	}

	var winRate float64
	if closed > 0 {
		winRate = float64(wins) / float64(closed)
	}

	status := domain.BotStatusStopped
	if len(valid) > 0 {
		status = domain.BotStatusPaused
		if in.Now.UnixMilli()-lastTradeAt < window.Milliseconds() {
			status = domain.BotStatusActive
		}
	}

	return domain.Stats{
		AccountID:       in.AccountID,
		ROI:             roi,
		ROIPercent:      roi * 100,
		TotalPnL:        totalPnL,
		RealizedPnL:     realized,
		TradesCount:     len(valid),
		ClosedTrades:    closed,
		Wins:            wins,
		Losses:          losses,
		WinRate:         winRate,
		Status:          status,
		Cash:            in.Cash,
		InitialCredits:  in.InitialCredits,
		MarketValue:     in.MarketValue,
		OpenPositions:   in.OpenPositions,
		LastTradeAt:     lastTradeAt,
		MalformedOrders: malformed,
		Divergences:     divergences,
		PriceGaps:       in.PriceGaps,
		ComputedAt:      in.Now.UTC(),
	}
}

// normalizeOrders discards malformed history entries (non-positive or
// non-finite quantity/price, unknown side) and returns the survivors sorted
// by timestamp ascending, stable so same-timestamp orders keep log order.
// The discard count is reported so data-quality regressions stay visible.
func normalizeOrders(orders []domain.Order) (valid []domain.Order, malformed int) {
	valid = make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !domain.IsFinitePositive(o.Qty) || !domain.IsFinitePositive(o.FillPrice) {
			malformed++
			continue
		}
		if o.Side != domain.OrderSideBuy && o.Side != domain.OrderSideSell {
			malformed++
			continue
		}
		valid = append(valid, o)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp < valid[j].Timestamp
	})
	return valid, malformed
}
