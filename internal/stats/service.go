package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"botboard/internal/domain"
	"botboard/internal/prices"
	"botboard/internal/store"
)

// The hidden-position threshold matches the dashboard: positions below this
// absolute quantity are treated as fully liquidated and not valued.
const displayQtyEpsilon = 1e-6

// Service assembles statistics snapshots by reading the account record, the
// full order history, the position documents, and the external price
// source. It is strictly read-only and tolerates reading state that is
// concurrently being updated by the submission engine.
type Service struct {
	accounts     store.AccountStore
	orders       store.OrderStore
	positions    store.PositionStore
	priceSource  prices.Source
	initialCash  float64
	activeWindow time.Duration
	now          func() time.Time
	log          *slog.Logger
}

// NewService creates a Service. initialCash is the baseline assumed for
// accounts never written (0 means domain.DefaultInitialCash); activeWindow
// of 0 means DefaultActiveWindow.
func NewService(
	accounts store.AccountStore,
	orders store.OrderStore,
	positions store.PositionStore,
	priceSource prices.Source,
	initialCash float64,
	activeWindow time.Duration,
) *Service {
	if initialCash <= 0 {
		initialCash = domain.DefaultInitialCash
	}
	if activeWindow <= 0 {
		activeWindow = DefaultActiveWindow
	}
	return &Service{
		accounts:     accounts,
		orders:       orders,
		positions:    positions,
		priceSource:  priceSource,
		initialCash:  initialCash,
		activeWindow: activeWindow,
		now:          time.Now,
		log:          slog.Default().With("component", "stats"),
	}
}

// Snapshot recomputes the full statistics snapshot for one account. A
// failed price lookup for a symbol degrades that symbol's mark-to-market
// contribution to zero and flags it; it never fails the whole computation.
func (s *Service) Snapshot(ctx context.Context, accountID string) (domain.Stats, error) {
	acct, found, err := s.accounts.Account(ctx, accountID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("loading account: %w", err)
	}
	if !found {
		acct = domain.Account{ID: accountID, Cash: s.initialCash, InitialCredits: s.initialCash}
	}
	if acct.InitialCredits <= 0 {
		acct.InitialCredits = s.initialCash
	}

	orders, err := s.orders.ListOrders(ctx, accountID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("loading order history: %w", err)
	}
	positions, err := s.positions.ListPositions(ctx, accountID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("loading positions: %w", err)
	}

	open, marketValue, gaps := s.markToMarket(ctx, positions)

	return Compute(Input{
		AccountID:      accountID,
		Orders:         orders,
		InitialCredits: acct.InitialCredits,
		Cash:           acct.Cash,
		MarketValue:    marketValue,
		OpenPositions:  open,
		PriceGaps:      gaps,
		Now:            s.now(),
		ActiveWindow:   s.activeWindow,
	}), nil
}

// markToMarket values every open position at its latest known close. Symbols
// without a usable price contribute zero and are listed in gaps.
func (s *Service) markToMarket(ctx context.Context, positions []domain.Position) (open []domain.OpenPosition, total float64, gaps []string) {
	for _, pos := range positions {
		if math.Abs(pos.Qty) <= displayQtyEpsilon {
			continue
		}
		view := domain.OpenPosition{
			Symbol:    pos.Symbol,
			Qty:       pos.Qty,
			AvgPrice:  pos.AvgPrice,
			UpdatedAt: pos.UpdatedAt,
		}
		price, ok, err := s.priceSource.LatestClose(ctx, pos.Symbol)
		if err != nil {
			s.log.Warn("price lookup failed", "symbol", pos.Symbol, "error", err)
			ok = false
		}
		if ok {
			p := price
			view.CurrentPrice = &p
			view.MarketValue = domain.Round6(price * pos.Qty)
			view.UnrealizedPL = domain.Round6((price - pos.AvgPrice) * pos.Qty)
			total = domain.Round6(total + view.MarketValue)
		} else {
			gaps = append(gaps, pos.Symbol)
		}
		open = append(open, view)
	}
	return open, total, gaps
}
