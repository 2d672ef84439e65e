package bots

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"botboard/internal/domain"
	"botboard/internal/ledger"
	"botboard/internal/store"
)

// CloseHistory supplies the daily close series a strategy evaluates.
// markethist.DB satisfies it.
type CloseHistory interface {
	RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error)
}

// OrderSubmitter places validated orders on the ledger. ledger.Submitter
// satisfies it.
type OrderSubmitter interface {
	Submit(ctx context.Context, req ledger.OrderRequest) (domain.Order, error)
}

// Bot binds one strategy to one account, symbol and lot size.
type Bot struct {
	AccountID string
	Strategy  string
	Symbol    string
	Qty       float64       // lot size per order
	Interval  time.Duration // tick cadence; 0 means daily
}

// Runner ticks a set of bots, evaluating each bot's strategy against the
// close history and submitting the resulting order through the ledger. Cash
// and holding guards are enforced here so no strategy can overdraw the
// account or sell lots it does not hold.
type Runner struct {
	registry  *Registry
	history   CloseHistory
	accounts  store.AccountStore
	positions store.PositionStore
	submitter OrderSubmitter
	log       *slog.Logger
}

// NewRunner creates a Runner over the given registry and stores.
func NewRunner(
	registry *Registry,
	history CloseHistory,
	accounts store.AccountStore,
	positions store.PositionStore,
	submitter OrderSubmitter,
) *Runner {
	return &Runner{
		registry:  registry,
		history:   history,
		accounts:  accounts,
		positions: positions,
		submitter: submitter,
		log:       slog.Default().With("component", "bot-runner"),
	}
}

// TickOnce evaluates one bot a single time and submits at most one order.
// A hold, insufficient history, or a failed guard leaves the ledger
// untouched and is not an error.
func (r *Runner) TickOnce(ctx context.Context, bot Bot) error {
	strat, ok := r.registry.Get(bot.Strategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q for bot %s", bot.Strategy, bot.AccountID)
	}
	if bot.Qty <= 0 {
		return fmt.Errorf("bot %s has non-positive lot size %v", bot.AccountID, bot.Qty)
	}

	closes, err := r.history.RecentCloses(ctx, bot.Symbol, strat.MinHistory())
	if err != nil {
		return fmt.Errorf("loading close history for %s: %w", bot.Symbol, err)
	}
	if len(closes) < strat.MinHistory() {
		r.log.Info("not enough history, holding",
			"bot", bot.AccountID, "symbol", bot.Symbol,
			"have", len(closes), "need", strat.MinHistory())
		return nil
	}

	tick := Tick{Symbol: bot.Symbol, Closes: closes}
	signal := strat.Evaluate(tick)
	latest := tick.Latest()
	r.log.Info("strategy evaluated",
		"bot", bot.AccountID, "strategy", strat.Name(),
		"symbol", bot.Symbol, "signal", string(signal), "close", latest)
	if signal == SignalHold || latest <= 0 {
		return nil
	}

	side, ok, err := r.applyGuards(ctx, bot, signal, latest)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	order, err := r.submitter.Submit(ctx, ledger.OrderRequest{
		AccountID: bot.AccountID,
		Symbol:    bot.Symbol,
		Side:      side,
		Qty:       bot.Qty,
		FillPrice: latest,
		Extra:     map[string]string{"strategy": strat.Name()},
	})
	if err != nil {
		return fmt.Errorf("submitting %s order for bot %s: %w", side, bot.AccountID, err)
	}
	r.log.Info("order placed",
		"bot", bot.AccountID, "order", order.ID,
		"side", string(side), "qty", bot.Qty, "price", latest)
	return nil
}

// applyGuards checks that a buy is affordable and a sell is covered by the
// held quantity. ok=false means the signal is skipped without error.
func (r *Runner) applyGuards(ctx context.Context, bot Bot, signal Signal, price float64) (domain.OrderSide, bool, error) {
	switch signal {
	case SignalBuy:
		acct, found, err := r.accounts.Account(ctx, bot.AccountID)
		if err != nil {
			return "", false, fmt.Errorf("loading account %s: %w", bot.AccountID, err)
		}
		cash := domain.DefaultInitialCash
		if found {
			cash = acct.Cash
		}
		if cash < price*bot.Qty {
			r.log.Info("buy skipped, insufficient cash",
				"bot", bot.AccountID, "cash", cash, "needed", price*bot.Qty)
			return "", false, nil
		}
		return domain.OrderSideBuy, true, nil

	case SignalSell:
		pos, found, err := r.positions.Position(ctx, bot.AccountID, bot.Symbol)
		if err != nil {
			return "", false, fmt.Errorf("loading position %s/%s: %w", bot.AccountID, bot.Symbol, err)
		}
		if !found || pos.Qty < bot.Qty {
			held := 0.0
			if found {
				held = pos.Qty
			}
			r.log.Info("sell skipped, insufficient holdings",
				"bot", bot.AccountID, "held", held, "needed", bot.Qty)
			return "", false, nil
		}
		return domain.OrderSideSell, true, nil
	}
	return "", false, nil
}

// Run ticks the bot on its interval until ctx is cancelled. Tick errors are
// logged and the loop continues; a dead tick should not kill the bot.
func (r *Runner) Run(ctx context.Context, bot Bot) {
	interval := bot.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if err := r.TickOnce(ctx, bot); err != nil {
		r.log.Error("tick failed", "bot", bot.AccountID, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("bot stopped", "bot", bot.AccountID)
			return
		case <-ticker.C:
			if err := r.TickOnce(ctx, bot); err != nil {
				r.log.Error("tick failed", "bot", bot.AccountID, "error", err)
			}
		}
	}
}
