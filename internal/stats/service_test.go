package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"botboard/internal/domain"
)

// In-memory fixtures; the read-side service only needs the three read
// methods, so the write methods are stubs.
type fakeReads struct {
	account domain.Account
	found   bool
	orders  []domain.Order
	pos     []domain.Position
}

func (f *fakeReads) Account(ctx context.Context, id string) (domain.Account, bool, error) {
	return f.account, f.found, nil
}
func (f *fakeReads) PutAccount(ctx context.Context, acct domain.Account) error { return nil }
func (f *fakeReads) AppendOrder(ctx context.Context, o domain.Order) error     { return nil }
func (f *fakeReads) ListOrders(ctx context.Context, accountID string) ([]domain.Order, error) {
	return f.orders, nil
}
func (f *fakeReads) Position(ctx context.Context, accountID, symbol string) (domain.Position, bool, error) {
	for _, p := range f.pos {
		if p.Symbol == symbol {
			return p, true, nil
		}
	}
	return domain.Position{}, false, nil
}
func (f *fakeReads) PutPosition(ctx context.Context, p domain.Position) error { return nil }
func (f *fakeReads) ListPositions(ctx context.Context, accountID string) ([]domain.Position, error) {
	return f.pos, nil
}

type fakePrices struct {
	closes map[string]float64
	errs   map[string]error
}

func (f *fakePrices) LatestClose(ctx context.Context, symbol string) (float64, bool, error) {
	if err, bad := f.errs[symbol]; bad {
		return 0, false, err
	}
	price, ok := f.closes[symbol]
	return price, ok, nil
}

func TestSnapshotMarksOpenPositions(t *testing.T) {
	reads := &fakeReads{
		account: domain.Account{ID: "bot-1", Cash: 400, InitialCredits: 1000},
		found:   true,
		orders: []domain.Order{
			{AccountID: "bot-1", Symbol: "AAPL", Side: domain.OrderSideBuy, Qty: 3, FillPrice: 200, Timestamp: 1},
		},
		pos: []domain.Position{
			{AccountID: "bot-1", Symbol: "AAPL", Qty: 3, AvgPrice: 200, UpdatedAt: 1},
		},
	}
	src := &fakePrices{closes: map[string]float64{"AAPL": 210}}
	svc := NewService(reads, reads, reads, src, 0, 0)
	svc.now = func() time.Time { return testNow }

	snap, err := svc.Snapshot(context.Background(), "bot-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.MarketValue != 630 {
		t.Errorf("marketValue = %v, want 630", snap.MarketValue)
	}
	if len(snap.OpenPositions) != 1 {
		t.Fatalf("got %d open positions, want 1", len(snap.OpenPositions))
	}
	op := snap.OpenPositions[0]
	if op.CurrentPrice == nil || *op.CurrentPrice != 210 {
		t.Errorf("currentPrice = %v, want 210", op.CurrentPrice)
	}
	if op.UnrealizedPL != 30 {
		t.Errorf("unrealizedPL = %v, want 30", op.UnrealizedPL)
	}
	// cash 400 + market 630 - baseline 1000
	if snap.TotalPnL != 30 {
		t.Errorf("totalPnL = %v, want 30", snap.TotalPnL)
	}
	if len(snap.PriceGaps) != 0 {
		t.Errorf("priceGaps = %v, want none", snap.PriceGaps)
	}
}

func TestSnapshotDegradesOnPriceFailure(t *testing.T) {
	reads := &fakeReads{
		account: domain.Account{ID: "bot-1", Cash: 500, InitialCredits: 1000},
		found:   true,
		pos: []domain.Position{
			{AccountID: "bot-1", Symbol: "AAPL", Qty: 2, AvgPrice: 100, UpdatedAt: 1},
			{AccountID: "bot-1", Symbol: "MSFT", Qty: 1, AvgPrice: 400, UpdatedAt: 2},
		},
	}
	src := &fakePrices{
		closes: map[string]float64{"AAPL": 110},
		errs:   map[string]error{"MSFT": errors.New("upstream down")},
	}
	svc := NewService(reads, reads, reads, src, 0, 0)
	svc.now = func() time.Time { return testNow }

	snap, err := svc.Snapshot(context.Background(), "bot-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	// Only the priced symbol contributes to market value.
	if snap.MarketValue != 220 {
		t.Errorf("marketValue = %v, want 220", snap.MarketValue)
	}
	if len(snap.PriceGaps) != 1 || snap.PriceGaps[0] != "MSFT" {
		t.Errorf("priceGaps = %v, want [MSFT]", snap.PriceGaps)
	}
	if len(snap.OpenPositions) != 2 {
		t.Fatalf("got %d open positions, want 2 (unpriced still listed)", len(snap.OpenPositions))
	}
	for _, op := range snap.OpenPositions {
		if op.Symbol == "MSFT" && op.CurrentPrice != nil {
			t.Errorf("MSFT currentPrice = %v, want nil", *op.CurrentPrice)
		}
	}
}

func TestSnapshotSkipsDustPositions(t *testing.T) {
	reads := &fakeReads{
		account: domain.Account{ID: "bot-1", Cash: 1000, InitialCredits: 1000},
		found:   true,
		pos: []domain.Position{
			{AccountID: "bot-1", Symbol: "AAPL", Qty: 1e-9, AvgPrice: 100, UpdatedAt: 1},
		},
	}
	src := &fakePrices{closes: map[string]float64{"AAPL": 110}}
	svc := NewService(reads, reads, reads, src, 0, 0)
	svc.now = func() time.Time { return testNow }

	snap, err := svc.Snapshot(context.Background(), "bot-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.OpenPositions) != 0 {
		t.Errorf("got %d open positions, want 0 for dust quantity", len(snap.OpenPositions))
	}
	if snap.MarketValue != 0 {
		t.Errorf("marketValue = %v, want 0", snap.MarketValue)
	}
}

func TestSnapshotUnknownAccountUsesBaseline(t *testing.T) {
	reads := &fakeReads{found: false}
	svc := NewService(reads, reads, reads, &fakePrices{}, 5000, 0)
	svc.now = func() time.Time { return testNow }

	snap, err := svc.Snapshot(context.Background(), "brand-new")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Cash != 5000 || snap.InitialCredits != 5000 {
		t.Errorf("cash/baseline = %v/%v, want 5000/5000", snap.Cash, snap.InitialCredits)
	}
	if snap.TotalPnL != 0 || snap.ROI != 0 {
		t.Errorf("pnl/roi = %v/%v, want 0/0", snap.TotalPnL, snap.ROI)
	}
	if snap.Status != domain.BotStatusStopped {
		t.Errorf("status = %q, want stopped", snap.Status)
	}
}

func TestRefresherCachesSnapshots(t *testing.T) {
	reads := &fakeReads{
		account: domain.Account{ID: "bot-1", Cash: 1200, InitialCredits: 1000},
		found:   true,
	}
	svc := NewService(reads, reads, reads, &fakePrices{}, 0, 0)
	svc.now = func() time.Time { return testNow }
	r := NewRefresher(svc, []string{"bot-1"}, time.Hour)

	if _, ok := r.Latest("bot-1"); ok {
		t.Fatal("Latest returned a snapshot before any refresh")
	}
	r.Refresh(context.Background(), "bot-1")
	snap, ok := r.Latest("bot-1")
	if !ok {
		t.Fatal("Latest returned no snapshot after refresh")
	}
	if snap.TotalPnL != 200 {
		t.Errorf("cached totalPnL = %v, want 200", snap.TotalPnL)
	}
}
