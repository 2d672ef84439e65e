// Package ledger implements the order submission engine. A submitted fill
// is validated, applied to the account's cash and the symbol's FIFO lot
// book, and recorded as an immutable order, all inside one atomic
// transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"botboard/internal/domain"
	"botboard/internal/fifo"
	"botboard/internal/store"
)

// Validation errors, surfaced before any state is touched.
var (
	ErrInvalidQty   = errors.New("order quantity must be a positive finite number")
	ErrInvalidPrice = errors.New("order price must be a positive finite number")
	ErrInvalidSide  = errors.New("order side must be buy or sell")
)

// OrderRequest is a proposed fill to apply to an account.
type OrderRequest struct {
	AccountID string
	Symbol    string
	Side      domain.OrderSide
	Qty       float64
	FillPrice float64
	Type      domain.OrderType  // defaults to MARKET
	Timestamp int64             // fill time in Unix ms; defaults to now
	Extra     map[string]string // merged into the persisted order record
}

// Validate checks the request's quantity, price, and side.
func (r OrderRequest) Validate() error {
	if !domain.IsFinitePositive(r.Qty) {
		return ErrInvalidQty
	}
	if !domain.IsFinitePositive(r.FillPrice) {
		return ErrInvalidPrice
	}
	if r.Side != domain.OrderSideBuy && r.Side != domain.OrderSideSell {
		return fmt.Errorf("%w: got %q", ErrInvalidSide, r.Side)
	}
	return nil
}

// ApplyOrder applies one validated fill to the given account and position
// state, returning the new states and the order record to append. It is a
// pure function: inputs are not mutated, and no I/O occurs. The caller is
// responsible for wrapping the read-apply-write cycle in a transaction.
//
// A sell that exceeds the available lot book fails with
// fifo.ErrInsufficientLots and none of the returned values may be used.
func ApplyOrder(acct domain.Account, pos domain.Position, req OrderRequest, now time.Time) (domain.Account, domain.Position, domain.Order, error) {
	if err := req.Validate(); err != nil {
		return domain.Account{}, domain.Position{}, domain.Order{}, err
	}

	orderType := req.Type
	if orderType == "" {
		orderType = domain.OrderTypeMarket
	}
	ts := req.Timestamp
	if ts == 0 {
		ts = now.UnixMilli()
	}

	delta := req.Qty * req.FillPrice
	if req.Side == domain.OrderSideBuy {
		delta = -delta
	}
	acct.Cash = domain.Round6(acct.Cash + delta)

	lots := fifo.Normalize(pos.Lots)
	var err error
	if req.Side == domain.OrderSideBuy {
		lots = fifo.Buy(lots, req.Qty, req.FillPrice, ts)
	} else {
		lots, _, err = fifo.Sell(lots, req.Qty, req.FillPrice)
		if err != nil {
			return domain.Account{}, domain.Position{}, domain.Order{}, err
		}
	}

	pos.AccountID = req.AccountID
	pos.Symbol = req.Symbol
	pos.Lots = lots
	pos.Qty = fifo.TotalQty(lots)
	pos.AvgPrice = fifo.AvgPrice(lots)
	pos.UpdatedAt = ts

	order := domain.Order{
		ID:        ulid.Make().String(),
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Qty:       req.Qty,
		Type:      orderType,
		Status:    domain.OrderStatusFilled,
		FillPrice: req.FillPrice,
		Timestamp: ts,
		CreatedAt: now.UTC(),
		Extra:     req.Extra,
	}
	return acct, pos, order, nil
}

// Submitter orchestrates order submission through the store's transaction
// runner. Account and position are re-read inside the transaction boundary
// so concurrent submissions for the same account cannot interleave.
type Submitter struct {
	txr         store.TxRunner
	initialCash float64
	now         func() time.Time
	log         *slog.Logger
}

// NewSubmitter creates a Submitter. initialCash is the cash balance assumed
// for accounts that have never been written; pass 0 to use
// domain.DefaultInitialCash.
func NewSubmitter(txr store.TxRunner, initialCash float64) *Submitter {
	if initialCash <= 0 {
		initialCash = domain.DefaultInitialCash
	}
	return &Submitter{
		txr:         txr,
		initialCash: initialCash,
		now:         time.Now,
		log:         slog.Default().With("component", "ledger"),
	}
}

// Submit validates and atomically applies one fill: exactly one order
// record is appended, at most one account cash mutation and one position
// mutation occur, and on any error nothing is written.
func (s *Submitter) Submit(ctx context.Context, req OrderRequest) (domain.Order, error) {
	// Reject malformed requests before opening a transaction.
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}

	var order domain.Order
	err := s.txr.RunAccountTx(ctx, func(tx store.AccountTx) error {
		acct, found, err := tx.Account(req.AccountID)
		if err != nil {
			return err
		}
		if !found {
			acct = domain.Account{
				ID:             req.AccountID,
				Cash:           s.initialCash,
				InitialCredits: s.initialCash,
			}
		}

		pos, _, err := tx.Position(req.AccountID, req.Symbol)
		if err != nil {
			return err
		}

		newAcct, newPos, rec, err := ApplyOrder(acct, pos, req, s.now())
		if err != nil {
			return err
		}

		if err := tx.PutAccount(newAcct); err != nil {
			return err
		}
		if err := tx.PutPosition(newPos); err != nil {
			return err
		}
		if err := tx.AppendOrder(rec); err != nil {
			return err
		}
		order = rec
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order filled",
		"account", order.AccountID,
		"symbol", order.Symbol,
		"side", order.Side,
		"qty", order.Qty,
		"price", order.FillPrice,
	)
	return order, nil
}
