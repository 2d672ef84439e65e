// Package fifo implements the FIFO lot-matching primitive shared by the
// order submission engine and the statistics recomputation engine. All
// functions are pure: the same input lot book and order always produce the
// same output, and input slices are never mutated.
package fifo

import (
	"errors"
	"math"
	"sort"

	"botboard/internal/domain"
)

// ErrInsufficientLots is returned when a sell cannot be fully matched
// against the available lot book. Callers must discard the partial result
// and abort the surrounding transaction.
var ErrInsufficientLots = errors.New("insufficient FIFO lots to settle sell order")

// Normalize validates a raw lot list as decoded from storage: entries with
// non-finite or non-positive quantity or price are dropped, and the result
// is sorted by timestamp ascending (stable, so insertion order breaks ties).
// The input slice is not modified.
func Normalize(raw []domain.Lot) []domain.Lot {
	lots := make([]domain.Lot, 0, len(raw))
	for _, lot := range raw {
		if !isFinite(lot.Qty) || !isFinite(lot.Price) {
			continue
		}
		if lot.Qty <= domain.Epsilon || lot.Price <= 0 {
			continue
		}
		lots = append(lots, lot)
	}
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].Timestamp < lots[j].Timestamp
	})
	return lots
}

// Buy appends a new lot to the tail of the book. Quantity and price must
// already be validated by the caller; no matching occurs on buys.
func Buy(lots []domain.Lot, qty, price float64, ts int64) []domain.Lot {
	out := make([]domain.Lot, 0, len(lots)+1)
	out = append(out, lots...)
	out = append(out, domain.Lot{Qty: domain.Round6(qty), Price: price, Timestamp: ts})
	return out
}

// Sell consumes qty units from the book oldest-first at sellPrice, returning
// the surviving lots and the realized P&L generated by the consumption.
// A lot with more than Epsilon left over survives truncated; a fully
// consumed lot is removed. If the book cannot cover qty, Sell returns
// ErrInsufficientLots and the original book is left untouched (the returned
// slice must not be used).
func Sell(lots []domain.Lot, qty, sellPrice float64) (remaining []domain.Lot, realized float64, err error) {
	left := qty
	out := make([]domain.Lot, 0, len(lots))

	for _, lot := range lots {
		if left <= domain.Epsilon {
			out = append(out, lot)
			continue
		}
		consume := math.Min(lot.Qty, left)
		leftover := domain.Round6(lot.Qty - consume)
		left = domain.Round6(left - consume)
		realized = domain.Round6(realized + domain.Round6((sellPrice-lot.Price)*consume))
		if leftover > domain.Epsilon {
			out = append(out, domain.Lot{Qty: leftover, Price: lot.Price, Timestamp: lot.Timestamp})
		}
	}

	if left > domain.Epsilon {
		return nil, 0, ErrInsufficientLots
	}
	return out, realized, nil
}

// TotalQty returns the summed quantity across all lots, rounded to 6
// decimal places.
func TotalQty(lots []domain.Lot) float64 {
	var total float64
	for _, lot := range lots {
		total += lot.Qty
	}
	return domain.Round6(total)
}

// AvgPrice returns the cost-weighted mean price of the book, or 0 when the
// total quantity is within Epsilon of zero. Full liquidation therefore
// discards the historical cost basis; a later re-buy starts a fresh average.
func AvgPrice(lots []domain.Lot) float64 {
	var totalQty, totalCost float64
	for _, lot := range lots {
		totalQty += lot.Qty
		totalCost += lot.Qty * lot.Price
	}
	if totalQty <= domain.Epsilon {
		return 0
	}
	return domain.Round6(totalCost / totalQty)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
