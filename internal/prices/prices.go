// Package prices defines the external price source collaborator used for
// mark-to-market valuation and momentum signals.
package prices

import "context"

// Source provides the most recent closing price for a symbol. A missing
// price is not an error: ok=false means the symbol has no usable price and
// its mark-to-market contribution should be treated as zero and flagged.
type Source interface {
	// LatestClose returns the most recent closing price for symbol.
	LatestClose(ctx context.Context, symbol string) (price float64, ok bool, err error)
}

// HistorySource extends Source with the two most recent closes, which the
// momentum strategy compares to detect a move.
type HistorySource interface {
	Source

	// LastTwoCloses returns the latest and previous closing prices, newest
	// first. ok=false when fewer than two closes are recorded.
	LastTwoCloses(ctx context.Context, symbol string) (latest, previous float64, ok bool, err error)
}
