// Package store defines storage interfaces for bot account state (cash
// balances, FIFO positions, and the append-only order log) together with
// the transactional access pattern the order submission engine requires.
package store

import (
	"context"

	"botboard/internal/domain"
)

// AccountStore reads and writes account records.
type AccountStore interface {
	// Account returns the account record, with found=false when the account
	// has never been written.
	Account(ctx context.Context, accountID string) (acct domain.Account, found bool, err error)

	// PutAccount upserts the account with merge semantics: an existing
	// initial-credits value is preserved unless the incoming record carries
	// a non-zero one.
	PutAccount(ctx context.Context, acct domain.Account) error
}

// OrderStore appends to and reads the immutable order log.
type OrderStore interface {
	// AppendOrder inserts a new order record. Records are never updated.
	AppendOrder(ctx context.Context, order domain.Order) error

	// ListOrders returns the full order history for an account, oldest first.
	ListOrders(ctx context.Context, accountID string) ([]domain.Order, error)
}

// PositionStore reads and writes per-symbol position documents.
type PositionStore interface {
	// Position returns the position for a symbol, with found=false when the
	// symbol has never been traded.
	Position(ctx context.Context, accountID, symbol string) (pos domain.Position, found bool, err error)

	// PutPosition upserts the position document for its account and symbol.
	PutPosition(ctx context.Context, pos domain.Position) error

	// ListPositions returns all position documents for an account.
	ListPositions(ctx context.Context, accountID string) ([]domain.Position, error)
}

// AccountTx is the handle given to a transactional callback. All reads and
// writes through it are part of one isolated transaction; the callback must
// re-read state through the handle rather than reuse snapshots taken
// outside it.
type AccountTx interface {
	Account(accountID string) (domain.Account, bool, error)
	Position(accountID, symbol string) (domain.Position, bool, error)
	PutAccount(acct domain.Account) error
	PutPosition(pos domain.Position) error
	AppendOrder(order domain.Order) error
}

// TxRunner executes a callback inside an atomic transaction over the
// account+position store. The transaction commits iff fn returns nil; any
// error rolls back every write.
type TxRunner interface {
	RunAccountTx(ctx context.Context, fn func(tx AccountTx) error) error
}
