package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"botboard/internal/domain"
	"botboard/internal/fifo"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ AccountStore = (*SQLiteStore)(nil)
var _ OrderStore = (*SQLiteStore)(nil)
var _ PositionStore = (*SQLiteStore)(nil)
var _ TxRunner = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	cash            REAL NOT NULL,
	initial_credits REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	qty        REAL NOT NULL,
	avg_price  REAL NOT NULL,
	lots       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (account_id, symbol)
);
CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	side       TEXT NOT NULL,
	qty        REAL NOT NULL,
	type       TEXT NOT NULL,
	status     TEXT NOT NULL,
	fill_price REAL NOT NULL,
	ts         INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	extra      TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_account_ts ON orders (account_id, ts);
`

// SQLiteStore implements AccountStore, OrderStore, PositionStore, and
// TxRunner backed by a SQLite database. Position lot books are persisted as
// a JSON document column and re-validated on every read.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies
// the schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single writer connection keeps account transactions serialized.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is implemented by both *sql.DB and *sql.Tx so the row helpers can
// serve direct reads and transactional reads alike.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

// ---------------------------------------------------------------------------
// AccountStore implementation
// ---------------------------------------------------------------------------

// Account returns the account record, or found=false when it does not exist.
func (s *SQLiteStore) Account(_ context.Context, accountID string) (domain.Account, bool, error) {
	return getAccount(s.db, accountID)
}

// PutAccount upserts the account. On conflict only the cash balance is
// replaced; the stored initial-credits value survives unless the incoming
// record carries a non-zero one.
func (s *SQLiteStore) PutAccount(_ context.Context, acct domain.Account) error {
	return putAccount(s.db, acct)
}

func getAccount(q querier, accountID string) (domain.Account, bool, error) {
	acct := domain.Account{ID: accountID}
	err := q.QueryRow(
		`SELECT cash, initial_credits FROM accounts WHERE id = ?`, accountID,
	).Scan(&acct.Cash, &acct.InitialCredits)
	if err == sql.ErrNoRows {
		return acct, false, nil
	}
	if err != nil {
		return acct, false, fmt.Errorf("reading account %s: %w", accountID, err)
	}
	return acct, true, nil
}

func putAccount(q querier, acct domain.Account) error {
	_, err := q.Exec(`
		INSERT INTO accounts (id, cash, initial_credits) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cash = excluded.cash,
			initial_credits = CASE WHEN excluded.initial_credits > 0
				THEN excluded.initial_credits ELSE accounts.initial_credits END`,
		acct.ID, acct.Cash, acct.InitialCredits,
	)
	if err != nil {
		return fmt.Errorf("writing account %s: %w", acct.ID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// Position returns the position document for a symbol, or found=false when
// the symbol has never been traded on this account.
func (s *SQLiteStore) Position(_ context.Context, accountID, symbol string) (domain.Position, bool, error) {
	return getPosition(s.db, accountID, symbol)
}

// PutPosition upserts the position document for its account and symbol.
func (s *SQLiteStore) PutPosition(_ context.Context, pos domain.Position) error {
	return putPosition(s.db, pos)
}

// ListPositions returns all position documents for an account, ordered by
// symbol.
func (s *SQLiteStore) ListPositions(_ context.Context, accountID string) ([]domain.Position, error) {
	rows, err := s.db.Query(`
		SELECT symbol, qty, avg_price, lots, updated_at
		FROM positions WHERE account_id = ? ORDER BY symbol`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing positions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos := domain.Position{AccountID: accountID}
		var lotsJSON string
		if err := rows.Scan(&pos.Symbol, &pos.Qty, &pos.AvgPrice, &lotsJSON, &pos.UpdatedAt); err != nil {
			return nil, err
		}
		pos.Lots, err = decodeLots(lotsJSON)
		if err != nil {
			return nil, fmt.Errorf("decoding lots for %s/%s: %w", accountID, pos.Symbol, err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func getPosition(q querier, accountID, symbol string) (domain.Position, bool, error) {
	pos := domain.Position{AccountID: accountID, Symbol: symbol}
	var lotsJSON string
	err := q.QueryRow(`
		SELECT qty, avg_price, lots, updated_at
		FROM positions WHERE account_id = ? AND symbol = ?`, accountID, symbol,
	).Scan(&pos.Qty, &pos.AvgPrice, &lotsJSON, &pos.UpdatedAt)
	if err == sql.ErrNoRows {
		return pos, false, nil
	}
	if err != nil {
		return pos, false, fmt.Errorf("reading position %s/%s: %w", accountID, symbol, err)
	}
	pos.Lots, err = decodeLots(lotsJSON)
	if err != nil {
		return pos, false, fmt.Errorf("decoding lots for %s/%s: %w", accountID, symbol, err)
	}
	return pos, true, nil
}

func putPosition(q querier, pos domain.Position) error {
	lotsJSON, err := json.Marshal(pos.Lots)
	if err != nil {
		return fmt.Errorf("encoding lots for %s/%s: %w", pos.AccountID, pos.Symbol, err)
	}
	_, err = q.Exec(`
		INSERT INTO positions (account_id, symbol, qty, avg_price, lots, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, symbol) DO UPDATE SET
			qty = excluded.qty,
			avg_price = excluded.avg_price,
			lots = excluded.lots,
			updated_at = excluded.updated_at`,
		pos.AccountID, pos.Symbol, pos.Qty, pos.AvgPrice, string(lotsJSON), pos.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing position %s/%s: %w", pos.AccountID, pos.Symbol, err)
	}
	return nil
}

// decodeLots is the validated-decode step at the store boundary: whatever
// the stored document contains, the engine only ever sees a clean,
// time-ordered lot book.
func decodeLots(lotsJSON string) ([]domain.Lot, error) {
	if lotsJSON == "" || lotsJSON == "null" {
		return nil, nil
	}
	var raw []domain.Lot
	if err := json.Unmarshal([]byte(lotsJSON), &raw); err != nil {
		return nil, err
	}
	return fifo.Normalize(raw), nil
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// AppendOrder inserts a new order record into the append-only log.
func (s *SQLiteStore) AppendOrder(_ context.Context, order domain.Order) error {
	return appendOrder(s.db, order)
}

// ListOrders returns the full order history for an account, oldest first.
func (s *SQLiteStore) ListOrders(_ context.Context, accountID string) ([]domain.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, symbol, side, qty, type, status, fill_price, ts, created_at, extra
		FROM orders WHERE account_id = ? ORDER BY ts, created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %s: %w", accountID, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o := domain.Order{AccountID: accountID}
		var createdAt int64
		var extra sql.NullString
		if err := rows.Scan(&o.ID, &o.Symbol, &o.Side, &o.Qty, &o.Type, &o.Status,
			&o.FillPrice, &o.Timestamp, &createdAt, &extra); err != nil {
			return nil, err
		}
		o.CreatedAt = time.UnixMilli(createdAt).UTC()
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &o.Extra); err != nil {
				return nil, fmt.Errorf("decoding extra for order %s: %w", o.ID, err)
			}
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func appendOrder(q querier, order domain.Order) error {
	var extraJSON any
	if len(order.Extra) > 0 {
		data, err := json.Marshal(order.Extra)
		if err != nil {
			return fmt.Errorf("encoding extra for order %s: %w", order.ID, err)
		}
		extraJSON = string(data)
	}
	_, err := q.Exec(`
		INSERT INTO orders (id, account_id, symbol, side, qty, type, status, fill_price, ts, created_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.AccountID, order.Symbol, string(order.Side), order.Qty,
		string(order.Type), string(order.Status), order.FillPrice, order.Timestamp,
		order.CreatedAt.UnixMilli(), extraJSON,
	)
	if err != nil {
		return fmt.Errorf("appending order %s: %w", order.ID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// TxRunner implementation
// ---------------------------------------------------------------------------

// sqliteTx adapts *sql.Tx to the AccountTx interface.
type sqliteTx struct {
	tx *sql.Tx
}

var _ AccountTx = (*sqliteTx)(nil)

func (t *sqliteTx) Account(accountID string) (domain.Account, bool, error) {
	return getAccount(t.tx, accountID)
}

func (t *sqliteTx) Position(accountID, symbol string) (domain.Position, bool, error) {
	return getPosition(t.tx, accountID, symbol)
}

func (t *sqliteTx) PutAccount(acct domain.Account) error {
	return putAccount(t.tx, acct)
}

func (t *sqliteTx) PutPosition(pos domain.Position) error {
	return putPosition(t.tx, pos)
}

func (t *sqliteTx) AppendOrder(order domain.Order) error {
	return appendOrder(t.tx, order)
}

// RunAccountTx runs fn inside a single SQLite transaction. The callback's
// reads see a consistent snapshot and its writes commit atomically; any
// error from fn rolls everything back.
func (s *SQLiteStore) RunAccountTx(ctx context.Context, fn func(tx AccountTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&sqliteTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after %v: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
