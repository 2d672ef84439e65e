// Package markethist stores historical daily closing prices in SQLite and
// serves them as the price source for mark-to-market valuation and
// strategy signals.
package markethist

import (
	"context"
	"database/sql"
	"fmt"

	"botboard/internal/prices"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ prices.HistorySource = (*DB)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS market_history (
	symbol      TEXT NOT NULL,
	record_date TEXT NOT NULL,
	close_value REAL NOT NULL,
	PRIMARY KEY (symbol, record_date)
);
`

// Close is one daily closing price.
type Close struct {
	Symbol     string
	RecordDate string // YYYY-MM-DD
	CloseValue float64
}

// DB is a SQLite-backed store of daily closing prices, keyed by symbol and
// record date.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the market history database at dbPath.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &DB{db: db}, nil
}

// CloseDB closes the underlying database connection.
func (d *DB) CloseDB() error {
	return d.db.Close()
}

// UpsertCloses inserts or replaces a batch of daily closes. Re-running a
// sync for the same dates is idempotent.
func (d *DB) UpsertCloses(ctx context.Context, closes []Close) error {
	if len(closes) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO market_history (symbol, record_date, close_value)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, record_date) DO UPDATE SET close_value = excluded.close_value`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range closes {
		if _, err := stmt.Exec(c.Symbol, c.RecordDate, c.CloseValue); err != nil {
			tx.Rollback()
			return fmt.Errorf("upserting %s/%s: %w", c.Symbol, c.RecordDate, err)
		}
	}
	return tx.Commit()
}

// LatestClose returns the most recent closing price for symbol, with
// ok=false when no history is recorded.
func (d *DB) LatestClose(_ context.Context, symbol string) (float64, bool, error) {
	var price float64
	err := d.db.QueryRow(`
		SELECT close_value FROM market_history
		WHERE symbol = ? ORDER BY record_date DESC LIMIT 1`, symbol,
	).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading latest close for %s: %w", symbol, err)
	}
	return price, true, nil
}

// LastTwoCloses returns the latest and previous closing prices, newest
// first, with ok=false when fewer than two closes are recorded.
func (d *DB) LastTwoCloses(_ context.Context, symbol string) (latest, previous float64, ok bool, err error) {
	rows, err := d.db.Query(`
		SELECT close_value FROM market_history
		WHERE symbol = ? ORDER BY record_date DESC LIMIT 2`, symbol)
	if err != nil {
		return 0, 0, false, fmt.Errorf("reading closes for %s: %w", symbol, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return 0, 0, false, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, false, err
	}
	if len(values) < 2 {
		return 0, 0, false, nil
	}
	return values[0], values[1], true, nil
}

// RecentCloses returns up to limit closes for symbol, oldest first. Used by
// strategies that need a window of history (Bollinger bands, EMA stacks).
func (d *DB) RecentCloses(_ context.Context, symbol string, limit int) ([]float64, error) {
	rows, err := d.db.Query(`
		SELECT close_value FROM (
			SELECT record_date, close_value FROM market_history
			WHERE symbol = ? ORDER BY record_date DESC LIMIT ?
		) ORDER BY record_date ASC`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("reading recent closes for %s: %w", symbol, err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		closes = append(closes, v)
	}
	return closes, rows.Err()
}
