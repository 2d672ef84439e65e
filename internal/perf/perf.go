// Package perf archives one performance point per bot per day so the
// dashboard can chart equity history. Points live in Parquet files on
// disk, one file per account and year; re-recording a day overwrites
// that day's point instead of duplicating it.
package perf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"botboard/internal/domain"
)

// Point is one day of a bot's equity curve.
type Point struct {
	AccountID     string  `json:"accountId"`
	Date          string  `json:"date"` // YYYY-MM-DD
	Cash          float64 `json:"cash"`
	PositionValue float64 `json:"positionValue"` // mark-to-market of open positions
	TotalValue    float64 `json:"totalValue"`    // cash + position value
	TotalPnL      float64 `json:"totalPnL"`
	ROI           float64 `json:"roi"`
}

// pointRecord is the on-disk Parquet schema.
type pointRecord struct {
	AccountID     string  `parquet:"account_id"`
	Date          string  `parquet:"date"`
	Cash          float64 `parquet:"cash"`
	PositionValue float64 `parquet:"position_value"`
	TotalValue    float64 `parquet:"total_value"`
	TotalPnL      float64 `parquet:"total_pnl"`
	ROI           float64 `parquet:"roi"`
}

// Archive stores performance points under a data directory.
// Layout: <DataDir>/perf/<ACCOUNT>/<YYYY>.parquet
type Archive struct {
	DataDir string
}

func NewArchive(dataDir string) *Archive {
	return &Archive{DataDir: dataDir}
}

// RecordSnapshot derives today's point from a statistics snapshot and
// writes it. Recording the same day again replaces the earlier point.
func (a *Archive) RecordSnapshot(ctx context.Context, snap domain.Stats) error {
	return a.Append(ctx, []Point{{
		AccountID:     snap.AccountID,
		Date:          snap.ComputedAt.UTC().Format("2006-01-02"),
		Cash:          snap.Cash,
		PositionValue: snap.MarketValue,
		TotalValue:    domain.Round6(snap.Cash + snap.MarketValue),
		TotalPnL:      snap.TotalPnL,
		ROI:           snap.ROI,
	}})
}

// Append merges points into the archive, deduplicating by (account, date)
// with incoming points winning.
func (a *Archive) Append(_ context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		account string
		year    string
	}
	groups := make(map[key][]pointRecord)
	for _, p := range points {
		if len(p.Date) < 4 {
			return fmt.Errorf("malformed point date %q for account %s", p.Date, p.AccountID)
		}
		k := key{account: p.AccountID, year: p.Date[:4]}
		groups[k] = append(groups[k], pointRecord(p))
	}

	for k, records := range groups {
		path := a.pointPath(k.account, k.year)
		existing, _ := readParquetFile[pointRecord](path)
		merged := mergePoints(existing, records)
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing performance points for %s/%s: %w", k.account, k.year, err)
		}
	}
	return nil
}

// Read returns all points for an account in [from, to] (both YYYY-MM-DD,
// inclusive), sorted by date ascending. Years with no file are skipped.
func (a *Archive) Read(_ context.Context, accountID, from, to string) ([]Point, error) {
	fromT, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("parsing from date: %w", err)
	}
	toT, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("parsing to date: %w", err)
	}

	var points []Point
	for year := fromT.Year(); year <= toT.Year(); year++ {
		path := a.pointPath(accountID, fmt.Sprintf("%d", year))
		records, err := readParquetFile[pointRecord](path)
		if err != nil {
			continue
		}
		for _, r := range records {
			if r.Date >= from && r.Date <= to {
				points = append(points, Point(r))
			}
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// Recent returns the newest n points for an account, oldest first.
func (a *Archive) Recent(ctx context.Context, accountID string, n int) ([]Point, error) {
	dir := filepath.Join(a.DataDir, "perf", strings.ToLower(accountID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	// Year files sort lexicographically; walk from the newest backwards
	// until n points are collected.
	var years []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".parquet"); ok {
			years = append(years, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))

	var points []Point
	for _, year := range years {
		records, err := readParquetFile[pointRecord](a.pointPath(accountID, year))
		if err != nil {
			continue
		}
		for _, r := range records {
			points = append(points, Point(r))
		}
		if len(points) >= n {
			break
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	if len(points) > n {
		points = points[len(points)-n:]
	}
	return points, nil
}

func (a *Archive) pointPath(accountID, year string) string {
	return filepath.Join(a.DataDir, "perf", strings.ToLower(accountID), year+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePoints deduplicates by (account, date), preferring incoming records,
// and returns the result sorted by date.
func mergePoints(existing, incoming []pointRecord) []pointRecord {
	type key struct {
		account string
		date    string
	}
	seen := make(map[key]pointRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.AccountID, r.Date}] = r
	}
	for _, r := range incoming {
		seen[key{r.AccountID, r.Date}] = r
	}

	merged := make([]pointRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}
