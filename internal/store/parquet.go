package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"degiro/internal/domain"
)

// Compile-time interface check.
var _ SnapshotStore = (*ParquetStore)(nil)

// ParquetStore implements SnapshotStore using one Parquet file per day.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// PositionRecord is the Parquet schema for a portfolio snapshot row.
type PositionRecord struct {
	Timestamp   int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Symbol      string  `parquet:"symbol"`
	ProductID   string  `parquet:"product_id"`
	Qty         float64 `parquet:"qty"`
	Side        string  `parquet:"side"`
	AvgPrice    float64 `parquet:"avg_price"`
	Price       float64 `parquet:"price"`
	MarketValue float64 `parquet:"market_value"`
	Currency    string  `parquet:"currency"`
}

// WriteSnapshot appends the positions held at time at to that day's file:
//
//	<DataDir>/portfolio/<YYYY-MM-DD>.parquet
//
// A later snapshot of the same product on the same day replaces the earlier
// one.
func (s *ParquetStore) WriteSnapshot(_ context.Context, at time.Time, positions []domain.Position) error {
	path := s.snapshotPath(at)

	records := make([]PositionRecord, 0, len(positions))
	for _, p := range positions {
		records = append(records, PositionRecord{
			Timestamp:   at.UnixMilli(),
			Symbol:      p.Symbol,
			ProductID:   p.ProductID,
			Qty:         p.Qty,
			Side:        string(p.Side),
			AvgPrice:    p.AvgPrice,
			Price:       p.Price,
			MarketValue: p.MarketValue,
			Currency:    p.Currency,
		})
	}

	existing, _ := readParquetFile[PositionRecord](path)
	merged := mergePositionRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshot returns the latest positions stored for day.
func (s *ParquetStore) ReadSnapshot(_ context.Context, day time.Time) ([]domain.Position, error) {
	records, err := readParquetFile[PositionRecord](s.snapshotPath(day))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", day.Format("2006-01-02"), ErrNotFound)
		}
		return nil, err
	}

	out := make([]domain.Position, 0, len(records))
	for _, r := range records {
		out = append(out, domain.Position{
			Symbol:      r.Symbol,
			ProductID:   r.ProductID,
			Qty:         r.Qty,
			Side:        domain.PositionSide(r.Side),
			AvgPrice:    r.AvgPrice,
			Price:       r.Price,
			MarketValue: r.MarketValue,
			Currency:    r.Currency,
		})
	}
	return out, nil
}

func (s *ParquetStore) snapshotPath(t time.Time) string {
	return filepath.Join(s.DataDir, "portfolio", t.UTC().Format("2006-01-02")+".parquet")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

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

// mergePositionRecords keeps one record per position key, preferring
// incoming records, sorted by key.
func mergePositionRecords(existing, incoming []PositionRecord) []PositionRecord {
	key := func(r PositionRecord) string {
		if r.ProductID != "" {
			return r.ProductID
		}
		return r.Symbol
	}
	seen := make(map[string]PositionRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key(r)] = r
	}
	for _, r := range incoming {
		seen[key(r)] = r
	}

	merged := make([]PositionRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return key(merged[i]) < key(merged[j]) })
	return merged
}
