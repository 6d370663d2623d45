// Package sink writes the canonical result set to the run's snapshot file.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
)

// Snapshots are UTF-8 with a byte-order mark and semicolon-delimited so the
// downstream spreadsheet tooling opens them without an import dialog.
const utf8BOM = "\ufeff"

var snapshotHeader = []string{"brand", "name", "link", "price", "rating_count", "shipping"}

// SnapshotWriter persists canonical records to a CSV file, overwriting any
// snapshot from a previous run.
type SnapshotWriter struct {
	path   string
	logger *zap.Logger
}

// NewSnapshotWriter returns a writer targeting path.
func NewSnapshotWriter(path string, logger *zap.Logger) *SnapshotWriter {
	return &SnapshotWriter{path: path, logger: logger}
}

// Path returns the snapshot destination.
func (w *SnapshotWriter) Path() string { return w.path }

// Write truncates and rewrites the snapshot with a header row and one row
// per canonical record, in sequence order.
func (w *SnapshotWriter) Write(ctx context.Context, products []catalog.CanonicalProduct) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("snapshot write canceled: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create snapshot dir %s: %w", dir, err)
		}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", w.path, err)
	}

	if _, err := f.WriteString(utf8BOM); err != nil {
		_ = f.Close()
		return fmt.Errorf("write snapshot BOM: %w", err)
	}

	cw := csv.NewWriter(f)
	cw.Comma = ';'
	if err := cw.Write(snapshotHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, p := range products {
		row := []string{
			p.Brand,
			p.Name,
			p.Link,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			p.RatingCount,
			p.Shipping,
		}
		if err := cw.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("write snapshot row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	w.logger.Info("snapshot written",
		zap.String("path", w.path),
		zap.Int("records", len(products)),
	)
	return nil
}

// ReadSnapshot loads a snapshot back into canonical records. Analysis
// tooling and the round-trip tests use it.
func ReadSnapshot(path string) ([]catalog.CanonicalProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = ';'
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("snapshot %s has no header row", path)
	}
	if len(rows[0]) != len(snapshotHeader) {
		return nil, fmt.Errorf("snapshot %s has %d columns, want %d", path, len(rows[0]), len(snapshotHeader))
	}

	products := make([]catalog.CanonicalProduct, 0, len(rows)-1)
	for i, row := range rows[1:] {
		price, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: bad price %q: %w", i+1, row[3], err)
		}
		products = append(products, catalog.CanonicalProduct{
			Brand:       row[0],
			Name:        row[1],
			Link:        row[2],
			Price:       price,
			RatingCount: row[4],
			Shipping:    row[5],
		})
	}
	return products, nil
}
