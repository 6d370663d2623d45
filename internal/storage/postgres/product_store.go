// Package postgres provides Postgres-backed persistence for product rows.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
	"github.com/mamadou-sy/catalog-crawler/internal/metrics"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ProductStoreConfig controls the Postgres connection pool and table names.
type ProductStoreConfig struct {
	DSN             string
	RawTable        string
	CleanTable      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// ProductStore writes raw and canonical product rows into Postgres.
type ProductStore struct {
	pool       pgxPool
	rawTable   string
	cleanTable string
	logger     *zap.Logger
}

var rawColumns = []string{"run_id", "scraped_at", "brand", "name", "link", "price", "rating_count", "shipping"}

var cleanColumns = []string{"brand", "name", "link", "price", "rating_count", "shipping"}

// NewProductStore connects a pool using the provided config.
func NewProductStore(ctx context.Context, cfg ProductStoreConfig, logger *zap.Logger) (*ProductStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewProductStoreWithPool(pool, cfg.RawTable, cfg.CleanTable, logger)
}

// NewProductStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewProductStoreWithPool(pool pgxPool, rawTable, cleanTable string, logger *zap.Logger) (*ProductStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if rawTable == "" {
		rawTable = "products_raw"
	}
	if cleanTable == "" {
		cleanTable = "products_clean"
	}
	for _, table := range []string{rawTable, cleanTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &ProductStore{
		pool:       pool,
		rawTable:   rawTable,
		cleanTable: cleanTable,
		logger:     logger,
	}, nil
}

// Close releases the underlying pool resources.
func (s *ProductStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// AppendRaw bulk-inserts the scraped rows into the append-only ingest
// table, creating it on first use. Rows carry the run id and scrape time as
// provenance; business fields stay text, exactly as extracted.
func (s *ProductStore) AppendRaw(ctx context.Context, runID uuid.UUID, products []catalog.RawProduct) error {
	if len(products) == 0 {
		return nil
	}

	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id UUID NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL,
	brand TEXT,
	name TEXT,
	link TEXT,
	price TEXT,
	rating_count TEXT,
	shipping TEXT
)`, s.rawTable)
	if _, err := s.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure raw table: %w", err)
	}

	scrapedAt := time.Now().UTC()
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{runID, scrapedAt, p.Brand, p.Name, p.Link, p.Price, p.RatingCount, p.Shipping})
	}

	copied, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.rawTable}, rawColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("append raw rows: %w", err)
	}
	if copied != int64(len(products)) {
		return fmt.Errorf("append raw rows: copied %d of %d", copied, len(products))
	}
	return nil
}

// RefreshClean replaces the clean table wholesale: drop, recreate with the
// fixed schema, then bulk-insert in a single transaction. There is no
// incremental upsert path.
func (s *ProductStore) RefreshClean(ctx context.Context, products []catalog.CanonicalProduct) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin refresh: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.cleanTable)); err != nil {
		return fmt.Errorf("drop clean table: %w", err)
	}

	createSQL := fmt.Sprintf(`
CREATE TABLE %s (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	brand VARCHAR(255),
	name VARCHAR(255),
	link TEXT,
	price DOUBLE PRECISION,
	rating_count VARCHAR(50) DEFAULT '0',
	shipping VARCHAR(255) DEFAULT 'unspecified'
)`, s.cleanTable)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("create clean table: %w", err)
	}

	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.Brand, p.Name, p.Link, p.Price, p.RatingCount, p.Shipping})
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{s.cleanTable}, cleanColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert clean rows: %w", err)
	}
	if copied != int64(len(products)) {
		return fmt.Errorf("insert clean rows: copied %d of %d", copied, len(products))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit refresh: %w", err)
	}

	metrics.RowsInserted.Add(float64(copied))
	s.logger.Info("clean table refreshed",
		zap.String("table", s.cleanTable),
		zap.Int64("rows", copied),
	)
	return nil
}
