// Package app wires the crawl pipeline together and runs it end to end.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
	"github.com/mamadou-sy/catalog-crawler/internal/config"
	"github.com/mamadou-sy/catalog-crawler/internal/crawl"
	"github.com/mamadou-sy/catalog-crawler/internal/extract"
	"github.com/mamadou-sy/catalog-crawler/internal/fetch"
	"github.com/mamadou-sy/catalog-crawler/internal/normalize"
	"github.com/mamadou-sy/catalog-crawler/internal/publisher"
	"github.com/mamadou-sy/catalog-crawler/internal/publisher/pubsub"
	"github.com/mamadou-sy/catalog-crawler/internal/sink"
	"github.com/mamadou-sy/catalog-crawler/internal/site"
	"github.com/mamadou-sy/catalog-crawler/internal/storage"
	"github.com/mamadou-sy/catalog-crawler/internal/storage/gcs"
	"github.com/mamadou-sy/catalog-crawler/internal/storage/local"
	"github.com/mamadou-sy/catalog-crawler/internal/storage/postgres"
)

// RunSummary is the event published after a run completes.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Site        string    `json:"site"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	RawRecords  int       `json:"raw_records"`
	Products    int       `json:"products"`
	Duplicates  int       `json:"duplicates"`
	Snapshot    string    `json:"snapshot"`
	SnapshotURI string    `json:"snapshot_uri,omitempty"`
	Refreshed   bool      `json:"refreshed"`
}

// Pipeline holds the wired components for one crawl run.
type Pipeline struct {
	cfg       config.Config
	adapter   site.Adapter
	fetcher   fetch.Fetcher
	extractor crawl.Extractor
	snapshot  *sink.SnapshotWriter
	store     catalog.ProductStore
	blob      catalog.BlobStore
	pub       catalog.Publisher
	logger    *zap.Logger
}

// Deps are the components a Pipeline runs with. Store may be nil when no
// database work is configured.
type Deps struct {
	Config    config.Config
	Adapter   site.Adapter
	Fetcher   fetch.Fetcher
	Extractor crawl.Extractor
	Snapshot  *sink.SnapshotWriter
	Store     catalog.ProductStore
	Blob      catalog.BlobStore
	Publisher catalog.Publisher
	Logger    *zap.Logger
}

// NewPipeline assembles a Pipeline from prebuilt components.
func NewPipeline(deps Deps) (*Pipeline, error) {
	if deps.Adapter == nil || deps.Fetcher == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("adapter, fetcher and extractor are required")
	}
	if deps.Snapshot == nil {
		return nil, fmt.Errorf("snapshot writer is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Blob == nil {
		deps.Blob = storage.NoOpBlobStore{}
	}
	if deps.Publisher == nil {
		deps.Publisher = publisher.NoOp{}
	}
	return &Pipeline{
		cfg:       deps.Config,
		adapter:   deps.Adapter,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		snapshot:  deps.Snapshot,
		store:     deps.Store,
		blob:      deps.Blob,
		pub:       deps.Publisher,
		logger:    deps.Logger,
	}, nil
}

// Build constructs a Pipeline from configuration. The returned cleanup
// releases every resource the build acquired and is safe to call exactly
// once, on any exit path.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Pipeline, func(), error) {
	adapter, err := site.New(cfg.Site)
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var fetcher fetch.Fetcher
	switch cfg.Fetch.Mode {
	case "headless":
		hf, err := fetch.NewHeadless(fetch.HeadlessConfig{
			UserAgent:        cfg.Fetch.UserAgent,
			NavTimeout:       cfg.Fetch.NavTimeout(),
			SettleDelay:      cfg.Fetch.SettleDelay(),
			ConsentTimeout:   cfg.Fetch.ConsentTimeout(),
			ContainerTimeout: cfg.Fetch.ContainerTimeout(),
		}, adapter, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("start headless fetcher: %w", err)
		}
		fetcher = hf
	case "static":
		fetcher = fetch.NewStatic(fetch.StaticConfig{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.Fetch.HTTPTimeout(),
		}, logger)
	default:
		return nil, nil, fmt.Errorf("unknown fetch mode %q", cfg.Fetch.Mode)
	}
	closers = append(closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fetcher.Close(closeCtx); err != nil {
			logger.Warn("fetcher close failed", zap.Error(err))
		}
	})

	var store catalog.ProductStore
	if cfg.DB.Enabled() {
		ps, err := postgres.NewProductStore(ctx, postgres.ProductStoreConfig{
			DSN:        cfg.DB.DSN,
			RawTable:   cfg.DB.RawTable,
			CleanTable: cfg.DB.CleanTable,
			MaxConns:   cfg.DB.MaxConns,
			MinConns:   cfg.DB.MinConns,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect product store: %w", err)
		}
		store = ps
		closers = append(closers, ps.Close)
	}

	var blob catalog.BlobStore = storage.NoOpBlobStore{}
	switch cfg.Blob.Provider {
	case "local":
		bs, err := local.New(cfg.Blob.LocalDir)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open local blob store: %w", err)
		}
		blob = bs
	case "gcs":
		bs, err := gcs.New(ctx, cfg.Blob.GCSBucket, cfg.Blob.Prefix)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect blob store: %w", err)
		}
		blob = bs
		closers = append(closers, func() {
			if err := bs.Close(); err != nil {
				logger.Warn("blob store close failed", zap.Error(err))
			}
		})
	}

	var pub catalog.Publisher = publisher.NoOp{}
	if cfg.PubSub.Enabled {
		ps, err := pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect publisher: %w", err)
		}
		pub = ps
		closers = append(closers, func() {
			if err := ps.Close(); err != nil {
				logger.Warn("publisher close failed", zap.Error(err))
			}
		})
	}

	pipeline, err := NewPipeline(Deps{
		Config:    cfg,
		Adapter:   adapter,
		Fetcher:   fetcher,
		Extractor: extract.New(adapter, logger),
		Snapshot:  sink.NewSnapshotWriter(cfg.Snapshot.Path, logger),
		Store:     store,
		Blob:      blob,
		Publisher: pub,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return pipeline, cleanup, nil
}

// Run executes one crawl: paginate, optionally append the raw rows, then
// normalize, write the snapshot, archive it, refresh the clean table and
// publish a summary. When the crawl yields zero products the run ends early
// without touching the snapshot or the database.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	runID := uuid.New()
	logger := p.logger.With(
		zap.String("run_id", runID.String()),
		zap.String("site", p.adapter.Name()),
	)
	logger.Info("run starting",
		zap.Int("max_pages", p.cfg.Crawler.MaxPages),
		zap.Int("page_size", p.cfg.Crawler.PageSize),
	)

	paginator, err := crawl.NewPaginator(crawl.Config{
		PageSize:    p.cfg.Crawler.PageSize,
		MaxPages:    p.cfg.Crawler.MaxPages,
		StopOnEmpty: p.cfg.Crawler.StopOnEmpty,
		Delay:       p.cfg.Crawler.Delay(),
	}, p.adapter, p.fetcher, p.extractor, logger)
	if err != nil {
		return err
	}

	raw, err := paginator.Run(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		logger.Warn("crawl yielded no products, keeping previous outputs")
		return nil
	}

	if p.store != nil && p.cfg.DB.AppendRaw {
		// Raw ingest is best-effort; losing the archive copy must not cost
		// the run its canonical outputs.
		if err := p.store.AppendRaw(ctx, runID, raw); err != nil {
			logger.Error("raw append failed", zap.Error(err))
		}
	}

	result, err := normalize.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize products: %w", err)
	}
	logger.Info("products normalized",
		zap.Int("raw", result.Input),
		zap.Int("canonical", len(result.Products)),
		zap.Int("duplicates", result.Duplicates),
	)

	if err := p.snapshot.Write(ctx, result.Products); err != nil {
		return err
	}

	snapshotURI := p.archiveSnapshot(ctx, runID, logger)

	refreshed := false
	if p.store != nil && p.cfg.DB.Refresh {
		if err := p.store.RefreshClean(ctx, result.Products); err != nil {
			return fmt.Errorf("refresh clean table: %w", err)
		}
		refreshed = true
	}

	summary := RunSummary{
		RunID:       runID.String(),
		Site:        p.adapter.Name(),
		StartedAt:   start.UTC(),
		DurationMS:  time.Since(start).Milliseconds(),
		RawRecords:  result.Input,
		Products:    len(result.Products),
		Duplicates:  result.Duplicates,
		Snapshot:    p.snapshot.Path(),
		SnapshotURI: snapshotURI,
		Refreshed:   refreshed,
	}
	if _, err := p.pub.Publish(ctx, p.cfg.PubSub.TopicName, summary); err != nil {
		logger.Warn("run summary publish failed", zap.Error(err))
	}

	logger.Info("run complete",
		zap.Int("products", len(result.Products)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// archiveSnapshot copies the written snapshot to the blob store. Archival is
// best-effort: failures are logged and the run continues.
func (p *Pipeline) archiveSnapshot(ctx context.Context, runID uuid.UUID, logger *zap.Logger) string {
	data, err := os.ReadFile(p.snapshot.Path())
	if err != nil {
		logger.Error("snapshot read-back for archive failed", zap.Error(err))
		return ""
	}
	object := fmt.Sprintf("%s/%s/%s", p.adapter.Name(), runID.String(), filepath.Base(p.snapshot.Path()))
	uri, err := p.blob.PutObject(ctx, object, "text/csv; charset=utf-8", data)
	if err != nil {
		logger.Error("snapshot archive failed", zap.Error(err))
		return ""
	}
	if uri != "" {
		logger.Info("snapshot archived", zap.String("uri", uri))
	}
	return uri
}
