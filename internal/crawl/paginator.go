// Package crawl drives the page-by-page traversal of a catalog listing.
package crawl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
	"github.com/mamadou-sy/catalog-crawler/internal/fetch"
	"github.com/mamadou-sy/catalog-crawler/internal/metrics"
	"github.com/mamadou-sy/catalog-crawler/internal/site"
)

// Config controls the pagination loop.
type Config struct {
	// PageSize is the number of listings requested per page; it also scales
	// the offset passed to the site adapter.
	PageSize int
	// MaxPages bounds the crawl even when pages keep yielding products.
	MaxPages int
	// StopOnEmpty ends the crawl once a successfully fetched page yields
	// zero products, instead of walking the full MaxPages range.
	StopOnEmpty bool
	// Delay paces requests between pages.
	Delay time.Duration
}

// Extractor converts a page snapshot into raw records.
type Extractor interface {
	Extract(page fetch.Page) ([]catalog.RawProduct, error)
}

// Paginator visits pages in ascending index order and concatenates per-page
// results. A failed page is logged and contributes zero records; the crawl
// moves on to the next page.
type Paginator struct {
	cfg       Config
	adapter   site.Adapter
	fetcher   fetch.Fetcher
	extractor Extractor
	logger    *zap.Logger
}

// NewPaginator validates the config and builds a Paginator.
func NewPaginator(cfg Config, adapter site.Adapter, fetcher fetch.Fetcher, extractor Extractor, logger *zap.Logger) (*Paginator, error) {
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be > 0")
	}
	if cfg.MaxPages <= 0 {
		return nil, fmt.Errorf("max pages must be > 0")
	}
	return &Paginator{
		cfg:       cfg,
		adapter:   adapter,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}, nil
}

// Run crawls pages until the page budget is spent, an empty page signals the
// end of the catalog, or the context is canceled. Records are returned in
// page order, then container order within each page.
func (p *Paginator) Run(ctx context.Context) ([]catalog.RawProduct, error) {
	var all []catalog.RawProduct

	for pageIdx := 0; pageIdx < p.cfg.MaxPages; pageIdx++ {
		if pageIdx > 0 {
			if err := p.pace(ctx); err != nil {
				return all, err
			}
		}

		offset := pageIdx * p.cfg.PageSize
		pageURL := p.adapter.PageURL(offset, p.cfg.PageSize)

		records, err := p.crawlPage(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return all, fmt.Errorf("crawl canceled: %w", ctx.Err())
			}
			metrics.PageErrors.Inc()
			p.logger.Error("page failed, contributing zero records",
				zap.Int("page", pageIdx+1),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}

		metrics.PagesFetched.Inc()
		metrics.ProductsExtracted.Add(float64(len(records)))
		all = append(all, records...)
		p.logger.Info("page scraped",
			zap.Int("page", pageIdx+1),
			zap.Int("products", len(records)),
		)

		if len(records) == 0 && p.cfg.StopOnEmpty {
			p.logger.Info("empty page, assuming end of catalog", zap.Int("page", pageIdx+1))
			break
		}
	}

	return all, nil
}

func (p *Paginator) crawlPage(ctx context.Context, pageURL string) ([]catalog.RawProduct, error) {
	page, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	records, err := p.extractor.Extract(page)
	if err != nil {
		return nil, fmt.Errorf("extract page: %w", err)
	}
	return records, nil
}

func (p *Paginator) pace(ctx context.Context) error {
	if p.cfg.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.cfg.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("crawl canceled: %w", ctx.Err())
	}
}
