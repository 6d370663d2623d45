package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticConfig controls the plain-HTTP fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticFetcher fetches listing pages with Colly, for catalogs that render
// server-side. There is no consent overlay to dismiss on this path.
type StaticFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewStatic builds a StaticFetcher.
func NewStatic(cfg StaticConfig, logger *zap.Logger) *StaticFetcher {
	c := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c.SetRequestTimeout(timeout)

	return &StaticFetcher{
		base:   c,
		logger: logger,
	}
}

// Fetch performs a single GET and returns the response body as the page
// snapshot.
func (f *StaticFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, fmt.Errorf("fetch canceled: %w", err)
	}

	var (
		page     Page
		fetchErr error
	)
	collector := f.base.Clone()
	collector.OnResponse(func(r *colly.Response) {
		page.URL = r.Request.URL.String()
		page.Body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	start := time.Now()
	if err := collector.Visit(pageURL); err != nil {
		return Page{}, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	collector.Wait()
	if fetchErr != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
	}

	page.Duration = time.Since(start)
	f.logger.Debug("page fetched",
		zap.String("url", page.URL),
		zap.Int("bytes", len(page.Body)),
		zap.Duration("took", page.Duration),
	)
	return page, nil
}

// Close is a no-op; the collector holds no long-lived resources.
func (f *StaticFetcher) Close(_ context.Context) error { return nil }
