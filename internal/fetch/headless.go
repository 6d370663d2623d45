package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/mamadou-sy/catalog-crawler/internal/metrics"
	"github.com/mamadou-sy/catalog-crawler/internal/site"
)

// HeadlessConfig controls the chromedp-backed fetcher.
type HeadlessConfig struct {
	UserAgent        string
	NavTimeout       time.Duration
	SettleDelay      time.Duration
	ConsentTimeout   time.Duration
	ContainerTimeout time.Duration
}

// HeadlessFetcher renders listing pages with headless Chrome via chromedp.
// One browser session is shared across the run; each page gets its own tab
// context bounded by the navigation timeout.
type HeadlessFetcher struct {
	cfg           HeadlessConfig
	adapter       site.Adapter
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewHeadless starts the browser session and warms it up so the first page
// fetch does not pay the Chrome startup cost.
func NewHeadless(cfg HeadlessConfig, adapter site.Adapter, logger *zap.Logger) (*HeadlessFetcher, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 25 * time.Second
	}
	if cfg.ConsentTimeout <= 0 {
		cfg.ConsentTimeout = 10 * time.Second
	}
	if cfg.ContainerTimeout <= 0 {
		cfg.ContainerTimeout = 10 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &HeadlessFetcher{
		cfg:           cfg,
		adapter:       adapter,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (f *HeadlessFetcher) Close(_ context.Context) error {
	f.browserCancel()
	f.allocCancel()
	return nil
}

// Fetch navigates to the listing page, dismisses any consent overlay,
// waits for product containers to appear and returns the DOM snapshot.
// A missing overlay or an empty page is not a fetch failure.
func (f *HeadlessFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, f.cfg.NavTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	start := time.Now()
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if f.cfg.SettleDelay > 0 {
		actions = append(actions, chromedp.Sleep(f.cfg.SettleDelay))
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return Page{}, fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	f.dismissConsent(taskCtx, pageURL)
	f.awaitContainers(taskCtx, pageURL)

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return Page{}, fmt.Errorf("snapshot %s: %w", pageURL, err)
	}

	return Page{
		URL:      pageURL,
		Body:     []byte(html),
		Duration: time.Since(start),
	}, nil
}

// dismissConsent clicks the consent-dismiss control within a bounded wait.
// The banner is usually gone after the first page load, so failure is a
// warning, never an error.
func (f *HeadlessFetcher) dismissConsent(parent context.Context, pageURL string) {
	query := f.adapter.ConsentDismissQuery()
	if query == "" {
		return
	}
	clickCtx, cancel := context.WithTimeout(parent, f.cfg.ConsentTimeout)
	defer cancel()

	if err := chromedp.Run(clickCtx, chromedp.Click(query, chromedp.BySearch)); err != nil {
		metrics.ConsentDismissFailures.Inc()
		f.logger.Warn("consent banner not dismissed",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return
	}
	f.logger.Debug("consent banner dismissed", zap.String("url", pageURL))
	if f.cfg.SettleDelay > 0 {
		_ = chromedp.Run(parent, chromedp.Sleep(f.cfg.SettleDelay))
	}
}

// awaitContainers waits until at least one product container is present.
// Pages past the end of the catalog legitimately render none; the snapshot
// is taken either way and the extractor reports zero records.
func (f *HeadlessFetcher) awaitContainers(parent context.Context, pageURL string) {
	waitCtx, cancel := context.WithTimeout(parent, f.cfg.ContainerTimeout)
	defer cancel()

	sel := f.adapter.ContainerSelector()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery)); err != nil {
		f.logger.Warn("no product containers appeared before timeout",
			zap.String("url", pageURL),
			zap.String("selector", sel),
			zap.Error(err),
		)
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
