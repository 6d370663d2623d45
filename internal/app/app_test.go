package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
	"github.com/mamadou-sy/catalog-crawler/internal/config"
	"github.com/mamadou-sy/catalog-crawler/internal/extract"
	"github.com/mamadou-sy/catalog-crawler/internal/fetch"
	"github.com/mamadou-sy/catalog-crawler/internal/sink"
	"github.com/mamadou-sy/catalog-crawler/internal/site"
)

// scriptedFetcher serves canned page bodies by URL and fails on anything it
// was not scripted for.
type scriptedFetcher struct {
	pages map[string]string
}

func (f *scriptedFetcher) Fetch(_ context.Context, pageURL string) (fetch.Page, error) {
	body, ok := f.pages[pageURL]
	if !ok {
		return fetch.Page{}, fmt.Errorf("unexpected url %s", pageURL)
	}
	if body == "" {
		return fetch.Page{}, errors.New("navigation timed out")
	}
	return fetch.Page{URL: pageURL, Body: []byte(body)}, nil
}

func (f *scriptedFetcher) Close(context.Context) error { return nil }

// recordingStore captures persistence calls instead of talking to Postgres.
type recordingStore struct {
	rawRuns  []uuid.UUID
	raw      [][]catalog.RawProduct
	clean    [][]catalog.CanonicalProduct
	rawErr   error
	cleanErr error
}

func (s *recordingStore) AppendRaw(_ context.Context, runID uuid.UUID, products []catalog.RawProduct) error {
	if s.rawErr != nil {
		return s.rawErr
	}
	s.rawRuns = append(s.rawRuns, runID)
	s.raw = append(s.raw, products)
	return nil
}

func (s *recordingStore) RefreshClean(_ context.Context, products []catalog.CanonicalProduct) error {
	if s.cleanErr != nil {
		return s.cleanErr
	}
	s.clean = append(s.clean, products)
	return nil
}

func (s *recordingStore) Close() {}

type recordingPublisher struct {
	payloads []any
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload any) (string, error) {
	p.payloads = append(p.payloads, payload)
	return "msg-1", nil
}

const productCard = `<html><body>
<div class="dpb-holder">
  <a class="dpb-product-model-link" href="https://example.com/p/veste-1"></a>
  <a class="product-title"><strong>QUECHUA</strong><h2>Veste Imperméable MH500</h2></a>
  <div class="price-presentation"><span class="vtmn-price">19,50 €</span></div>
</div>
</body></html>`

const emptyListing = `<html><body><main>aucun résultat</main></body></html>`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Crawler.PageSize = 40
	cfg.Crawler.MaxPages = 2
	cfg.Crawler.StopOnEmpty = true
	cfg.Crawler.DelaySeconds = 0
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "products.csv")
	return cfg
}

func newTestPipeline(t *testing.T, cfg config.Config, fetcher fetch.Fetcher, store catalog.ProductStore, pub catalog.Publisher) *Pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)
	adapter, err := site.New(cfg.Site)
	require.NoError(t, err)
	pipeline, err := NewPipeline(Deps{
		Config:    cfg,
		Adapter:   adapter,
		Fetcher:   fetcher,
		Extractor: extract.New(adapter, logger),
		Snapshot:  sink.NewSnapshotWriter(cfg.Snapshot.Path, logger),
		Store:     store,
		Publisher: pub,
		Logger:    logger,
	})
	require.NoError(t, err)
	return pipeline
}

// One page carries a single card with a French-formatted price and no rating
// or shipping markup, the next one times out. The run must still produce one
// canonical record, snapshot it and refresh the clean table with one row.
func TestPipelinePartialFailureStillProducesOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Refresh = true
	cfg.DB.AppendRaw = true
	cfg.DB.DSN = "postgres://test"
	require.NoError(t, cfg.Validate())

	adapter, err := site.New(cfg.Site)
	require.NoError(t, err)
	fetcher := &scriptedFetcher{pages: map[string]string{
		adapter.PageURL(0, 40):  productCard,
		adapter.PageURL(40, 40): "",
	}}
	store := &recordingStore{}
	pub := &recordingPublisher{}

	pipeline := newTestPipeline(t, cfg, fetcher, store, pub)
	require.NoError(t, pipeline.Run(context.Background()))

	require.Len(t, store.raw, 1)
	require.Len(t, store.raw[0], 1)
	require.Equal(t, "19,50 €", store.raw[0][0].Price)

	require.Len(t, store.clean, 1)
	require.Len(t, store.clean[0], 1)
	got := store.clean[0][0]
	require.Equal(t, "quechua", got.Brand)
	require.Equal(t, "veste imperméable mh500", got.Name)
	require.Equal(t, "https://example.com/p/veste-1", got.Link)
	require.InDelta(t, 19.5, got.Price, 1e-9)
	require.Equal(t, catalog.RatingZero, got.RatingCount)
	require.Equal(t, catalog.ShippingUnspecified, got.Shipping)

	persisted, err := sink.ReadSnapshot(cfg.Snapshot.Path)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, got, persisted[0])

	require.Len(t, pub.payloads, 1)
	summary, ok := pub.payloads[0].(RunSummary)
	require.True(t, ok)
	require.Equal(t, 1, summary.RawRecords)
	require.Equal(t, 1, summary.Products)
	require.True(t, summary.Refreshed)
	require.Equal(t, cfg.Snapshot.Path, summary.Snapshot)
}

// A crawl that finds nothing must leave the previous snapshot untouched and
// skip all persistence.
func TestPipelineNoProductsShortCircuits(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Refresh = true
	cfg.DB.DSN = "postgres://test"

	adapter, err := site.New(cfg.Site)
	require.NoError(t, err)
	fetcher := &scriptedFetcher{pages: map[string]string{
		adapter.PageURL(0, 40): emptyListing,
	}}
	store := &recordingStore{}
	pub := &recordingPublisher{}

	pipeline := newTestPipeline(t, cfg, fetcher, store, pub)
	require.NoError(t, pipeline.Run(context.Background()))

	require.Empty(t, store.clean)
	require.Empty(t, pub.payloads)
	require.NoFileExists(t, cfg.Snapshot.Path)
}

// A raw-append failure is tolerated; the canonical outputs still land.
func TestPipelineRawAppendFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Refresh = true
	cfg.DB.AppendRaw = true
	cfg.DB.DSN = "postgres://test"

	adapter, err := site.New(cfg.Site)
	require.NoError(t, err)
	fetcher := &scriptedFetcher{pages: map[string]string{
		adapter.PageURL(0, 40):  productCard,
		adapter.PageURL(40, 40): "",
	}}
	store := &recordingStore{rawErr: errors.New("copy failed")}

	pipeline := newTestPipeline(t, cfg, fetcher, store, &recordingPublisher{})
	require.NoError(t, pipeline.Run(context.Background()))

	require.Empty(t, store.raw)
	require.Len(t, store.clean, 1)
}

// A clean-table refresh failure fails the run after the snapshot is safe on
// disk.
func TestPipelineRefreshFailureFailsRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Refresh = true
	cfg.DB.DSN = "postgres://test"

	adapter, err := site.New(cfg.Site)
	require.NoError(t, err)
	fetcher := &scriptedFetcher{pages: map[string]string{
		adapter.PageURL(0, 40):  productCard,
		adapter.PageURL(40, 40): "",
	}}
	store := &recordingStore{cleanErr: errors.New("postgres down")}
	pub := &recordingPublisher{}

	pipeline := newTestPipeline(t, cfg, fetcher, store, pub)
	err = pipeline.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "refresh clean table")

	persisted, readErr := sink.ReadSnapshot(cfg.Snapshot.Path)
	require.NoError(t, readErr)
	require.Len(t, persisted, 1)
	require.Empty(t, pub.payloads)
}
