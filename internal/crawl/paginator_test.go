package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
	"github.com/mamadou-sy/catalog-crawler/internal/fetch"
	"github.com/mamadou-sy/catalog-crawler/internal/site"
)

type fakeAdapter struct{}

func (fakeAdapter) Name() string                { return "fake" }
func (fakeAdapter) ConsentDismissQuery() string { return "" }
func (fakeAdapter) ContainerSelector() string   { return ".item" }
func (fakeAdapter) PageURL(offset, size int) string {
	return fmt.Sprintf("https://fake.test/list?from=%d&size=%d", offset, size)
}
func (fakeAdapter) FieldLocator(site.Field) (site.Locator, bool) {
	return site.Locator{}, false
}

type fakeFetcher struct {
	urls    []string
	failOn  map[int]error
	fetched int
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (fetch.Page, error) {
	idx := f.fetched
	f.fetched++
	f.urls = append(f.urls, pageURL)
	if err, ok := f.failOn[idx]; ok {
		return fetch.Page{}, err
	}
	return fetch.Page{URL: pageURL, Body: []byte("<html></html>")}, nil
}

func (f *fakeFetcher) Close(context.Context) error { return nil }

// fakeExtractor yields the configured record batch for each page in turn.
type fakeExtractor struct {
	pages [][]catalog.RawProduct
	calls int
}

func (f *fakeExtractor) Extract(fetch.Page) ([]catalog.RawProduct, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	records := f.pages[f.calls]
	f.calls++
	return records, nil
}

func named(names ...string) []catalog.RawProduct {
	out := make([]catalog.RawProduct, 0, len(names))
	for _, n := range names {
		out = append(out, catalog.RawProduct{Name: n})
	}
	return out
}

func TestPaginatorVisitsPagesInOrder(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	extractor := &fakeExtractor{pages: [][]catalog.RawProduct{
		named("a", "b"),
		named("c"),
	}}
	p, err := NewPaginator(Config{PageSize: 40, MaxPages: 2}, fakeAdapter{}, fetcher, extractor, zaptest.NewLogger(t))
	require.NoError(t, err)

	records, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, named("a", "b", "c"), records)

	require.Len(t, fetcher.urls, 2)
	for i, raw := range fetcher.urls {
		u, perr := url.Parse(raw)
		require.NoError(t, perr)
		require.Equal(t, strconv.Itoa(i*40), u.Query().Get("from"))
		require.Equal(t, "40", u.Query().Get("size"))
	}
}

func TestPaginatorSkipsFailedPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{failOn: map[int]error{1: errors.New("nav timeout")}}
	extractor := &fakeExtractor{pages: [][]catalog.RawProduct{
		named("a"),
		named("b"),
	}}
	p, err := NewPaginator(Config{PageSize: 10, MaxPages: 3}, fakeAdapter{}, fetcher, extractor, zaptest.NewLogger(t))
	require.NoError(t, err)

	records, err := p.Run(context.Background())
	require.NoError(t, err)

	// Page 1 failed; pages 0 and 2 still contribute in order.
	require.Equal(t, named("a", "b"), records)
	require.Equal(t, 3, fetcher.fetched)
}

func TestPaginatorStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	extractor := &fakeExtractor{pages: [][]catalog.RawProduct{
		named("a"),
		{},
		named("never"),
	}}
	p, err := NewPaginator(Config{PageSize: 10, MaxPages: 10, StopOnEmpty: true}, fakeAdapter{}, fetcher, extractor, zaptest.NewLogger(t))
	require.NoError(t, err)

	records, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, named("a"), records)
	require.Equal(t, 2, fetcher.fetched)
}

func TestPaginatorHonorsMaxPagesBound(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	extractor := &fakeExtractor{pages: [][]catalog.RawProduct{
		named("a"), named("b"), named("c"), named("d"),
	}}
	p, err := NewPaginator(Config{PageSize: 10, MaxPages: 2, StopOnEmpty: true}, fakeAdapter{}, fetcher, extractor, zaptest.NewLogger(t))
	require.NoError(t, err)

	records, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, named("a", "b"), records)
}

func TestPaginatorRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewPaginator(Config{PageSize: 0, MaxPages: 1}, fakeAdapter{}, &fakeFetcher{}, &fakeExtractor{}, zaptest.NewLogger(t))
	require.Error(t, err)

	_, err = NewPaginator(Config{PageSize: 1, MaxPages: 0}, fakeAdapter{}, &fakeFetcher{}, &fakeExtractor{}, zaptest.NewLogger(t))
	require.Error(t, err)
}
