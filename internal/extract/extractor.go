// Package extract turns rendered listing pages into raw product records.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
	"github.com/mamadou-sy/catalog-crawler/internal/fetch"
	"github.com/mamadou-sy/catalog-crawler/internal/metrics"
	"github.com/mamadou-sy/catalog-crawler/internal/site"
)

// Extractor produces one RawProduct per product container found in a page
// snapshot. Fields are resolved independently: a missing sub-element or
// attribute defaults that field to the empty string and never drops the
// record.
type Extractor struct {
	adapter site.Adapter
	logger  *zap.Logger
}

// New builds an Extractor for the given site adapter.
func New(adapter site.Adapter, logger *zap.Logger) *Extractor {
	return &Extractor{adapter: adapter, logger: logger}
}

// Extract parses the page snapshot and returns the raw records in document
// order. A page without containers yields an empty slice, which is how the
// paginator learns a page contributed nothing.
func (e *Extractor) Extract(page fetch.Page) ([]catalog.RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", page.URL, err)
	}

	var products []catalog.RawProduct
	doc.Find(e.adapter.ContainerSelector()).Each(func(_ int, container *goquery.Selection) {
		products = append(products, catalog.RawProduct{
			Brand:       e.field(container, site.FieldBrand),
			Name:        e.field(container, site.FieldName),
			Link:        e.field(container, site.FieldLink),
			Price:       e.field(container, site.FieldPrice),
			RatingCount: e.field(container, site.FieldRatingCount),
			Shipping:    e.field(container, site.FieldShipping),
		})
	})

	if len(products) == 0 {
		e.logger.Debug("no product containers in snapshot", zap.String("url", page.URL))
	}
	return products, nil
}

// field resolves one field inside a container, returning "" on any miss.
func (e *Extractor) field(container *goquery.Selection, f site.Field) string {
	loc, ok := e.adapter.FieldLocator(f)
	if !ok {
		return ""
	}

	match := container.Find(loc.Selector).First()
	if match.Length() == 0 {
		metrics.FieldMisses.WithLabelValues(string(f)).Inc()
		return ""
	}

	if loc.Attr != "" {
		val, found := match.Attr(loc.Attr)
		if !found {
			metrics.FieldMisses.WithLabelValues(string(f)).Inc()
			return ""
		}
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(match.Text())
}
