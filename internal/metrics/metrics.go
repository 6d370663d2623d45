// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts catalog pages that were fetched and snapshotted.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_pages_fetched_total",
		Help: "The total number of catalog pages fetched.",
	})
	// PageErrors counts pages whose fetch or extraction failed; those pages
	// contribute zero records to the run.
	PageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_page_errors_total",
		Help: "The total number of pages that failed and contributed no records.",
	})
	// ProductsExtracted counts raw records emitted by the extractor.
	ProductsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_extracted_total",
		Help: "The total number of raw product records extracted.",
	})
	// FieldMisses counts single-field extraction failures by field name.
	FieldMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_field_misses_total",
		Help: "The total number of per-field extraction misses.",
	}, []string{"field"})
	// ConsentDismissFailures counts consent banners that could not be closed.
	ConsentDismissFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_consent_dismiss_failures_total",
		Help: "The total number of consent overlays that were not dismissed in time.",
	})
	// DuplicatesDropped counts raw records discarded by name deduplication.
	DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_duplicates_dropped_total",
		Help: "The total number of duplicate records dropped during normalization.",
	})
	// RowsInserted counts rows bulk-inserted into the clean table.
	RowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_clean_rows_inserted_total",
		Help: "The total number of rows inserted during a clean-table refresh.",
	})
)
