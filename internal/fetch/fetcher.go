// Package fetch loads catalog listing pages and returns rendered DOM
// snapshots for extraction.
package fetch

import (
	"context"
	"time"
)

// Page is one fetched listing page. Body holds the DOM snapshot after any
// JavaScript rendering and consent handling.
type Page struct {
	URL      string
	Body     []byte
	Duration time.Duration
}

// Fetcher loads a single listing page. Implementations own the underlying
// browser session or HTTP client and release it in Close.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (Page, error)
	Close(ctx context.Context) error
}
