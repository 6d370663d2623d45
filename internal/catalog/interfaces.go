package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductStore persists raw and canonical product rows.
type ProductStore interface {
	// AppendRaw adds the raw rows scraped during one run to the append-only
	// ingest table, tagged with the run identifier.
	AppendRaw(ctx context.Context, runID uuid.UUID, products []RawProduct) error

	// RefreshClean drops and recreates the clean table, then bulk-inserts the
	// canonical rows. The refresh is all-or-nothing.
	RefreshClean(ctx context.Context, products []CanonicalProduct) error

	Close()
}

// BlobStore archives run artifacts (the CSV snapshot) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
