// Package catalog defines the record types shared across the crawl pipeline.
package catalog

// RawProduct is the per-container extraction result before cleaning.
// Every field is always present; a field whose markup could not be resolved
// holds the empty string instead of being omitted.
type RawProduct struct {
	Brand       string `json:"brand"`
	Name        string `json:"name"`
	Link        string `json:"link"`
	Price       string `json:"price"`
	RatingCount string `json:"rating_count"`
	Shipping    string `json:"shipping"`
}

// CanonicalProduct is a normalized record. Name is the deduplication key and
// is unique within one run's output. RatingCount stays textual because the
// downstream schema stores it as text.
type CanonicalProduct struct {
	Brand       string  `json:"brand"`
	Name        string  `json:"name"`
	Link        string  `json:"link"`
	Price       float64 `json:"price"`
	RatingCount string  `json:"rating_count"`
	Shipping    string  `json:"shipping"`
}

// Sentinel values substituted for empty or null-marker fields during
// normalization.
const (
	ShippingUnspecified = "unspecified"
	RatingZero          = "0"
)
