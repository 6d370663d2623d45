// Package normalize cleans raw product records into canonical ones.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
	"github.com/mamadou-sy/catalog-crawler/internal/metrics"
)

// PriceParseError reports a price string that could not be coerced to a
// number. One bad price fails the whole normalization pass; the snapshot
// and store refresh for the run are skipped.
type PriceParseError struct {
	Index int
	Name  string
	Raw   string
	Err   error
}

func (e *PriceParseError) Error() string {
	return fmt.Sprintf("record %d (%q): price %q is not a number: %v", e.Index, e.Name, e.Raw, e.Err)
}

func (e *PriceParseError) Unwrap() error { return e.Err }

// Result carries the canonical records plus dedup accounting for the run.
type Result struct {
	Products   []catalog.CanonicalProduct
	Input      int
	Duplicates int
}

// Normalize deduplicates the raw sequence by name (first occurrence wins,
// original order preserved) and cleans every field. All field rules are
// total except price parsing, which aborts the pass on the first failure.
func Normalize(raw []catalog.RawProduct) (Result, error) {
	result := Result{Input: len(raw)}

	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		key := dedupKey(r.Name)
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		price, err := ParsePrice(r.Price)
		if err != nil {
			return Result{}, &PriceParseError{
				Index: len(result.Products),
				Name:  r.Name,
				Raw:   r.Price,
				Err:   err,
			}
		}

		result.Products = append(result.Products, catalog.CanonicalProduct{
			Brand:       strings.ToLower(strings.TrimSpace(r.Brand)),
			Name:        key,
			Link:        r.Link,
			Price:       price,
			RatingCount: CleanRatingCount(r.RatingCount),
			Shipping:    CleanShipping(r.Shipping),
		})
	}

	metrics.DuplicatesDropped.Add(float64(result.Duplicates))
	return result, nil
}

// ParsePrice strips the currency symbol and whitespace, converts a decimal
// comma to a period and parses the remainder as a non-negative float.
// "29,99 €" parses to 29.99; "19,50" without a symbol still parses.
func ParsePrice(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(raw, "€", "")
	cleaned = strings.ReplaceAll(cleaned, "\u00a0", " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", cleaned, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative price %v", value)
	}
	return value, nil
}

// CleanRatingCount substitutes "0" for empty or null-marker values and
// keeps anything else unchanged.
func CleanRatingCount(raw string) string {
	if isMissing(raw) {
		return catalog.RatingZero
	}
	return raw
}

// CleanShipping substitutes the "unspecified" sentinel for empty or
// null-marker values and trims anything else.
func CleanShipping(raw string) string {
	if isMissing(raw) {
		return catalog.ShippingUnspecified
	}
	return strings.TrimSpace(raw)
}

func dedupKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isMissing(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || strings.EqualFold(trimmed, "null") || strings.EqualFold(trimmed, "nan")
}
