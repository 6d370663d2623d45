// Package site maps abstract page queries to concrete locators for one
// target catalog site. Adapters are registered by name and selected at
// configuration time, keeping extraction logic site-agnostic.
package site

import (
	"fmt"
	"sort"
)

// Field names the per-product values an adapter can locate inside a
// product container.
type Field string

// Fields extracted for every product container.
const (
	FieldLink        Field = "link"
	FieldBrand       Field = "brand"
	FieldName        Field = "name"
	FieldPrice       Field = "price"
	FieldRatingCount Field = "rating_count"
	FieldShipping    Field = "shipping"
)

// AllFields lists the extraction fields in canonical order.
var AllFields = []Field{FieldLink, FieldBrand, FieldName, FieldPrice, FieldRatingCount, FieldShipping}

// Locator resolves one field relative to a product container. When Attr is
// set the value is read from that attribute of the matched element,
// otherwise from its text content.
type Locator struct {
	Selector string
	Attr     string
}

// Adapter is the per-site capability consumed by the fetcher and extractor.
type Adapter interface {
	// Name identifies the adapter in config and logs.
	Name() string

	// PageURL builds the listing URL for the given offset and page size.
	PageURL(offset, size int) string

	// ConsentDismissQuery locates the control that dismisses the consent
	// overlay. The query is a chromedp search query (text or XPath).
	ConsentDismissQuery() string

	// ContainerSelector is the CSS selector matching one product listing.
	ContainerSelector() string

	// FieldLocator returns the locator for a field, or false when the site
	// does not expose that field.
	FieldLocator(f Field) (Locator, bool)
}

var registry = map[string]func() Adapter{}

// Register makes an adapter constructor available under its name.
// It panics on duplicate registration, mirroring database/sql drivers.
func Register(name string, factory func() Adapter) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("site: adapter %q registered twice", name))
	}
	registry[name] = factory
}

// New builds the adapter registered under name.
func New(name string) (Adapter, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown site adapter %q (available: %v)", name, Names())
	}
	return factory(), nil
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
