package site

import "fmt"

func init() {
	Register("decathlon", func() Adapter {
		return &decathlon{
			baseURL: "https://www.decathlon.fr/nouveautes/nouveautes-homme",
		}
	})
}

// decathlon targets the Decathlon France new-arrivals listing. The listing
// paginates with from/size query parameters and renders product cards as
// dpb-holder blocks.
type decathlon struct {
	baseURL string
}

func (d *decathlon) Name() string { return "decathlon" }

func (d *decathlon) PageURL(offset, size int) string {
	return fmt.Sprintf("%s?from=%d&size=%d", d.baseURL, offset, size)
}

func (d *decathlon) ConsentDismissQuery() string {
	// The banner offers a "continue without accepting" span; matching on the
	// text survives the rotating consent-widget ids.
	return `//span[contains(text(), 'Continuer sans accepter')]`
}

func (d *decathlon) ContainerSelector() string { return ".dpb-holder" }

var decathlonLocators = map[Field]Locator{
	FieldLink:        {Selector: "a.dpb-product-model-link", Attr: "href"},
	FieldBrand:       {Selector: "a.product-title strong"},
	FieldName:        {Selector: "a.product-title h2"},
	FieldPrice:       {Selector: ".price-presentation .vtmn-price"},
	FieldRatingCount: {Selector: ".vtmn-rating", Attr: "title"},
	FieldShipping:    {Selector: ".dpb-leadtime"},
}

func (d *decathlon) FieldLocator(f Field) (Locator, bool) {
	loc, ok := decathlonLocators[f]
	return loc, ok
}
