package shopsearch

import "time"

// Source tells how a query interpretation was produced.
type Source string

// Interpretation sources.
const (
	SourceFastPath Source = "fast_path"
	SourceCache    Source = "cache"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Product is one ranked catalog offer.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         float64
	Brand         string
	Merchant      string
	Category      string
	ImageURL      string
	AffiliateLink string
	InStock       bool
	Promotion     *Promotion
}

// Promotion is the offer attached to a product, if any.
type Promotion struct {
	Title      string
	Type       string
	CouponCode string
	ExpiresAt  *time.Time
}

// InventoryGap explains an intentionally empty result.
type InventoryGap struct {
	Rule   string
	Reason string
}

// Facet is one refinement filter derived from the result set.
type Facet struct {
	ID      string
	Label   string
	Type    string
	Options []FacetOption
}

// FacetOption is a selectable facet value with its result count.
type FacetOption struct {
	Value string
	Label string
	Count int
}

// SearchResult is the outcome of one query.
type SearchResult struct {
	Products       []Product
	Count          int
	CorrectedQuery string
	InventoryGap   *InventoryGap
	Source         Source
	SearchTerms    [][]string
	Category       string
	Facets         []Facet
}
