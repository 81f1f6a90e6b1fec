package shopsearch

import (
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

func toSearchResult(resp *searchuc.Response) SearchResult {
	out := SearchResult{
		Products:       make([]Product, len(resp.Products)),
		Count:          resp.Count,
		CorrectedQuery: resp.CorrectedQuery,
		Source:         Source(resp.Source),
		SearchTerms:    resp.Interpretation.SearchTerms,
		Category:       resp.Filters.Category,
	}
	if resp.InventoryGap != nil {
		out.InventoryGap = &InventoryGap{Rule: resp.InventoryGap.Rule, Reason: resp.InventoryGap.Reason}
	}
	for i := range resp.Products {
		out.Products[i] = toProduct(&resp.Products[i])
	}
	if len(resp.Filters.Filters) > 0 {
		out.Facets = make([]Facet, len(resp.Filters.Filters))
		for i, f := range resp.Filters.Filters {
			opts := make([]FacetOption, len(f.Options))
			for j, o := range f.Options {
				opts[j] = FacetOption{Value: o.Value, Label: o.Label, Count: o.Count}
			}
			out.Facets[i] = Facet{ID: f.ID, Label: f.Label, Type: string(f.Type), Options: opts}
		}
	}
	return out
}

func toProduct(p *product.Product) Product {
	out := Product{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		Brand:         p.Brand,
		Merchant:      p.Merchant,
		Category:      p.Category,
		ImageURL:      p.ImageURL,
		AffiliateLink: p.AffiliateLink,
		InStock:       p.InStock,
	}
	if p.Promotion != nil {
		out.Promotion = &Promotion{
			Title:      p.Promotion.Title,
			Type:       p.Promotion.Type,
			CouponCode: p.Promotion.CouponCode,
			ExpiresAt:  p.Promotion.ExpiresAt,
		}
	}
	return out
}
