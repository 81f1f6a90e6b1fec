// Package rank orders filtered results by price or, for quality-seeking
// queries, by merchant tier.
package rank

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// QualityWords signal a preference for premium results.
var QualityWords = []string{"best", "premium", "quality", "luxury", "high end", "top rated", "designer", "finest"}

// DiscountMerchants are demoted for quality-seeking queries.
var DiscountMerchants = []string{
	"poundland", "b&m", "b and m", "home bargains", "temu", "wish", "shein", "aliexpress",
	"poundstretcher", "the range", "primark",
}

// HasQualityIntent reports whether query contains a quality word on word boundaries.
func HasQualityIntent(query string) bool {
	q := " " + strings.Join(strings.FieldsFunc(strings.ToLower(query), isSep), " ") + " "
	for _, w := range QualityWords {
		if strings.Contains(q, " "+w+" ") {
			return true
		}
	}
	return false
}

func isSep(r rune) bool {
	return r == ' ' || r == '\t' || r == ',' || r == '.' || r == '!' || r == '?' || r == '-'
}

// IsDiscountMerchant reports whether merchant is on the discount list.
func IsDiscountMerchant(merchant string) bool {
	m := strings.ToLower(strings.TrimSpace(merchant))
	for _, d := range DiscountMerchants {
		if m == d {
			return true
		}
	}
	return false
}

// Rank returns a reordered copy. Without quality intent products are sorted
// by ascending price (stable); with it, discount merchants move to the back
// and relative order is otherwise preserved.
func Rank(products []product.Product, query string) []product.Product {
	out := make([]product.Product, len(products))
	copy(out, products)

	if HasQualityIntent(query) {
		return demoteDiscount(out)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

func demoteDiscount(products []product.Product) []product.Product {
	out := make([]product.Product, 0, len(products))
	var tail []product.Product
	for i := range products {
		if IsDiscountMerchant(products[i].Merchant) {
			tail = append(tail, products[i])
			continue
		}
		out = append(out, products[i])
	}
	return append(out, tail...)
}
