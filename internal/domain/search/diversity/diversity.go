// Package diversity caps how many results a single merchant contributes.
package diversity

import "github.com/kailas-cloud/shopsearch/internal/domain/product"

// Uncapped disables the per-merchant cap.
const Uncapped = 0

// Policy configures capping and adaptive relaxation.
type Policy struct {
	Cap                int
	MinResults         int
	DiversityThreshold int
	RelaxSteps         []int
}

// DefaultPolicy is 2 per merchant, relaxed to 4, 6 and then uncapped while
// fewer than 8 results remain and fewer than 4 merchants are present.
func DefaultPolicy() Policy {
	return Policy{Cap: 2, MinResults: 8, DiversityThreshold: 4, RelaxSteps: []int{4, 6, Uncapped}}
}

// Result holds the capped products and the cap that produced them.
type Result struct {
	Products []product.Product
	Cap      int
}

// Cap keeps the first k products of every merchant in iteration order.
// k <= 0 returns products unchanged.
func Cap(products []product.Product, k int) []product.Product {
	if k <= 0 {
		return products
	}
	counts := make(map[string]int)
	out := make([]product.Product, 0, len(products))
	for i := range products {
		m := products[i].MerchantKey()
		if counts[m] >= k {
			continue
		}
		counts[m]++
		out = append(out, products[i])
	}
	return out
}

// Merchants counts distinct merchants.
func Merchants(products []product.Product) int {
	seen := make(map[string]struct{})
	for i := range products {
		seen[products[i].MerchantKey()] = struct{}{}
	}
	return len(seen)
}

// Apply caps products, relaxing the cap only when the capped set is short of
// MinResults and merchant diversity is below DiversityThreshold. Relaxation
// stops at the first step that meets the target or adds nothing.
func Apply(products []product.Product, p Policy) Result {
	capped := Cap(products, p.Cap)
	res := Result{Products: capped, Cap: p.Cap}
	if len(capped) >= p.MinResults || Merchants(products) >= p.DiversityThreshold {
		return res
	}

	for _, step := range p.RelaxSteps {
		next := Cap(products, step)
		if len(next) <= len(res.Products) {
			break
		}
		res = Result{Products: next, Cap: step}
		if len(next) >= p.MinResults {
			break
		}
	}
	return res
}
