// Package dedup merges equivalent offers, keeping the cheapest one.
package dedup

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// MinSimilarity is the shorter/longer length ratio above which a contained
// name counts as the same product.
const MinSimilarity = 0.8

var (
	skuRe      = regexp.MustCompile(`\((\d{4,})\)`)
	skuTokenRe = regexp.MustCompile(`\(?\b\d{4,}\b\)?`)
	currencyRe = regexp.MustCompile(`[£$€]\s*\d+(?:[.,]\d+)?`)
	unitRe     = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:ml|l|g|kg|mg|cm|mm|m|oz|lb|inch|in|pack|pk|pcs|x)\b`)
	sizeRe     = regexp.MustCompile(`\b(?:size\s+\w+|uk\s*\d+(?:\.\d)?|xxs|xs|s|m|l|xl|xxl|xxxl|small|medium|large)\b`)
)

// SKU extracts the parenthesised numeric SKU from a product name.
func SKU(name string) (string, bool) {
	m := skuRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeName strips SKUs, prices, sizes, units and punctuation.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = skuTokenRe.ReplaceAllString(s, " ")
	s = currencyRe.ReplaceAllString(s, " ")
	s = unitRe.ReplaceAllString(s, " ")
	s = sizeRe.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Similar reports whether two normalized names describe the same product.
func Similar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if !strings.Contains(long, short) {
		return false
	}
	return float64(len(short)) >= MinSimilarity*float64(len(long))
}

// Deduplicate runs the SKU pass then the fuzzy-name pass. Survivors keep
// their original relative order; the cheapest offer wins, first seen on ties.
// Products without a name are always unique.
func Deduplicate(products []product.Product) []product.Product {
	if len(products) < 2 {
		return products
	}
	return fuzzyPass(skuPass(products))
}

func skuPass(products []product.Product) []product.Product {
	best := make(map[string]int)
	drop := make([]bool, len(products))

	for i := range products {
		if !products[i].HasName() {
			continue
		}
		sku, ok := SKU(products[i].Name)
		if !ok {
			continue
		}
		j, seen := best[sku]
		switch {
		case !seen:
			best[sku] = i
		case products[i].Price < products[j].Price:
			drop[j] = true
			best[sku] = i
		default:
			drop[i] = true
		}
	}
	return compact(products, drop)
}

func fuzzyPass(products []product.Product) []product.Product {
	type candidate struct {
		idx  int
		name string
	}
	var cands []candidate
	for i := range products {
		if !products[i].HasName() {
			continue
		}
		if _, ok := SKU(products[i].Name); ok {
			continue
		}
		if n := NormalizeName(products[i].Name); n != "" {
			cands = append(cands, candidate{idx: i, name: n})
		}
	}
	if len(cands) < 2 {
		return products
	}

	uf := newUnionFind(len(cands))
	for a := 0; a < len(cands); a++ {
		for b := a + 1; b < len(cands); b++ {
			if Similar(cands[a].name, cands[b].name) {
				uf.union(a, b)
			}
		}
	}

	winner := make(map[int]int)
	for c := range cands {
		root := uf.find(c)
		w, ok := winner[root]
		if !ok || products[cands[c].idx].Price < products[cands[w].idx].Price {
			winner[root] = c
		}
	}

	drop := make([]bool, len(products))
	for c := range cands {
		if winner[uf.find(c)] != c {
			drop[cands[c].idx] = true
		}
	}
	return compact(products, drop)
}

func compact(products []product.Product, drop []bool) []product.Product {
	out := make([]product.Product, 0, len(products))
	for i := range products {
		if !drop[i] {
			out = append(out, products[i])
		}
	}
	return out
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the smaller index as root so components are rooted at their
// first-seen member.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
