// Package promotion attaches at most one promotion to each search result.
package promotion

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// Snapshot is the promotion tables for one request, keyed by lowercase
// merchant, brand and category keyword.
type Snapshot struct {
	ByMerchant map[string]product.Promotion
	ByBrand    map[string]product.Promotion
	ByCategory map[string]product.Promotion
}

// NewSnapshot lowercases and trims every key.
func NewSnapshot(byMerchant, byBrand, byCategory map[string]product.Promotion) Snapshot {
	return Snapshot{
		ByMerchant: lowerKeys(byMerchant),
		ByBrand:    lowerKeys(byBrand),
		ByCategory: lowerKeys(byCategory),
	}
}

// IsEmpty reports whether the snapshot has no promotions.
func (s Snapshot) IsEmpty() bool {
	return len(s.ByMerchant) == 0 && len(s.ByBrand) == 0 && len(s.ByCategory) == 0
}

// Matcher looks promotions up in priority order: merchant, brand, brand
// named in the product name, then category keyword shared with the query.
type Matcher struct {
	now func() time.Time
}

// NewMatcher creates a matcher. A nil clock uses time.Now.
func NewMatcher(now func() time.Time) *Matcher {
	if now == nil {
		now = time.Now
	}
	return &Matcher{now: now}
}

// Annotate returns a copy of products with Promotion set where one matches.
// It never removes or reorders products.
func (m *Matcher) Annotate(products []product.Product, s Snapshot, query string) []product.Product {
	out := make([]product.Product, len(products))
	copy(out, products)
	if s.IsEmpty() {
		return out
	}

	now := m.now()
	brandKeys := sortedKeys(s.ByBrand)
	categoryKeys := sortedKeys(s.ByCategory)
	queryTokens := tokenSet(query)

	for i := range out {
		if promo, ok := m.match(&out[i], s, now, brandKeys, categoryKeys, queryTokens); ok {
			p := promo
			out[i].Promotion = &p
		}
	}
	return out
}

func (m *Matcher) match(
	p *product.Product,
	s Snapshot,
	now time.Time,
	brandKeys, categoryKeys []string,
	queryTokens map[string]struct{},
) (product.Promotion, bool) {
	live := func(promo product.Promotion, ok bool) bool { return ok && !promo.Expired(now) }

	if promo, ok := s.ByMerchant[p.MerchantKey()]; live(promo, ok) {
		return promo, true
	}
	brand := strings.ToLower(strings.TrimSpace(p.Brand))
	if promo, ok := s.ByBrand[brand]; brand != "" && live(promo, ok) {
		return promo, true
	}

	name := p.LowerName()
	if name != "" {
		for _, k := range brandKeys {
			if promo := s.ByBrand[k]; strings.Contains(name, k) && !promo.Expired(now) {
				return promo, true
			}
		}
	}

	if len(queryTokens) > 0 {
		for _, k := range categoryKeys {
			promo := s.ByCategory[k]
			if promo.Expired(now) {
				continue
			}
			for t := range tokenSet(k) {
				if _, ok := queryTokens[t]; ok {
					return promo, true
				}
			}
		}
	}
	return product.Promotion{}, false
}

func lowerKeys(in map[string]product.Promotion) map[string]product.Promotion {
	out := make(map[string]product.Promotion, len(in))
	for k, v := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out[k] = v
		}
	}
	return out
}

// sortedKeys orders longest first, then alphabetically, so lookups are
// deterministic and prefer specific keys.
func sortedKeys(m map[string]product.Promotion) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			out[f] = struct{}{}
		}
	}
	return out
}
