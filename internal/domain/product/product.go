// Package product holds the read-only catalog records the pipeline filters and reorders.
package product

import (
	"strings"
	"time"
)

// Product is a single catalog offer returned by the candidate retriever.
// The pipeline never mutates the catalog; it only filters, reorders and
// attaches a Promotion to copies of these records.
type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Price         float64    `json:"price"`
	Brand         string     `json:"brand,omitempty"`
	Merchant      string     `json:"merchant"`
	Category      string     `json:"category,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	AffiliateLink string     `json:"affiliate_link,omitempty"`
	InStock       bool       `json:"in_stock"`
	Promotion     *Promotion `json:"promotion,omitempty"`
}

// Page is one retrieval page: the products and the store-wide match count.
type Page struct {
	Products []Product
	Count    int
}

// Promotion is a merchant, brand or category offer attached to a product.
type Promotion struct {
	Title      string     `json:"title"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Type       string     `json:"type,omitempty"`
	CouponCode string     `json:"coupon_code,omitempty"`
}

// Expired reports whether the promotion has an expiry at or before now.
func (p Promotion) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// HasName reports whether the record carries a usable name.
// Records without one bypass name-based dedup and filtering.
func (p *Product) HasName() bool {
	return strings.TrimSpace(p.Name) != ""
}

// Text returns the lowercased name, description and brand joined for matching.
func (p *Product) Text() string {
	var b strings.Builder
	b.Grow(len(p.Name) + len(p.Description) + len(p.Brand) + 2)
	b.WriteString(strings.ToLower(p.Name))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(p.Description))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(p.Brand))
	return b.String()
}

// LowerName returns the lowercased, trimmed product name.
func (p *Product) LowerName() string {
	return strings.ToLower(strings.TrimSpace(p.Name))
}

// MerchantKey returns the case-insensitive merchant identity.
func (p *Product) MerchantKey() string {
	return strings.ToLower(strings.TrimSpace(p.Merchant))
}
