// Package catalog retrieves candidate products from the RediSearch product index.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
)

// Hash fields of a product document.
const (
	FieldName          = "name"
	FieldDescription   = "description"
	FieldPrice         = filter.FieldPrice
	FieldBrand         = filter.FieldBrand
	FieldMerchant      = filter.FieldMerchant
	FieldCategory      = filter.FieldCategory
	FieldImageURL      = "image_url"
	FieldAffiliateLink = "affiliate_link"
	FieldInStock       = "in_stock"
)

var textFields = []string{FieldName, FieldDescription}

type store interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo is the candidate retriever.
type Repo struct {
	store     store
	indexName string
	docPrefix string
}

// New creates a retriever over "<keyPrefix>products:idx" whose documents
// live under "<keyPrefix>product:".
func New(s store, keyPrefix string) *Repo {
	return &Repo{
		store:     s,
		indexName: keyPrefix + "products:idx",
		docPrefix: keyPrefix + "product:",
	}
}

// IndexName returns the FT index the repo queries.
func (r *Repo) IndexName() string { return r.indexName }

// EnsureIndex creates the product index when it is missing.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := db.NewIndex(r.indexName).
		Prefix(r.docPrefix).
		WeightedText(FieldName, 2).
		Text(FieldDescription).
		Numeric(FieldPrice).
		Tag(FieldBrand).
		Tag(FieldMerchant).
		Tag(FieldCategory).
		MustBuild()

	err := r.store.CreateIndex(ctx, def)
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("ensure index %s: %w", r.indexName, err)
	}
	return nil
}

// Search returns products matching any of terms in name or description,
// narrowed by the pre-filter expression.
func (r *Repo) Search(
	ctx context.Context, terms []string, limit, offset int, expr filter.Expression,
) (product.Page, error) {
	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName: r.indexName,
		Fields:    textFields,
		Terms:     terms,
		Filters:   expr,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return product.Page{}, fmt.Errorf("search %v: %w", terms, err)
	}
	if sr == nil {
		return product.Page{}, nil
	}

	products := make([]product.Product, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		products = append(products, parseProduct(strings.TrimPrefix(e.Key, r.docPrefix), e.Fields))
	}
	return product.Page{Products: products, Count: sr.Total}, nil
}

func parseProduct(id string, f map[string]string) product.Product {
	p := product.Product{
		ID:            id,
		Name:          f[FieldName],
		Description:   f[FieldDescription],
		Brand:         f[FieldBrand],
		Merchant:      f[FieldMerchant],
		Category:      f[FieldCategory],
		ImageURL:      f[FieldImageURL],
		AffiliateLink: f[FieldAffiliateLink],
		InStock:       true,
	}
	if v, err := strconv.ParseFloat(f[FieldPrice], 64); err == nil && v >= 0 {
		p.Price = v
	}
	if v, ok := f[FieldInStock]; ok {
		p.InStock = parseBool(v)
	}
	return p
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false", "no", "n":
		return false
	default:
		return true
	}
}
