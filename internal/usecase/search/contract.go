package search

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/promotion"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shopsearch/internal/usecase/interpret"
)

// Interpreter turns a raw query into an interpretation. It never fails.
type Interpreter interface {
	Interpret(ctx context.Context, query string) interpret.Outcome
}

// Retriever supplies lexical candidates for one term group.
type Retriever interface {
	Search(ctx context.Context, terms []string, limit, offset int, expr filter.Expression) (product.Page, error)
}

// PromotionSource loads the promotion tables for a request.
type PromotionSource interface {
	Snapshot(ctx context.Context) (promotion.Snapshot, error)
}
