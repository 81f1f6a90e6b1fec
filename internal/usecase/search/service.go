// Package search orchestrates a product search: interpret, retrieve, filter,
// deduplicate, diversify, rank, annotate and describe.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/promotion"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/dedup"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/diversity"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/facet"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/guard"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/rank"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// Options tunes retrieval and diversity.
type Options struct {
	// FetchMultiplier scales the request limit into the per-group candidate count.
	FetchMultiplier int
	// MaxTermGroups caps how many interpretation term groups are retrieved.
	MaxTermGroups int
	Diversity     diversity.Policy
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		FetchMultiplier: 3,
		MaxTermGroups:   3,
		Diversity:       diversity.DefaultPolicy(),
	}
}

// Response is a search result ready for the transport layer.
type Response struct {
	Products       []product.Product
	Count          int
	Filters        facet.Schema
	CorrectedQuery string
	InventoryGap   *guard.Gap
	Interpretation interpretation.Interpretation
	Source         interpretation.Source
}

// Service runs the search pipeline.
type Service struct {
	interp     Interpreter
	retriever  Retriever
	pipeline   *guard.Pipeline
	promotions PromotionSource
	matcher    *promotion.Matcher
	opts       Options
}

// New creates a search service with the default filter pipeline and options.
func New(interp Interpreter, retriever Retriever) *Service {
	return &Service{
		interp:    interp,
		retriever: retriever,
		pipeline:  guard.NewDefaultPipeline(guard.WithObserver(observeFilter)),
		opts:      DefaultOptions(),
	}
}

// WithOptions replaces the tuning options. Zero fields keep their defaults.
func (s *Service) WithOptions(o Options) *Service {
	def := DefaultOptions()
	if o.FetchMultiplier <= 0 {
		o.FetchMultiplier = def.FetchMultiplier
	}
	if o.MaxTermGroups <= 0 {
		o.MaxTermGroups = def.MaxTermGroups
	}
	if o.Diversity.Cap <= 0 {
		o.Diversity = def.Diversity
	}
	s.opts = o
	return s
}

// WithPipeline replaces the filter pipeline.
func (s *Service) WithPipeline(p *guard.Pipeline) *Service {
	s.pipeline = p
	return s
}

// WithPromotions enables promotion annotation.
func (s *Service) WithPromotions(src PromotionSource, m *promotion.Matcher) *Service {
	s.promotions = src
	s.matcher = m
	return s
}

// Search runs the pipeline. Retrieval failures and inventory gaps produce an
// empty response, not an error; only a cancelled context is returned as one.
func (s *Service) Search(ctx context.Context, req request.Request) (Response, error) {
	log := logger.FromContext(ctx)

	out := s.interp.Interpret(ctx, req.Query())
	in := out.Interpretation
	resp := Response{
		Products:       []product.Product{},
		Interpretation: in,
		Source:         out.Source,
	}
	if out.WasCorrected {
		resp.CorrectedQuery = out.Corrected
	}
	hint := in.CategoryFilter()

	candidates, err := s.retrieve(ctx, in, req.Limit())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, fmt.Errorf("search: %w", ctxErr)
		}
		log.Warn("Retrieval failed, returning empty result",
			zap.String("query", req.Query()),
			zap.Error(err),
		)
		resp.Filters = facet.Build(nil, hint)
		return resp, nil
	}

	q := guard.NewQuery(req.Query(), out.Corrected, in)
	filtered := s.pipeline.Run(candidates, q)
	if filtered.Gap != nil {
		metrics.InventoryGapsTotal.WithLabelValues(filtered.Gap.Rule).Inc()
		log.Info("Inventory gap",
			zap.String("query", req.Query()),
			zap.String("rule", filtered.Gap.Rule),
			zap.Int("candidates", len(candidates)),
		)
		resp.InventoryGap = filtered.Gap
		resp.Filters = facet.Build(nil, hint)
		return resp, nil
	}

	products := dedup.Deduplicate(filtered.Products)

	diverse := diversity.Apply(products, s.opts.Diversity)
	metrics.MerchantCapApplied.Observe(float64(diverse.Cap))

	products = rank.Rank(diverse.Products, q.Raw)
	if len(products) > req.Limit() {
		products = products[:req.Limit()]
	}
	products = s.annotate(ctx, products, q.Text)

	resp.Products = products
	resp.Count = len(products)
	resp.Filters = facet.Build(products, hint)

	log.Debug("Search completed",
		zap.String("query", req.Query()),
		zap.String("source", string(out.Source)),
		zap.Int("candidates", len(candidates)),
		zap.Strings("filters_applied", filtered.Applied),
		zap.Int("merchant_cap", diverse.Cap),
		zap.Int("results", resp.Count),
	)
	return resp, nil
}

// retrieve fetches every term group concurrently and merges them in group
// order, keeping the first occurrence of each product ID. It fails only
// when every group fails.
func (s *Service) retrieve(
	ctx context.Context, in interpretation.Interpretation, limit int,
) ([]product.Product, error) {
	groups := in.SearchTerms
	if len(groups) > s.opts.MaxTermGroups {
		groups = groups[:s.opts.MaxTermGroups]
	}

	expr, err := filter.FromContext(in.Context)
	if err != nil {
		logger.FromContext(ctx).Debug("Dropping invalid pre-filter", zap.Error(err))
		expr = filter.Expression{}
	}

	fetch := limit * s.opts.FetchMultiplier
	pages := make([][]product.Product, len(groups))
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, terms := range groups {
		g.Go(func() error {
			page, err := s.retriever.Search(gctx, terms, fetch, 0, expr)
			if err != nil {
				errs[i] = fmt.Errorf("group %d %v: %w", i, terms, err)
				return nil
			}
			pages[i] = page.Products
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(groups) {
		metrics.RetrievalFailuresTotal.Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, errors.Join(errs...))
	}
	if failed > 0 {
		logger.FromContext(ctx).Warn("Partial retrieval failure", zap.Error(errors.Join(errs...)))
	}

	return merge(pages), nil
}

func merge(pages [][]product.Product) []product.Product {
	seen := make(map[string]struct{})
	var out []product.Product
	for _, page := range pages {
		for _, p := range page {
			if p.ID != "" {
				if _, dup := seen[p.ID]; dup {
					continue
				}
				seen[p.ID] = struct{}{}
			}
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) annotate(ctx context.Context, products []product.Product, query string) []product.Product {
	if s.promotions == nil || s.matcher == nil || len(products) == 0 {
		return products
	}
	snap, err := s.promotions.Snapshot(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("Promotions unavailable", zap.Error(err))
		return products
	}
	return s.matcher.Annotate(products, snap, query)
}

func observeFilter(rule string, before, after int) {
	if removed := before - after; removed > 0 {
		metrics.FilterRemovedTotal.WithLabelValues(rule).Add(float64(removed))
	}
}
