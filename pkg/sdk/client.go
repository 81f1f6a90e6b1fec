package shopsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/db"
	dbRedis "github.com/kailas-cloud/shopsearch/internal/db/redis"
	"github.com/kailas-cloud/shopsearch/internal/domain/promotion"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/diversity"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	budgetrepo "github.com/kailas-cloud/shopsearch/internal/repository/budget"
	"github.com/kailas-cloud/shopsearch/internal/repository/catalog"
	"github.com/kailas-cloud/shopsearch/internal/repository/interpcache"
	promorepo "github.com/kailas-cloud/shopsearch/internal/repository/promotion"
	budgetuc "github.com/kailas-cloud/shopsearch/internal/usecase/budget"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	interpretuc "github.com/kailas-cloud/shopsearch/internal/usecase/interpret"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/shopsearch/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "shop:"
	defaultCacheTTL         = 24 * time.Hour
	defaultCacheMaxEntries  = 2000
	defaultEvictFraction    = 0.1
	defaultCacheVersion     = 1

	persistentReadTimeout  = 150 * time.Millisecond
	persistentWriteTimeout = 2 * time.Second
	persistentQueueSize    = 256
	persistentWorkers      = 2
)

// Внутренний интерфейс для подмены в тестах.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (searchuc.Response, error)
}

// Client is the shopsearch SDK entry point. It runs the query pipeline
// in-process against a catalog indexed in Redis.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	writer    *interpcache.Writer
	tracker   *budgetuc.Tracker
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:       defaultKeyPrefix,
		llmTimeout:      interpretuc.DefaultTimeout,
		cacheTTL:        defaultCacheTTL,
		cacheMaxEntries: defaultCacheMaxEntries,
		merchantCap:     diversity.DefaultPolicy().Cap,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("shopsearch: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("shopsearch: connect: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("shopsearch: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

// wireClient assembles the pipeline over an established store.
func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	catalogRepo := catalog.New(store, cfg.keyPrefix)
	if cfg.ensureIndex {
		if err := catalogRepo.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("shopsearch: ensure index %s: %w", catalogRepo.IndexName(), err)
		}
	}

	memory := interpcache.NewMemory(cfg.cacheTTL, cfg.cacheMaxEntries, defaultEvictFraction, defaultCacheVersion)
	cache := interpcache.New(memory, logger)
	var writer *interpcache.Writer
	if cfg.persistentCache {
		writer = interpcache.NewWriter(persistentQueueSize, persistentWorkers, persistentWriteTimeout, logger)
		cache.WithPersistent(interpcache.NewRedis(store, cfg.keyPrefix, cfg.cacheTTL), writer, persistentReadTimeout)
	}

	var completer interpretuc.Completer
	if cfg.completer != nil {
		completer = &completerAdapter{inner: cfg.completer}
	}
	interpreter := interpretuc.New(completer, cache, cfg.model, cfg.llmTimeout, logger)

	var budgetReader usageuc.BudgetReader
	var tracker *budgetuc.Tracker
	if cfg.completer != nil && (cfg.dailyTokens > 0 || cfg.monthlyTokens > 0) {
		action := budgetuc.ActionWarn
		if cfg.rejectOverrun {
			action = budgetuc.ActionReject
		}
		tracker = budgetuc.NewTracker(cfg.model, cfg.keyPrefix, cfg.dailyTokens, cfg.monthlyTokens, action, logger)
		tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		interpreter.WithBudget(tracker)
		budgetReader = tracker
	}

	opts := searchuc.DefaultOptions()
	opts.Diversity.Cap = cfg.merchantCap
	searchSvc := searchuc.New(interpreter, catalogRepo).WithOptions(opts)
	if cfg.promotions {
		searchSvc.WithPromotions(promorepo.New(store, cfg.keyPrefix, logger), promotion.NewMatcher(time.Now))
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(store, llmChecker(cfg.completer)),
		usageSvc:  usageuc.New(budgetReader),
		writer:    writer,
		tracker:   tracker,
		obs:       obs,
	}, nil
}

// llmChecker returns the completer's HealthCheck, if it has one.
// Completer без HealthCheck отображается в отчёте как "disabled".
func llmChecker(c Completer) healthuc.LLMChecker {
	if hc, ok := c.(healthuc.LLMChecker); ok {
		return hc
	}
	return nil
}

// Close flushes budget counters, drains pending cache writes and closes the
// database connection.
func (c *Client) Close() {
	if c.tracker != nil {
		c.tracker.Close()
	}
	if c.writer != nil {
		c.writer.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search interprets query and returns up to limit ranked products.
// A zero limit selects the default page size; larger limits are clamped.
func (c *Client) Search(ctx context.Context, query string, limit int) (res SearchResult, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("search", start, err, "source", string(res.Source), "results", res.Count)
	}()

	req, err := request.New(query, limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	resp, err := c.searchSvc.Search(ctx, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	res = toSearchResult(&resp)
	c.obs.observeSource(res.Source)
	return res, nil
}
