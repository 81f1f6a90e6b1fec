package shopsearch

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/facet"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/guard"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	domusage "github.com/kailas-cloud/shopsearch/internal/domain/usage"
	"github.com/kailas-cloud/shopsearch/internal/domain/usage/budget"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error without address")
	}
}

func TestCompleterAdapter(t *testing.T) {
	mock := &mockCompleter{
		fn: func(_ context.Context, system, user string) (Completion, error) {
			if system == "" {
				t.Error("expected system prompt")
			}
			return Completion{Content: `{"productType":"` + user + `"}`, PromptTokens: 40, TotalTokens: 55}, nil
		},
	}
	adapter := &completerAdapter{inner: mock}

	c, err := adapter.Complete(context.Background(), "sys", "mug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Content != `{"productType":"mug"}` {
		t.Errorf("content = %q", c.Content)
	}
	if c.PromptTokens != 40 || c.TotalTokens != 55 {
		t.Errorf("tokens = %d/%d, want 40/55", c.PromptTokens, c.TotalTokens)
	}
}

func TestCompleterAdapter_Error(t *testing.T) {
	sentinel := errors.New("provider down")
	adapter := &completerAdapter{inner: &mockCompleter{
		fn: func(context.Context, string, string) (Completion, error) {
			return Completion{}, sentinel
		},
	}}

	_, err := adapter.Complete(context.Background(), "sys", "mug")
	if !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped sentinel, got %v", err)
	}
}

func TestLLMChecker(t *testing.T) {
	if llmChecker(nil) != nil {
		t.Error("nil completer should have no checker")
	}
	if llmChecker(&mockCompleter{}) != nil {
		t.Error("completer without HealthCheck should have no checker")
	}

	down := errors.New("down")
	hc := llmChecker(&mockHealthyCompleter{healthErr: down})
	if hc == nil {
		t.Fatal("expected checker")
	}
	if err := hc.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("HealthCheck = %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	comp := &mockCompleter{}
	reg := prometheus.NewRegistry()

	opts := []Option{
		WithRedis("localhost:6379", "secret"),
		WithKeyPrefix("test:"),
		WithCompleter(comp, "gpt-4o-mini"),
		WithLLMTimeout(2 * time.Second),
		WithTokenBudget(1000, 20000, true),
		WithCache(time.Hour, 50),
		WithPersistentCache(),
		WithPromotions(),
		WithEnsureIndex(),
		WithMerchantCap(3),
		WithLogger(slog.Default()),
		WithPrometheus(reg),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) != 1 || cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v", cfg.addrs)
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q", cfg.password)
	}
	if cfg.keyPrefix != "test:" {
		t.Errorf("keyPrefix = %q", cfg.keyPrefix)
	}
	if cfg.completer != comp || cfg.model != "gpt-4o-mini" {
		t.Errorf("completer = %v, model = %q", cfg.completer, cfg.model)
	}
	if cfg.llmTimeout != 2*time.Second {
		t.Errorf("llmTimeout = %v", cfg.llmTimeout)
	}
	if cfg.dailyTokens != 1000 || cfg.monthlyTokens != 20000 || !cfg.rejectOverrun {
		t.Errorf("budget = %d/%d reject=%v", cfg.dailyTokens, cfg.monthlyTokens, cfg.rejectOverrun)
	}
	if cfg.cacheTTL != time.Hour || cfg.cacheMaxEntries != 50 {
		t.Errorf("cache = %v/%d", cfg.cacheTTL, cfg.cacheMaxEntries)
	}
	if !cfg.persistentCache || !cfg.promotions || !cfg.ensureIndex {
		t.Errorf("flags = persistent:%v promotions:%v ensureIndex:%v",
			cfg.persistentCache, cfg.promotions, cfg.ensureIndex)
	}
	if cfg.merchantCap != 3 {
		t.Errorf("merchantCap = %d", cfg.merchantCap)
	}
	if cfg.logger == nil || cfg.metricsReg == nil {
		t.Error("expected logger and registerer to be set")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{}
	c.Close() // must not panic
}

func TestClient_Search(t *testing.T) {
	expires := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	var gotQuery string
	var gotLimit int
	c := &Client{
		searchSvc: &mockSearchUC{
			searchFn: func(_ context.Context, req request.Request) (searchuc.Response, error) {
				gotQuery, gotLimit = req.Query(), req.Limit()
				return searchuc.Response{
					Products: []product.Product{
						{
							ID: "p1", Name: "LEGO Star Wars X-Wing", Price: 49.99, Merchant: "Argos", InStock: true,
							Promotion: &product.Promotion{Title: "10% off", ExpiresAt: &expires},
						},
						{ID: "p2", Name: "LEGO Millennium Falcon", Price: 79.99, Merchant: "Smyths"},
					},
					Count: 2,
					Filters: facet.Schema{
						Category: "toys",
						Filters: []facet.Filter{{
							ID: "merchant", Label: "Store", Type: facet.Multi,
							Options: []facet.Option{{Value: "argos", Label: "Argos", Count: 1}},
						}},
					},
					CorrectedQuery: "lego star wars",
					Interpretation: interpretation.Interpretation{SearchTerms: [][]string{{"lego star wars"}}},
					Source:         interpretation.SourceLLM,
				}, nil
			},
		},
	}

	res, err := c.Search(context.Background(), "  lego starwars ", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "lego starwars" || gotLimit != request.DefaultLimit {
		t.Errorf("request = %q/%d", gotQuery, gotLimit)
	}
	if res.Count != 2 || len(res.Products) != 2 {
		t.Fatalf("count = %d, products = %d", res.Count, len(res.Products))
	}
	if res.Source != SourceLLM {
		t.Errorf("source = %q", res.Source)
	}
	if res.CorrectedQuery != "lego star wars" {
		t.Errorf("corrected = %q", res.CorrectedQuery)
	}
	if p := res.Products[0].Promotion; p == nil || p.Title != "10% off" || !p.ExpiresAt.Equal(expires) {
		t.Errorf("promotion = %+v", p)
	}
	if res.Products[1].Promotion != nil {
		t.Error("second product should carry no promotion")
	}
	if res.Category != "toys" || len(res.Facets) != 1 || res.Facets[0].Type != "multi" {
		t.Errorf("facets = %q %+v", res.Category, res.Facets)
	}
	if len(res.SearchTerms) != 1 || res.SearchTerms[0][0] != "lego star wars" {
		t.Errorf("search terms = %v", res.SearchTerms)
	}
}

func TestClient_Search_InventoryGap(t *testing.T) {
	c := &Client{
		searchSvc: &mockSearchUC{
			searchFn: func(context.Context, request.Request) (searchuc.Response, error) {
				return searchuc.Response{
					InventoryGap: &guard.Gap{Rule: "age", Reason: "no products for this age"},
					Source:       interpretation.SourceFastPath,
				}, nil
			},
		},
	}

	res, err := c.Search(context.Background(), "toys for 40 year old", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.InventoryGap == nil || res.InventoryGap.Rule != "age" {
		t.Errorf("gap = %+v", res.InventoryGap)
	}
	if len(res.Products) != 0 || res.Facets != nil {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestClient_Search_Errors(t *testing.T) {
	called := false
	c := &Client{
		searchSvc: &mockSearchUC{
			searchFn: func(context.Context, request.Request) (searchuc.Response, error) {
				called = true
				return searchuc.Response{}, ErrRetrievalFailed
			},
		},
	}

	if _, err := c.Search(context.Background(), "   ", 10); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("blank query: expected ErrInvalidQuery, got %v", err)
	}
	if called {
		t.Error("service must not be called for invalid queries")
	}

	if _, err := c.Search(context.Background(), "mug", 10); !errors.Is(err, ErrRetrievalFailed) {
		t.Errorf("expected ErrRetrievalFailed, got %v", err)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{
		healthSvc: &mockHealthUC{report: healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "llm": healthuc.CheckError},
		}},
	}

	h := c.Health(context.Background())
	if h.Status != "degraded" || !h.Healthy() {
		t.Errorf("status = %q healthy = %v", h.Status, h.Healthy())
	}
	if h.Checks["llm"] != "error" || h.Checks["database"] != "ok" {
		t.Errorf("checks = %v", h.Checks)
	}

	c.healthSvc = &mockHealthUC{report: healthuc.Report{Status: healthuc.Unhealthy}}
	if c.Health(context.Background()).Healthy() {
		t.Error("unhealthy report should not be healthy")
	}
}

func TestClient_Usage(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	var gotPeriod domusage.Period
	c := &Client{
		usageSvc: &mockUsageUC{
			getFn: func(_ context.Context, p domusage.Period) domusage.Report {
				gotPeriod = p
				b := budget.New(20000, 0, end.UnixMilli())
				return domusage.NewReport(p, start.UnixMilli(), end.UnixMilli(), "nebius", 20000, b)
			},
		},
	}

	r := c.Usage(context.Background(), PeriodMonth)
	if gotPeriod != domusage.PeriodMonth || r.Period != PeriodMonth {
		t.Errorf("period = %q/%q", gotPeriod, r.Period)
	}
	if r.Provider != "nebius" || r.TokensUsed != 20000 {
		t.Errorf("provider = %q used = %d", r.Provider, r.TokensUsed)
	}
	if !r.PeriodStart.Equal(start) || !r.PeriodEnd.Equal(end) {
		t.Errorf("window = %v..%v", r.PeriodStart, r.PeriodEnd)
	}
	if !r.Budget.IsExhausted || r.Budget.TokensLimit != 20000 || !r.Budget.ResetsAt.Equal(end) {
		t.Errorf("budget = %+v", r.Budget)
	}

	c.Usage(context.Background(), UsagePeriod("week"))
	if gotPeriod != domusage.PeriodDay {
		t.Errorf("unknown period should fall back to day, got %q", gotPeriod)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	// nil observer should not panic.
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
	obs.observeSource(SourceCache)
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("search", time.Now(), errors.New("fail"))
	obs.observeSource(SourceFallback)

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "error")); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.sources.WithLabelValues("fallback")); got != 1 {
		t.Errorf("fallback = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "shopsearch_sdk_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("shopsearch_sdk_operations_total not found")
	}
}

func TestObserver_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	first.observe("search", time.Now(), nil)
	second.observe("search", time.Now(), nil)
	if got := testutil.ToFloat64(first.metrics.operations.WithLabelValues("search", "ok")); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	// Проверяем что логгер не паникует при вызове.
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("search", time.Now(), nil, "source", "llm")
	obs.observe("search", time.Now(), errors.New("test error"))
}
