package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
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

type mockSearch struct {
	searchFn func(ctx context.Context, req request.Request) (searchuc.Response, error)
	calls    int
}

func (m *mockSearch) Search(ctx context.Context, req request.Request) (searchuc.Response, error) {
	m.calls++
	return m.searchFn(ctx, req)
}

type mockUsage struct {
	reportFn func(period domusage.Period) domusage.Report
}

func (m *mockUsage) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	return m.reportFn(period)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	search *mockSearch
	usage  *mockUsage
	health *mockHealth
	router http.Handler
}

func newFixture(t *testing.T, apiKeys ...string) *fixture {
	t.Helper()
	f := &fixture{
		search: &mockSearch{searchFn: func(context.Context, request.Request) (searchuc.Response, error) {
			return searchuc.Response{Products: []product.Product{}}, nil
		}},
		usage: &mockUsage{reportFn: func(p domusage.Period) domusage.Report {
			return domusage.NewReport(p, 0, 0, "", 0, budget.New(0, 0, 0))
		}},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(f.search, f.usage, f.health, zap.NewNop()).
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "# metrics")
		}))
	f.router = NewRouter(srv, apiKeys, zap.NewNop())
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

func TestSearch_OK(t *testing.T) {
	f := newFixture(t)
	f.search.searchFn = func(_ context.Context, req request.Request) (searchuc.Response, error) {
		if req.Query() != "lgo" {
			t.Errorf("query = %q, want trimmed %q", req.Query(), "lgo")
		}
		if req.Limit() != request.DefaultLimit {
			t.Errorf("limit = %d, want default %d", req.Limit(), request.DefaultLimit)
		}
		return searchuc.Response{
			Products: []product.Product{
				{ID: "1", Name: "LEGO City Fire Station", Price: 49.99, Merchant: "Argos", InStock: true},
			},
			Count:          1,
			Filters:        facet.Schema{Category: "toys", CategoryLabel: "Toys"},
			CorrectedQuery: "lego",
			Interpretation: interpretation.Interpretation{
				OriginalQuery: "lgo",
				SearchTerms:   [][]string{{"lego"}},
			},
			Source: interpretation.SourceFastPath,
		}, nil
	}

	rr := f.do(http.MethodPost, "/search", `{"query":"  lgo  "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["count"].(float64) != 1 {
		t.Errorf("count = %v", body["count"])
	}
	if body["corrected_query"] != "lego" {
		t.Errorf("corrected_query = %v", body["corrected_query"])
	}
	if body["source"] != string(interpretation.SourceFastPath) {
		t.Errorf("source = %v", body["source"])
	}
	if _, ok := body["inventory_gap"]; ok {
		t.Error("inventory_gap must be omitted when absent")
	}
	products := body["products"].([]any)
	if len(products) != 1 || products[0].(map[string]any)["merchant"] != "Argos" {
		t.Errorf("products = %v", products)
	}
	if body["filters"].(map[string]any)["category"] != "toys" {
		t.Errorf("filters = %v", body["filters"])
	}
}

func TestSearch_InventoryGap(t *testing.T) {
	f := newFixture(t)
	f.search.searchFn = func(context.Context, request.Request) (searchuc.Response, error) {
		return searchuc.Response{
			Products:     []product.Product{},
			InventoryGap: &guard.Gap{Rule: "costume", Reason: "no costumes in catalog"},
		}, nil
	}

	rr := f.do(http.MethodPost, "/search", `{"query":"spiderman costume","limit":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.InventoryGap == nil || resp.InventoryGap.Rule != "costume" {
		t.Errorf("inventory_gap = %+v", resp.InventoryGap)
	}
	if resp.Products == nil || len(resp.Products) != 0 {
		t.Errorf("products must be an empty list, got %v", resp.Products)
	}
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode ErrorCode
	}{
		{"blank query", `{"query":"   "}`, ErrorCodeValidationFailed},
		{"missing query", `{}`, ErrorCodeValidationFailed},
		{"negative limit", `{"query":"lego","limit":-1}`, ErrorCodeValidationFailed},
		{"malformed json", `{"query":`, ErrorCodeBadRequest},
		{"wrong type", `{"query":42}`, ErrorCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(http.MethodPost, "/search", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if e := decodeError(t, rr); e.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", e.Code, tt.wantCode)
			}
			if f.search.calls != 0 {
				t.Errorf("search called %d times for invalid request", f.search.calls)
			}
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
		wantMsg    string
	}{
		{
			"retrieval failed",
			fmt.Errorf("search: %w", domain.ErrRetrievalFailed),
			http.StatusServiceUnavailable, ErrorCodeUnavailable, domain.ErrRetrievalFailed.Error(),
		},
		{
			"deadline",
			fmt.Errorf("search: %w", context.DeadlineExceeded),
			http.StatusServiceUnavailable, ErrorCodeUnavailable, context.DeadlineExceeded.Error(),
		},
		{
			"unexpected",
			errors.New("redis: connection pool exhausted at 10.0.0.3"),
			http.StatusInternalServerError, ErrorCodeInternalError, "internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.search.searchFn = func(context.Context, request.Request) (searchuc.Response, error) {
				return searchuc.Response{}, tt.err
			}
			rr := f.do(http.MethodPost, "/search", `{"query":"lego"}`)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			e := decodeError(t, rr)
			if e.Code != tt.wantCode || e.Message != tt.wantMsg {
				t.Errorf("error = %+v, want %s/%q", e, tt.wantCode, tt.wantMsg)
			}
		})
	}
}

func TestSearch_PanicRecovered(t *testing.T) {
	f := newFixture(t)
	f.search.searchFn = func(context.Context, request.Request) (searchuc.Response, error) {
		panic("boom")
	}
	rr := f.do(http.MethodPost, "/search", `{"query":"lego"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != ErrorCodeInternalError {
		t.Errorf("code = %s", e.Code)
	}
}

func TestGetUsage(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	f := newFixture(t)
	f.usage.reportFn = func(p domusage.Period) domusage.Report {
		if p != domusage.PeriodMonth {
			t.Errorf("period = %s, want month", p)
		}
		return domusage.NewReport(p, start.UnixMilli(), end.UnixMilli(), "nebius", 1200,
			budget.New(5000, 3800, end.UnixMilli()))
	}

	rr := f.do(http.MethodGet, "/usage?period=month", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp UsageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Period != "month" || resp.Provider != "nebius" || resp.TokensUsed != 1200 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Budget.TokensLimit != 5000 || resp.Budget.TokensRemaining != 3800 || resp.Budget.IsExhausted {
		t.Errorf("budget = %+v", resp.Budget)
	}
	if resp.PeriodStartAt == nil || !resp.PeriodStartAt.Equal(start) {
		t.Errorf("period_start_at = %v", resp.PeriodStartAt)
	}
	if resp.Budget.ResetsAt == nil || !resp.Budget.ResetsAt.Equal(end) {
		t.Errorf("resets_at = %v", resp.Budget.ResetsAt)
	}
}

func TestGetUsage_DefaultPeriod(t *testing.T) {
	f := newFixture(t)
	var got domusage.Period
	f.usage.reportFn = func(p domusage.Period) domusage.Report {
		got = p
		return domusage.NewReport(p, 0, 0, "", 0, budget.New(0, 0, 0))
	}

	rr := f.do(http.MethodGet, "/usage", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got != domusage.PeriodDay {
		t.Errorf("period = %s, want day", got)
	}
	var resp UsageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PeriodStartAt != nil || resp.Budget.ResetsAt != nil {
		t.Errorf("zero timestamps must be omitted: %+v", resp)
	}
}

func TestGetUsage_InvalidPeriod(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/usage?period=year", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != ErrorCodeValidationFailed {
		t.Errorf("code = %s", e.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     healthuc.Status
		wantStatus int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusOK},
		{"unhealthy", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.health.report = healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{
					"database": healthuc.CheckOK,
					"llm":      healthuc.CheckError,
				},
			}
			rr := f.do(http.MethodGet, "/health", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.status) || resp.Checks["llm"] != "error" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/collections", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != ErrorCodeNotFound {
		t.Errorf("unknown route: code = %s", e.Code)
	}

	rr = f.do(http.MethodGet, "/search", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /search: status = %d", rr.Code)
	}
}

func TestRouter_Auth(t *testing.T) {
	f := newFixture(t, "secret")

	if rr := f.do(http.MethodPost, "/search", `{"query":"lego"}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/search", `{"query":"lego"}`, "Authorization", "Bearer secret"); rr.Code != http.StatusOK {
		t.Errorf("valid key: status = %d", rr.Code)
	}
	if rr := f.do(http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health must stay open: status = %d", rr.Code)
	}
	rr := f.do(http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "# metrics") {
		t.Errorf("metrics: status = %d body = %q", rr.Code, rr.Body.String())
	}
}
