package shopsearch

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	domusage "github.com/kailas-cloud/shopsearch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req request.Request) (searchuc.Response, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request) (searchuc.Response, error) {
	return m.searchFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	getFn func(ctx context.Context, period domusage.Period) domusage.Report
}

func (m *mockUsageUC) GetReport(ctx context.Context, period domusage.Period) domusage.Report {
	return m.getFn(ctx, period)
}

// --- Completer mock ---

type mockCompleter struct {
	fn func(ctx context.Context, system, user string) (Completion, error)
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (Completion, error) {
	return m.fn(ctx, system, user)
}

type mockHealthyCompleter struct {
	mockCompleter
	healthErr error
}

func (m *mockHealthyCompleter) HealthCheck(_ context.Context) error {
	return m.healthErr
}
