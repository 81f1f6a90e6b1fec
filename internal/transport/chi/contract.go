package chi

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	domusage "github.com/kailas-cloud/shopsearch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

// SearchService runs the product search pipeline.
type SearchService interface {
	Search(ctx context.Context, req request.Request) (searchuc.Response, error)
}

// UsageService reports LLM token usage.
type UsageService interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthService aggregates dependency checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
