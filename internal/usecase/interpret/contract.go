package interpret

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

// Completion is a single chat completion returned by the LLM provider.
type Completion struct {
	Content      string
	PromptTokens int
	TotalTokens  int
}

// Completer sends one system + user exchange to the LLM.
type Completer interface {
	Complete(ctx context.Context, system, user string) (Completion, error)
}

// Cache is the interpretation cache as seen by the interpreter.
type Cache interface {
	Get(ctx context.Context, query string) (interpretation.Interpretation, bool)
	Put(ctx context.Context, query string, in interpretation.Interpretation)
}

// BudgetChecker enforces the LLM token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
	Provider() string
}

// Limiter admits LLM calls (satisfied by *rate.Limiter).
type Limiter interface {
	Allow() bool
}
