package interpret

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
	"github.com/kailas-cloud/shopsearch/internal/domain/query/fastpath"
	"github.com/kailas-cloud/shopsearch/internal/domain/query/lexical"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// DefaultTimeout bounds a single LLM interpretation call.
const DefaultTimeout = 3 * time.Second

// Outcome is an interpretation together with how it was produced.
type Outcome struct {
	Interpretation interpretation.Interpretation
	Source         interpretation.Source
	Corrected      string
	WasCorrected   bool
}

// Service turns raw queries into interpretations: fast path, cache, LLM and
// finally the offline expander. It never fails.
type Service struct {
	fast      *fastpath.Matcher
	expander  *Expander
	completer Completer
	cache     Cache
	budget    BudgetChecker
	limiter   Limiter
	model     string
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates an interpreter. completer and cache may be nil: a nil completer
// sends every non-fast-path query to the fallback expander.
func New(completer Completer, cache Cache, model string, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	fast := fastpath.NewDefaultMatcher()
	return &Service{
		fast:      fast,
		expander:  NewExpander(fast),
		completer: completer,
		cache:     cache,
		model:     model,
		timeout:   timeout,
		logger:    logger,
	}
}

// WithBudget enables LLM token budget enforcement.
func (s *Service) WithBudget(b BudgetChecker) *Service {
	s.budget = b
	return s
}

// WithLimiter enables request-rate admission for LLM calls.
func (s *Service) WithLimiter(l Limiter) *Service {
	s.limiter = l
	return s
}

// WithFastPath replaces the built-in brand and category tables.
func (s *Service) WithFastPath(m *fastpath.Matcher) *Service {
	s.fast = m
	s.expander = NewExpander(m)
	return s
}

// Interpret resolves query. The returned interpretation is owned by the caller.
func (s *Service) Interpret(ctx context.Context, query string) Outcome {
	lex := lexical.Normalize(query)
	out := Outcome{Corrected: lex.Corrected, WasCorrected: lex.WasCorrected}

	in, source := s.resolve(ctx, lex.Corrected)
	in.OriginalQuery = lexical.Clean(query)
	if in.OriginalQuery == "" {
		in.OriginalQuery = lex.Corrected
	}

	out.Interpretation = in
	out.Source = source
	metrics.InterpretationsTotal.WithLabelValues(string(source)).Inc()

	s.logger.Debug("Query interpreted",
		zap.String("query", lex.Corrected),
		zap.String("source", string(source)),
		zap.Bool("was_corrected", lex.WasCorrected),
		zap.Int("term_groups", len(in.SearchTerms)),
	)
	return out
}

func (s *Service) resolve(ctx context.Context, q string) (interpretation.Interpretation, interpretation.Source) {
	if in, ok := s.fast.Match(q); ok {
		return in, interpretation.SourceFastPath
	}

	if s.cache != nil {
		if in, ok := s.cache.Get(ctx, q); ok {
			return in, interpretation.SourceCache
		}
	}

	in, err := s.complete(ctx, q)
	source := interpretation.SourceLLM
	if err != nil {
		s.logger.Debug("LLM interpretation unavailable, using fallback",
			zap.String("query", q),
			zap.Error(err),
		)
		in = s.expander.Expand(q)
		source = interpretation.SourceFallback
	}

	if s.cache != nil {
		s.cache.Put(ctx, q, in)
	}
	return in, source
}

type completionResult struct {
	completion Completion
	err        error
}

// complete asks the LLM for an interpretation under the configured timeout.
// The provider call is abandoned, not awaited, when the timeout fires first.
func (s *Service) complete(ctx context.Context, q string) (interpretation.Interpretation, error) {
	if err := s.admit(ctx); err != nil {
		return interpretation.Interpretation{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan completionResult, 1)
	go func() {
		c, err := s.completer.Complete(callCtx, SystemPrompt, q)
		done <- completionResult{completion: c, err: err}
	}()

	var res completionResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		metrics.LLMRequestsTotal.WithLabelValues(s.model, "timeout").Inc()
		return interpretation.Interpretation{}, fmt.Errorf("llm completion: %w", callCtx.Err())
	}

	if res.err != nil {
		status := "error"
		if errors.Is(res.err, context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.LLMRequestsTotal.WithLabelValues(s.model, status).Inc()
		return interpretation.Interpretation{}, fmt.Errorf("llm completion: %w", res.err)
	}

	s.recordUsage(res.completion.TotalTokens)

	in, err := ParseCompletion(q, res.completion.Content)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(s.model, "malformed").Inc()
		s.logger.Warn("Malformed LLM completion",
			zap.String("query", q),
			zap.Int("content_length", len(res.completion.Content)),
		)
		return interpretation.Interpretation{}, err
	}
	metrics.LLMRequestsTotal.WithLabelValues(s.model, "ok").Inc()
	return in, nil
}

// admit reports why an LLM call must not be attempted, if it must not.
func (s *Service) admit(ctx context.Context) error {
	if s.completer == nil {
		metrics.LLMSkippedTotal.WithLabelValues("disabled").Inc()
		return domain.ErrLLMUnavailable
	}
	if s.budget != nil {
		if err := s.budget.Check(ctx); err != nil {
			metrics.LLMSkippedTotal.WithLabelValues("budget").Inc()
			return fmt.Errorf("budget check: %w", err)
		}
	}
	if s.limiter != nil && !s.limiter.Allow() {
		metrics.LLMSkippedTotal.WithLabelValues("rate_limited").Inc()
		return domain.ErrLLMRateLimited
	}
	return nil
}

func (s *Service) recordUsage(totalTokens int) {
	if s.budget == nil || totalTokens <= 0 {
		return
	}
	s.budget.Record(int64(totalTokens))
	remaining := metrics.LLMBudgetTokensRemaining
	remaining.WithLabelValues(s.budget.Provider(), "daily").Set(float64(s.budget.RemainingDaily()))
	remaining.WithLabelValues(s.budget.Provider(), "monthly").Set(float64(s.budget.RemainingMonthly()))
}
