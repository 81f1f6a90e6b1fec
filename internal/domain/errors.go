package domain

import "errors"

var (
	// ErrInvalidQuery signals a search request that failed validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrLLMUnavailable signals that no LLM completer is configured or reachable.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrLLMQuotaExceeded signals an exhausted LLM token budget.
	ErrLLMQuotaExceeded = errors.New("llm quota exceeded")
	// ErrLLMRateLimited signals that the local LLM admission limiter rejected the call.
	ErrLLMRateLimited = errors.New("llm rate limited")
	// ErrLLMProviderError signals an LLM provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrMalformedCompletion signals an LLM response without a usable JSON object.
	ErrMalformedCompletion = errors.New("malformed llm completion")
	// ErrRetrievalFailed signals that the candidate retriever could not serve a query.
	ErrRetrievalFailed = errors.New("retrieval failed")
)
