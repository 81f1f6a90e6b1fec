package shopsearch

import "github.com/kailas-cloud/shopsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery    = domain.ErrInvalidQuery
	ErrRetrievalFailed = domain.ErrRetrievalFailed
)
