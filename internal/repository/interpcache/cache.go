package interpcache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
	"github.com/kailas-cloud/shopsearch/internal/domain/query/signature"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// DefaultReadTimeout bounds a persistent-tier lookup.
const DefaultReadTimeout = 150 * time.Millisecond

// Persistent is the durable tier keyed by normalized signature hash.
type Persistent interface {
	Get(ctx context.Context, hash string) (interpretation.Cached, error)
	Upsert(ctx context.Context, hash string, c interpretation.Cached) error
	Bump(ctx context.Context, hash string) error
}

// Cache answers from memory first, then from the persistent tier.
// Persistent failures are misses; writes are asynchronous.
type Cache struct {
	memory      *Memory
	persistent  Persistent
	writer      *Writer
	readTimeout time.Duration
	logger      *zap.Logger
}

// New creates a memory-only cache.
func New(memory *Memory, logger *zap.Logger) *Cache {
	return &Cache{memory: memory, logger: logger}
}

// WithPersistent enables the durable tier. Writes and bumps go through w.
func (c *Cache) WithPersistent(p Persistent, w *Writer, readTimeout time.Duration) *Cache {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	c.persistent = p
	c.writer = w
	c.readTimeout = readTimeout
	return c
}

// Get returns a cached interpretation of query. The result is a copy.
func (c *Cache) Get(ctx context.Context, query string) (interpretation.Interpretation, bool) {
	exact, norm := signature.Exact(query), signature.Normalized(query)

	if in, tier, ok := c.memory.Get(exact, norm); ok {
		record(tier, "hit")
		return in, true
	}
	record(TierMemory, "miss")

	if c.persistent == nil {
		return interpretation.Interpretation{}, false
	}

	hash := signature.Hash(norm)
	readCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	entry, err := c.persistent.Get(readCtx, hash)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		record(TierPersistent, "miss")
		return interpretation.Interpretation{}, false
	case err != nil:
		record(TierPersistent, "error")
		c.logger.Debug("Persistent cache read failed", zap.String("query", query), zap.Error(err))
		return interpretation.Interpretation{}, false
	case !c.memory.Fresh(entry):
		record(TierPersistent, "miss")
		return interpretation.Interpretation{}, false
	}

	record(TierPersistent, "hit")
	c.memory.Restore(exact, norm, entry)
	c.updateSize()
	c.writer.Submit("bump", func(ctx context.Context) error {
		return c.persistent.Bump(ctx, hash)
	})
	return entry.Interpretation.Clone(), true
}

// Put stores in under the query's signatures in every tier.
func (c *Cache) Put(_ context.Context, query string, in interpretation.Interpretation) {
	exact, norm := signature.Exact(query), signature.Normalized(query)
	entry := c.memory.newEntry(in.Clone())

	c.memory.Restore(exact, norm, entry)
	c.updateSize()

	if c.persistent == nil {
		return
	}
	hash := signature.Hash(norm)
	c.writer.Submit("upsert", func(ctx context.Context) error {
		return c.persistent.Upsert(ctx, hash, entry)
	})
}

func (c *Cache) updateSize() {
	exact, norm := c.memory.Len()
	metrics.InterpretationCacheEntries.WithLabelValues(TierExact).Set(float64(exact))
	metrics.InterpretationCacheEntries.WithLabelValues(TierNormalized).Set(float64(norm))
}

func record(tier, result string) {
	metrics.InterpretationCacheTotal.WithLabelValues(tier, result).Inc()
}
