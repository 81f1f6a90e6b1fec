// Package promotion loads the active promotion tables from Redis.
package promotion

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	domainpromo "github.com/kailas-cloud/shopsearch/internal/domain/promotion"
)

type store interface {
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo reads three hashes (merchant, brand, category) whose fields are the
// match key and whose values are JSON promotions.
type Repo struct {
	store  store
	keys   []string
	logger *zap.Logger
}

// New creates a promotion source under "<keyPrefix>promotions:*".
func New(s store, keyPrefix string, logger *zap.Logger) *Repo {
	base := keyPrefix + "promotions:"
	return &Repo{
		store:  s,
		keys:   []string{base + "merchant", base + "brand", base + "category"},
		logger: logger,
	}
}

// Snapshot loads all three tables in one round-trip. Undecodable entries are skipped.
func (r *Repo) Snapshot(ctx context.Context) (domainpromo.Snapshot, error) {
	tables, err := r.store.HGetAllMulti(ctx, r.keys)
	if err != nil {
		return domainpromo.Snapshot{}, fmt.Errorf("load promotions: %w", err)
	}
	if len(tables) != len(r.keys) {
		return domainpromo.Snapshot{}, fmt.Errorf("load promotions: got %d tables, want %d", len(tables), len(r.keys))
	}

	return domainpromo.NewSnapshot(
		r.decode(r.keys[0], tables[0]),
		r.decode(r.keys[1], tables[1]),
		r.decode(r.keys[2], tables[2]),
	), nil
}

func (r *Repo) decode(key string, raw map[string]string) map[string]product.Promotion {
	out := make(map[string]product.Promotion, len(raw))
	for field, data := range raw {
		var p product.Promotion
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			r.logger.Warn("Skipping malformed promotion",
				zap.String("key", key),
				zap.String("field", field),
				zap.Error(err),
			)
			continue
		}
		if p.Title == "" {
			continue
		}
		out[field] = p
	}
	return out
}
