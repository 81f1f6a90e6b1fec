package interpcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

// Hash fields of a persisted entry.
const (
	fieldData           = "data"
	fieldCreatedAt      = "created_at"
	fieldLastAccessedAt = "last_accessed_at"
	fieldHitCount       = "hit_count"
	fieldVersion        = "version"
)

type hashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrByIfExists(ctx context.Context, key, field string, val int64, set map[string]string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Redis is the persistent tier: one hash per normalized signature.
type Redis struct {
	store  hashStore
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis creates the persistent tier. Keys are "<keyPrefix>interp:<hash>".
func NewRedis(s hashStore, keyPrefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{store: s, prefix: keyPrefix + "interp:", ttl: ttl, now: time.Now}
}

// WithClock replaces the wall clock (tests).
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

// Get loads an entry. A missing key returns db.ErrKeyNotFound.
func (r *Redis) Get(ctx context.Context, hash string) (interpretation.Cached, error) {
	m, err := r.store.HGetAll(ctx, r.key(hash))
	if err != nil {
		return interpretation.Cached{}, fmt.Errorf("get interpretation: %w", err)
	}
	if len(m) == 0 {
		return interpretation.Cached{}, db.ErrKeyNotFound
	}
	return decodeEntry(m)
}

// Upsert writes an entry and resets its TTL.
func (r *Redis) Upsert(ctx context.Context, hash string, c interpretation.Cached) error {
	fields, err := encodeEntry(c)
	if err != nil {
		return err
	}
	key := r.key(hash)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("upsert interpretation: %w", err)
	}
	if err := r.store.Expire(ctx, key, r.ttl, false); err != nil {
		return fmt.Errorf("expire interpretation: %w", err)
	}
	return nil
}

// Bump increments the hit count and refreshes the last-access time of an
// existing entry. An expired entry stays gone.
func (r *Redis) Bump(ctx context.Context, hash string) error {
	_, err := r.store.HIncrByIfExists(ctx, r.key(hash), fieldHitCount, 1, map[string]string{
		fieldLastAccessedAt: formatTime(r.now()),
	})
	if err != nil {
		return fmt.Errorf("bump interpretation: %w", err)
	}
	return nil
}

func (r *Redis) key(hash string) string {
	return r.prefix + hash
}

func encodeEntry(c interpretation.Cached) (map[string]string, error) {
	data, err := json.Marshal(c.Interpretation)
	if err != nil {
		return nil, fmt.Errorf("marshal interpretation: %w", err)
	}
	return map[string]string{
		fieldData:           string(data),
		fieldCreatedAt:      formatTime(c.CreatedAt),
		fieldLastAccessedAt: formatTime(c.LastAccessedAt),
		fieldHitCount:       strconv.FormatInt(c.HitCount, 10),
		fieldVersion:        strconv.Itoa(c.Version),
	}, nil
}

func decodeEntry(m map[string]string) (interpretation.Cached, error) {
	var c interpretation.Cached
	if err := json.Unmarshal([]byte(m[fieldData]), &c.Interpretation); err != nil {
		return c, fmt.Errorf("unmarshal interpretation: %w", err)
	}

	var err error
	if c.CreatedAt, err = parseTime(m[fieldCreatedAt]); err != nil {
		return c, fmt.Errorf("parse %s: %w", fieldCreatedAt, err)
	}
	// Поля ниже необязательны: старые записи могут их не иметь.
	c.LastAccessedAt, _ = parseTime(m[fieldLastAccessedAt])
	c.HitCount, _ = strconv.ParseInt(m[fieldHitCount], 10, 64)
	if c.Version, err = strconv.Atoi(m[fieldVersion]); err != nil {
		return c, fmt.Errorf("parse %s: %w", fieldVersion, err)
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseTime(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
