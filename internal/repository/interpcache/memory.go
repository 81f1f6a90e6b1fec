// Package interpcache caches query interpretations in two tiers: in-process
// maps keyed by exact and normalized query signatures, and an optional
// persistent Redis tier keyed by the normalized signature hash.
package interpcache

import (
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

// Defaults for the in-process tier.
const (
	DefaultTTL           = 24 * time.Hour
	DefaultMaxEntries    = 2000
	DefaultEvictFraction = 0.1
)

// Tier names used in metrics.
const (
	TierExact      = "exact"
	TierNormalized = "normalized"
	TierPersistent = "persistent"
	// TierMemory labels a miss across both in-process maps.
	TierMemory = "memory"
)

// entry is a cached interpretation plus the time it entered this process.
type entry struct {
	interpretation.Cached
	storedAt time.Time
}

type table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Memory is the in-process tier. Each map has its own lock.
type Memory struct {
	exact      table
	normalized table

	ttl           time.Duration
	maxEntries    int
	evictFraction float64
	version       int
	now           func() time.Time
}

// NewMemory creates the in-process tier. Zero values select the defaults.
func NewMemory(ttl time.Duration, maxEntries int, evictFraction float64, version int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if evictFraction <= 0 || evictFraction > 1 {
		evictFraction = DefaultEvictFraction
	}
	return &Memory{
		exact:         table{entries: make(map[string]*entry)},
		normalized:    table{entries: make(map[string]*entry)},
		ttl:           ttl,
		maxEntries:    maxEntries,
		evictFraction: evictFraction,
		version:       version,
		now:           time.Now,
	}
}

// WithClock replaces the wall clock (tests).
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get looks up the exact signature, then the normalized one. It returns a
// copy of the stored interpretation and the tier that answered.
func (m *Memory) Get(exactSig, normalizedSig string) (interpretation.Interpretation, string, bool) {
	if in, ok := m.lookup(&m.exact, exactSig); ok {
		return in, TierExact, true
	}
	if in, ok := m.lookup(&m.normalized, normalizedSig); ok {
		return in, TierNormalized, true
	}
	return interpretation.Interpretation{}, "", false
}

// Put stores in under both signatures, stamped with the current time.
func (m *Memory) Put(exactSig, normalizedSig string, in interpretation.Interpretation) {
	m.Restore(exactSig, normalizedSig, m.newEntry(in))
}

func (m *Memory) newEntry(in interpretation.Interpretation) interpretation.Cached {
	now := m.now()
	return interpretation.Cached{
		Interpretation: in,
		CreatedAt:      now,
		LastAccessedAt: now,
		Version:        m.version,
	}
}

// Restore stores an entry loaded from another tier, keeping its timestamps.
func (m *Memory) Restore(exactSig, normalizedSig string, c interpretation.Cached) {
	m.store(&m.exact, exactSig, c)
	m.store(&m.normalized, normalizedSig, c)
}

// Len returns the sizes of the exact and normalized maps.
func (m *Memory) Len() (exact, normalized int) {
	m.exact.mu.Lock()
	exact = len(m.exact.entries)
	m.exact.mu.Unlock()

	m.normalized.mu.Lock()
	normalized = len(m.normalized.entries)
	m.normalized.mu.Unlock()
	return exact, normalized
}

// Fresh reports whether c is of the current version and within TTL.
func (m *Memory) Fresh(c interpretation.Cached) bool {
	return c.Version == m.version && m.now().Sub(c.CreatedAt) < m.ttl
}

func (m *Memory) lookup(t *table, key string) (interpretation.Interpretation, bool) {
	if key == "" {
		return interpretation.Interpretation{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.entries[key]
	if !ok {
		return interpretation.Interpretation{}, false
	}
	if !m.Fresh(c.Cached) {
		delete(t.entries, key)
		return interpretation.Interpretation{}, false
	}

	c.HitCount++
	c.LastAccessedAt = m.now()
	return c.Interpretation.Clone(), true
}

func (m *Memory) store(t *table, key string, c interpretation.Cached) {
	if key == "" {
		return
	}
	c.Interpretation = c.Interpretation.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists && len(t.entries) >= m.maxEntries {
		m.evictOldest(t)
	}
	t.entries[key] = &entry{Cached: c, storedAt: m.now()}
}

// evictOldest drops the evictFraction of entries written here longest ago.
// Caller holds t.mu.
func (m *Memory) evictOldest(t *table) {
	n := int(float64(len(t.entries)) * m.evictFraction)
	if n < 1 {
		n = 1
	}

	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return t.entries[keys[i]].storedAt.Before(t.entries[keys[j]].storedAt)
	})

	for _, k := range keys[:n] {
		delete(t.entries, k)
	}
}
