package interpcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func legoInterpretation() interpretation.Interpretation {
	return interpretation.Interpretation{
		OriginalQuery: "lego",
		SearchTerms:   [][]string{{"lego"}},
		MustHaveAll:   []string{"lego"},
		Attributes:    &interpretation.Attributes{Brand: interpretation.String("LEGO")},
		SkipReranker:  true,
	}
}

// mockHashStore is an in-memory hashStore.
type mockHashStore struct {
	mu        sync.Mutex
	hashes    map[string]map[string]string
	ttls      map[string]time.Duration
	getErr    error
	setErr    error
	incrErr   error
	expireErr error
}

func newMockHashStore() *mockHashStore {
	return &mockHashStore{
		hashes: make(map[string]map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockHashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockHashStore) HIncrByIfExists(
	_ context.Context, key, field string, val int64, set map[string]string,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return false, m.incrErr
	}
	h, ok := m.hashes[key]
	if !ok {
		return false, nil
	}
	cur, _ := strconv.ParseInt(h[field], 10, 64)
	h[field] = strconv.FormatInt(cur+val, 10)
	for k, v := range set {
		h[k] = v
	}
	return true, nil
}

func (m *mockHashStore) Expire(_ context.Context, key string, ttl time.Duration, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expireErr != nil {
		return m.expireErr
	}
	m.ttls[key] = ttl
	return nil
}

// mockPersistent records calls and serves entries by hash.
type mockPersistent struct {
	mu      sync.Mutex
	entries map[string]interpretation.Cached
	getErr  error
	upserts int
	bumps   int
}

func newMockPersistent() *mockPersistent {
	return &mockPersistent{entries: make(map[string]interpretation.Cached)}
}

func (m *mockPersistent) Get(_ context.Context, hash string) (interpretation.Cached, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return interpretation.Cached{}, m.getErr
	}
	c, ok := m.entries[hash]
	if !ok {
		return interpretation.Cached{}, db.ErrKeyNotFound
	}
	return c, nil
}

func (m *mockPersistent) Upsert(_ context.Context, hash string, c interpretation.Cached) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.entries[hash] = c
	return nil
}

func (m *mockPersistent) Bump(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bumps++
	return nil
}

func (m *mockPersistent) counts() (upserts, bumps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts, m.bumps
}
