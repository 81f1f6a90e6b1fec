package interpcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

func TestMemory_ExactThenNormalized(t *testing.T) {
	m := NewMemory(0, 0, 0, 1)
	m.Put("gifts for dad", "dad gifts", legoInterpretation())

	if _, tier, ok := m.Get("gifts for dad", "dad gifts"); !ok || tier != TierExact {
		t.Errorf("exact lookup: ok=%v tier=%q", ok, tier)
	}
	if _, tier, ok := m.Get("dad gifts", "dad gifts"); !ok || tier != TierNormalized {
		t.Errorf("normalized lookup: ok=%v tier=%q", ok, tier)
	}
	if _, _, ok := m.Get("mum gifts", "gifts mum"); ok {
		t.Error("expected miss")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	clk := newClock()
	m := NewMemory(24*time.Hour, 0, 0, 1).WithClock(clk.Now)
	m.Put("lego", "lego", legoInterpretation())

	clk.Advance(23 * time.Hour)
	if _, _, ok := m.Get("lego", "lego"); !ok {
		t.Fatal("expected hit before TTL")
	}

	clk.Advance(time.Hour)
	if _, _, ok := m.Get("lego", "lego"); ok {
		t.Fatal("expected miss at TTL")
	}
	if e, n := m.Len(); e != 0 || n != 0 {
		t.Errorf("expired entries kept: exact=%d normalized=%d", e, n)
	}
}

func TestMemory_VersionMismatch(t *testing.T) {
	clk := newClock()
	m := NewMemory(0, 0, 0, 2).WithClock(clk.Now)
	m.Restore("lego", "lego", interpretation.Cached{
		Interpretation: legoInterpretation(),
		CreatedAt:      clk.Now(),
		Version:        1,
	})

	if _, _, ok := m.Get("lego", "lego"); ok {
		t.Error("expected miss for old version")
	}
}

func TestMemory_HitBumpsCounters(t *testing.T) {
	clk := newClock()
	m := NewMemory(0, 0, 0, 1).WithClock(clk.Now)
	m.Put("lego", "lego", legoInterpretation())

	clk.Advance(time.Minute)
	m.Get("lego", "lego")
	clk.Advance(time.Minute)
	m.Get("lego", "lego")

	c := m.exact.entries["lego"]
	if c.HitCount != 2 {
		t.Errorf("HitCount = %d, want 2", c.HitCount)
	}
	if !c.LastAccessedAt.Equal(clk.Now()) {
		t.Errorf("LastAccessedAt = %v, want %v", c.LastAccessedAt, clk.Now())
	}
	if c.CreatedAt.Equal(c.LastAccessedAt) {
		t.Error("CreatedAt must not move on access")
	}
}

func TestMemory_EvictsOldestTenth(t *testing.T) {
	clk := newClock()
	m := NewMemory(0, 20, 0.1, 1).WithClock(clk.Now)
	for i := range 20 {
		q := fmt.Sprintf("q%02d", i)
		m.Put(q, q, legoInterpretation())
		clk.Advance(time.Minute)
	}

	m.Put("new", "new", legoInterpretation())

	if e, n := m.Len(); e != 19 || n != 19 {
		t.Fatalf("Len = %d/%d, want 19/19", e, n)
	}
	for _, q := range []string{"q00", "q01"} {
		if _, _, ok := m.Get(q, q); ok {
			t.Errorf("%s should be evicted", q)
		}
	}
	for _, q := range []string{"q02", "q19", "new"} {
		if _, _, ok := m.Get(q, q); !ok {
			t.Errorf("%s should be kept", q)
		}
	}
}

func TestMemory_OverwriteDoesNotEvict(t *testing.T) {
	m := NewMemory(0, 2, 0.5, 1)
	m.Put("a", "a", legoInterpretation())
	m.Put("b", "b", legoInterpretation())
	m.Put("a", "a", legoInterpretation())

	if e, _ := m.Len(); e != 2 {
		t.Errorf("Len = %d, want 2", e)
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory(0, 0, 0, 1)
	in := legoInterpretation()
	m.Put("lego", "lego", in)
	in.SearchTerms[0][0] = "mutated"

	got, _, _ := m.Get("lego", "lego")
	if got.SearchTerms[0][0] != "lego" {
		t.Fatalf("stored value shared with caller: %v", got.SearchTerms)
	}
	got.SearchTerms[0][0] = "mutated"
	*got.Attributes.Brand = "mutated"

	again, _, _ := m.Get("lego", "lego")
	if again.SearchTerms[0][0] != "lego" || *again.Attributes.Brand != "LEGO" {
		t.Errorf("returned value shared with cache: %+v", again)
	}
}

func TestMemory_EvictionUsesLocalWriteTime(t *testing.T) {
	clk := newClock()
	m := NewMemory(24*time.Hour, 10, 0.1, 1).WithClock(clk.Now)
	for i := range 9 {
		q := fmt.Sprintf("q%d", i)
		m.Put(q, q, legoInterpretation())
		clk.Advance(time.Minute)
	}

	// Создана час назад в другом процессе, но записана сюда последней.
	m.Restore("restored", "restored", interpretation.Cached{
		Interpretation: legoInterpretation(),
		CreatedAt:      clk.Now().Add(-time.Hour),
		Version:        1,
	})
	clk.Advance(time.Minute)
	m.Put("new", "new", legoInterpretation())

	if _, _, ok := m.Get("restored", "restored"); !ok {
		t.Error("restored entry evicted ahead of older local writes")
	}
	if _, _, ok := m.Get("q0", "q0"); ok {
		t.Error("q0 should be evicted")
	}
}

func TestMemory_ConcurrentGetPut(t *testing.T) {
	m := NewMemory(0, 50, 0.2, 1)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				q := fmt.Sprintf("q%d", (g*200+i)%80)
				m.Put(q, "n"+q, legoInterpretation())
				if in, _, ok := m.Get(q, "n"+q); ok {
					in.SearchTerms[0][0] = "mutated"
				}
				m.Len()
			}
		}()
	}
	wg.Wait()

	if e, n := m.Len(); e > 50 || n > 50 {
		t.Errorf("Len = %d/%d, want at most 50", e, n)
	}
	for q := range m.exact.entries {
		if got, _, ok := m.Get(q, ""); ok && got.SearchTerms[0][0] != "lego" {
			t.Errorf("%s: stored value mutated: %v", q, got.SearchTerms)
		}
	}
}
