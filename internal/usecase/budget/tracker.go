// Package budget tracks LLM token consumption against daily and monthly caps.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// Action defines behavior when the token budget is exceeded.
type Action string

const (
	// ActionWarn logs a warning but allows the request.
	ActionWarn Action = "warn"
	// ActionReject blocks the request.
	ActionReject Action = "reject"
)

// Store is the persistence interface for budget counters.
// IncrBy may be called repeatedly for the same key.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// DefaultFlushTimeout bounds one background flush of pending counters.
const DefaultFlushTimeout = 2 * time.Second

// Tracker is an in-memory token budget with optional write-behind persistence.
// Neither Check nor Record leaves the process: Record queues a delta and a
// single background flusher writes coalesced deltas to the store.
type Tracker struct {
	mu             sync.Mutex
	dailyUsed      int64
	monthlyUsed    int64
	dailyLimit     int64
	monthlyLimit   int64
	action         Action
	provider       string
	keyPrefix      string
	lastDayReset   time.Time
	lastMonthReset time.Time
	store          Store
	pending        map[string]int64
	kick           chan struct{}
	done           chan struct{}
	closeOnce      sync.Once
	wg             sync.WaitGroup
	now            func() time.Time
	logger         *zap.Logger
}

// NewTracker creates a tracker. A zero limit means unlimited.
func NewTracker(
	provider, keyPrefix string, dailyLimit, monthlyLimit int64,
	action Action, logger *zap.Logger,
) *Tracker {
	t := &Tracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		provider:     provider,
		keyPrefix:    keyPrefix,
		now:          time.Now,
		logger:       logger,
	}
	t.resetWindows()
	return t
}

// WithClock replaces the wall clock (tests).
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	t.resetWindows()
	return t
}

// WithStore attaches a persistence store, loads the current counters and
// starts the background flusher. Call Close to flush and stop it.
func (t *Tracker) WithStore(ctx context.Context, store Store) *Tracker {
	t.store = store
	t.loadFromStore(ctx)

	t.mu.Lock()
	t.pending = make(map[string]int64, 2)
	t.mu.Unlock()
	t.kick = make(chan struct{}, 1)
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.flushLoop()
	return t
}

// Close flushes pending counters and stops the flusher. Safe to call more
// than once and on a tracker without a store.
func (t *Tracker) Close() {
	if t.done == nil {
		return
	}
	t.closeOnce.Do(func() { close(t.done) })
	t.wg.Wait()
}

func (t *Tracker) flushLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.kick:
			t.flush()
		case <-t.done:
			t.flush()
			return
		}
	}
}

// flush writes every pending delta. Failed deltas are logged and dropped:
// the in-memory counters stay authoritative until the next restart.
func (t *Tracker) flush() {
	t.mu.Lock()
	batch := t.pending
	t.pending = make(map[string]int64, 2)
	t.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultFlushTimeout)
	defer cancel()

	for key, val := range batch {
		if err := t.store.IncrBy(ctx, key, val); err != nil {
			t.logger.Warn("Failed to persist LLM budget",
				zap.String("key", key),
				zap.Int64("tokens", val),
				zap.Error(err),
			)
		}
	}
}

func (t *Tracker) resetWindows() {
	now := t.now().UTC()
	t.lastDayReset = truncateToDay(now)
	t.lastMonthReset = truncateToMonth(now)
}

func (t *Tracker) loadFromStore(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	if val, err := t.store.Get(ctx, t.dailyKey(now)); err == nil {
		t.dailyUsed = val
	} else {
		t.logger.Warn("Failed to load daily LLM budget", zap.Error(err))
	}
	if val, err := t.store.Get(ctx, t.monthlyKey(now)); err == nil {
		t.monthlyUsed = val
	} else {
		t.logger.Warn("Failed to load monthly LLM budget", zap.Error(err))
	}

	t.logger.Info("LLM budget loaded",
		zap.String("provider", t.provider),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("monthly_used", t.monthlyUsed),
	)
}

func (t *Tracker) dailyKey(at time.Time) string {
	return fmt.Sprintf("%sbudget:llm:%s:daily:%s", t.keyPrefix, t.provider, at.Format("2006-01-02"))
}

func (t *Tracker) monthlyKey(at time.Time) string {
	return fmt.Sprintf("%sbudget:llm:%s:monthly:%s", t.keyPrefix, t.provider, at.Format("2006-01"))
}

// Check reports whether a new LLM call is allowed.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNeeded()

	dailyExceeded := t.dailyLimit > 0 && t.dailyUsed >= t.dailyLimit
	monthlyExceeded := t.monthlyLimit > 0 && t.monthlyUsed >= t.monthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if t.action == ActionReject {
		return domain.ErrLLMQuotaExceeded
	}

	t.logger.Warn("LLM token budget exceeded",
		zap.String("provider", t.provider),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("daily_limit", t.dailyLimit),
		zap.Int64("monthly_used", t.monthlyUsed),
		zap.Int64("monthly_limit", t.monthlyLimit),
	)
	return nil
}

// Record adds consumed tokens and queues them for the background flusher.
// It never waits on the store.
func (t *Tracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}
	t.mu.Lock()
	t.resetIfNeeded()
	t.dailyUsed += tokens
	t.monthlyUsed += tokens
	if t.pending != nil {
		now := t.now().UTC()
		t.pending[t.dailyKey(now)] += tokens
		t.pending[t.monthlyKey(now)] += tokens
	}
	t.mu.Unlock()

	if t.kick == nil {
		return
	}
	// Флашер уже разбужен: дельта уйдёт в текущую пачку.
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// RemainingDaily returns tokens left today (-1 if unlimited).
func (t *Tracker) RemainingDaily() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return remaining(t.dailyLimit, t.dailyUsed)
}

// RemainingMonthly returns tokens left this month (-1 if unlimited).
func (t *Tracker) RemainingMonthly() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return remaining(t.monthlyLimit, t.monthlyUsed)
}

// Provider returns the provider label.
func (t *Tracker) Provider() string { return t.provider }

// DailyLimit returns the daily token cap.
func (t *Tracker) DailyLimit() int64 { return t.dailyLimit }

// MonthlyLimit returns the monthly token cap.
func (t *Tracker) MonthlyLimit() int64 { return t.monthlyLimit }

// DailyUsed returns tokens consumed today.
func (t *Tracker) DailyUsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return t.dailyUsed
}

// MonthlyUsed returns tokens consumed this month.
func (t *Tracker) MonthlyUsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return t.monthlyUsed
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (t *Tracker) resetIfNeeded() {
	now := t.now().UTC()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(t.lastDayReset) {
		t.dailyUsed = 0
		t.lastDayReset = today
	}
	if thisMonth.After(t.lastMonthReset) {
		t.monthlyUsed = 0
		t.lastMonthReset = thisMonth
	}
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
