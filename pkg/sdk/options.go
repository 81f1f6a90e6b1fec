package shopsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs     []string
	password  string
	keyPrefix string

	completer  Completer
	model      string
	llmTimeout time.Duration

	dailyTokens   int64
	monthlyTokens int64
	rejectOverrun bool

	cacheTTL        time.Duration
	cacheMaxEntries int
	persistentCache bool

	promotions  bool
	ensureIndex bool
	merchantCap int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis 8+ instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key namespace shared with the indexer. Default: "shop:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCompleter sets the LLM used for query interpretation. model labels
// metrics and budget counters.
func WithCompleter(comp Completer, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = comp
		c.model = model
	})
}

// WithLLMTimeout bounds one interpretation call. Default: 3s.
func WithLLMTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.llmTimeout = d
	})
}

// WithTokenBudget caps LLM token usage per UTC day and month (0 = unlimited).
// With reject set, calls over budget fall back to the rule-based expander;
// otherwise overruns are only logged.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokens = daily
		c.monthlyTokens = monthly
		c.rejectOverrun = reject
	})
}

// WithCache tunes the in-process interpretation cache.
// Defaults: 24h TTL, 2000 entries.
func WithCache(ttl time.Duration, maxEntries int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
		c.cacheMaxEntries = maxEntries
	})
}

// WithPersistentCache shares interpretations across processes through Redis.
func WithPersistentCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.persistentCache = true
	})
}

// WithPromotions enables promotion annotation of results.
func WithPromotions() Option {
	return optionFunc(func(c *clientConfig) {
		c.promotions = true
	})
}

// WithEnsureIndex creates the catalog search index on connect if it is missing.
func WithEnsureIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.ensureIndex = true
	})
}

// WithMerchantCap sets how many results one merchant may contribute before
// adaptive relaxation. Default: 2.
func WithMerchantCap(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.merchantCap = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
