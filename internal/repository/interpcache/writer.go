package interpcache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// Writer defaults.
const (
	DefaultQueueSize    = 256
	DefaultWorkers      = 2
	DefaultWriteTimeout = 2 * time.Second
)

type job struct {
	op string
	fn func(ctx context.Context) error
}

// Writer runs persistent-tier writes in the background. Submit never blocks:
// when the queue is full the job is dropped and counted.
type Writer struct {
	mu      sync.RWMutex
	closed  bool
	jobs    chan job
	timeout time.Duration
	wg      sync.WaitGroup
	logger  *zap.Logger
}

// NewWriter starts workers goroutines draining a queue of queueSize jobs.
func NewWriter(queueSize, workers int, timeout time.Duration, logger *zap.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	w := &Writer{
		jobs:    make(chan job, queueSize),
		timeout: timeout,
		logger:  logger,
	}
	w.wg.Add(workers)
	for range workers {
		go w.run()
	}
	return w
}

// Submit enqueues fn. It reports false when the job was dropped.
func (w *Writer) Submit(op string, fn func(ctx context.Context) error) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}
	select {
	case w.jobs <- job{op: op, fn: fn}:
		return true
	default:
		metrics.CacheWritesDroppedTotal.Inc()
		w.logger.Debug("Cache write dropped, queue full", zap.String("op", op))
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for j := range w.jobs {
		w.exec(j)
	}
}

func (w *Writer) exec(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := j.fn(ctx); err != nil {
		metrics.CacheWriteErrorsTotal.WithLabelValues(j.op).Inc()
		w.logger.Warn("Cache write failed", zap.String("op", j.op), zap.Error(err))
	}
}
