// Package ingest decouples the request-serving path from backend write
// latency.
//
// An Actor owns a bounded inbound queue of write batches. Producers
// enqueue without blocking; a single worker drains the queue, groups
// pending batches into one backend transaction, and commits. A failed
// batch is never retried: it is logged as a data-loss event and
// surfaces to the caller only when the caller awaited it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cursive-labs/beacon/backend"
	"github.com/cursive-labs/beacon/log"
)

// Mode selects the actor's execution mode.
type Mode string

const (
	// ModePipelined is fire-and-forget: enqueue returns immediately and
	// the drain worker flushes asynchronously.
	ModePipelined Mode = "pipelined"
	// ModeSync commits through a bounded worker pool; the caller awaits
	// completion and observes the commit error directly.
	ModeSync Mode = "sync"
)

// ErrQueueFull is returned when the inbound queue is at its
// high-watermark. Producers are never blocked; they observe the
// rejection and may retry.
var ErrQueueFull = errors.New("ingest queue full")

// ErrClosed is returned when enqueueing after Close.
var ErrClosed = errors.New("ingest actor closed")

// Config configures an Actor.
type Config struct {
	// Mode selects pipelined or synchronous execution.
	// Default is pipelined.
	Mode Mode
	// QueueSize bounds the inbound queue (pipelined mode).
	QueueSize int
	// MaxBatch caps how many queued batches one transaction groups.
	MaxBatch int
	// Workers bounds the synchronous worker pool.
	Workers int
}

// DefaultConfig returns sensible actor defaults.
func DefaultConfig() Config {
	return Config{
		Mode:      ModePipelined,
		QueueSize: 1024,
		MaxBatch:  64,
		Workers:   4,
	}
}

// Stats is a point-in-time snapshot of actor observability counters.
type Stats struct {
	// BatchesEnqueued counts accepted Enqueue/EnqueueWait calls.
	BatchesEnqueued int64
	// BatchesRejected counts ErrQueueFull rejections.
	BatchesRejected int64
	// FlushCount counts backend transactions executed.
	FlushCount int64
	// OpsCommitted counts operations committed across all flushes.
	OpsCommitted int64
	// Failures counts failed backend transactions.
	Failures int64
}

// job is one enqueued write batch. done is nil for fire-and-forget.
type job struct {
	ops  []backend.Op
	done chan error
}

// Actor is the single-purpose asynchronous ingestion worker.
type Actor struct {
	config  Config
	backend backend.Backend
	logger  *log.Logger

	queue chan job
	pool  *errgroup.Group

	mu     sync.Mutex
	stats  Stats
	closed bool

	wg sync.WaitGroup
}

// New creates an actor over the given backend.
func New(cfg Config, be backend.Backend, logger *log.Logger) *Actor {
	if cfg.Mode == "" {
		cfg.Mode = ModePipelined
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultConfig().MaxBatch
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}

	pool := &errgroup.Group{}
	pool.SetLimit(cfg.Workers)

	return &Actor{
		config:  cfg,
		backend: be,
		logger:  logger,
		queue:   make(chan job, cfg.QueueSize),
		pool:    pool,
	}
}

// Start launches the drain worker. The worker exits when the queue is
// closed and drained, or when ctx is canceled.
func (a *Actor) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.drain(ctx)
	}()
}

// Enqueue hands a write batch to the actor without blocking.
// Past the queue's high-watermark the batch is rejected with
// ErrQueueFull rather than silently dropped or blocked on.
func (a *Actor) Enqueue(ops []backend.Op) error {
	return a.enqueue(job{ops: ops})
}

// EnqueueWait commits a write batch and waits for the result.
//
// In sync mode the batch executes on the bounded worker pool and the
// commit error is returned directly. In pipelined mode the batch goes
// through the queue with a completion channel.
func (a *Actor) EnqueueWait(ctx context.Context, ops []backend.Op) error {
	if a.config.Mode == ModeSync {
		a.recordEnqueued()
		result := make(chan error, 1)
		a.pool.Go(func() error {
			result <- a.execute(ctx, ops)
			return nil
		})
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan error, 1)
	if err := a.enqueue(job{ops: ops, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue performs the closed check and the channel send under one
// critical section. Close flips the flag under the same mutex before
// closing the channel, so no producer can be mid-send when the channel
// closes. The send never blocks under the lock; it has a default arm.
func (a *Actor) enqueue(j job) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- j:
		a.stats.BatchesEnqueued++
		return nil
	default:
		a.stats.BatchesRejected++
		return ErrQueueFull
	}
}

// drain is the worker loop: pop one job (blocking), opportunistically
// group whatever else is immediately pending, commit as one
// transaction.
func (a *Actor) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-a.queue:
			if !ok {
				return
			}
			batch := []job{j}
			batch = a.gather(batch)
			a.flush(ctx, batch)
		}
	}
}

// gather pulls immediately-available jobs up to the batch cap.
func (a *Actor) gather(batch []job) []job {
	for len(batch) < a.config.MaxBatch {
		select {
		case j, ok := <-a.queue:
			if !ok {
				return batch
			}
			batch = append(batch, j)
		default:
			return batch
		}
	}
	return batch
}

// flush commits a grouped batch as one backend transaction.
// Operations within one enqueued batch keep their enqueue order;
// batches from different producers are concatenated in pop order.
func (a *Actor) flush(ctx context.Context, batch []job) {
	var ops []backend.Op
	for _, j := range batch {
		ops = append(ops, j.ops...)
	}

	start := time.Now()
	err := a.execute(ctx, ops)
	elapsed := time.Since(start)

	if a.logger != nil {
		a.logger.Info("batch flushed", map[string]any{
			"batches":    len(batch),
			"ops":        len(ops),
			"latency_ms": elapsed.Milliseconds(),
			"failed":     err != nil,
		})
	}

	for _, j := range batch {
		if j.done != nil {
			j.done <- err
		}
	}
}

// execute runs one transaction and records the outcome.
func (a *Actor) execute(ctx context.Context, ops []backend.Op) error {
	err := a.backend.Execute(ctx, ops)

	a.mu.Lock()
	a.stats.FlushCount++
	if err != nil {
		a.stats.Failures++
	} else {
		a.stats.OpsCommitted += int64(len(ops))
	}
	a.mu.Unlock()

	if err != nil && a.logger != nil {
		// No automatic retry: an unawaited failed batch is lost data.
		a.logger.Error("batch commit failed, data lost unless awaited", map[string]any{
			"ops":   len(ops),
			"error": err.Error(),
		})
	}
	if err != nil {
		return fmt.Errorf("ingest: commit: %w", err)
	}
	return nil
}

func (a *Actor) recordEnqueued() {
	a.mu.Lock()
	a.stats.BatchesEnqueued++
	a.mu.Unlock()
}

// Stats returns an atomic snapshot of actor counters.
func (a *Actor) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Close stops accepting work, waits for the queue to drain and the
// sync pool to finish, and returns.
func (a *Actor) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.queue)
	a.wg.Wait()
	return a.pool.Wait()
}
