// Package writer buffers feature rows and flushes them to storage in
// batches with bounded retries.
package writer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tick-feature-lab/internal/observability"
	"tick-feature-lab/internal/storage"
)

// Options configures batching and retry behavior.
type Options struct {
	BatchSize      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DefaultOptions returns the default writer configuration.
func DefaultOptions() Options {
	return Options{
		BatchSize:      500,
		MaxRetries:     5,
		RetryBaseDelay: 100 * time.Millisecond,
		RetryMaxDelay:  5 * time.Second,
	}
}

// FlushFunc persists one batch of rows. It must be idempotent: the
// batcher re-sends the whole batch on retry.
type FlushFunc[T any] func(ctx context.Context, rows []T) error

// Batcher accumulates rows and flushes them when the buffer reaches
// the configured batch size. Transient storage errors are retried with
// exponential backoff; fatal errors drop the batch after logging so a
// single poison batch cannot stall the pipeline. Safe for concurrent
// use.
type Batcher[T any] struct {
	table string
	opts  Options
	flush FlushFunc[T]
	log   zerolog.Logger

	mu  sync.Mutex
	buf []T
}

// NewBatcher creates a batcher for one feature table.
func NewBatcher[T any](table string, opts Options, log zerolog.Logger, flush FlushFunc[T]) *Batcher[T] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultOptions().RetryBaseDelay
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = DefaultOptions().RetryMaxDelay
	}
	return &Batcher[T]{
		table: table,
		opts:  opts,
		flush: flush,
		log:   log.With().Str("table", table).Logger(),
		buf:   make([]T, 0, opts.BatchSize),
	}
}

// Add buffers a row, flushing if the buffer reaches the batch size.
func (b *Batcher[T]) Add(ctx context.Context, row T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, row)
	if len(b.buf) >= b.opts.BatchSize {
		return b.flushLocked(ctx)
	}
	return nil
}

// Flush forces any buffered rows out to storage.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

// Pending reports the number of buffered rows.
func (b *Batcher[T]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// flushLocked sends the buffer, retrying transient failures. On
// success the batch is persisted; on terminal failure it is dropped
// after being logged; on context cancellation during a backoff it is
// re-buffered so a later flush can deliver it. Callers hold b.mu.
func (b *Batcher[T]) flushLocked(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}

	batch := b.buf
	b.buf = make([]T, 0, b.opts.BatchSize)

	delay := b.opts.RetryBaseDelay
	var err error
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err = b.flush(ctx, batch)
		observability.RecordFlush(b.table, len(batch), time.Since(start).Seconds(), err)
		if err == nil {
			observability.DefaultMetrics.LastSuccessfulFlush.SetToCurrentTime()
			return nil
		}

		if !storage.IsRetryable(err) || attempt >= b.opts.MaxRetries {
			break
		}

		b.log.Warn().Err(err).
			Int("rows", len(batch)).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("flush failed, retrying")
		observability.RecordFlushRetry(b.table)

		if serr := sleep(ctx, delay); serr != nil {
			// Cancelled mid-backoff: put the batch back so a later
			// Flush on a fresh context can still deliver it.
			b.buf = append(batch, b.buf...)
			return serr
		}
		delay *= 2
		if delay > b.opts.RetryMaxDelay {
			delay = b.opts.RetryMaxDelay
		}
	}

	b.log.Error().Err(err).
		Int("rows", len(batch)).
		Msg("dropping batch after terminal flush failure")
	observability.RecordFlushFailure(b.table)
	return nil
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
