// Package pipeline wires a tick source through the rolling engine and
// feature calculators into the feature writer.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/features"
	"tick-feature-lab/internal/ingestion"
	"tick-feature-lab/internal/observability"
	"tick-feature-lab/internal/rolling"
	"tick-feature-lab/internal/writer"
)

// Options configures a Runner.
type Options struct {
	Engine *rolling.Engine
	Writer *writer.FeatureWriter
	// QueueCapacity bounds each symbol worker's channel. The dispatcher
	// blocks when a queue is full so no tick is dropped.
	QueueCapacity int
	Logger        zerolog.Logger
}

// Runner consumes ticks and fans them out to one worker goroutine per
// symbol. Each worker owns its symbol's engine state, so per-symbol
// processing is single-writer with no lock contention on the hot path.
type Runner struct {
	engine   *rolling.Engine
	writer   *writer.FeatureWriter
	queueCap int
	log      zerolog.Logger

	mu      sync.Mutex
	workers map[string]chan domain.Tick
	wg      sync.WaitGroup
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	queueCap := opts.QueueCapacity
	if queueCap <= 0 {
		queueCap = 1024
	}
	return &Runner{
		engine:   opts.Engine,
		writer:   opts.Writer,
		queueCap: queueCap,
		log:      opts.Logger,
		workers:  make(map[string]chan domain.Tick),
	}
}

// Run consumes the source until its channel closes or ctx ends, then
// drains the workers and flushes the writer. The returned error is the
// source's terminal error, a flush error, or ctx.Err().
func (r *Runner) Run(ctx context.Context, source ingestion.TickSource) error {
	ticks, err := source.Subscribe(ctx)
	if err != nil {
		return err
	}

	var runErr error
loop:
	for {
		select {
		case tick, ok := <-ticks:
			if !ok {
				break loop
			}
			r.dispatch(ctx, tick)
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		}
	}

	// Shutdown: close worker queues, wait for them to drain, then push
	// any buffered rows out. Flushes run on a fresh context so rows
	// buffered before cancellation still reach storage.
	r.mu.Lock()
	for _, ch := range r.workers {
		close(ch)
	}
	r.workers = make(map[string]chan domain.Tick)
	r.mu.Unlock()
	r.wg.Wait()

	flushCtx := ctx
	if ctx.Err() != nil {
		flushCtx = context.Background()
	}
	if err := r.writer.Flush(flushCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}

	if err := source.Err(); err != nil && !errors.Is(err, context.Canceled) {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// dispatch routes a tick to its symbol worker, starting one on first
// sight of the symbol. Blocks when the worker queue is full.
func (r *Runner) dispatch(ctx context.Context, tick domain.Tick) {
	r.mu.Lock()
	ch, ok := r.workers[tick.Symbol]
	if !ok {
		ch = make(chan domain.Tick, r.queueCap)
		r.workers[tick.Symbol] = ch
		r.wg.Add(1)
		go r.worker(ctx, tick.Symbol, ch)
	}
	r.mu.Unlock()

	select {
	case ch <- tick:
		observability.UpdateQueueDepth(tick.Symbol, len(ch))
	case <-ctx.Done():
	}
}

// worker processes one symbol's ticks in order.
func (r *Runner) worker(ctx context.Context, symbol string, ticks <-chan domain.Tick) {
	defer r.wg.Done()

	log := r.log.With().Str("symbol", symbol).Logger()

	for tick := range ticks {
		start := time.Now()
		state, err := r.engine.Advance(tick)
		if err != nil {
			switch {
			case errors.Is(err, rolling.ErrOutOfOrderTick):
				log.Warn().Time("ts", tick.Time()).Msg("rejecting out-of-order tick")
				observability.RecordTickRejected(symbol, "out_of_order")
			case errors.Is(err, rolling.ErrInvalidTick):
				log.Warn().Time("ts", tick.Time()).Msg("rejecting invalid tick")
				observability.RecordTickRejected(symbol, "invalid")
			default:
				log.Error().Err(err).Msg("engine advance failed")
				observability.RecordTickRejected(symbol, "error")
			}
			continue
		}

		r.emit(ctx, log, state)
		observability.RecordTickProcessed(symbol)
		observability.ObserveTickLatency(time.Since(start).Seconds())
	}
}

// emit computes all four feature rows for the current state and hands
// the defined ones to the writer. A nil row means the state is not yet
// warm enough for that table.
func (r *Runner) emit(ctx context.Context, log zerolog.Logger, state *rolling.SymbolState) {
	if row := features.Price(state); row != nil {
		observability.RecordRowEmitted(domain.TablePriceFeatures)
		if err := r.writer.WritePrice(ctx, row); err != nil {
			log.Error().Err(err).Msg("write price row")
		}
	} else {
		observability.RecordRowSkipped(domain.TablePriceFeatures)
	}

	if row := features.Volume(state); row != nil {
		observability.RecordRowEmitted(domain.TableVolumeFeatures)
		if err := r.writer.WriteVolume(ctx, row); err != nil {
			log.Error().Err(err).Msg("write volume row")
		}
	} else {
		observability.RecordRowSkipped(domain.TableVolumeFeatures)
	}

	if row := features.Microstructure(state); row != nil {
		observability.RecordRowEmitted(domain.TableMicrostructureFeatures)
		if err := r.writer.WriteMicrostructure(ctx, row); err != nil {
			log.Error().Err(err).Msg("write microstructure row")
		}
	} else {
		observability.RecordRowSkipped(domain.TableMicrostructureFeatures)
	}

	if row := features.Technical(state); row != nil {
		observability.RecordRowEmitted(domain.TableTechnicalFeatures)
		if err := r.writer.WriteTechnical(ctx, row); err != nil {
			log.Error().Err(err).Msg("write technical row")
		}
	} else {
		observability.RecordRowSkipped(domain.TableTechnicalFeatures)
	}
}
