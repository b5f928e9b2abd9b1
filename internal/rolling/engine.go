package rolling

import (
	"errors"
	"sort"
	"sync"
	"time"

	"tick-feature-lab/internal/domain"
)

// Engine errors.
var (
	// ErrOutOfOrderTick is returned when a tick is older than the last
	// accepted tick for its symbol. The tick is rejected and no state
	// is mutated.
	ErrOutOfOrderTick = errors.New("tick timestamp older than last accepted tick for symbol")

	// ErrInvalidTick is returned for ticks with an empty symbol,
	// non-positive price or negative size.
	ErrInvalidTick = errors.New("invalid tick")
)

// Config controls the rolling window engine.
type Config struct {
	// Horizons lists the trailing time spans to maintain per symbol.
	Horizons []time.Duration

	// LargeTradePercentile defines "large" as a size above this
	// percentile of a reference sample.
	LargeTradePercentile float64

	// LargeTradeWarmupTicks is the streaming fallback: when no
	// threshold has been set explicitly, the threshold is frozen from
	// the first N sizes seen for a symbol. Zero disables the fallback,
	// leaving large-trade ratios undefined until SetLargeTradeThreshold
	// is called (batch mode).
	LargeTradeWarmupTicks int
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Horizons:              domain.Horizons,
		LargeTradePercentile:  0.75,
		LargeTradeWarmupTicks: 256,
	}
}

// Engine maintains per-symbol sliding window state and advances it one
// tick at a time. State for a symbol is created lazily on first tick
// and discarded via Remove. Advance calls for the same symbol must be
// serialized by the caller (single writer per symbol); distinct symbols
// may advance concurrently.
type Engine struct {
	cfg Config

	mu     sync.RWMutex
	states map[string]*SymbolState
}

// New creates an engine with the given configuration.
func New(cfg Config) *Engine {
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = domain.Horizons
	}
	if cfg.LargeTradePercentile <= 0 || cfg.LargeTradePercentile >= 1 {
		cfg.LargeTradePercentile = 0.75
	}
	return &Engine{
		cfg:    cfg,
		states: make(map[string]*SymbolState),
	}
}

// Advance applies one tick and returns the symbol's updated window
// state. Out-of-order ticks are rejected without mutating state.
func (e *Engine) Advance(t domain.Tick) (*SymbolState, error) {
	if !t.Valid() {
		return nil, ErrInvalidTick
	}
	s := e.state(t.Symbol)
	if s.ticks > 0 && t.TimestampNs < s.lastTS {
		return nil, ErrOutOfOrderTick
	}
	s.advance(t)
	return s, nil
}

// SetLargeTradeThreshold fixes the large-trade size threshold for a
// symbol, typically the reference-sample percentile computed over a
// loaded batch.
func (e *Engine) SetLargeTradeThreshold(symbol string, threshold float64) {
	s := e.state(symbol)
	s.setLargeThreshold(threshold)
}

// Remove discards all window state for a symbol (unsubscribe). Nothing
// is persisted; only derived feature rows outlive the state.
func (e *Engine) Remove(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, symbol)
}

// Symbols returns the symbols currently tracked, in sorted order.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.states))
	for s := range e.states {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// state returns the symbol's state, creating it on first use.
func (e *Engine) state(symbol string) *SymbolState {
	e.mu.RLock()
	s, ok := e.states[symbol]
	e.mu.RUnlock()
	if ok {
		return s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok = e.states[symbol]; ok {
		return s
	}
	s = newSymbolState(symbol, e.cfg)
	e.states[symbol] = s
	return s
}

// SymbolState is the full rolling window state for one symbol: the
// per-horizon time windows plus the count-based indicator windows and
// EMA accumulators. Calculators read it after each Advance; it is only
// valid on the goroutine that owns the symbol.
type SymbolState struct {
	cfg    Config
	symbol string

	lastTS    int64
	ticks     int64
	lastPrice float64
	lastSize  float64

	windows map[time.Duration]*TimeWindow

	sma5  *CountWindow
	sma10 *CountWindow
	sma20 *CountWindow

	stoch  *CountWindow // price extrema over the stochastic period
	stochD *CountWindow // SMA of %K
	lastK  float64
	hasK   bool

	rsi *GainLossWindow

	ema5      *EMA
	ema10     *EMA
	ema20     *EMA
	emaFast   *EMA
	emaSlow   *EMA
	signalEMA *EMA
	macd      float64
	signal    float64

	warmupSizes  []float64
	thresholdSet bool
}

func newSymbolState(symbol string, cfg Config) *SymbolState {
	s := &SymbolState{
		cfg:       cfg,
		symbol:    symbol,
		windows:   make(map[time.Duration]*TimeWindow, len(cfg.Horizons)),
		sma5:      NewCountWindow(domain.SMAPeriodShort),
		sma10:     NewCountWindow(domain.SMAPeriodMedium),
		sma20:     NewCountWindow(domain.SMAPeriodLong),
		stoch:     NewCountWindow(domain.StochasticPeriod),
		stochD:    NewCountWindow(domain.StochasticDPeriod),
		rsi:       NewGainLossWindow(domain.RSIPeriod),
		ema5:      NewEMA(domain.SMAPeriodShort),
		ema10:     NewEMA(domain.SMAPeriodMedium),
		ema20:     NewEMA(domain.SMAPeriodLong),
		emaFast:   NewEMA(domain.MACDFastSpan),
		emaSlow:   NewEMA(domain.MACDSlowSpan),
		signalEMA: NewEMA(domain.MACDSignalSpan),
	}
	for _, h := range cfg.Horizons {
		s.windows[h] = NewTimeWindow(h.Nanoseconds())
	}
	return s
}

// advance applies one in-order tick to every window and accumulator.
func (s *SymbolState) advance(t domain.Tick) {
	s.lastTS = t.TimestampNs
	s.lastPrice = t.Price
	s.lastSize = t.Size
	s.ticks++

	for _, w := range s.windows {
		w.Advance(t.TimestampNs, t.Price, t.Size)
	}

	s.sma5.Push(t.Price)
	s.sma10.Push(t.Price)
	s.sma20.Push(t.Price)
	s.rsi.Push(t.Price)

	s.stoch.Push(t.Price)
	s.hasK = false
	if low, ok := s.stoch.Min(); ok {
		if high, ok := s.stoch.Max(); ok && high > low {
			s.lastK = 100 * (t.Price - low) / (high - low)
			s.hasK = true
			s.stochD.Push(s.lastK)
		}
	}
	if !s.hasK {
		// A %K gap poisons the %D average: %D stays undefined until a
		// full period of defined %K values follows the gap.
		s.stochD = NewCountWindow(domain.StochasticDPeriod)
	}

	fast := s.emaFast.Update(t.Price)
	slow := s.emaSlow.Update(t.Price)
	s.macd = fast - slow
	s.signal = s.signalEMA.Update(s.macd)

	s.ema5.Update(t.Price)
	s.ema10.Update(t.Price)
	s.ema20.Update(t.Price)

	if !s.thresholdSet && s.cfg.LargeTradeWarmupTicks > 0 {
		s.warmupSizes = append(s.warmupSizes, t.Size)
		if len(s.warmupSizes) >= s.cfg.LargeTradeWarmupTicks {
			s.setLargeThreshold(Percentile(s.warmupSizes, s.cfg.LargeTradePercentile))
		}
	}
}

func (s *SymbolState) setLargeThreshold(threshold float64) {
	for _, w := range s.windows {
		w.SetLargeThreshold(threshold)
	}
	s.thresholdSet = true
	s.warmupSizes = nil
}

// Symbol returns the instrument identifier this state belongs to.
func (s *SymbolState) Symbol() string { return s.symbol }

// TimestampNs returns the timestamp of the last applied tick.
func (s *SymbolState) TimestampNs() int64 { return s.lastTS }

// Price returns the last traded price.
func (s *SymbolState) Price() float64 { return s.lastPrice }

// Size returns the last traded size.
func (s *SymbolState) Size() float64 { return s.lastSize }

// TickCount returns the number of ticks applied over the symbol's life.
func (s *SymbolState) TickCount() int64 { return s.ticks }

// Window returns the time window for a horizon, nil if not configured.
func (s *SymbolState) Window(h time.Duration) *TimeWindow { return s.windows[h] }

// SMA5 is the 5-period simple moving average of price.
func (s *SymbolState) SMA5() (float64, bool) { return s.sma5.Mean() }

// SMA10 is the 10-period simple moving average of price.
func (s *SymbolState) SMA10() (float64, bool) { return s.sma10.Mean() }

// SMA20 is the 20-period simple moving average of price.
func (s *SymbolState) SMA20() (float64, bool) { return s.sma20.Mean() }

// SMA20Std is the 20-period sample standard deviation of price, the
// Bollinger band width driver.
func (s *SymbolState) SMA20Std() (float64, bool) { return s.sma20.Std() }

// EMA5 is the 5-span exponential moving average of price.
func (s *SymbolState) EMA5() (float64, bool) { return s.ema5.Value() }

// EMA10 is the 10-span exponential moving average of price.
func (s *SymbolState) EMA10() (float64, bool) { return s.ema10.Value() }

// EMA20 is the 20-span exponential moving average of price.
func (s *SymbolState) EMA20() (float64, bool) { return s.ema20.Value() }

// MACD returns the MACD line (EMA12-EMA26) and its 9-span signal line.
func (s *SymbolState) MACD() (macd, signal float64, ok bool) {
	if s.ticks == 0 {
		return 0, 0, false
	}
	return s.macd, s.signal, true
}

// RSI is the Wilder-style relative strength index over 14 deltas.
func (s *SymbolState) RSI() (float64, bool) { return s.rsi.RSI() }

// StochK is the stochastic oscillator %K at the last tick. Undefined
// until the period is full or when the price range is zero.
func (s *SymbolState) StochK() (float64, bool) {
	if !s.hasK {
		return 0, false
	}
	return s.lastK, true
}

// StochD is the 3-period SMA of %K.
func (s *SymbolState) StochD() (float64, bool) { return s.stochD.Mean() }
