package rolling

import (
	"errors"
	"testing"
	"time"

	"tick-feature-lab/internal/domain"
)

func tick(symbol string, ts int64, price, size float64) domain.Tick {
	return domain.Tick{Symbol: symbol, TimestampNs: ts, Price: price, Size: size}
}

func TestEngine_RejectsInvalidTicks(t *testing.T) {
	e := New(DefaultConfig())

	tests := []struct {
		name string
		t    domain.Tick
	}{
		{"empty symbol", tick("", 0, 100, 1)},
		{"zero price", tick("BTC-USD", 0, 0, 1)},
		{"negative price", tick("BTC-USD", 0, -1, 1)},
		{"negative size", tick("BTC-USD", 0, 100, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Advance(tt.t); !errors.Is(err, ErrInvalidTick) {
				t.Fatalf("Advance err = %v, want ErrInvalidTick", err)
			}
		})
	}
}

func TestEngine_RejectsOutOfOrderWithoutMutation(t *testing.T) {
	e := New(DefaultConfig())

	s, err := e.Advance(tick("BTC-USD", 100*sec, 100, 1))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if _, err := e.Advance(tick("BTC-USD", 50*sec, 999, 1)); !errors.Is(err, ErrOutOfOrderTick) {
		t.Fatalf("Advance err = %v, want ErrOutOfOrderTick", err)
	}

	// Rejection leaves no trace.
	if s.TickCount() != 1 {
		t.Fatalf("TickCount = %d, want 1", s.TickCount())
	}
	if s.TimestampNs() != 100*sec {
		t.Fatalf("TimestampNs = %d, want %d", s.TimestampNs(), 100*sec)
	}
	if s.Price() != 100 {
		t.Fatalf("Price = %v, want 100", s.Price())
	}
}

func TestEngine_AcceptsEqualTimestamps(t *testing.T) {
	e := New(DefaultConfig())

	if _, err := e.Advance(tick("BTC-USD", 100*sec, 100, 1)); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	s, err := e.Advance(tick("BTC-USD", 100*sec, 101, 1))
	if err != nil {
		t.Fatalf("Advance on equal timestamp failed: %v", err)
	}
	if s.TickCount() != 2 {
		t.Fatalf("TickCount = %d, want 2", s.TickCount())
	}
}

func TestEngine_OrderingIsPerSymbol(t *testing.T) {
	e := New(DefaultConfig())

	if _, err := e.Advance(tick("BTC-USD", 100*sec, 100, 1)); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	// An earlier timestamp on another symbol is fine.
	if _, err := e.Advance(tick("ETH-USD", 10*sec, 2000, 1)); err != nil {
		t.Fatalf("Advance on second symbol failed: %v", err)
	}
}

func TestEngine_WarmupFreezesThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LargeTradeWarmupTicks = 4
	e := New(cfg)

	// Sizes 1..4 during warmup; P75 by linear interpolation = 3.25.
	var s *SymbolState
	var err error
	for i := 1; i <= 4; i++ {
		s, err = e.Advance(tick("BTC-USD", int64(i)*sec, 100, float64(i)))
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}

	w := s.Window(domain.Horizon1m)
	ratio, ok := w.LargeTradeRatio()
	if !ok {
		t.Fatal("LargeTradeRatio undefined after warmup")
	}
	// Only size 4 exceeds 3.25.
	if !almostEqual(ratio, 0.25, 1e-12) {
		t.Fatalf("LargeTradeRatio = %v, want 0.25", ratio)
	}

	// The threshold is frozen: later huge sizes do not move it.
	s, err = e.Advance(tick("BTC-USD", 5*sec, 100, 1000))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	ratio, _ = s.Window(domain.Horizon1m).LargeTradeRatio()
	if !almostEqual(ratio, 0.4, 1e-12) {
		t.Fatalf("LargeTradeRatio = %v, want 0.4", ratio)
	}
}

func TestEngine_ExplicitThresholdDisablesWarmup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LargeTradeWarmupTicks = 2
	e := New(cfg)

	e.SetLargeTradeThreshold("BTC-USD", 10)

	var s *SymbolState
	var err error
	for i := 1; i <= 5; i++ {
		s, err = e.Advance(tick("BTC-USD", int64(i)*sec, 100, float64(i)))
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}

	// No size exceeds the explicit threshold; the warmup never ran.
	ratio, ok := s.Window(domain.Horizon1m).LargeTradeRatio()
	if !ok {
		t.Fatal("LargeTradeRatio undefined with explicit threshold")
	}
	if ratio != 0 {
		t.Fatalf("LargeTradeRatio = %v, want 0", ratio)
	}
}

func TestEngine_SymbolsAndRemove(t *testing.T) {
	e := New(DefaultConfig())

	e.Advance(tick("ETH-USD", 0, 2000, 1))
	e.Advance(tick("BTC-USD", 0, 100, 1))

	got := e.Symbols()
	if len(got) != 2 || got[0] != "BTC-USD" || got[1] != "ETH-USD" {
		t.Fatalf("Symbols = %v, want [BTC-USD ETH-USD]", got)
	}

	e.Remove("BTC-USD")
	got = e.Symbols()
	if len(got) != 1 || got[0] != "ETH-USD" {
		t.Fatalf("Symbols after Remove = %v, want [ETH-USD]", got)
	}

	// State for a removed symbol starts fresh.
	s, err := e.Advance(tick("BTC-USD", 0, 100, 1))
	if err != nil {
		t.Fatalf("Advance after Remove failed: %v", err)
	}
	if s.TickCount() != 1 {
		t.Fatalf("TickCount = %d, want 1", s.TickCount())
	}
}

func TestSymbolState_HorizonReturnsScenario(t *testing.T) {
	e := New(DefaultConfig())

	e.Advance(tick("BTC-USD", 0, 100, 1))
	e.Advance(tick("BTC-USD", 1*sec, 101, 1))
	s, err := e.Advance(tick("BTC-USD", 60*sec, 102, 1))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	r, ok := s.Window(domain.Horizon1m).Returns()
	if !ok {
		t.Fatal("1m return undefined at t=60s")
	}
	if !almostEqual(r, 0.02, 1e-12) {
		t.Fatalf("1m return = %v, want 0.02", r)
	}

	// Longer horizons still lack a reference tick.
	if _, ok := s.Window(domain.Horizon5m).Returns(); ok {
		t.Fatal("5m return defined without a reference tick")
	}
}

func TestSymbolState_MACDWarmup(t *testing.T) {
	e := New(DefaultConfig())

	s, err := e.Advance(tick("BTC-USD", 0, 100, 1))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	// Both EMAs seed on the first price, so MACD starts at zero.
	macd, signal, ok := s.MACD()
	if !ok {
		t.Fatal("MACD undefined after first tick")
	}
	if macd != 0 || signal != 0 {
		t.Fatalf("MACD = %v, signal = %v, want 0, 0", macd, signal)
	}
}

func TestSymbolState_StochasticUndefinedOnFlatRange(t *testing.T) {
	e := New(DefaultConfig())

	var s *SymbolState
	for i := 0; i < domain.StochasticPeriod+5; i++ {
		s, _ = e.Advance(tick("BTC-USD", int64(i)*sec, 100, 1))
	}
	if _, ok := s.StochK(); ok {
		t.Fatal("%K defined when high equals low")
	}
}

func TestSymbolState_StochDUndefinedAfterKGap(t *testing.T) {
	e := New(DefaultConfig())
	ts := int64(0)
	push := func(price float64) *SymbolState {
		s, err := e.Advance(tick("BTC-USD", ts, price, 1))
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		ts += sec
		return s
	}

	var s *SymbolState
	for i := 0; i < 30; i++ {
		s = push(100 + float64(i%7))
	}
	if _, ok := s.StochD(); !ok {
		t.Fatal("%D undefined before the gap")
	}

	// Flatten the whole stochastic range so %K becomes undefined.
	for i := 0; i < domain.StochasticPeriod+5; i++ {
		s = push(100)
	}
	if _, ok := s.StochK(); ok {
		t.Fatal("%K defined on a flat range")
	}
	if _, ok := s.StochD(); ok {
		t.Fatal("%D defined across a %K gap")
	}

	// %D needs a full period of defined %K values after the gap, not
	// the stale ones from before it.
	s = push(105)
	if _, ok := s.StochK(); !ok {
		t.Fatal("%K undefined once the range reopens")
	}
	if _, ok := s.StochD(); ok {
		t.Fatal("%D defined after one post-gap %K value")
	}
	s = push(103)
	if _, ok := s.StochD(); ok {
		t.Fatal("%D defined after two post-gap %K values")
	}
	s = push(104)
	d, ok := s.StochD()
	if !ok {
		t.Fatal("%D undefined after a full post-gap period")
	}
	if d < 0 || d > 100 {
		t.Fatalf("%%D = %v out of [0, 100]", d)
	}
}

func TestSymbolState_IndicatorsWarm(t *testing.T) {
	e := New(DefaultConfig())

	var s *SymbolState
	var err error
	for i := 0; i < 60; i++ {
		price := 100 + float64(i%7)
		s, err = e.Advance(tick("BTC-USD", int64(i)*sec, price, 1))
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}

	if _, ok := s.SMA5(); !ok {
		t.Fatal("SMA5 undefined")
	}
	if _, ok := s.SMA20(); !ok {
		t.Fatal("SMA20 undefined")
	}
	if _, ok := s.SMA20Std(); !ok {
		t.Fatal("SMA20Std undefined")
	}
	if _, ok := s.EMA20(); !ok {
		t.Fatal("EMA20 undefined")
	}
	rsi, ok := s.RSI()
	if !ok {
		t.Fatal("RSI undefined")
	}
	if rsi < 0 || rsi > 100 {
		t.Fatalf("RSI = %v out of [0, 100]", rsi)
	}
	k, ok := s.StochK()
	if !ok {
		t.Fatal("%K undefined")
	}
	if k < 0 || k > 100 {
		t.Fatalf("%%K = %v out of [0, 100]", k)
	}
	if _, ok := s.StochD(); !ok {
		t.Fatal("%D undefined")
	}
}

func TestEngine_CustomHorizons(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Horizons = []time.Duration{10 * time.Second}
	e := New(cfg)

	s, err := e.Advance(tick("BTC-USD", 0, 100, 1))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.Window(10*time.Second) == nil {
		t.Fatal("configured horizon window missing")
	}
	if s.Window(domain.Horizon1h) != nil {
		t.Fatal("unconfigured horizon window present")
	}
}
