// Package features derives per-tick feature rows from rolling window
// state. Every calculator is a pure read of one symbol's state at one
// timestamp: it returns nil when any required value is still undefined
// (insufficient history or a degenerate denominator), so incomplete
// rows are dropped instead of leaking zeros or NaNs into storage.
package features

import (
	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/rolling"
)

// Price computes the price feature row: returns and log-returns over
// the configured horizons, rolling volatility, momentum, RSI and
// Bollinger bands.
func Price(s *rolling.SymbolState) *domain.PriceFeatureRow {
	w1m := s.Window(domain.Horizon1m)
	w5m := s.Window(domain.Horizon5m)
	w15m := s.Window(domain.Horizon15m)
	w1h := s.Window(domain.Horizon1h)
	if w1m == nil || w5m == nil || w15m == nil || w1h == nil {
		return nil
	}

	r1m, ok := w1m.Returns()
	if !ok {
		return nil
	}
	r5m, ok := w5m.Returns()
	if !ok {
		return nil
	}
	r15m, ok := w15m.Returns()
	if !ok {
		return nil
	}
	r1h, ok := w1h.Returns()
	if !ok {
		return nil
	}
	lr1m, ok := w1m.LogReturns()
	if !ok {
		return nil
	}
	lr5m, ok := w5m.LogReturns()
	if !ok {
		return nil
	}

	vol1m, ok := w1m.Volatility()
	if !ok {
		return nil
	}
	vol5m, ok := w5m.Volatility()
	if !ok {
		return nil
	}
	vol15m, ok := w15m.Volatility()
	if !ok {
		return nil
	}

	// Momentum shares the returns formula; kept as separate columns for
	// downstream naming compatibility.
	mom5m, mom15m := r5m, r15m

	rsi, ok := s.RSI()
	if !ok {
		return nil
	}

	sma20, ok := s.SMA20()
	if !ok {
		return nil
	}
	std20, ok := s.SMA20Std()
	if !ok {
		return nil
	}
	upper := sma20 + domain.BollingerMultiplier*std20
	lower := sma20 - domain.BollingerMultiplier*std20
	width := upper - lower
	if width <= 0 {
		return nil
	}
	position := (s.Price() - lower) / width

	return &domain.PriceFeatureRow{
		TimestampNs:      s.TimestampNs(),
		Symbol:           s.Symbol(),
		Price:            s.Price(),
		Returns1m:        r1m,
		Returns5m:        r5m,
		Returns15m:       r15m,
		Returns1h:        r1h,
		LogReturns1m:     lr1m,
		LogReturns5m:     lr5m,
		Volatility1m:     vol1m,
		Volatility5m:     vol5m,
		Volatility15m:    vol15m,
		PriceMomentum5m:  mom5m,
		PriceMomentum15m: mom15m,
		RSI14:            rsi,
		BBUpper:          upper,
		BBLower:          lower,
		BBPosition:       position,
	}
}
