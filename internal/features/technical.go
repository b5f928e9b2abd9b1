package features

import (
	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/rolling"
)

// Technical computes the indicator feature row: SMAs, EMAs, MACD with
// signal and histogram, and the stochastic oscillator.
func Technical(s *rolling.SymbolState) *domain.TechnicalFeatureRow {
	sma5, ok := s.SMA5()
	if !ok {
		return nil
	}
	sma10, ok := s.SMA10()
	if !ok {
		return nil
	}
	sma20, ok := s.SMA20()
	if !ok {
		return nil
	}

	ema5, ok := s.EMA5()
	if !ok {
		return nil
	}
	ema10, ok := s.EMA10()
	if !ok {
		return nil
	}
	ema20, ok := s.EMA20()
	if !ok {
		return nil
	}

	macd, signal, ok := s.MACD()
	if !ok {
		return nil
	}

	k, ok := s.StochK()
	if !ok {
		return nil
	}
	d, ok := s.StochD()
	if !ok {
		return nil
	}

	return &domain.TechnicalFeatureRow{
		TimestampNs:   s.TimestampNs(),
		Symbol:        s.Symbol(),
		SMA5:          sma5,
		SMA10:         sma10,
		SMA20:         sma20,
		EMA5:          ema5,
		EMA10:         ema10,
		EMA20:         ema20,
		MACD:          macd,
		MACDSignal:    signal,
		MACDHistogram: macd - signal,
		StochK:        k,
		StochD:        d,
	}
}
