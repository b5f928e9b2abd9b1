package features

import (
	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/rolling"
)

// Microstructure computes the trade-flow feature row: counts, average
// sizes, large-trade ratios and trade intensity at 1m/5m.
//
// The large-trade threshold is a reference-sample percentile fixed
// before (batch) or early in (streaming warm-up) a symbol's life; until
// it is set the row is undefined.
func Microstructure(s *rolling.SymbolState) *domain.MicrostructureFeatureRow {
	w1m := s.Window(domain.Horizon1m)
	w5m := s.Window(domain.Horizon5m)
	if w1m == nil || w5m == nil {
		return nil
	}

	avg1m, ok := w1m.MeanSize()
	if !ok {
		return nil
	}
	avg5m, ok := w5m.MeanSize()
	if !ok {
		return nil
	}

	large1m, ok := w1m.LargeTradeRatio()
	if !ok {
		return nil
	}
	large5m, ok := w5m.LargeTradeRatio()
	if !ok {
		return nil
	}

	return &domain.MicrostructureFeatureRow{
		TimestampNs:       s.TimestampNs(),
		Symbol:            s.Symbol(),
		TradeSize:         s.Size(),
		TradeCount1m:      int64(w1m.Count()),
		TradeCount5m:      int64(w5m.Count()),
		AvgTradeSize1m:    avg1m,
		AvgTradeSize5m:    avg5m,
		LargeTradeRatio1m: large1m,
		LargeTradeRatio5m: large5m,
		TradeIntensity1m:  w1m.TradeIntensity(),
		TradeIntensity5m:  w5m.TradeIntensity(),
	}
}
