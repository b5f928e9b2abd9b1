package features

import (
	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/rolling"
)

// Volume computes the volume feature row: VWAP per horizon, volume
// momentum and ratio, and the rolling price/size correlation.
func Volume(s *rolling.SymbolState) *domain.VolumeFeatureRow {
	w1m := s.Window(domain.Horizon1m)
	w5m := s.Window(domain.Horizon5m)
	w15m := s.Window(domain.Horizon15m)
	if w1m == nil || w5m == nil || w15m == nil {
		return nil
	}

	vwap1m, ok := w1m.VWAP()
	if !ok {
		return nil
	}
	vwap5m, ok := w5m.VWAP()
	if !ok {
		return nil
	}
	vwap15m, ok := w15m.VWAP()
	if !ok {
		return nil
	}

	mom5m, ok := w5m.VolumeMomentum()
	if !ok {
		return nil
	}
	mom15m, ok := w15m.VolumeMomentum()
	if !ok {
		return nil
	}

	ratio5m, ok := w5m.VolumeRatio()
	if !ok {
		return nil
	}
	ratio15m, ok := w15m.VolumeRatio()
	if !ok {
		return nil
	}

	corr5m, ok := w5m.PriceVolumeCorrelation()
	if !ok {
		return nil
	}
	corr15m, ok := w15m.PriceVolumeCorrelation()
	if !ok {
		return nil
	}

	return &domain.VolumeFeatureRow{
		TimestampNs:               s.TimestampNs(),
		Symbol:                    s.Symbol(),
		Volume:                    s.Size(),
		VWAP1m:                    vwap1m,
		VWAP5m:                    vwap5m,
		VWAP15m:                   vwap15m,
		VolumeMomentum5m:          mom5m,
		VolumeMomentum15m:         mom15m,
		VolumeRatio5m:             ratio5m,
		VolumeRatio15m:            ratio15m,
		PriceVolumeCorrelation5m:  corr5m,
		PriceVolumeCorrelation15m: corr15m,
	}
}
