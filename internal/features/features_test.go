package features

import (
	"testing"
	"time"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/rolling"
)

const sec = int64(time.Second)

// warm advances a fresh engine through n synthetic ticks one second
// apart and returns the final state. Price and size cycle so every
// window statistic is non-degenerate.
func warm(t *testing.T, e *rolling.Engine, symbol string, n int) *rolling.SymbolState {
	t.Helper()
	var s *rolling.SymbolState
	var err error
	for i := 0; i < n; i++ {
		s, err = e.Advance(domain.Tick{
			Symbol:      symbol,
			TimestampNs: int64(i) * sec,
			Price:       100 + float64(i%7),
			Size:        1 + 0.5*float64(i%5),
		})
		if err != nil {
			t.Fatalf("Advance failed at tick %d: %v", i, err)
		}
	}
	return s
}

func TestPrice_NilUntilAllHorizonsWarm(t *testing.T) {
	e := rolling.New(rolling.DefaultConfig())

	// 100 ticks: 1m features are warm but the 1h return has no
	// reference tick yet, so the whole row is dropped.
	s := warm(t, e, "BTC-USD", 100)
	if row := Price(s); row != nil {
		t.Fatalf("Price = %+v, want nil before 1h horizon is warm", row)
	}
}

func TestPrice_FullRow(t *testing.T) {
	e := rolling.New(rolling.DefaultConfig())
	s := warm(t, e, "BTC-USD", 3700)

	row := Price(s)
	if row == nil {
		t.Fatal("Price = nil with all horizons warm")
	}
	if row.Symbol != "BTC-USD" || row.TimestampNs != s.TimestampNs() {
		t.Fatalf("row identity = %s @ %d, want BTC-USD @ %d", row.Symbol, row.TimestampNs, s.TimestampNs())
	}

	// Momentum columns alias the horizon returns.
	if row.PriceMomentum5m != row.Returns5m {
		t.Fatalf("PriceMomentum5m = %v, Returns5m = %v, want equal", row.PriceMomentum5m, row.Returns5m)
	}
	if row.PriceMomentum15m != row.Returns15m {
		t.Fatalf("PriceMomentum15m = %v, Returns15m = %v, want equal", row.PriceMomentum15m, row.Returns15m)
	}

	if row.RSI14 < 0 || row.RSI14 > 100 {
		t.Fatalf("RSI14 = %v out of [0, 100]", row.RSI14)
	}
	if row.BBUpper <= row.BBLower {
		t.Fatalf("BBUpper = %v <= BBLower = %v", row.BBUpper, row.BBLower)
	}
	width := row.BBUpper - row.BBLower
	if want := (row.Price - row.BBLower) / width; row.BBPosition != want {
		t.Fatalf("BBPosition = %v, want %v", row.BBPosition, want)
	}
	if row.Volatility1m <= 0 {
		t.Fatalf("Volatility1m = %v, want > 0", row.Volatility1m)
	}
}

func TestPrice_NilOnDegenerateBollingerWidth(t *testing.T) {
	e := rolling.New(rolling.DefaultConfig())

	// Constant prices: every horizon is warm but the 20-period std is
	// zero, so the band width collapses and the row is dropped.
	var s *rolling.SymbolState
	for i := 0; i < 3700; i++ {
		s, _ = e.Advance(domain.Tick{
			Symbol:      "BTC-USD",
			TimestampNs: int64(i) * sec,
			Price:       100,
			Size:        1,
		})
	}
	if row := Price(s); row != nil {
		t.Fatalf("Price = %+v, want nil on zero band width", row)
	}
}

func TestVolume_NilUntil15mWarm(t *testing.T) {
	e := rolling.New(rolling.DefaultConfig())

	s := warm(t, e, "BTC-USD", 500)
	if row := Volume(s); row != nil {
		t.Fatalf("Volume = %+v, want nil before 15m momentum is defined", row)
	}
}

func TestVolume_FullRow(t *testing.T) {
	e := rolling.New(rolling.DefaultConfig())
	s := warm(t, e, "BTC-USD", 1000)

	row := Volume(s)
	if row == nil {
		t.Fatal("Volume = nil with 15m horizon warm")
	}
	if row.VWAP1m <= 0 || row.VWAP5m <= 0 || row.VWAP15m <= 0 {
		t.Fatalf("VWAP = %v/%v/%v, want all > 0", row.VWAP1m, row.VWAP5m, row.VWAP15m)
	}
	if row.VolumeRatio5m <= 0 {
		t.Fatalf("VolumeRatio5m = %v, want > 0", row.VolumeRatio5m)
	}
	if row.Volume != s.Size() {
		t.Fatalf("Volume = %v, want last size %v", row.Volume, s.Size())
	}
}

func TestMicrostructure_NilWithoutThreshold(t *testing.T) {
	cfg := rolling.DefaultConfig()
	cfg.LargeTradeWarmupTicks = 0 // no streaming fallback
	e := rolling.New(cfg)

	s := warm(t, e, "BTC-USD", 500)
	if row := Microstructure(s); row != nil {
		t.Fatalf("Microstructure = %+v, want nil without a threshold", row)
	}
}

func TestMicrostructure_FullRow(t *testing.T) {
	cfg := rolling.DefaultConfig()
	cfg.LargeTradeWarmupTicks = 0
	e := rolling.New(cfg)
	e.SetLargeTradeThreshold("BTC-USD", 2)

	s := warm(t, e, "BTC-USD", 400)

	row := Microstructure(s)
	if row == nil {
		t.Fatal("Microstructure = nil with explicit threshold")
	}
	// Ticks are one second apart: [t-60s, t] holds 61 of them.
	if row.TradeCount1m != 61 {
		t.Fatalf("TradeCount1m = %d, want 61", row.TradeCount1m)
	}
	if row.TradeCount5m != 301 {
		t.Fatalf("TradeCount5m = %d, want 301", row.TradeCount5m)
	}
	if row.LargeTradeRatio1m < 0 || row.LargeTradeRatio1m > 1 {
		t.Fatalf("LargeTradeRatio1m = %v out of [0, 1]", row.LargeTradeRatio1m)
	}
	if want := 61.0 / 60.0; row.TradeIntensity1m != want {
		t.Fatalf("TradeIntensity1m = %v, want %v", row.TradeIntensity1m, want)
	}
	if row.AvgTradeSize1m <= 0 {
		t.Fatalf("AvgTradeSize1m = %v, want > 0", row.AvgTradeSize1m)
	}
}

func TestTechnical_NilUntilIndicatorsWarm(t *testing.T) {
	e := rolling.New(rolling.DefaultConfig())

	s := warm(t, e, "BTC-USD", 10)
	if row := Technical(s); row != nil {
		t.Fatalf("Technical = %+v, want nil before SMA-20 is warm", row)
	}
}

func TestTechnical_FullRow(t *testing.T) {
	e := rolling.New(rolling.DefaultConfig())
	s := warm(t, e, "BTC-USD", 50)

	row := Technical(s)
	if row == nil {
		t.Fatal("Technical = nil with warm indicators")
	}
	if row.MACDHistogram != row.MACD-row.MACDSignal {
		t.Fatalf("MACDHistogram = %v, want %v", row.MACDHistogram, row.MACD-row.MACDSignal)
	}
	if row.StochK < 0 || row.StochK > 100 {
		t.Fatalf("StochK = %v out of [0, 100]", row.StochK)
	}
	if row.StochD < 0 || row.StochD > 100 {
		t.Fatalf("StochD = %v out of [0, 100]", row.StochD)
	}
	if row.SMA5 <= 0 || row.SMA10 <= 0 || row.SMA20 <= 0 {
		t.Fatalf("SMA = %v/%v/%v, want all > 0", row.SMA5, row.SMA10, row.SMA20)
	}
	if row.EMA5 <= 0 || row.EMA10 <= 0 || row.EMA20 <= 0 {
		t.Fatalf("EMA = %v/%v/%v, want all > 0", row.EMA5, row.EMA10, row.EMA20)
	}
}
