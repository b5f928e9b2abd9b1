package domain

// Feature table names. Each feature family writes to its own table,
// keyed by (timestamp, symbol) so replays upsert instead of duplicating.
const (
	TablePriceFeatures          = "price_features"
	TableVolumeFeatures         = "volume_features"
	TableMicrostructureFeatures = "microstructure_features"
	TableTechnicalFeatures      = "technical_features"
)

// PriceFeatureRow holds price-derived features for one tick.
// Rows are only emitted once every field has a defined value, so no
// field is nullable in storage.
type PriceFeatureRow struct {
	TimestampNs int64
	Symbol      string
	Price       float64

	Returns1m    float64
	Returns5m    float64
	Returns15m   float64
	Returns1h    float64
	LogReturns1m float64
	LogReturns5m float64

	Volatility1m  float64
	Volatility5m  float64
	Volatility15m float64

	PriceMomentum5m  float64
	PriceMomentum15m float64

	RSI14      float64
	BBUpper    float64
	BBLower    float64
	BBPosition float64
}

// VolumeFeatureRow holds volume-derived features for one tick.
type VolumeFeatureRow struct {
	TimestampNs int64
	Symbol      string
	Volume      float64

	VWAP1m  float64
	VWAP5m  float64
	VWAP15m float64

	VolumeMomentum5m  float64
	VolumeMomentum15m float64

	VolumeRatio5m  float64
	VolumeRatio15m float64

	PriceVolumeCorrelation5m  float64
	PriceVolumeCorrelation15m float64
}

// MicrostructureFeatureRow holds trade-flow features for one tick.
type MicrostructureFeatureRow struct {
	TimestampNs int64
	Symbol      string
	TradeSize   float64

	TradeCount1m int64
	TradeCount5m int64

	AvgTradeSize1m float64
	AvgTradeSize5m float64

	LargeTradeRatio1m float64
	LargeTradeRatio5m float64

	TradeIntensity1m float64
	TradeIntensity5m float64
}

// TechnicalFeatureRow holds technical indicator features for one tick.
type TechnicalFeatureRow struct {
	TimestampNs int64
	Symbol      string

	SMA5  float64
	SMA10 float64
	SMA20 float64

	EMA5  float64
	EMA10 float64
	EMA20 float64

	MACD          float64
	MACDSignal    float64
	MACDHistogram float64

	StochK float64
	StochD float64
}
