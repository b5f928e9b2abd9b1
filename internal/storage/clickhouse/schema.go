package clickhouse

// Feature tables use ReplacingMergeTree keyed by (symbol, ts_ns) so a
// replayed batch collapses to a single row per key at merge time:
// the idempotent upsert the writer's retry policy relies on. Reads go
// through FINAL to observe the collapsed state immediately.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		symbol String,
		ts_ns  Int64,
		price  Float64,
		size   Float64
	) ENGINE = MergeTree()
	ORDER BY (symbol, ts_ns)
	SETTINGS index_granularity = 8192`,

	`CREATE TABLE IF NOT EXISTS price_features (
		symbol             String,
		ts_ns              Int64,
		price              Float64,
		returns_1m         Float64,
		returns_5m         Float64,
		returns_15m        Float64,
		returns_1h         Float64,
		log_returns_1m     Float64,
		log_returns_5m     Float64,
		volatility_1m      Float64,
		volatility_5m      Float64,
		volatility_15m     Float64,
		price_momentum_5m  Float64,
		price_momentum_15m Float64,
		rsi_14             Float64,
		bb_upper           Float64,
		bb_lower           Float64,
		bb_position        Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (symbol, ts_ns)
	SETTINGS index_granularity = 8192`,

	`CREATE TABLE IF NOT EXISTS volume_features (
		symbol                       String,
		ts_ns                        Int64,
		volume                       Float64,
		vwap_1m                      Float64,
		vwap_5m                      Float64,
		vwap_15m                     Float64,
		volume_momentum_5m           Float64,
		volume_momentum_15m          Float64,
		volume_ratio_5m              Float64,
		volume_ratio_15m             Float64,
		price_volume_correlation_5m  Float64,
		price_volume_correlation_15m Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (symbol, ts_ns)
	SETTINGS index_granularity = 8192`,

	`CREATE TABLE IF NOT EXISTS microstructure_features (
		symbol               String,
		ts_ns                Int64,
		trade_size           Float64,
		trade_count_1m       Int64,
		trade_count_5m       Int64,
		avg_trade_size_1m    Float64,
		avg_trade_size_5m    Float64,
		large_trade_ratio_1m Float64,
		large_trade_ratio_5m Float64,
		trade_intensity_1m   Float64,
		trade_intensity_5m   Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (symbol, ts_ns)
	SETTINGS index_granularity = 8192`,

	`CREATE TABLE IF NOT EXISTS technical_features (
		symbol         String,
		ts_ns          Int64,
		sma_5          Float64,
		sma_10         Float64,
		sma_20         Float64,
		ema_5          Float64,
		ema_10         Float64,
		ema_20         Float64,
		macd           Float64,
		macd_signal    Float64,
		macd_histogram Float64,
		stoch_k        Float64,
		stoch_d        Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (symbol, ts_ns)
	SETTINGS index_granularity = 8192`,
}
