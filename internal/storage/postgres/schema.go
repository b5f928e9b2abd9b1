package postgres

// Feature tables carry a composite primary key so writes can run as
// INSERT ... ON CONFLICT DO UPDATE: replaying a batch converges on the
// same rows instead of failing or duplicating.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS ticks (
		symbol TEXT             NOT NULL,
		ts_ns  BIGINT           NOT NULL,
		price  DOUBLE PRECISION NOT NULL,
		size   DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks (symbol, ts_ns)`,

	`CREATE TABLE IF NOT EXISTS price_features (
		ts_ns              BIGINT           NOT NULL,
		symbol             TEXT             NOT NULL,
		price              DOUBLE PRECISION NOT NULL,
		returns_1m         DOUBLE PRECISION NOT NULL,
		returns_5m         DOUBLE PRECISION NOT NULL,
		returns_15m        DOUBLE PRECISION NOT NULL,
		returns_1h         DOUBLE PRECISION NOT NULL,
		log_returns_1m     DOUBLE PRECISION NOT NULL,
		log_returns_5m     DOUBLE PRECISION NOT NULL,
		volatility_1m      DOUBLE PRECISION NOT NULL,
		volatility_5m      DOUBLE PRECISION NOT NULL,
		volatility_15m     DOUBLE PRECISION NOT NULL,
		price_momentum_5m  DOUBLE PRECISION NOT NULL,
		price_momentum_15m DOUBLE PRECISION NOT NULL,
		rsi_14             DOUBLE PRECISION NOT NULL,
		bb_upper           DOUBLE PRECISION NOT NULL,
		bb_lower           DOUBLE PRECISION NOT NULL,
		bb_position        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ts_ns, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS volume_features (
		ts_ns                        BIGINT           NOT NULL,
		symbol                       TEXT             NOT NULL,
		volume                       DOUBLE PRECISION NOT NULL,
		vwap_1m                      DOUBLE PRECISION NOT NULL,
		vwap_5m                      DOUBLE PRECISION NOT NULL,
		vwap_15m                     DOUBLE PRECISION NOT NULL,
		volume_momentum_5m           DOUBLE PRECISION NOT NULL,
		volume_momentum_15m          DOUBLE PRECISION NOT NULL,
		volume_ratio_5m              DOUBLE PRECISION NOT NULL,
		volume_ratio_15m             DOUBLE PRECISION NOT NULL,
		price_volume_correlation_5m  DOUBLE PRECISION NOT NULL,
		price_volume_correlation_15m DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ts_ns, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS microstructure_features (
		ts_ns                BIGINT           NOT NULL,
		symbol               TEXT             NOT NULL,
		trade_size           DOUBLE PRECISION NOT NULL,
		trade_count_1m       BIGINT           NOT NULL,
		trade_count_5m       BIGINT           NOT NULL,
		avg_trade_size_1m    DOUBLE PRECISION NOT NULL,
		avg_trade_size_5m    DOUBLE PRECISION NOT NULL,
		large_trade_ratio_1m DOUBLE PRECISION NOT NULL,
		large_trade_ratio_5m DOUBLE PRECISION NOT NULL,
		trade_intensity_1m   DOUBLE PRECISION NOT NULL,
		trade_intensity_5m   DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ts_ns, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS technical_features (
		ts_ns          BIGINT           NOT NULL,
		symbol         TEXT             NOT NULL,
		sma_5          DOUBLE PRECISION NOT NULL,
		sma_10         DOUBLE PRECISION NOT NULL,
		sma_20         DOUBLE PRECISION NOT NULL,
		ema_5          DOUBLE PRECISION NOT NULL,
		ema_10         DOUBLE PRECISION NOT NULL,
		ema_20         DOUBLE PRECISION NOT NULL,
		macd           DOUBLE PRECISION NOT NULL,
		macd_signal    DOUBLE PRECISION NOT NULL,
		macd_histogram DOUBLE PRECISION NOT NULL,
		stoch_k        DOUBLE PRECISION NOT NULL,
		stoch_d        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ts_ns, symbol)
	)`,
}
