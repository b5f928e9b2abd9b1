package postgres

import (
	"context"
	"fmt"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

// FeatureStore implements storage.FeatureStore using PostgreSQL.
// Upserts run as INSERT ... ON CONFLICT DO UPDATE on the (ts_ns,
// symbol) primary key.
type FeatureStore struct {
	pool *Pool
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(pool *Pool) *FeatureStore {
	return &FeatureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// EnsureTables creates the ticks table and the four feature tables if
// absent. Safe to call repeatedly.
func (s *FeatureStore) EnsureTables(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return classify(fmt.Errorf("ensure tables: %w", err))
		}
	}
	return nil
}

// UpsertPriceFeatures inserts or updates price feature rows atomically.
func (s *FeatureStore) UpsertPriceFeatures(ctx context.Context, rows []*domain.PriceFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_features (
			ts_ns, symbol, price,
			returns_1m, returns_5m, returns_15m, returns_1h,
			log_returns_1m, log_returns_5m,
			volatility_1m, volatility_5m, volatility_15m,
			price_momentum_5m, price_momentum_15m,
			rsi_14, bb_upper, bb_lower, bb_position
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9,
			$10, $11, $12,
			$13, $14,
			$15, $16, $17, $18
		)
		ON CONFLICT (ts_ns, symbol) DO UPDATE SET
			price              = EXCLUDED.price,
			returns_1m         = EXCLUDED.returns_1m,
			returns_5m         = EXCLUDED.returns_5m,
			returns_15m        = EXCLUDED.returns_15m,
			returns_1h         = EXCLUDED.returns_1h,
			log_returns_1m     = EXCLUDED.log_returns_1m,
			log_returns_5m     = EXCLUDED.log_returns_5m,
			volatility_1m      = EXCLUDED.volatility_1m,
			volatility_5m      = EXCLUDED.volatility_5m,
			volatility_15m     = EXCLUDED.volatility_15m,
			price_momentum_5m  = EXCLUDED.price_momentum_5m,
			price_momentum_15m = EXCLUDED.price_momentum_15m,
			rsi_14             = EXCLUDED.rsi_14,
			bb_upper           = EXCLUDED.bb_upper,
			bb_lower           = EXCLUDED.bb_lower,
			bb_position        = EXCLUDED.bb_position
	`

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.TimestampNs, r.Symbol, r.Price,
			r.Returns1m, r.Returns5m, r.Returns15m, r.Returns1h,
			r.LogReturns1m, r.LogReturns5m,
			r.Volatility1m, r.Volatility5m, r.Volatility15m,
			r.PriceMomentum5m, r.PriceMomentum15m,
			r.RSI14, r.BBUpper, r.BBLower, r.BBPosition,
		)
		if err != nil {
			return classify(fmt.Errorf("upsert price feature row: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// UpsertVolumeFeatures inserts or updates volume feature rows atomically.
func (s *FeatureStore) UpsertVolumeFeatures(ctx context.Context, rows []*domain.VolumeFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO volume_features (
			ts_ns, symbol, volume,
			vwap_1m, vwap_5m, vwap_15m,
			volume_momentum_5m, volume_momentum_15m,
			volume_ratio_5m, volume_ratio_15m,
			price_volume_correlation_5m, price_volume_correlation_15m
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8,
			$9, $10,
			$11, $12
		)
		ON CONFLICT (ts_ns, symbol) DO UPDATE SET
			volume                       = EXCLUDED.volume,
			vwap_1m                      = EXCLUDED.vwap_1m,
			vwap_5m                      = EXCLUDED.vwap_5m,
			vwap_15m                     = EXCLUDED.vwap_15m,
			volume_momentum_5m           = EXCLUDED.volume_momentum_5m,
			volume_momentum_15m          = EXCLUDED.volume_momentum_15m,
			volume_ratio_5m              = EXCLUDED.volume_ratio_5m,
			volume_ratio_15m             = EXCLUDED.volume_ratio_15m,
			price_volume_correlation_5m  = EXCLUDED.price_volume_correlation_5m,
			price_volume_correlation_15m = EXCLUDED.price_volume_correlation_15m
	`

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.TimestampNs, r.Symbol, r.Volume,
			r.VWAP1m, r.VWAP5m, r.VWAP15m,
			r.VolumeMomentum5m, r.VolumeMomentum15m,
			r.VolumeRatio5m, r.VolumeRatio15m,
			r.PriceVolumeCorrelation5m, r.PriceVolumeCorrelation15m,
		)
		if err != nil {
			return classify(fmt.Errorf("upsert volume feature row: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// UpsertMicrostructureFeatures inserts or updates microstructure rows
// atomically.
func (s *FeatureStore) UpsertMicrostructureFeatures(ctx context.Context, rows []*domain.MicrostructureFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO microstructure_features (
			ts_ns, symbol, trade_size,
			trade_count_1m, trade_count_5m,
			avg_trade_size_1m, avg_trade_size_5m,
			large_trade_ratio_1m, large_trade_ratio_5m,
			trade_intensity_1m, trade_intensity_5m
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7,
			$8, $9,
			$10, $11
		)
		ON CONFLICT (ts_ns, symbol) DO UPDATE SET
			trade_size           = EXCLUDED.trade_size,
			trade_count_1m       = EXCLUDED.trade_count_1m,
			trade_count_5m       = EXCLUDED.trade_count_5m,
			avg_trade_size_1m    = EXCLUDED.avg_trade_size_1m,
			avg_trade_size_5m    = EXCLUDED.avg_trade_size_5m,
			large_trade_ratio_1m = EXCLUDED.large_trade_ratio_1m,
			large_trade_ratio_5m = EXCLUDED.large_trade_ratio_5m,
			trade_intensity_1m   = EXCLUDED.trade_intensity_1m,
			trade_intensity_5m   = EXCLUDED.trade_intensity_5m
	`

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.TimestampNs, r.Symbol, r.TradeSize,
			r.TradeCount1m, r.TradeCount5m,
			r.AvgTradeSize1m, r.AvgTradeSize5m,
			r.LargeTradeRatio1m, r.LargeTradeRatio5m,
			r.TradeIntensity1m, r.TradeIntensity5m,
		)
		if err != nil {
			return classify(fmt.Errorf("upsert microstructure feature row: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// UpsertTechnicalFeatures inserts or updates technical rows atomically.
func (s *FeatureStore) UpsertTechnicalFeatures(ctx context.Context, rows []*domain.TechnicalFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO technical_features (
			ts_ns, symbol,
			sma_5, sma_10, sma_20,
			ema_5, ema_10, ema_20,
			macd, macd_signal, macd_histogram,
			stoch_k, stoch_d
		) VALUES (
			$1, $2,
			$3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13
		)
		ON CONFLICT (ts_ns, symbol) DO UPDATE SET
			sma_5          = EXCLUDED.sma_5,
			sma_10         = EXCLUDED.sma_10,
			sma_20         = EXCLUDED.sma_20,
			ema_5          = EXCLUDED.ema_5,
			ema_10         = EXCLUDED.ema_10,
			ema_20         = EXCLUDED.ema_20,
			macd           = EXCLUDED.macd,
			macd_signal    = EXCLUDED.macd_signal,
			macd_histogram = EXCLUDED.macd_histogram,
			stoch_k        = EXCLUDED.stoch_k,
			stoch_d        = EXCLUDED.stoch_d
	`

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.TimestampNs, r.Symbol,
			r.SMA5, r.SMA10, r.SMA20,
			r.EMA5, r.EMA10, r.EMA20,
			r.MACD, r.MACDSignal, r.MACDHistogram,
			r.StochK, r.StochD,
		)
		if err != nil {
			return classify(fmt.Errorf("upsert technical feature row: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// GetPriceFeatures retrieves price rows for a symbol within [start,
// end], ordered by timestamp ASC.
func (s *FeatureStore) GetPriceFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceFeatureRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			symbol, ts_ns, price,
			returns_1m, returns_5m, returns_15m, returns_1h,
			log_returns_1m, log_returns_5m,
			volatility_1m, volatility_5m, volatility_15m,
			price_momentum_5m, price_momentum_15m,
			rsi_14, bb_upper, bb_lower, bb_position
		FROM price_features
		WHERE symbol = $1 AND ts_ns >= $2 AND ts_ns <= $3
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query price features: %w", err))
	}
	defer rows.Close()

	var result []*domain.PriceFeatureRow
	for rows.Next() {
		var r domain.PriceFeatureRow
		err := rows.Scan(
			&r.Symbol, &r.TimestampNs, &r.Price,
			&r.Returns1m, &r.Returns5m, &r.Returns15m, &r.Returns1h,
			&r.LogReturns1m, &r.LogReturns5m,
			&r.Volatility1m, &r.Volatility5m, &r.Volatility15m,
			&r.PriceMomentum5m, &r.PriceMomentum15m,
			&r.RSI14, &r.BBUpper, &r.BBLower, &r.BBPosition,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price feature row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate price feature rows: %w", err))
	}
	return result, nil
}

// GetVolumeFeatures retrieves volume rows for a symbol within [start,
// end], ordered by timestamp ASC.
func (s *FeatureStore) GetVolumeFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.VolumeFeatureRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			symbol, ts_ns, volume,
			vwap_1m, vwap_5m, vwap_15m,
			volume_momentum_5m, volume_momentum_15m,
			volume_ratio_5m, volume_ratio_15m,
			price_volume_correlation_5m, price_volume_correlation_15m
		FROM volume_features
		WHERE symbol = $1 AND ts_ns >= $2 AND ts_ns <= $3
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query volume features: %w", err))
	}
	defer rows.Close()

	var result []*domain.VolumeFeatureRow
	for rows.Next() {
		var r domain.VolumeFeatureRow
		err := rows.Scan(
			&r.Symbol, &r.TimestampNs, &r.Volume,
			&r.VWAP1m, &r.VWAP5m, &r.VWAP15m,
			&r.VolumeMomentum5m, &r.VolumeMomentum15m,
			&r.VolumeRatio5m, &r.VolumeRatio15m,
			&r.PriceVolumeCorrelation5m, &r.PriceVolumeCorrelation15m,
		)
		if err != nil {
			return nil, fmt.Errorf("scan volume feature row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate volume feature rows: %w", err))
	}
	return result, nil
}

// GetMicrostructureFeatures retrieves microstructure rows for a symbol
// within [start, end], ordered by timestamp ASC.
func (s *FeatureStore) GetMicrostructureFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.MicrostructureFeatureRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			symbol, ts_ns, trade_size,
			trade_count_1m, trade_count_5m,
			avg_trade_size_1m, avg_trade_size_5m,
			large_trade_ratio_1m, large_trade_ratio_5m,
			trade_intensity_1m, trade_intensity_5m
		FROM microstructure_features
		WHERE symbol = $1 AND ts_ns >= $2 AND ts_ns <= $3
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query microstructure features: %w", err))
	}
	defer rows.Close()

	var result []*domain.MicrostructureFeatureRow
	for rows.Next() {
		var r domain.MicrostructureFeatureRow
		err := rows.Scan(
			&r.Symbol, &r.TimestampNs, &r.TradeSize,
			&r.TradeCount1m, &r.TradeCount5m,
			&r.AvgTradeSize1m, &r.AvgTradeSize5m,
			&r.LargeTradeRatio1m, &r.LargeTradeRatio5m,
			&r.TradeIntensity1m, &r.TradeIntensity5m,
		)
		if err != nil {
			return nil, fmt.Errorf("scan microstructure feature row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate microstructure feature rows: %w", err))
	}
	return result, nil
}

// GetTechnicalFeatures retrieves technical rows for a symbol within
// [start, end], ordered by timestamp ASC.
func (s *FeatureStore) GetTechnicalFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.TechnicalFeatureRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			symbol, ts_ns,
			sma_5, sma_10, sma_20,
			ema_5, ema_10, ema_20,
			macd, macd_signal, macd_histogram,
			stoch_k, stoch_d
		FROM technical_features
		WHERE symbol = $1 AND ts_ns >= $2 AND ts_ns <= $3
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query technical features: %w", err))
	}
	defer rows.Close()

	var result []*domain.TechnicalFeatureRow
	for rows.Next() {
		var r domain.TechnicalFeatureRow
		err := rows.Scan(
			&r.Symbol, &r.TimestampNs,
			&r.SMA5, &r.SMA10, &r.SMA20,
			&r.EMA5, &r.EMA10, &r.EMA20,
			&r.MACD, &r.MACDSignal, &r.MACDHistogram,
			&r.StochK, &r.StochD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan technical feature row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate technical feature rows: %w", err))
	}
	return result, nil
}
