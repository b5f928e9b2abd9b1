package clickhouse

import (
	"context"
	"fmt"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

// FeatureStore implements storage.FeatureStore using ClickHouse.
// Upserts rely on the ReplacingMergeTree engine declared in schema.go.
type FeatureStore struct {
	conn *Conn
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn) *FeatureStore {
	return &FeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// EnsureTables creates the ticks table and the four feature tables if
// absent. Safe to call repeatedly.
func (s *FeatureStore) EnsureTables(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return classify(fmt.Errorf("ensure tables: %w", err))
		}
	}
	return nil
}

// UpsertPriceFeatures inserts or replaces price feature rows.
func (s *FeatureStore) UpsertPriceFeatures(ctx context.Context, rows []*domain.PriceFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_features (
			symbol, ts_ns, price,
			returns_1m, returns_5m, returns_15m, returns_1h,
			log_returns_1m, log_returns_5m,
			volatility_1m, volatility_5m, volatility_15m,
			price_momentum_5m, price_momentum_15m,
			rsi_14, bb_upper, bb_lower, bb_position
		)
	`)
	if err != nil {
		return classify(fmt.Errorf("prepare price_features batch: %w", err))
	}

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Symbol, r.TimestampNs, r.Price,
			r.Returns1m, r.Returns5m, r.Returns15m, r.Returns1h,
			r.LogReturns1m, r.LogReturns5m,
			r.Volatility1m, r.Volatility5m, r.Volatility15m,
			r.PriceMomentum5m, r.PriceMomentum15m,
			r.RSI14, r.BBUpper, r.BBLower, r.BBPosition,
		)
		if err != nil {
			return fmt.Errorf("append price_features row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return classify(fmt.Errorf("send price_features batch: %w", err))
	}
	return nil
}

// UpsertVolumeFeatures inserts or replaces volume feature rows.
func (s *FeatureStore) UpsertVolumeFeatures(ctx context.Context, rows []*domain.VolumeFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO volume_features (
			symbol, ts_ns, volume,
			vwap_1m, vwap_5m, vwap_15m,
			volume_momentum_5m, volume_momentum_15m,
			volume_ratio_5m, volume_ratio_15m,
			price_volume_correlation_5m, price_volume_correlation_15m
		)
	`)
	if err != nil {
		return classify(fmt.Errorf("prepare volume_features batch: %w", err))
	}

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Symbol, r.TimestampNs, r.Volume,
			r.VWAP1m, r.VWAP5m, r.VWAP15m,
			r.VolumeMomentum5m, r.VolumeMomentum15m,
			r.VolumeRatio5m, r.VolumeRatio15m,
			r.PriceVolumeCorrelation5m, r.PriceVolumeCorrelation15m,
		)
		if err != nil {
			return fmt.Errorf("append volume_features row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return classify(fmt.Errorf("send volume_features batch: %w", err))
	}
	return nil
}

// UpsertMicrostructureFeatures inserts or replaces microstructure rows.
func (s *FeatureStore) UpsertMicrostructureFeatures(ctx context.Context, rows []*domain.MicrostructureFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO microstructure_features (
			symbol, ts_ns, trade_size,
			trade_count_1m, trade_count_5m,
			avg_trade_size_1m, avg_trade_size_5m,
			large_trade_ratio_1m, large_trade_ratio_5m,
			trade_intensity_1m, trade_intensity_5m
		)
	`)
	if err != nil {
		return classify(fmt.Errorf("prepare microstructure_features batch: %w", err))
	}

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Symbol, r.TimestampNs, r.TradeSize,
			r.TradeCount1m, r.TradeCount5m,
			r.AvgTradeSize1m, r.AvgTradeSize5m,
			r.LargeTradeRatio1m, r.LargeTradeRatio5m,
			r.TradeIntensity1m, r.TradeIntensity5m,
		)
		if err != nil {
			return fmt.Errorf("append microstructure_features row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return classify(fmt.Errorf("send microstructure_features batch: %w", err))
	}
	return nil
}

// UpsertTechnicalFeatures inserts or replaces technical rows.
func (s *FeatureStore) UpsertTechnicalFeatures(ctx context.Context, rows []*domain.TechnicalFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO technical_features (
			symbol, ts_ns,
			sma_5, sma_10, sma_20,
			ema_5, ema_10, ema_20,
			macd, macd_signal, macd_histogram,
			stoch_k, stoch_d
		)
	`)
	if err != nil {
		return classify(fmt.Errorf("prepare technical_features batch: %w", err))
	}

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Symbol, r.TimestampNs,
			r.SMA5, r.SMA10, r.SMA20,
			r.EMA5, r.EMA10, r.EMA20,
			r.MACD, r.MACDSignal, r.MACDHistogram,
			r.StochK, r.StochD,
		)
		if err != nil {
			return fmt.Errorf("append technical_features row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return classify(fmt.Errorf("send technical_features batch: %w", err))
	}
	return nil
}

// GetPriceFeatures retrieves price rows for a symbol within [start,
// end], ordered by timestamp ASC. FINAL collapses replaced rows.
func (s *FeatureStore) GetPriceFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceFeatureRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			symbol, ts_ns, price,
			returns_1m, returns_5m, returns_15m, returns_1h,
			log_returns_1m, log_returns_5m,
			volatility_1m, volatility_5m, volatility_15m,
			price_momentum_5m, price_momentum_15m,
			rsi_14, bb_upper, bb_lower, bb_position
		FROM price_features FINAL
		WHERE symbol = ? AND ts_ns >= ? AND ts_ns <= ?
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query price_features: %w", err))
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
			return nil, fmt.Errorf("scan price_features row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate price_features rows: %w", err))
	}
	return result, nil
}

// GetVolumeFeatures retrieves volume rows for a symbol within [start,
// end], ordered by timestamp ASC.
func (s *FeatureStore) GetVolumeFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.VolumeFeatureRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			symbol, ts_ns, volume,
			vwap_1m, vwap_5m, vwap_15m,
			volume_momentum_5m, volume_momentum_15m,
			volume_ratio_5m, volume_ratio_15m,
			price_volume_correlation_5m, price_volume_correlation_15m
		FROM volume_features FINAL
		WHERE symbol = ? AND ts_ns >= ? AND ts_ns <= ?
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query volume_features: %w", err))
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
			return nil, fmt.Errorf("scan volume_features row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate volume_features rows: %w", err))
	}
	return result, nil
}

// GetMicrostructureFeatures retrieves microstructure rows for a symbol
// within [start, end], ordered by timestamp ASC.
func (s *FeatureStore) GetMicrostructureFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.MicrostructureFeatureRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			symbol, ts_ns, trade_size,
			trade_count_1m, trade_count_5m,
			avg_trade_size_1m, avg_trade_size_5m,
			large_trade_ratio_1m, large_trade_ratio_5m,
			trade_intensity_1m, trade_intensity_5m
		FROM microstructure_features FINAL
		WHERE symbol = ? AND ts_ns >= ? AND ts_ns <= ?
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query microstructure_features: %w", err))
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
			return nil, fmt.Errorf("scan microstructure_features row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate microstructure_features rows: %w", err))
	}
	return result, nil
}

// GetTechnicalFeatures retrieves technical rows for a symbol within
// [start, end], ordered by timestamp ASC.
func (s *FeatureStore) GetTechnicalFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.TechnicalFeatureRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			symbol, ts_ns,
			sma_5, sma_10, sma_20,
			ema_5, ema_10, ema_20,
			macd, macd_signal, macd_histogram,
			stoch_k, stoch_d
		FROM technical_features FINAL
		WHERE symbol = ? AND ts_ns >= ? AND ts_ns <= ?
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query technical_features: %w", err))
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
			return nil, fmt.Errorf("scan technical_features row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate technical_features rows: %w", err))
	}
	return result, nil
}
