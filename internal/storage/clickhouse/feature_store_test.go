package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

func TestFeatureStore_EnsureTables_Idempotent(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	// setupTestDB already ran EnsureTables once; a second pass must
	// succeed without error.
	require.NoError(t, store.EnsureTables(ctx))
}

func TestFeatureStore_UpsertPriceFeatures(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	// Empty batch is a no-op
	assert.NoError(t, store.UpsertPriceFeatures(ctx, nil))

	rows := []*domain.PriceFeatureRow{
		{
			Symbol:      "BTC-USD",
			TimestampNs: 1000,
			Price:       102.0,
			Returns1m:   0.02,
			Returns5m:   0.02,
			RSI14:       55.0,
			BBUpper:     105.0,
			BBLower:     99.0,
			BBPosition:  0.5,
		},
	}
	require.NoError(t, store.UpsertPriceFeatures(ctx, rows))

	got, err := store.GetPriceFeatures(ctx, "BTC-USD", 0, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 102.0, got[0].Price)
	assert.Equal(t, 0.02, got[0].Returns1m)
	assert.Equal(t, 55.0, got[0].RSI14)
}

func TestFeatureStore_Upsert_ReplacesExistingRow(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	first := []*domain.PriceFeatureRow{
		{Symbol: "BTC-USD", TimestampNs: 1000, Price: 100.0, Returns1m: 0.01},
	}
	require.NoError(t, store.UpsertPriceFeatures(ctx, first))

	// Rewriting the same (symbol, ts_ns) key replaces the row rather
	// than duplicating it. This is the contract the writer's retry
	// policy depends on.
	second := []*domain.PriceFeatureRow{
		{Symbol: "BTC-USD", TimestampNs: 1000, Price: 101.0, Returns1m: 0.02},
	}
	require.NoError(t, store.UpsertPriceFeatures(ctx, second))

	got, err := store.GetPriceFeatures(ctx, "BTC-USD", 1000, 1000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 101.0, got[0].Price)
	assert.Equal(t, 0.02, got[0].Returns1m)
}

func TestFeatureStore_UpsertVolumeFeatures(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	rows := []*domain.VolumeFeatureRow{
		{
			Symbol:                   "BTC-USD",
			TimestampNs:              1000,
			Volume:                   2.5,
			VWAP1m:                   101.0,
			VWAP5m:                   100.5,
			VolumeRatio5m:            1.1,
			PriceVolumeCorrelation5m: 0.3,
		},
		{
			Symbol:      "BTC-USD",
			TimestampNs: 2000,
			Volume:      3.0,
			VWAP1m:      101.5,
		},
	}
	require.NoError(t, store.UpsertVolumeFeatures(ctx, rows))

	got, err := store.GetVolumeFeatures(ctx, "BTC-USD", 0, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].TimestampNs)
	assert.Equal(t, int64(2000), got[1].TimestampNs)
	assert.Equal(t, 101.0, got[0].VWAP1m)
}

func TestFeatureStore_UpsertMicrostructureFeatures(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	rows := []*domain.MicrostructureFeatureRow{
		{
			Symbol:            "BTC-USD",
			TimestampNs:       1000,
			TradeSize:         1.5,
			TradeCount1m:      10,
			TradeCount5m:      42,
			AvgTradeSize1m:    1.2,
			AvgTradeSize5m:    1.1,
			LargeTradeRatio1m: 0.2,
			LargeTradeRatio5m: 0.25,
			TradeIntensity1m:  0.16,
			TradeIntensity5m:  0.14,
		},
	}
	require.NoError(t, store.UpsertMicrostructureFeatures(ctx, rows))

	got, err := store.GetMicrostructureFeatures(ctx, "BTC-USD", 0, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].TradeCount1m)
	assert.Equal(t, int64(42), got[0].TradeCount5m)
	assert.Equal(t, 0.2, got[0].LargeTradeRatio1m)
}

func TestFeatureStore_UpsertTechnicalFeatures(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	rows := []*domain.TechnicalFeatureRow{
		{
			Symbol:        "BTC-USD",
			TimestampNs:   1000,
			SMA5:          100.0,
			SMA10:         99.5,
			SMA20:         99.0,
			EMA5:          100.2,
			EMA10:         99.8,
			EMA20:         99.3,
			MACD:          0.5,
			MACDSignal:    0.4,
			MACDHistogram: 0.1,
			StochK:        80.0,
			StochD:        75.0,
		},
	}
	require.NoError(t, store.UpsertTechnicalFeatures(ctx, rows))

	got, err := store.GetTechnicalFeatures(ctx, "BTC-USD", 0, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].SMA5)
	assert.Equal(t, 0.1, got[0].MACDHistogram)
	assert.Equal(t, 80.0, got[0].StochK)
}

func TestFeatureStore_Upsert_InvalidRow(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	err := store.UpsertPriceFeatures(ctx, []*domain.PriceFeatureRow{
		{Symbol: "", TimestampNs: 1000},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.UpsertTechnicalFeatures(ctx, []*domain.TechnicalFeatureRow{nil})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestFeatureStore_Get_SymbolAndRangeFiltering(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureStore(conn)
	ctx := context.Background()

	rows := []*domain.PriceFeatureRow{
		{Symbol: "BTC-USD", TimestampNs: 1000, Price: 1.0},
		{Symbol: "BTC-USD", TimestampNs: 2000, Price: 2.0},
		{Symbol: "BTC-USD", TimestampNs: 3000, Price: 3.0},
		{Symbol: "ETH-USD", TimestampNs: 2000, Price: 9.0},
	}
	require.NoError(t, store.UpsertPriceFeatures(ctx, rows))

	got, err := store.GetPriceFeatures(ctx, "BTC-USD", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Price)
	assert.Equal(t, 3.0, got[1].Price)

	got, err = store.GetPriceFeatures(ctx, "ETH-USD", 0, 10_000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9.0, got[0].Price)

	got, err = store.GetPriceFeatures(ctx, "BTC-USD", 5000, 9000)
	require.NoError(t, err)
	assert.Empty(t, got)
}
