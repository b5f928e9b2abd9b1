package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage/memory"
)

func collect(t *testing.T, ch <-chan domain.Tick) []domain.Tick {
	t.Helper()
	var out []domain.Tick
	for tick := range ch {
		out = append(out, tick)
	}
	return out
}

func TestSliceSource_EmitsAllTicks(t *testing.T) {
	ticks := []domain.Tick{
		{Symbol: "BTC-USD", TimestampNs: 1000, Price: 1.0, Size: 1.0},
		{Symbol: "BTC-USD", TimestampNs: 2000, Price: 2.0, Size: 1.0},
	}
	source := NewSliceSource(ticks)

	ch, err := source.Subscribe(context.Background())
	require.NoError(t, err)

	got := collect(t, ch)
	assert.Equal(t, ticks, got)
	assert.NoError(t, source.Err())
}

func TestSliceSource_ContextCancellation(t *testing.T) {
	ticks := make([]domain.Tick, 100)
	for i := range ticks {
		ticks[i] = domain.Tick{Symbol: "BTC-USD", TimestampNs: int64(i), Price: 1.0, Size: 1.0}
	}
	source := NewSliceSource(ticks)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := source.Subscribe(ctx)
	require.NoError(t, err)

	<-ch
	cancel()

	// Channel must close once the context ends
	for range ch {
	}
}

func TestStoreSource_MergesSymbolsByTimestamp(t *testing.T) {
	store := memory.NewTickStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBatch(ctx, []*domain.Tick{
		{Symbol: "BTC-USD", TimestampNs: 1000, Price: 1.0, Size: 1.0},
		{Symbol: "BTC-USD", TimestampNs: 3000, Price: 3.0, Size: 1.0},
		{Symbol: "ETH-USD", TimestampNs: 2000, Price: 2.0, Size: 1.0},
	}))

	source := NewStoreSource(store, nil, 0, 10_000)
	ch, err := source.Subscribe(ctx)
	require.NoError(t, err)

	got := collect(t, ch)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1000), got[0].TimestampNs)
	assert.Equal(t, int64(2000), got[1].TimestampNs)
	assert.Equal(t, int64(3000), got[2].TimestampNs)
	assert.Equal(t, "ETH-USD", got[1].Symbol)
	assert.NoError(t, source.Err())
}

func TestStoreSource_SymbolAndRangeFiltering(t *testing.T) {
	store := memory.NewTickStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBatch(ctx, []*domain.Tick{
		{Symbol: "BTC-USD", TimestampNs: 1000, Price: 1.0, Size: 1.0},
		{Symbol: "BTC-USD", TimestampNs: 5000, Price: 5.0, Size: 1.0},
		{Symbol: "ETH-USD", TimestampNs: 1000, Price: 9.0, Size: 1.0},
	}))

	source := NewStoreSource(store, []string{"BTC-USD"}, 0, 2000)
	ch, err := source.Subscribe(ctx)
	require.NoError(t, err)

	got := collect(t, ch)
	require.Len(t, got, 1)
	assert.Equal(t, "BTC-USD", got[0].Symbol)
	assert.Equal(t, int64(1000), got[0].TimestampNs)
}
