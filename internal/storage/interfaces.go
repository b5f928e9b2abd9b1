package storage

import (
	"context"

	"tick-feature-lab/internal/domain"
)

// TickStore provides access to raw trade tick storage.
type TickStore interface {
	// InsertBatch appends a batch of ticks.
	InsertBatch(ctx context.Context, ticks []*domain.Tick) error

	// GetByTimeRange retrieves ticks for a symbol within [start, end]
	// nanoseconds (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Tick, error)

	// Symbols lists the distinct symbols present, sorted.
	Symbols(ctx context.Context) ([]string, error)
}

// FeatureStore persists derived feature rows. All writes are idempotent
// upserts keyed by (timestamp, symbol): re-applying a batch yields the
// same stored state as applying it once. Transient failures are wrapped
// in RetryableError; everything else is fatal for the batch.
type FeatureStore interface {
	// EnsureTables creates the four feature tables if absent.
	EnsureTables(ctx context.Context) error

	UpsertPriceFeatures(ctx context.Context, rows []*domain.PriceFeatureRow) error
	UpsertVolumeFeatures(ctx context.Context, rows []*domain.VolumeFeatureRow) error
	UpsertMicrostructureFeatures(ctx context.Context, rows []*domain.MicrostructureFeatureRow) error
	UpsertTechnicalFeatures(ctx context.Context, rows []*domain.TechnicalFeatureRow) error

	// Reads return rows for a symbol within [start, end] nanoseconds
	// (inclusive), ordered by timestamp ASC.
	GetPriceFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceFeatureRow, error)
	GetVolumeFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.VolumeFeatureRow, error)
	GetMicrostructureFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.MicrostructureFeatureRow, error)
	GetTechnicalFeatures(ctx context.Context, symbol string, start, end int64) ([]*domain.TechnicalFeatureRow, error)
}
