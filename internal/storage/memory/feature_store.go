package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
// Upsert semantics fall out of map assignment: the last write for a
// (timestamp, symbol) key wins.
type FeatureStore struct {
	mu             sync.RWMutex
	price          map[string]*domain.PriceFeatureRow
	volume         map[string]*domain.VolumeFeatureRow
	microstructure map[string]*domain.MicrostructureFeatureRow
	technical      map[string]*domain.TechnicalFeatureRow
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{
		price:          make(map[string]*domain.PriceFeatureRow),
		volume:         make(map[string]*domain.VolumeFeatureRow),
		microstructure: make(map[string]*domain.MicrostructureFeatureRow),
		technical:      make(map[string]*domain.TechnicalFeatureRow),
	}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// rowKey generates the upsert key for a feature row.
func rowKey(symbol string, timestampNs int64) string {
	return fmt.Sprintf("%s|%d", symbol, timestampNs)
}

// EnsureTables is a no-op for the in-memory store.
func (s *FeatureStore) EnsureTables(_ context.Context) error { return nil }

// UpsertPriceFeatures inserts or replaces price feature rows.
func (s *FeatureStore) UpsertPriceFeatures(_ context.Context, rows []*domain.PriceFeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		rowCopy := *r
		s.price[rowKey(r.Symbol, r.TimestampNs)] = &rowCopy
	}
	return nil
}

// UpsertVolumeFeatures inserts or replaces volume feature rows.
func (s *FeatureStore) UpsertVolumeFeatures(_ context.Context, rows []*domain.VolumeFeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		rowCopy := *r
		s.volume[rowKey(r.Symbol, r.TimestampNs)] = &rowCopy
	}
	return nil
}

// UpsertMicrostructureFeatures inserts or replaces microstructure rows.
func (s *FeatureStore) UpsertMicrostructureFeatures(_ context.Context, rows []*domain.MicrostructureFeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		rowCopy := *r
		s.microstructure[rowKey(r.Symbol, r.TimestampNs)] = &rowCopy
	}
	return nil
}

// UpsertTechnicalFeatures inserts or replaces technical rows.
func (s *FeatureStore) UpsertTechnicalFeatures(_ context.Context, rows []*domain.TechnicalFeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		rowCopy := *r
		s.technical[rowKey(r.Symbol, r.TimestampNs)] = &rowCopy
	}
	return nil
}

// GetPriceFeatures retrieves price rows for a symbol within [start,
// end], ordered by timestamp ASC.
func (s *FeatureStore) GetPriceFeatures(_ context.Context, symbol string, start, end int64) ([]*domain.PriceFeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceFeatureRow
	for _, r := range s.price {
		if r.Symbol == symbol && r.TimestampNs >= start && r.TimestampNs <= end {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampNs < result[j].TimestampNs
	})
	return result, nil
}

// GetVolumeFeatures retrieves volume rows for a symbol within [start,
// end], ordered by timestamp ASC.
func (s *FeatureStore) GetVolumeFeatures(_ context.Context, symbol string, start, end int64) ([]*domain.VolumeFeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VolumeFeatureRow
	for _, r := range s.volume {
		if r.Symbol == symbol && r.TimestampNs >= start && r.TimestampNs <= end {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampNs < result[j].TimestampNs
	})
	return result, nil
}

// GetMicrostructureFeatures retrieves microstructure rows for a symbol
// within [start, end], ordered by timestamp ASC.
func (s *FeatureStore) GetMicrostructureFeatures(_ context.Context, symbol string, start, end int64) ([]*domain.MicrostructureFeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MicrostructureFeatureRow
	for _, r := range s.microstructure {
		if r.Symbol == symbol && r.TimestampNs >= start && r.TimestampNs <= end {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampNs < result[j].TimestampNs
	})
	return result, nil
}

// GetTechnicalFeatures retrieves technical rows for a symbol within
// [start, end], ordered by timestamp ASC.
func (s *FeatureStore) GetTechnicalFeatures(_ context.Context, symbol string, start, end int64) ([]*domain.TechnicalFeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TechnicalFeatureRow
	for _, r := range s.technical {
		if r.Symbol == symbol && r.TimestampNs >= start && r.TimestampNs <= end {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampNs < result[j].TimestampNs
	})
	return result, nil
}
