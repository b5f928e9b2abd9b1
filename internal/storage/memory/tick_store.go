package memory

import (
	"context"
	"sort"
	"sync"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu    sync.RWMutex
	ticks map[string][]*domain.Tick // keyed by symbol, insertion order
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{ticks: make(map[string][]*domain.Tick)}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBatch appends a batch of ticks.
func (s *TickStore) InsertBatch(_ context.Context, ticks []*domain.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ticks {
		if t == nil || !t.Valid() {
			return storage.ErrInvalidInput
		}
		tickCopy := *t
		s.ticks[t.Symbol] = append(s.ticks[t.Symbol], &tickCopy)
	}
	return nil
}

// GetByTimeRange retrieves ticks for a symbol within [start, end]
// (inclusive), ordered by timestamp ASC.
func (s *TickStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Tick
	for _, t := range s.ticks[symbol] {
		if t.TimestampNs >= start && t.TimestampNs <= end {
			tickCopy := *t
			result = append(result, &tickCopy)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampNs < result[j].TimestampNs
	})
	return result, nil
}

// Symbols lists the distinct symbols present, sorted.
func (s *TickStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ticks))
	for sym := range s.ticks {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}
