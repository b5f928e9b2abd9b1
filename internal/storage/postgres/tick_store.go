package postgres

import (
	"context"
	"fmt"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

// TickStore implements storage.TickStore using PostgreSQL.
type TickStore struct {
	pool *Pool
}

// NewTickStore creates a new TickStore.
func NewTickStore(pool *Pool) *TickStore {
	return &TickStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBatch appends a batch of ticks atomically.
func (s *TickStore) InsertBatch(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO ticks (symbol, ts_ns, price, size) VALUES ($1, $2, $3, $4)`

	for _, t := range ticks {
		if t == nil || !t.Valid() {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, t.Symbol, t.TimestampNs, t.Price, t.Size); err != nil {
			return classify(fmt.Errorf("insert tick: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// GetByTimeRange retrieves ticks for a symbol within [start, end]
// (inclusive), ordered by timestamp ASC.
func (s *TickStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Tick, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, ts_ns, price, size
		FROM ticks
		WHERE symbol = $1 AND ts_ns >= $2 AND ts_ns <= $3
		ORDER BY ts_ns ASC
	`, symbol, start, end)
	if err != nil {
		return nil, classify(fmt.Errorf("query ticks: %w", err))
	}
	defer rows.Close()

	var ticks []*domain.Tick
	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.Symbol, &t.TimestampNs, &t.Price, &t.Size); err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		ticks = append(ticks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate tick rows: %w", err))
	}
	return ticks, nil
}

// Symbols lists the distinct symbols present, sorted.
func (s *TickStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM ticks ORDER BY symbol ASC`)
	if err != nil {
		return nil, classify(fmt.Errorf("query symbols: %w", err))
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate symbol rows: %w", err))
	}
	return symbols, nil
}
