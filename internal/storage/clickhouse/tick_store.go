package clickhouse

import (
	"context"
	"fmt"

	"tick-feature-lab/internal/domain"
	"tick-feature-lab/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBatch appends a batch of ticks.
func (s *TickStore) InsertBatch(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO ticks (symbol, ts_ns, price, size)`)
	if err != nil {
		return classify(fmt.Errorf("prepare ticks batch: %w", err))
	}

	for _, t := range ticks {
		if t == nil || !t.Valid() {
			return storage.ErrInvalidInput
		}
		if err := batch.Append(t.Symbol, t.TimestampNs, t.Price, t.Size); err != nil {
			return fmt.Errorf("append tick: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return classify(fmt.Errorf("send ticks batch: %w", err))
	}
	return nil
}

// GetByTimeRange retrieves ticks for a symbol within [start, end]
// (inclusive), ordered by timestamp ASC.
func (s *TickStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Tick, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT symbol, ts_ns, price, size
		FROM ticks
		WHERE symbol = ? AND ts_ns >= ? AND ts_ns <= ?
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
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM ticks ORDER BY symbol ASC`)
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
