package domain

import "time"

// Tick represents a single trade event for one instrument.
// Corresponds to the ticks table in ClickHouse.
type Tick struct {
	TimestampNs int64   // Unix timestamp in nanoseconds
	Symbol      string  // instrument identifier
	Price       float64 // trade price, must be positive
	Size        float64 // trade size, must be non-negative
}

// Time returns the tick timestamp as time.Time.
func (t Tick) Time() time.Time {
	return time.Unix(0, t.TimestampNs)
}

// Valid reports whether the tick carries a usable payload.
// Ordering is enforced separately by the rolling engine.
func (t Tick) Valid() bool {
	return t.Symbol != "" && t.Price > 0 && t.Size >= 0
}
