package domain

import "time"

// Rolling window horizons. All derived features are computed over the
// trailing time span [now-horizon, now], inclusive on both edges.
const (
	Horizon1m  = 1 * time.Minute
	Horizon5m  = 5 * time.Minute
	Horizon15m = 15 * time.Minute
	Horizon1h  = 1 * time.Hour
)

// Horizons lists all configured horizons in ascending order.
var Horizons = []time.Duration{Horizon1m, Horizon5m, Horizon15m, Horizon1h}

// Count-based indicator periods.
const (
	SMAPeriodShort  = 5
	SMAPeriodMedium = 10
	SMAPeriodLong   = 20

	RSIPeriod = 14

	BollingerMultiplier = 2.0

	MACDFastSpan   = 12
	MACDSlowSpan   = 26
	MACDSignalSpan = 9

	StochasticPeriod  = 14
	StochasticDPeriod = 3
)
