package rolling

import "math"

// point is one tick inside a time window.
type point struct {
	ts    int64
	price float64
	size  float64
}

// retObs is a returns observation used for rolling volatility.
type retObs struct {
	ts int64
	r  float64
}

// TimeWindow maintains the set of ticks whose timestamp lies within
// [now-horizon, now] for a single symbol, together with incrementally
// maintained aggregates. Insertion is amortized O(1); eviction is O(k)
// for k expired ticks. Aggregates are never recomputed from scratch.
//
// Not safe for concurrent use; the engine serializes access per symbol.
type TimeWindow struct {
	horizon int64 // ns

	pts  []point // live ticks are pts[head:]
	head int

	count        int
	sumPrice     float64
	sumPriceSq   float64
	sumSize      float64
	sumSizeSq    float64
	sumPriceSize float64

	// Monotonic deques over price for O(1) amortized extrema.
	minQ []point
	maxQ []point

	// lastEvicted is the most recent tick pushed out of the trailing
	// edge. Together with any in-window tick at exactly now-horizon it
	// anchors returns over the full horizon.
	lastEvicted    point
	hasLastEvicted bool

	// Returns observed at each in-window tick, for rolling volatility.
	rets     []retObs
	retHead  int
	retSum   float64
	retSumSq float64

	largeThreshold float64
	hasThreshold   bool
	largeCount     int

	now int64
}

// NewTimeWindow creates a window over the given trailing horizon in
// nanoseconds.
func NewTimeWindow(horizonNs int64) *TimeWindow {
	return &TimeWindow{horizon: horizonNs}
}

// Advance inserts a tick and evicts everything older than ts-horizon.
// Ticks must arrive in non-decreasing timestamp order.
func (w *TimeWindow) Advance(ts int64, price, size float64) {
	w.now = ts
	cutoff := ts - w.horizon

	w.evict(cutoff)

	// Insert the new tick.
	w.pts = append(w.pts, point{ts: ts, price: price, size: size})
	w.count++
	w.sumPrice += price
	w.sumPriceSq += price * price
	w.sumSize += size
	w.sumSizeSq += size * size
	w.sumPriceSize += price * size
	if w.hasThreshold && size > w.largeThreshold {
		w.largeCount++
	}

	// Maintain extrema deques.
	for len(w.minQ) > 0 && w.minQ[len(w.minQ)-1].price >= price {
		w.minQ = w.minQ[:len(w.minQ)-1]
	}
	w.minQ = append(w.minQ, point{ts: ts, price: price})
	for len(w.maxQ) > 0 && w.maxQ[len(w.maxQ)-1].price <= price {
		w.maxQ = w.maxQ[:len(w.maxQ)-1]
	}
	w.maxQ = append(w.maxQ, point{ts: ts, price: price})

	// Record this tick's horizon return for rolling volatility.
	if r, ok := w.Returns(); ok {
		w.rets = append(w.rets, retObs{ts: ts, r: r})
		w.retSum += r
		w.retSumSq += r * r
	}
}

// evict removes ticks with ts < cutoff from the trailing edge,
// subtracting their contribution from every aggregate.
func (w *TimeWindow) evict(cutoff int64) {
	for w.count > 0 && w.pts[w.head].ts < cutoff {
		p := w.pts[w.head]
		w.sumPrice -= p.price
		w.sumPriceSq -= p.price * p.price
		w.sumSize -= p.size
		w.sumSizeSq -= p.size * p.size
		w.sumPriceSize -= p.price * p.size
		if w.hasThreshold && p.size > w.largeThreshold {
			w.largeCount--
		}
		w.lastEvicted = p
		w.hasLastEvicted = true
		w.head++
		w.count--
	}
	if w.head > 64 && w.head > len(w.pts)/2 {
		w.pts = append(w.pts[:0:0], w.pts[w.head:]...)
		w.head = 0
	}

	for len(w.minQ) > 0 && w.minQ[0].ts < cutoff {
		w.minQ = w.minQ[1:]
	}
	for len(w.maxQ) > 0 && w.maxQ[0].ts < cutoff {
		w.maxQ = w.maxQ[1:]
	}

	for w.retHead < len(w.rets) && w.rets[w.retHead].ts < cutoff {
		o := w.rets[w.retHead]
		w.retSum -= o.r
		w.retSumSq -= o.r * o.r
		w.retHead++
	}
	if w.retHead > 64 && w.retHead > len(w.rets)/2 {
		w.rets = append(w.rets[:0:0], w.rets[w.retHead:]...)
		w.retHead = 0
	}
}

// ref returns the latest tick at or before now-horizon: the last
// evicted tick, unless an in-window tick sits exactly on the boundary.
func (w *TimeWindow) ref() (point, bool) {
	cutoff := w.now - w.horizon
	p, ok := w.lastEvicted, w.hasLastEvicted
	for i := w.head; i < len(w.pts) && w.pts[i].ts <= cutoff; i++ {
		p, ok = w.pts[i], true
	}
	return p, ok
}

// last returns the most recent tick in the window.
func (w *TimeWindow) last() (point, bool) {
	if w.count == 0 {
		return point{}, false
	}
	return w.pts[len(w.pts)-1], true
}

// Count returns the number of ticks currently in the window.
func (w *TimeWindow) Count() int { return w.count }

// SumSize returns the total traded size in the window.
func (w *TimeWindow) SumSize() float64 { return w.sumSize }

// Returns computes (price_t - price_{t-h}) / price_{t-h}. Undefined
// until a tick at or before now-horizon has been observed.
func (w *TimeWindow) Returns() (float64, bool) {
	cur, ok := w.last()
	if !ok {
		return 0, false
	}
	ref, ok := w.ref()
	if !ok || ref.price <= 0 {
		return 0, false
	}
	return (cur.price - ref.price) / ref.price, true
}

// LogReturns computes ln(price_t / price_{t-h}).
func (w *TimeWindow) LogReturns() (float64, bool) {
	cur, ok := w.last()
	if !ok {
		return 0, false
	}
	ref, ok := w.ref()
	if !ok || ref.price <= 0 || cur.price <= 0 {
		return 0, false
	}
	return math.Log(cur.price / ref.price), true
}

// Volatility is the sample standard deviation of the horizon returns
// observed at each in-window tick. Undefined with fewer than two
// observations.
func (w *TimeWindow) Volatility() (float64, bool) {
	n := len(w.rets) - w.retHead
	if n < 2 {
		return 0, false
	}
	fn := float64(n)
	mean := w.retSum / fn
	variance := (w.retSumSq - fn*mean*mean) / (fn - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), true
}

// VWAP is Σ(price·size) / Σ(size). Undefined on zero volume.
func (w *TimeWindow) VWAP() (float64, bool) {
	if w.count == 0 || w.sumSize <= 0 {
		return 0, false
	}
	return w.sumPriceSize / w.sumSize, true
}

// MeanSize is the average trade size in the window.
func (w *TimeWindow) MeanSize() (float64, bool) {
	if w.count == 0 {
		return 0, false
	}
	return w.sumSize / float64(w.count), true
}

// VolumeMomentum computes (size_t - size_{t-h}) / size_{t-h}.
func (w *TimeWindow) VolumeMomentum() (float64, bool) {
	cur, ok := w.last()
	if !ok {
		return 0, false
	}
	ref, ok := w.ref()
	if !ok || ref.size <= 0 {
		return 0, false
	}
	return (cur.size - ref.size) / ref.size, true
}

// VolumeRatio is the current trade size over the rolling mean size.
func (w *TimeWindow) VolumeRatio() (float64, bool) {
	cur, ok := w.last()
	if !ok {
		return 0, false
	}
	mean, ok := w.MeanSize()
	if !ok || mean <= 0 {
		return 0, false
	}
	return cur.size / mean, true
}

// PriceVolumeCorrelation is the Pearson correlation between price and
// size over the window, from the incremental covariance decomposition.
// Undefined with fewer than two ticks or when either variance is zero.
func (w *TimeWindow) PriceVolumeCorrelation() (float64, bool) {
	if w.count < 2 {
		return 0, false
	}
	n := float64(w.count)
	cov := w.sumPriceSize - w.sumPrice*w.sumSize/n
	varP := w.sumPriceSq - w.sumPrice*w.sumPrice/n
	varS := w.sumSizeSq - w.sumSize*w.sumSize/n
	if varP <= 0 || varS <= 0 {
		return 0, false
	}
	return cov / math.Sqrt(varP*varS), true
}

// MinPrice returns the lowest price in the window.
func (w *TimeWindow) MinPrice() (float64, bool) {
	if len(w.minQ) == 0 {
		return 0, false
	}
	return w.minQ[0].price, true
}

// MaxPrice returns the highest price in the window.
func (w *TimeWindow) MaxPrice() (float64, bool) {
	if len(w.maxQ) == 0 {
		return 0, false
	}
	return w.maxQ[0].price, true
}

// SetLargeThreshold fixes the large-trade size threshold and rebuilds
// the large-trade count for ticks already in the window. Threshold
// updates are rare (once per batch), so the O(window) rescan is fine.
func (w *TimeWindow) SetLargeThreshold(threshold float64) {
	w.largeThreshold = threshold
	w.hasThreshold = true
	w.largeCount = 0
	for i := w.head; i < len(w.pts); i++ {
		if w.pts[i].size > threshold {
			w.largeCount++
		}
	}
}

// LargeTradeRatio is the fraction of in-window ticks whose size exceeds
// the configured threshold. Undefined until a threshold is set.
func (w *TimeWindow) LargeTradeRatio() (float64, bool) {
	if !w.hasThreshold || w.count == 0 {
		return 0, false
	}
	return float64(w.largeCount) / float64(w.count), true
}

// TradeIntensity is the number of in-window ticks per second of
// horizon.
func (w *TimeWindow) TradeIntensity() float64 {
	return float64(w.count) / (float64(w.horizon) / 1e9)
}
