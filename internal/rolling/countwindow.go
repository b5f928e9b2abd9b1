package rolling

import "math"

// seqVal pairs a value with its push sequence number, for eviction from
// the extrema deques.
type seqVal struct {
	seq int64
	v   float64
}

// CountWindow maintains aggregates over the last N pushed values using
// a ring buffer. Mean, standard deviation and extrema are defined only
// once the window is full, matching the warm-up behavior of row-count
// rolling statistics.
type CountWindow struct {
	period int
	vals   []float64
	next   int
	filled int
	seq    int64

	sum   float64
	sumSq float64

	minQ []seqVal
	maxQ []seqVal
}

// NewCountWindow creates a window over the last period values.
func NewCountWindow(period int) *CountWindow {
	return &CountWindow{
		period: period,
		vals:   make([]float64, period),
	}
}

// Push inserts a value, evicting the oldest once the window is full.
func (w *CountWindow) Push(v float64) {
	if w.filled == w.period {
		old := w.vals[w.next]
		w.sum -= old
		w.sumSq -= old * old
	} else {
		w.filled++
	}
	w.vals[w.next] = v
	w.next = (w.next + 1) % w.period
	w.sum += v
	w.sumSq += v * v
	w.seq++

	expired := w.seq - int64(w.period)
	for len(w.minQ) > 0 && w.minQ[0].seq <= expired {
		w.minQ = w.minQ[1:]
	}
	for len(w.maxQ) > 0 && w.maxQ[0].seq <= expired {
		w.maxQ = w.maxQ[1:]
	}
	for len(w.minQ) > 0 && w.minQ[len(w.minQ)-1].v >= v {
		w.minQ = w.minQ[:len(w.minQ)-1]
	}
	w.minQ = append(w.minQ, seqVal{seq: w.seq, v: v})
	for len(w.maxQ) > 0 && w.maxQ[len(w.maxQ)-1].v <= v {
		w.maxQ = w.maxQ[:len(w.maxQ)-1]
	}
	w.maxQ = append(w.maxQ, seqVal{seq: w.seq, v: v})
}

// Full reports whether the window holds period values.
func (w *CountWindow) Full() bool { return w.filled == w.period }

// Mean returns the window average once full.
func (w *CountWindow) Mean() (float64, bool) {
	if !w.Full() {
		return 0, false
	}
	return w.sum / float64(w.period), true
}

// Std returns the sample (N-1) standard deviation once full.
func (w *CountWindow) Std() (float64, bool) {
	if !w.Full() || w.period < 2 {
		return 0, false
	}
	n := float64(w.period)
	mean := w.sum / n
	variance := (w.sumSq - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), true
}

// Min returns the smallest value in the window once full.
func (w *CountWindow) Min() (float64, bool) {
	if !w.Full() || len(w.minQ) == 0 {
		return 0, false
	}
	return w.minQ[0].v, true
}

// Max returns the largest value in the window once full.
func (w *CountWindow) Max() (float64, bool) {
	if !w.Full() || len(w.maxQ) == 0 {
		return 0, false
	}
	return w.maxQ[0].v, true
}
