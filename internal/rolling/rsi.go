package rolling

// GainLossWindow tracks price deltas over the last N ticks, split into
// gain and loss sums, for RSI. A delta exists only from the second
// price onward, so the window is full after period+1 prices.
type GainLossWindow struct {
	period int
	deltas []float64
	next   int
	filled int

	sumGain float64
	sumLoss float64

	lastPrice float64
	hasLast   bool
}

// NewGainLossWindow creates an RSI delta window of the given period.
func NewGainLossWindow(period int) *GainLossWindow {
	return &GainLossWindow{
		period: period,
		deltas: make([]float64, period),
	}
}

// Push records the next price.
func (w *GainLossWindow) Push(price float64) {
	if !w.hasLast {
		w.lastPrice = price
		w.hasLast = true
		return
	}
	d := price - w.lastPrice
	w.lastPrice = price

	if w.filled == w.period {
		old := w.deltas[w.next]
		if old > 0 {
			w.sumGain -= old
		} else {
			w.sumLoss -= -old
		}
	} else {
		w.filled++
	}
	w.deltas[w.next] = d
	w.next = (w.next + 1) % w.period
	if d > 0 {
		w.sumGain += d
	} else {
		w.sumLoss += -d
	}
}

// RSI computes 100 - 100/(1+RS) where RS is the ratio of the mean gain
// to the mean loss over the window. A zero mean loss yields exactly
// 100. Undefined until period deltas have been observed.
func (w *GainLossWindow) RSI() (float64, bool) {
	if w.filled < w.period {
		return 0, false
	}
	n := float64(w.period)
	meanLoss := w.sumLoss / n
	if meanLoss <= 0 {
		return 100, true
	}
	meanGain := w.sumGain / n
	rs := meanGain / meanLoss
	return 100 - 100/(1+rs), true
}
