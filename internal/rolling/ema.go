package rolling

// EMA is an exponentially weighted moving average with smoothing
// constant alpha = 2/(span+1). The first observed value seeds the
// average directly, with no warm-up bias correction.
type EMA struct {
	alpha  float64
	value  float64
	primed bool
}

// NewEMA creates an EMA with the given span.
func NewEMA(span int) *EMA {
	return &EMA{alpha: 2.0 / (float64(span) + 1.0)}
}

// Update folds a value into the average and returns the new value.
func (e *EMA) Update(v float64) float64 {
	if !e.primed {
		e.value = v
		e.primed = true
		return v
	}
	e.value = e.alpha*v + (1-e.alpha)*e.value
	return e.value
}

// Value returns the current average; false before the first update.
func (e *EMA) Value() (float64, bool) {
	return e.value, e.primed
}
