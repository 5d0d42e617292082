package aggregate

import "poolScope/internal/model"

// Accumulator folds the price points of one bucket into a candle.
type Accumulator struct {
	WindowStart uint64
	Count       int

	open, high, low, close float64
	firstTS, lastTS        uint64
}

func NewAccumulator(windowStart uint64) *Accumulator {
	return &Accumulator{WindowStart: windowStart}
}

// Add folds p into the bucket. Points may arrive in any order; open and
// close follow the earliest and latest timestamps.
func (a *Accumulator) Add(p PricePoint) {
	if a.Count == 0 {
		a.open, a.high, a.low, a.close = p.Price, p.Price, p.Price, p.Price
		a.firstTS, a.lastTS = p.Timestamp, p.Timestamp
		a.Count++
		return
	}

	if p.Timestamp < a.firstTS {
		a.firstTS = p.Timestamp
		a.open = p.Price
	}
	if p.Timestamp >= a.lastTS {
		a.lastTS = p.Timestamp
		a.close = p.Price
	}
	if p.Price > a.high {
		a.high = p.Price
	}
	if p.Price < a.low {
		a.low = p.Price
	}
	a.Count++
}

// Candle returns the folded candle. ok is false for an empty bucket.
func (a *Accumulator) Candle() (model.Candle, bool) {
	if a == nil || a.Count == 0 {
		return model.Candle{}, false
	}
	return model.Candle{
		Timestamp: int64(a.WindowStart),
		Open:      a.open,
		High:      a.high,
		Low:       a.low,
		Close:     a.close,
	}, true
}
