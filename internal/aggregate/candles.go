package aggregate

import (
	"sort"

	"go.uber.org/zap"

	"poolScope/internal/dex"
	"poolScope/internal/model"
)

const (
	DefaultLimit = 30
	MaxLimit     = 100
)

// PricePoint is a timestamped price.
type PricePoint struct {
	Timestamp uint64
	Price     float64
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// PricePoints prices each snapshot with the pool's decimals. Snapshots
// without a timestamp or with an undefined price are skipped.
func PricePoints(snapshots []model.PoolSnapshot, pool model.PoolIdentity, logger *zap.Logger) []PricePoint {
	if logger == nil {
		logger = zap.NewNop()
	}

	points := make([]PricePoint, 0, len(snapshots))
	var skipped int
	for _, snap := range snapshots {
		if !snap.HasTimestamp() {
			skipped++
			continue
		}
		price, err := dex.Price(snap.Reserve0, snap.Reserve1, pool.Decimals0, pool.Decimals1)
		if err != nil {
			skipped++
			continue
		}
		points = append(points, PricePoint{Timestamp: *snap.Timestamp, Price: price})
	}
	if skipped > 0 {
		logger.Debug("price points skipped", zap.String("pool", pool.Key), zap.Int("skipped", skipped))
	}
	return points
}

// BuildCandles buckets points by interval and keeps the most recent limit
// candles in ascending order. The result is never nil.
func BuildCandles(points []PricePoint, interval Interval, limit int) []model.Candle {
	candles := make([]model.Candle, 0)
	width := interval.Seconds()
	if width == 0 || len(points) == 0 || limit <= 0 {
		return candles
	}

	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	var acc *Accumulator
	for _, p := range sorted {
		start := windowStart(p.Timestamp, width)
		if acc != nil && acc.WindowStart != start {
			if candle, ok := acc.Candle(); ok {
				candles = append(candles, candle)
			}
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(start)
		}
		acc.Add(p)
	}
	if candle, ok := acc.Candle(); ok {
		candles = append(candles, candle)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles
}
