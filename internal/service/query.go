package service

import (
	"fmt"

	"poolScope/internal/aggregate"
	"poolScope/internal/config"
	"poolScope/internal/model"
)

// Query selects a pool (or "all"), an optional candle interval and limit,
// and an optional historical height.
type Query struct {
	Pool     string
	Interval string
	Limit    int
	Height   *uint64
}

// IsAll reports whether the query selects every pool.
func (q Query) IsAll() bool {
	return q.Pool == config.AllPools
}

type candleQuery struct {
	interval aggregate.Interval
	limit    int
}

func (s *Service) resolvePool(q Query) (model.PoolIdentity, error) {
	if q.Pool == "" {
		return model.PoolIdentity{}, fmt.Errorf("%w: pool is required", model.ErrValidation)
	}
	return s.pools.Lookup(q.Pool)
}

func parseCandleQuery(q Query) (candleQuery, error) {
	interval, err := aggregate.ParseInterval(q.Interval)
	if err != nil {
		return candleQuery{}, err
	}
	return candleQuery{interval: interval, limit: aggregate.ClampLimit(q.Limit)}, nil
}
