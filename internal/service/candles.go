package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/aggregate"
	"poolScope/internal/cache"
	"poolScope/internal/config"
	"poolScope/internal/model"
	"poolScope/internal/sampler"
)

// Candles returns the candle series of one pool.
func (s *Service) Candles(ctx context.Context, q Query) (Result[model.CandleSeries], error) {
	pool, err := s.resolvePool(q)
	if err != nil {
		return Result[model.CandleSeries]{}, err
	}
	cq, err := parseCandleQuery(q)
	if err != nil {
		return Result[model.CandleSeries]{}, err
	}

	key := cache.CandlesKey(pool.Key, cq.interval.String(), cq.limit, q.Height)
	res, err := cached(ctx, s, kindCandles, key, s.settings.CacheTTL, func(ctx context.Context) (model.CandleSeries, error) {
		return s.candleSeries(ctx, pool, cq, q.Height)
	})
	if err != nil {
		return res, err
	}
	res.Data = normalizeSeries(res.Data)
	return res, nil
}

// AllCandles returns the candle series of every configured pool, in pool
// table order. One failing pool fails the whole result.
func (s *Service) AllCandles(ctx context.Context, q Query) (Result[[]model.CandleSeries], error) {
	cq, err := parseCandleQuery(q)
	if err != nil {
		return Result[[]model.CandleSeries]{}, err
	}

	key := cache.CandlesKey(config.AllPools, cq.interval.String(), cq.limit, q.Height)
	res, err := cached(ctx, s, kindCandles, key, s.settings.CacheTTL, func(ctx context.Context) ([]model.CandleSeries, error) {
		end, err := s.endHeight(ctx, q.Height)
		if err != nil {
			return nil, err
		}
		pools := s.pools.All()
		out := make([]model.CandleSeries, len(pools))
		g, gctx := errgroup.WithContext(ctx)
		for i, pool := range pools {
			g.Go(func() error {
				series, err := s.candleSeries(gctx, pool, cq, &end)
				if err != nil {
					return fmt.Errorf("pool %s: %w", pool.Key, err)
				}
				out[i] = normalizeSeries(series)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return res, err
	}
	// res.Data may be shared with coalesced callers; normalise into a fresh slice.
	series := make([]model.CandleSeries, len(res.Data))
	for i := range res.Data {
		series[i] = normalizeSeries(res.Data[i])
	}
	res.Data = series
	return res, nil
}

func (s *Service) candleSeries(ctx context.Context, pool model.PoolIdentity, cq candleQuery, height *uint64) (model.CandleSeries, error) {
	end, err := s.endHeight(ctx, height)
	if err != nil {
		return model.CandleSeries{}, err
	}

	r := CandleRange(end, cq.interval, cq.limit, s.settings)
	sample, err := s.sampler.Run(ctx, pool, r)
	if err != nil {
		return model.CandleSeries{}, err
	}
	if len(sample.Failures) > 0 {
		s.logger.Info("heights dropped from candle sample",
			zap.String("pool", pool.Key),
			zap.Int("dropped", len(sample.Failures)),
			zap.Int("sampled", len(sample.Snapshots)),
		)
	}

	points := aggregate.PricePoints(sample.Snapshots, pool, s.logger)
	return model.CandleSeries{
		Pool:          pool.Key,
		PoolID:        pool.PoolID,
		Interval:      cq.interval.String(),
		CurrentHeight: end,
		Candles:       aggregate.BuildCandles(points, cq.interval, cq.limit),
	}, nil
}

func (s *Service) endHeight(ctx context.Context, height *uint64) (uint64, error) {
	if height != nil {
		return *height, nil
	}
	return s.remote.CurrentHeight(ctx)
}

// CandleRange picks the heights sampled for limit candles ending at end.
// Each candle gets SamplesPerCandle evenly spaced samples; the start is
// clamped at height 0.
func CandleRange(end uint64, interval aggregate.Interval, limit int, settings Settings) sampler.Range {
	blockSeconds := uint64(settings.BlockTime.Seconds())
	if blockSeconds == 0 {
		blockSeconds = 1
	}
	blocksPerInterval := interval.Seconds() / blockSeconds
	if blocksPerInterval == 0 {
		blocksPerInterval = 1
	}
	samples := uint64(settings.SamplesPerCandle)
	if samples == 0 {
		samples = 1
	}
	stride := blocksPerInterval / samples
	if stride == 0 {
		stride = 1
	}

	var start uint64
	total := samples * uint64(limit)
	if total > 0 {
		span := stride * (total - 1)
		if span < end {
			start = end - span
		}
	} else {
		start = end
	}
	return sampler.Range{Start: start, End: end, Stride: stride}
}

func normalizeSeries(series model.CandleSeries) model.CandleSeries {
	if series.Candles == nil {
		series.Candles = []model.Candle{}
	}
	return series
}
