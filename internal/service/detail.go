package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"poolScope/internal/cache"
	"poolScope/internal/config"
	"poolScope/internal/dex"
	"poolScope/internal/model"
)

// PoolDetail returns the reserves and prices of one pool at the requested
// or current height.
func (s *Service) PoolDetail(ctx context.Context, q Query) (Result[model.PoolDetail], error) {
	pool, err := s.resolvePool(q)
	if err != nil {
		return Result[model.PoolDetail]{}, err
	}
	key := cache.PoolDetailKey(pool.Key, q.Height)
	return cached(ctx, s, kindPool, key, s.settings.CacheTTL, func(ctx context.Context) (model.PoolDetail, error) {
		return s.poolDetail(ctx, pool, q.Height)
	})
}

// AllPoolDetails returns the detail of every configured pool at one height.
func (s *Service) AllPoolDetails(ctx context.Context, q Query) (Result[[]model.PoolDetail], error) {
	key := cache.PoolDetailKey(config.AllPools, q.Height)
	return cached(ctx, s, kindPool, key, s.settings.CacheTTL, func(ctx context.Context) ([]model.PoolDetail, error) {
		height, err := s.endHeight(ctx, q.Height)
		if err != nil {
			return nil, err
		}
		pools := s.pools.All()
		out := make([]model.PoolDetail, len(pools))
		g, gctx := errgroup.WithContext(ctx)
		for i, pool := range pools {
			g.Go(func() error {
				detail, err := s.poolDetail(gctx, pool, &height)
				if err != nil {
					return fmt.Errorf("pool %s: %w", pool.Key, err)
				}
				out[i] = detail
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (s *Service) poolDetail(ctx context.Context, pool model.PoolIdentity, height *uint64) (model.PoolDetail, error) {
	at, err := s.endHeight(ctx, height)
	if err != nil {
		return model.PoolDetail{}, err
	}

	res, err := s.remote.SimulateAt(ctx, at, pool.CallData)
	if err != nil {
		return model.PoolDetail{}, err
	}
	if !res.OK() {
		return model.PoolDetail{}, fmt.Errorf("simulate %s at %d: %w", pool.Key, at, res.Err)
	}
	reserves, err := dex.DecodeReserves(res.Hex)
	if err != nil {
		return model.PoolDetail{}, fmt.Errorf("pool %s at %d: %w", pool.Key, at, err)
	}

	price, err := dex.Price(reserves.Reserve0, reserves.Reserve1, pool.Decimals0, pool.Decimals1)
	if err != nil {
		return model.PoolDetail{}, fmt.Errorf("pool %s at %d: %w", pool.Key, at, err)
	}
	inverse, err := dex.PriceInverse(reserves.Reserve0, reserves.Reserve1, pool.Decimals0, pool.Decimals1)
	if err != nil {
		return model.PoolDetail{}, fmt.Errorf("pool %s at %d: %w", pool.Key, at, err)
	}

	return model.PoolDetail{
		PoolID:       pool.PoolID,
		PoolName:     pool.Name,
		Price:        price,
		PriceInverse: inverse,
		Reserve0:     reserves.Reserve0.String(),
		Reserve1:     reserves.Reserve1.String(),
		BlockHeight:  at,
	}, nil
}
