// Package service answers pool queries from cache or by sampling the
// remote query service.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"poolScope/internal/cache"
	"poolScope/internal/config"
	"poolScope/internal/model"
	"poolScope/internal/observability"
	"poolScope/internal/pricing"
	"poolScope/internal/sampler"
)

// Remote is the subset of the chain client the service calls directly.
type Remote interface {
	sampler.Remote
	CurrentHeight(ctx context.Context) (uint64, error)
}

// Settings tunes the candle pipeline and cache lifetimes.
type Settings struct {
	CacheTTL         time.Duration
	MetricsTTL       time.Duration
	BlockTime        time.Duration
	SamplesPerCandle int
	// ComputeTimeout bounds a shared cache-miss computation. Defaults to DefaultComputeTimeout.
	ComputeTimeout time.Duration
}

// DefaultComputeTimeout matches the default request budget.
const DefaultComputeTimeout = 60 * time.Second

// Deps are the collaborators of a Service. Fiat may be nil, in which case
// PriceMetrics reports a validation error.
type Deps struct {
	Pools       *config.PoolTable
	Remote      Remote
	Sampler     sampler.Strategy
	Cache       cache.Cache
	Fiat        pricing.FiatSource
	PriceInputs pricing.Inputs
	Metrics     *observability.Metrics
}

// Service is safe for concurrent use.
type Service struct {
	pools    *config.PoolTable
	remote   Remote
	sampler  sampler.Strategy
	cache    cache.Cache
	prices   *pricing.Calculator
	settings Settings
	metrics  *observability.Metrics
	logger   *zap.Logger

	group singleflight.Group
}

func New(deps Deps, settings Settings, logger *zap.Logger) (*Service, error) {
	if deps.Pools == nil {
		return nil, fmt.Errorf("pool table is nil")
	}
	if deps.Remote == nil {
		return nil, fmt.Errorf("remote client is nil")
	}
	if deps.Sampler == nil {
		return nil, fmt.Errorf("sampler is nil")
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if settings.BlockTime <= 0 {
		return nil, fmt.Errorf("block time must be > 0")
	}
	if settings.SamplesPerCandle <= 0 {
		return nil, fmt.Errorf("samples per candle must be > 0")
	}
	if settings.ComputeTimeout <= 0 {
		settings.ComputeTimeout = DefaultComputeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		pools:    deps.Pools,
		remote:   deps.Remote,
		sampler:  deps.Sampler,
		cache:    deps.Cache,
		settings: settings,
		metrics:  deps.Metrics,
		logger:   logger,
	}
	if deps.Fiat != nil {
		s.prices = pricing.NewCalculator(s, deps.Fiat, deps.PriceInputs, logger)
	}
	return s, nil
}

// Pools returns the configured pools.
func (s *Service) Pools() []model.PoolIdentity {
	return s.pools.All()
}

// CurrentHeight reports the remote service's latest height.
func (s *Service) CurrentHeight(ctx context.Context) (uint64, error) {
	return s.remote.CurrentHeight(ctx)
}

// PriceMetrics returns the cross-asset price comparison.
func (s *Service) PriceMetrics(ctx context.Context) (Result[model.PriceMetrics], error) {
	if s.prices == nil {
		return Result[model.PriceMetrics]{}, fmt.Errorf("%w: price metrics are not configured", model.ErrValidation)
	}
	return cached(ctx, s, kindMetrics, cache.PriceMetricsKey(), s.settings.MetricsTTL, s.prices.Compute)
}

// PoolRate returns the current price of a pool. It implements
// pricing.RateSource and bypasses the cache.
func (s *Service) PoolRate(ctx context.Context, poolKey string) (float64, error) {
	pool, err := s.pools.Lookup(poolKey)
	if err != nil {
		return 0, err
	}
	detail, err := s.poolDetail(ctx, pool, nil)
	if err != nil {
		return 0, err
	}
	return detail.Price, nil
}
