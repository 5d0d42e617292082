package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"poolScope/internal/cache"
	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/observability"
	"poolScope/internal/pricing"
	"poolScope/internal/sampler"
	"poolScope/internal/service"
)

func connectChain(ctx context.Context, cfg config.Config, metrics *observability.Metrics) (*chain.Client, error) {
	client, err := chain.NewClient(ctx, cfg.RPCURL,
		chain.WithMetrics(metrics),
		chain.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
	)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

func newStrategy(cfg config.Config, client *chain.Client, metrics *observability.Metrics, logger *zap.Logger) (sampler.Strategy, error) {
	if cfg.SamplingMode != config.SamplingScript {
		return sampler.New(client, cfg.Concurrency, metrics, logger), nil
	}
	program, err := os.ReadFile(cfg.ScriptFile)
	if err != nil {
		return nil, fmt.Errorf("read script file: %w", err)
	}
	return sampler.NewScript(client, string(program), metrics, logger), nil
}

func newCache(ctx context.Context, cfg config.ServiceConfig) (cache.Cache, func(), error) {
	if cfg.CacheBackend != config.CacheRedis {
		return cache.NewMemory(), func() {}, nil
	}
	rc, err := cache.DialRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return rc, func() { _ = rc.Close() }, nil
}

// newService wires a query service and returns a cleanup func that releases
// the remote connection and the cache.
func newService(ctx context.Context, cfg config.ServiceConfig, metrics *observability.Metrics, logger *zap.Logger) (*service.Service, func(), error) {
	pools, err := config.LoadPools(cfg.PoolsFile)
	if err != nil {
		return nil, nil, err
	}

	client, err := connectChain(ctx, cfg.Config, metrics)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := newStrategy(cfg.Config, client, metrics, logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	store, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	deps := service.Deps{
		Pools:   pools,
		Remote:  client,
		Sampler: strategy,
		Cache:   store,
		Metrics: metrics,
		PriceInputs: pricing.Inputs{
			PoolA:       cfg.MetricsPoolA,
			PoolB:       cfg.MetricsPoolB,
			FiatAssetID: cfg.MetricsFiatID,
		},
	}
	if cfg.FiatURL != "" {
		deps.Fiat = pricing.NewHTTPFiatSource(cfg.FiatURL,
			pricing.WithFiatRetry(cfg.MaxRetries, cfg.RetryBackoff),
			pricing.WithFiatLogger(logger),
		)
	}

	svc, err := service.New(deps, service.Settings{
		CacheTTL:         cfg.CacheTTL,
		MetricsTTL:       cfg.MetricsTTL,
		BlockTime:        cfg.BlockTime,
		SamplesPerCandle: cfg.SamplesPerCandle,
		ComputeTimeout:   cfg.RequestTimeout,
	}, logger)
	if err != nil {
		closeCache()
		client.Close()
		return nil, nil, err
	}

	cleanup := func() {
		closeCache()
		client.Close()
	}
	return svc, cleanup, nil
}
