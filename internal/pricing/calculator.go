// Package pricing derives USD prices for a base asset along two routes.
package pricing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/model"
)

// RateSource returns the current quote-per-base price of a pool.
type RateSource interface {
	PoolRate(ctx context.Context, poolKey string) (float64, error)
}

// Inputs names the pools and fiat asset compared by the Calculator.
// PoolB's quote asset is assumed to be USD-pegged.
type Inputs struct {
	PoolA       string
	PoolB       string
	FiatAssetID string
}

// Validate checks that every input is set.
func (in Inputs) Validate() error {
	if in.PoolA == "" || in.PoolB == "" || in.FiatAssetID == "" {
		return fmt.Errorf("%w: price metrics need pool a, pool b and a fiat asset id", model.ErrValidation)
	}
	return nil
}

// Calculator compares the USD price reached via pool A and a fiat rate
// with the direct USD price of pool B.
type Calculator struct {
	rates  RateSource
	fiat   FiatSource
	inputs Inputs
	now    func() time.Time
	logger *zap.Logger
}

func NewCalculator(rates RateSource, fiat FiatSource, inputs Inputs, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		rates:  rates,
		fiat:   fiat,
		inputs: inputs,
		now:    time.Now,
		logger: logger,
	}
}

// Compute fetches both pool rates and the fiat rate concurrently. Any
// failure fails the whole computation.
func (c *Calculator) Compute(ctx context.Context) (model.PriceMetrics, error) {
	if err := c.inputs.Validate(); err != nil {
		return model.PriceMetrics{}, err
	}

	var rateA, rateB, fiatRate float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rateA, err = c.rates.PoolRate(gctx, c.inputs.PoolA)
		if err != nil {
			return fmt.Errorf("pool %s rate: %w", c.inputs.PoolA, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rateB, err = c.rates.PoolRate(gctx, c.inputs.PoolB)
		if err != nil {
			return fmt.Errorf("pool %s rate: %w", c.inputs.PoolB, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		fiatRate, err = c.fiat.USDRate(gctx, c.inputs.FiatAssetID)
		if err != nil {
			return fmt.Errorf("fiat rate %s: %w", c.inputs.FiatAssetID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.PriceMetrics{}, err
	}

	metrics := Derive(rateA, rateB, fiatRate)
	metrics.PoolA = c.inputs.PoolA
	metrics.PoolB = c.inputs.PoolB
	metrics.ComputedAt = c.now().Unix()

	c.logger.Debug("price metrics computed",
		zap.Float64("usd_via_route_a", metrics.USDViaRouteA),
		zap.Float64("usd_direct", metrics.USDDirect),
		zap.Float64("divergence_pct", metrics.DivergencePct),
	)
	return metrics, nil
}

// Derive computes the route prices and their divergence. A zero direct
// price leaves DivergencePct at zero.
func Derive(rateA, rateB, fiatRate float64) model.PriceMetrics {
	viaA := rateA * fiatRate
	var divergence float64
	if rateB != 0 {
		divergence = (viaA - rateB) / rateB * 100
	}
	return model.PriceMetrics{
		RateA:         rateA,
		RateB:         rateB,
		FiatRate:      fiatRate,
		USDViaRouteA:  viaA,
		USDDirect:     rateB,
		DivergencePct: divergence,
	}
}
