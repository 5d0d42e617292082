// Package sampler reads pool state at a series of heights.
package sampler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
	"poolScope/internal/model"
	"poolScope/internal/observability"
)

// DefaultConcurrency bounds in-flight heights when none is configured.
const DefaultConcurrency = 8

// Range selects heights Start, Start+Stride, ... up to and including End.
type Range struct {
	Start  uint64
	End    uint64
	Stride uint64
}

// Validate rejects empty strides and inverted bounds.
func (r Range) Validate() error {
	if r.Stride == 0 {
		return fmt.Errorf("%w: stride must be positive", model.ErrValidation)
	}
	if r.End < r.Start {
		return fmt.Errorf("%w: end %d before start %d", model.ErrValidation, r.End, r.Start)
	}
	return nil
}

// Heights lists the heights covered by the range.
func (r Range) Heights() []uint64 {
	if r.Validate() != nil {
		return nil
	}
	heights := make([]uint64, 0, (r.End-r.Start)/r.Stride+1)
	for h := r.Start; ; h += r.Stride {
		heights = append(heights, h)
		if r.End-h < r.Stride {
			break
		}
	}
	return heights
}

// Result is the outcome of one sampling run.
type Result struct {
	Snapshots []model.PoolSnapshot
	Failures  []model.SampleFailure
}

// Strategy produces snapshots for a pool over a range.
type Strategy interface {
	Run(ctx context.Context, pool model.PoolIdentity, r Range) (Result, error)
}

// Remote is the subset of the chain client the sampler calls.
type Remote interface {
	SimulateAt(ctx context.Context, height uint64, callData string) (chain.SimulateResult, error)
	BlockTimestamp(ctx context.Context, height uint64) (uint64, error)
}

// Sampler issues one simulate call per height with bounded parallelism.
type Sampler struct {
	remote      Remote
	concurrency int
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// New creates a Sampler. Concurrency <= 0 falls back to DefaultConcurrency.
func New(remote Remote, concurrency int, metrics *observability.Metrics, logger *zap.Logger) *Sampler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		remote:      remote,
		concurrency: concurrency,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run samples pool at every height of r. Heights whose simulate call or
// decode fails are dropped and reported in Result.Failures; a missing
// timestamp leaves Snapshot.Timestamp nil. Only context cancellation
// aborts the run.
func (s *Sampler) Run(ctx context.Context, pool model.PoolIdentity, r Range) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	heights := r.Heights()

	var (
		mu        sync.Mutex
		snapshots = make([]model.PoolSnapshot, 0, len(heights))
		failures  []model.SampleFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, height := range heights {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, failure := s.sampleHeight(gctx, pool, height)
			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				failures = append(failures, *failure)
				return nil
			}
			snapshots = append(snapshots, snap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	result := finish(snapshots, failures)
	s.metrics.RecordSample(len(result.Snapshots), countByStage(result.Failures))
	if len(result.Failures) > 0 {
		s.logger.Debug("sample dropped heights",
			zap.String("pool", pool.Key),
			zap.Int("sampled", len(result.Snapshots)),
			zap.Int("dropped", len(result.Failures)),
		)
	}
	return result, nil
}

func (s *Sampler) sampleHeight(ctx context.Context, pool model.PoolIdentity, height uint64) (model.PoolSnapshot, *model.SampleFailure) {
	// The timestamp lookup does not depend on the simulate call; run both at once.
	tsCh := make(chan *uint64, 1)
	go func() {
		ts, err := s.remote.BlockTimestamp(ctx, height)
		if err != nil {
			s.logger.Debug("timestamp unavailable", zap.String("pool", pool.Key), zap.Uint64("height", height), zap.Error(err))
			tsCh <- nil
			return
		}
		tsCh <- &ts
	}()

	res, err := s.remote.SimulateAt(ctx, height, pool.CallData)
	timestamp := <-tsCh
	if err != nil {
		return model.PoolSnapshot{}, failure(pool, height, model.StageSimulate, err)
	}
	if !res.OK() {
		return model.PoolSnapshot{}, failure(pool, height, model.StageSimulate, res.Err)
	}

	snap, err := dex.BuildSnapshot(height, res.Hex, timestamp)
	if err != nil {
		return model.PoolSnapshot{}, failure(pool, height, model.StageDecode, err)
	}
	return snap, nil
}

func failure(pool model.PoolIdentity, height uint64, stage string, err error) *model.SampleFailure {
	return &model.SampleFailure{
		PoolKey: pool.Key,
		Height:  height,
		Stage:   stage,
		Error:   err.Error(),
	}
}

func finish(snapshots []model.PoolSnapshot, failures []model.SampleFailure) Result {
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Height < snapshots[j].Height })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Height < failures[j].Height })
	return Result{Snapshots: snapshots, Failures: failures}
}

func countByStage(failures []model.SampleFailure) map[string]int {
	counts := make(map[string]int)
	for _, f := range failures {
		counts[f.Stage]++
	}
	return counts
}
