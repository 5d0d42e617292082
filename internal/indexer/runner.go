// Package indexer archives pool snapshots over a height range.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolScope/internal/model"
	"poolScope/internal/observability"
	"poolScope/internal/retry"
	"poolScope/internal/sampler"
	"poolScope/internal/storage"
)

// RunConfig holds runtime settings for the archiver.
type RunConfig struct {
	Pool         model.PoolIdentity
	FromHeight   uint64
	ToHeight     uint64
	Stride       uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// HeightSource reports the current chain height.
type HeightSource interface {
	CurrentHeight(ctx context.Context) (uint64, error)
}

// FailureSink receives heights dropped while sampling.
type FailureSink interface {
	PutFailures(failures []model.SampleFailure) error
}

// Runner samples a pool in batches and writes the snapshots to storage.
type Runner struct {
	cfg      RunConfig
	heights  HeightSource
	strategy sampler.Strategy
	storage  storage.Storage
	failures FailureSink
	progress ProgressStore
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// Deps wires the collaborators of a Runner. Failures, Progress and Metrics are optional.
type Deps struct {
	Heights  HeightSource
	Strategy sampler.Strategy
	Storage  storage.Storage
	Failures FailureSink
	Progress ProgressStore
	Metrics  *observability.Metrics
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, deps Deps, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		heights:  deps.Heights,
		strategy: deps.Strategy,
		storage:  deps.Storage,
		failures: deps.Failures,
		progress: deps.Progress,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary reports what a run archived.
type Summary struct {
	Batches    int
	Snapshots  int
	Failures   int
	LastHeight uint64
}

// Run executes the archive loop.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if r.strategy == nil {
		return summary, fmt.Errorf("sampler is nil")
	}
	if r.storage == nil {
		return summary, fmt.Errorf("storage is nil")
	}
	if r.cfg.Stride == 0 {
		return summary, fmt.Errorf("stride must be greater than zero")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Pool.Key == "" {
		return summary, fmt.Errorf("pool is required")
	}

	from := r.cfg.FromHeight
	to := r.cfg.ToHeight
	if to == 0 {
		if r.heights == nil {
			return summary, fmt.Errorf("to height is required without a height source")
		}
		latest, err := r.currentHeightWithRetry(ctx)
		if err != nil {
			return summary, fmt.Errorf("get current height: %w", err)
		}
		to = latest
	}

	if r.progress != nil {
		last, ok, err := r.progress.Load(ctx)
		if err != nil {
			return summary, err
		}
		if ok && last >= from {
			next, fits := nextAligned(from, last, r.cfg.Stride)
			if !fits || last >= to {
				r.logger.Info("nothing to archive", zap.Uint64("last_archived", last), zap.Uint64("to", to))
				return summary, nil
			}
			from = next
			r.logger.Info("resume from checkpoint", zap.Uint64("last_archived", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to archive", zap.Uint64("from", from), zap.Uint64("to", to))
		return summary, nil
	}

	ranges, err := SplitRange(from, to, batchSpan(r.cfg.BatchSize, r.cfg.Stride))
	if err != nil {
		return summary, err
	}

	for _, heightRange := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		r.logger.Info("sample batch", zap.String("pool", r.cfg.Pool.Key), zap.Uint64("from", heightRange.From), zap.Uint64("to", heightRange.To))

		result, err := r.sampleWithRetry(ctx, heightRange)
		if err != nil {
			return summary, fmt.Errorf("sample %d-%d: %w", heightRange.From, heightRange.To, err)
		}

		sampledAt := r.now()
		records := make([]model.SnapshotRecord, 0, len(result.Snapshots))
		for _, snap := range result.Snapshots {
			records = append(records, buildSnapshotRecord(r.cfg.Pool, snap, sampledAt))
		}

		if err := r.putWithRetry(ctx, records); err != nil {
			return summary, fmt.Errorf("store snapshots: %w", err)
		}

		if r.failures != nil && len(result.Failures) > 0 {
			if err := r.failures.PutFailures(result.Failures); err != nil {
				return summary, fmt.Errorf("store sample failures: %w", err)
			}
		}

		last := lastAligned(heightRange, r.cfg.Stride)
		if r.progress != nil {
			if err := r.progress.Save(ctx, last); err != nil {
				return summary, err
			}
		}

		summary.Batches++
		summary.Snapshots += len(records)
		summary.Failures += len(result.Failures)
		summary.LastHeight = last
		r.metrics.RecordArchiveBatch(len(records), last)

		r.logger.Info("batch complete",
			zap.Int("snapshots", len(records)),
			zap.Int("dropped", len(result.Failures)),
			zap.Uint64("from", heightRange.From),
			zap.Uint64("to", heightRange.To),
		)
	}

	return summary, nil
}

func (r *Runner) currentHeightWithRetry(ctx context.Context) (uint64, error) {
	var height uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		height, err = r.heights.CurrentHeight(ctx)
		if err != nil {
			r.logger.Warn("current height fetch failed", zap.Error(err))
		}
		return err
	})
	return height, err
}

func (r *Runner) sampleWithRetry(ctx context.Context, heightRange HeightRange) (sampler.Result, error) {
	var result sampler.Result
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		result, err = r.strategy.Run(ctx, r.cfg.Pool, sampler.Range{
			Start:  heightRange.From,
			End:    heightRange.To,
			Stride: r.cfg.Stride,
		})
		if err != nil {
			r.logger.Warn("sample batch failed", zap.Error(err), zap.Uint64("from", heightRange.From), zap.Uint64("to", heightRange.To))
		}
		return err
	})
	return result, err
}

func (r *Runner) putWithRetry(ctx context.Context, records []model.SnapshotRecord) error {
	if len(records) == 0 {
		return nil
	}
	return retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		err := r.storage.PutSnapshotBatch(ctx, records)
		if err != nil {
			r.logger.Warn("store batch failed", zap.Error(err), zap.Int("records", len(records)))
		}
		return err
	})
}
