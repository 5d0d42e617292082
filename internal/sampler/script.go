package sampler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
	"poolScope/internal/model"
	"poolScope/internal/observability"
)

// Evaluator runs a program on the remote query service.
type Evaluator interface {
	EvalScript(ctx context.Context, program string, args ...any) (json.RawMessage, error)
}

// ScriptSampler runs the whole sampling loop remotely in one scripting call.
// The program receives callData, start, end and stride and must return an
// array of chain.SampleRow.
type ScriptSampler struct {
	remote  Evaluator
	program string
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewScript creates a ScriptSampler for program.
func NewScript(remote Evaluator, program string, metrics *observability.Metrics, logger *zap.Logger) *ScriptSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptSampler{
		remote:  remote,
		program: program,
		metrics: metrics,
		logger:  logger,
	}
}

// Run evaluates the sampling program and decodes each returned row.
func (s *ScriptSampler) Run(ctx context.Context, pool model.PoolIdentity, r Range) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	if s.program == "" {
		return Result{}, fmt.Errorf("%w: sampling script is empty", model.ErrValidation)
	}

	raw, err := s.remote.EvalScript(ctx, s.program, pool.CallData, r.Start, r.End, r.Stride)
	if err != nil {
		return Result{}, err
	}

	var rows []chain.SampleRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return Result{}, fmt.Errorf("%w: script result: %v", model.ErrDecode, err)
	}

	snapshots := make([]model.PoolSnapshot, 0, len(rows))
	var failures []model.SampleFailure
	seen := make(map[uint64]struct{}, len(rows))
	for _, row := range rows {
		if !inRange(row.Height, r) {
			continue
		}
		if _, dup := seen[row.Height]; dup {
			continue
		}
		seen[row.Height] = struct{}{}

		if row.Error != nil {
			failures = append(failures, *failure(pool, row.Height, model.StageSimulate, row.Error))
			continue
		}
		snap, err := dex.BuildSnapshot(row.Height, row.Result, row.Timestamp)
		if err != nil {
			failures = append(failures, *failure(pool, row.Height, model.StageDecode, err))
			continue
		}
		snapshots = append(snapshots, snap)
	}

	result := finish(snapshots, failures)
	s.metrics.RecordSample(len(result.Snapshots), countByStage(result.Failures))
	s.logger.Debug("script sample complete",
		zap.String("pool", pool.Key),
		zap.Int("rows", len(rows)),
		zap.Int("sampled", len(result.Snapshots)),
	)
	return result, nil
}

func inRange(height uint64, r Range) bool {
	return height >= r.Start && height <= r.End && (height-r.Start)%r.Stride == 0
}
