package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/config"
	"poolScope/internal/indexer"
	"poolScope/internal/observability"
	"poolScope/internal/storage"
	"poolScope/internal/storage/clickhouse"
	"poolScope/internal/storage/postgres"
)

func runArchive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadArchive(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := config.LoadPools(cfg.PoolsFile)
	if err != nil {
		return err
	}
	pool, err := pools.Lookup(cfg.Pool)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	client, err := connectChain(ctx, cfg.Config, metrics)
	if err != nil {
		return err
	}
	defer client.Close()

	strategy, err := newStrategy(cfg.Config, client, metrics, logger)
	if err != nil {
		return err
	}

	var progress indexer.ProgressStore = indexer.NewCheckpointStore(cfg.Checkpoint, pool.Key, cfg.CheckpointEnabled)

	var sink storage.Storage
	switch cfg.Sink {
	case config.SinkPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := store.UpsertPools(ctx, pools.All()); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
		sink = store
		if cfg.CheckpointEnabled {
			progress = indexer.NewDBProgress(store, pool.Key)
		}
	case config.SinkClickHouse:
		conn, err := clickhouse.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		store := clickhouse.NewSnapshotStore(conn)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
	default:
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	var failures indexer.FailureSink
	if cfg.Errors != "" {
		failures = storage.NewJsonlStorage(cfg.Errors)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		Pool:         pool,
		FromHeight:   cfg.FromHeight,
		ToHeight:     cfg.ToHeight,
		Stride:       cfg.Stride,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, indexer.Deps{
		Heights:  client,
		Strategy: strategy,
		Storage:  sink,
		Failures: failures,
		Progress: progress,
		Metrics:  metrics,
	}, logger)

	logger.Info("archive start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", pool.Key),
		zap.Uint64("from", cfg.FromHeight),
		zap.Uint64("to", cfg.ToHeight),
		zap.Uint64("stride", cfg.Stride),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("sink", cfg.Sink),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("archive complete",
		zap.Int("batches", summary.Batches),
		zap.Int("snapshots", summary.Snapshots),
		zap.Int("dropped", summary.Failures),
		zap.Uint64("last_height", summary.LastHeight),
	)
	return nil
}
