package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/config"
	"poolScope/internal/service"
)

// withService loads the query config, wires a service and calls fn with a
// context bounded by request-timeout.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) (any, error)) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	svc, cleanup, err := newService(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := fn(ctx, svc)
	if err != nil {
		logger.Error("query failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return printJSON(out)
}

func queryFromFlags(cmd *cobra.Command) (service.Query, error) {
	pool, _ := cmd.Flags().GetString("pool")
	if pool == "" {
		return service.Query{}, fmt.Errorf("pool is required")
	}
	q := service.Query{Pool: pool}

	if cmd.Flags().Changed("height") {
		height, _ := cmd.Flags().GetUint64("height")
		q.Height = &height
	}
	if f := cmd.Flags().Lookup("interval"); f != nil {
		q.Interval = f.Value.String()
	}
	if cmd.Flags().Lookup("limit") != nil {
		q.Limit, _ = cmd.Flags().GetInt("limit")
	}
	return q, nil
}

func runCandles(cmd *cobra.Command, _ []string) error {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		if q.IsAll() {
			res, err := svc.AllCandles(ctx, q)
			return res.Data, err
		}
		res, err := svc.Candles(ctx, q)
		return res.Data, err
	})
}

func runPrice(cmd *cobra.Command, _ []string) error {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		if q.IsAll() {
			res, err := svc.AllPoolDetails(ctx, q)
			return res.Data, err
		}
		res, err := svc.PoolDetail(ctx, q)
		return res.Data, err
	})
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		res, err := svc.PriceMetrics(ctx)
		return res.Data, err
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
