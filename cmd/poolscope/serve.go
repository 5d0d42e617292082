package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/config"
	"poolScope/internal/httpapi"
	"poolScope/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
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

	metrics := observability.NewMetrics()
	svc, cleanup, err := newService(ctx, cfg.ServiceConfig, metrics, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	router := httpapi.NewRouter(svc, metrics, cfg.RequestTimeout, logger)
	server := httpapi.NewServer(cfg.Listen, router, cfg.RequestTimeout)

	logger.Info("server start",
		zap.String("listen", cfg.Listen),
		zap.String("rpc", cfg.RPCURL),
		zap.Int("pools", len(svc.Pools())),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("sampling_mode", cfg.SamplingMode),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutdown")
	return server.Shutdown(shutdownTimeout)
}
