package service

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	kindCandles = "candles"
	kindPool    = "pool"
	kindMetrics = "metrics"
)

// Result carries a payload and whether it was served from cache.
type Result[T any] struct {
	Data   T
	Cached bool
}

// cached serves key from the cache or computes, stores and returns it.
// Concurrent misses on one key share a single computation, bounded by
// Settings.ComputeTimeout rather than by the first caller's context. Cache failures
// degrade to a miss or a skipped store; compute failures are not cached.
func cached[T any](ctx context.Context, s *Service, kind, key string, ttl time.Duration, compute func(context.Context) (T, error)) (Result[T], error) {
	if data, ok := lookup[T](ctx, s, kind, key); ok {
		return Result[T]{Data: data, Cached: true}, nil
	}

	// The shared computation outlives any single caller; each caller
	// still stops waiting when its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.ComputeTimeout)
		defer cancel()

		data, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		store(cctx, s, key, data, ttl)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result[T]{}, res.Err
		}
		if res.Shared {
			s.logger.Debug("coalesced computation", zap.String("key", key))
		}
		return Result[T]{Data: res.Val.(T)}, nil
	}
}

func lookup[T any](ctx context.Context, s *Service, kind, key string) (T, bool) {
	var data T
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.RecordCacheError("get")
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		found = false
	}
	if found {
		if err := msgpack.Unmarshal(raw, &data); err != nil {
			s.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
			found = false
		}
	}
	s.metrics.RecordCacheLookup(kind, found)
	return data, found
}

func store(ctx context.Context, s *Service, key string, data any, ttl time.Duration) {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.metrics.RecordCacheError("set")
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
