// Package cache stores computed payloads by key with a time-to-live.
package cache

import (
	"context"
	"time"
)

// Cache is a shared byte store. Writers race last-writer-wins; an expired
// entry behaves as absent.
type Cache interface {
	// Get reports found=false for a missing or expired key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
