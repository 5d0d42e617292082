package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return e.ttl > 0 && !now.Before(e.storedAt.Add(e.ttl))
}

// DefaultSweepInterval is the minimum time between expiry sweeps run by Set.
const DefaultSweepInterval = time.Minute

// Memory is an in-process Cache. Expired entries are dropped on read and
// swept from the whole map by Set at most once per sweep interval.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	now        func() time.Time
	sweepEvery time.Duration
	nextSweep  time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if entry.expired(m.now()) {
		m.mu.Lock()
		if current, ok := m.entries[key]; ok && current.storedAt.Equal(entry.storedAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores a copy of value. A non-positive ttl never expires.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	now := m.now()
	m.mu.Lock()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(m.sweepEvery)
	}
	m.entries[key] = memoryEntry{value: stored, storedAt: now, ttl: ttl}
	m.mu.Unlock()
	return nil
}

// sweep deletes expired entries. Callers hold m.mu.
func (m *Memory) sweep(now time.Time) {
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}

// Len returns the number of stored entries. Expired entries count until
// they are read or swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
