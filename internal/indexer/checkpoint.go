package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ProgressStore remembers the last archived height of a pool.
type ProgressStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, lastHeight uint64) error
}

// Checkpoint tracks the last archived height.
type Checkpoint struct {
	Pool       string `json:"pool"`
	LastHeight uint64 `json:"last_height"`
	UpdatedAt  string `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk.
type CheckpointStore struct {
	path    string
	pool    string
	enabled bool
}

func NewCheckpointStore(path, pool string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, pool: pool, enabled: enabled}
}

// Load returns the stored height. A checkpoint written for another pool is an error.
func (c *CheckpointStore) Load(_ context.Context) (uint64, bool, error) {
	if !c.enabled {
		return 0, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Pool != "" && cp.Pool != c.pool {
		return 0, false, fmt.Errorf("checkpoint %s belongs to pool %q, not %q", c.path, cp.Pool, c.pool)
	}

	return cp.LastHeight, true, nil
}

func (c *CheckpointStore) Save(_ context.Context, lastHeight uint64) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp := Checkpoint{
		Pool:       c.pool,
		LastHeight: lastHeight,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}

// StateStore is a named height store such as the Postgres archive_state table.
type StateStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, height uint64) error
}

// DBProgress keeps archive progress in a StateStore under "archive:<pool>".
type DBProgress struct {
	store StateStore
	name  string
}

func NewDBProgress(store StateStore, pool string) *DBProgress {
	return &DBProgress{store: store, name: "archive:" + pool}
}

func (p *DBProgress) Load(ctx context.Context) (uint64, bool, error) {
	height, ok, err := p.store.LoadState(ctx, p.name)
	if err != nil {
		return 0, false, fmt.Errorf("load state %s: %w", p.name, err)
	}
	return height, ok, nil
}

func (p *DBProgress) Save(ctx context.Context, lastHeight uint64) error {
	if err := p.store.SaveState(ctx, p.name, lastHeight); err != nil {
		return fmt.Errorf("save state %s: %w", p.name, err)
	}
	return nil
}
