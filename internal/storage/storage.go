package storage

import (
	"context"

	"poolScope/internal/model"
)

// Storage defines a sink for archived snapshots.
type Storage interface {
	PutSnapshotBatch(ctx context.Context, records []model.SnapshotRecord) error
}
