package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"poolScope/internal/model"
	"poolScope/internal/storage"
)

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS pool_snapshots (
		pool_key      String,
		pool_id       String,
		height        UInt64,
		block_ts      Nullable(UInt64),
		reserve0      UInt128,
		reserve1      UInt128,
		total_supply  UInt128,
		sampled_at    DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(sampled_at)
	ORDER BY (pool_key, height)
`

// SnapshotStore implements storage.Storage using ClickHouse.
// Re-archived heights collapse to the latest sampled_at on merge.
type SnapshotStore struct {
	conn *Conn
}

func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

var _ storage.Storage = (*SnapshotStore)(nil)

// EnsureSchema creates the snapshot table if it does not exist.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("create pool_snapshots: %w", err)
	}
	return nil
}

// PutSnapshotBatch inserts records in a single native batch.
func (s *SnapshotStore) PutSnapshotBatch(ctx context.Context, records []model.SnapshotRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]snapshotRow, 0, len(records))
	for _, r := range records {
		row, err := toRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pool_snapshots (
			pool_key, pool_id, height, block_ts, reserve0, reserve1, total_supply, sampled_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range rows {
		err = batch.Append(
			row.poolKey, row.poolID, row.height, row.blockTS,
			row.reserve0, row.reserve1, row.totalSupply, row.sampledAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Snapshots returns the deduplicated snapshots of a pool with from <= height <= to.
func (s *SnapshotStore) Snapshots(ctx context.Context, poolKey string, from, to uint64) ([]model.SnapshotRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT pool_key, pool_id, height, block_ts,
			toString(reserve0), toString(reserve1), toString(total_supply), sampled_at
		FROM pool_snapshots FINAL
		WHERE pool_key = ? AND height >= ? AND height <= ?
		ORDER BY height ASC
	`, poolKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var records []model.SnapshotRecord
	for rows.Next() {
		var (
			r         model.SnapshotRecord
			sampledAt time.Time
		)
		if err := rows.Scan(&r.PoolKey, &r.PoolID, &r.Height, &r.Timestamp, &r.Reserve0, &r.Reserve1, &r.TotalSupply, &sampledAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r.SampledAt = sampledAt.UTC().Format(time.RFC3339Nano)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return records, nil
}

type snapshotRow struct {
	poolKey     string
	poolID      string
	height      uint64
	blockTS     *uint64
	reserve0    *big.Int
	reserve1    *big.Int
	totalSupply *big.Int
	sampledAt   time.Time
}

func toRow(r model.SnapshotRecord) (snapshotRow, error) {
	row := snapshotRow{
		poolKey: r.PoolKey,
		poolID:  r.PoolID,
		height:  r.Height,
		blockTS: r.Timestamp,
	}

	var err error
	if row.reserve0, err = parseAmount("reserve0", r.Reserve0); err != nil {
		return snapshotRow{}, err
	}
	if row.reserve1, err = parseAmount("reserve1", r.Reserve1); err != nil {
		return snapshotRow{}, err
	}
	if row.totalSupply, err = parseAmount("total_supply", r.TotalSupply); err != nil {
		return snapshotRow{}, err
	}

	row.sampledAt = time.Now().UTC()
	if r.SampledAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, r.SampledAt)
		if err != nil {
			return snapshotRow{}, fmt.Errorf("parse sampled_at %q: %w", r.SampledAt, err)
		}
		row.sampledAt = ts.UTC()
	}
	return row, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", field, value)
	}
	return amount, nil
}
