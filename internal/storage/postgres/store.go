package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolScope/internal/model"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for pools, snapshots and archive progress.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolIdentity) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_key, pool_id, name, token0, token1, decimals0, decimals1, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (pool_key)
			DO UPDATE SET
				pool_id = EXCLUDED.pool_id,
				name = EXCLUDED.name,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				decimals0 = EXCLUDED.decimals0,
				decimals1 = EXCLUDED.decimals1,
				updated_at = now()
		`,
			pool.Key,
			pool.PoolID,
			pool.Name,
			pool.Token0,
			pool.Token1,
			int16(pool.Decimals0),
			int16(pool.Decimals1),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert pool: %w", err)
		}
	}
	return nil
}

// PutSnapshotBatch upserts snapshots keyed by pool and height.
func (s *Store) PutSnapshotBatch(ctx context.Context, records []model.SnapshotRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		var blockTS *int64
		if r.Timestamp != nil {
			ts := int64(*r.Timestamp)
			blockTS = &ts
		}
		sampledAt, err := parseSampledAt(r.SampledAt)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO pool_snapshots (
				pool_key, pool_id, height, block_ts, reserve0, reserve1, total_supply, sampled_at
			) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8)
			ON CONFLICT (pool_key, height)
			DO UPDATE SET
				pool_id = EXCLUDED.pool_id,
				block_ts = COALESCE(EXCLUDED.block_ts, pool_snapshots.block_ts),
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				total_supply = EXCLUDED.total_supply,
				sampled_at = EXCLUDED.sampled_at
		`,
			r.PoolKey,
			r.PoolID,
			int64(r.Height),
			blockTS,
			r.Reserve0,
			r.Reserve1,
			r.TotalSupply,
			sampledAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
	}
	return nil
}

// Snapshots returns archived snapshots for a pool with from <= height <= to, ordered by height.
func (s *Store) Snapshots(ctx context.Context, poolKey string, from, to uint64) ([]model.SnapshotRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_key, pool_id, height, block_ts, reserve0::text, reserve1::text, total_supply::text, sampled_at
		FROM pool_snapshots
		WHERE pool_key = $1 AND height >= $2 AND height <= $3
		ORDER BY height ASC
	`, poolKey, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var records []model.SnapshotRecord
	for rows.Next() {
		var (
			r         model.SnapshotRecord
			height    int64
			blockTS   *int64
			sampledAt time.Time
		)
		if err := rows.Scan(&r.PoolKey, &r.PoolID, &height, &blockTS, &r.Reserve0, &r.Reserve1, &r.TotalSupply, &sampledAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r.Height = uint64(height)
		if blockTS != nil {
			ts := uint64(*blockTS)
			r.Timestamp = &ts
		}
		r.SampledAt = sampledAt.UTC().Format(time.RFC3339Nano)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return records, nil
}

// LoadState returns the last archived height for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var height int64
	row := s.pool.QueryRow(ctx, `SELECT last_height FROM archive_state WHERE name=$1`, name)
	if err := row.Scan(&height); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(height), true, nil
}

// SaveState upserts the last archived height for a name.
func (s *Store) SaveState(ctx context.Context, name string, height uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO archive_state (name, last_height, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_height = EXCLUDED.last_height, updated_at = now()
	`, name, int64(height))
	return err
}

func parseSampledAt(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sampled_at %q: %w", value, err)
	}
	return ts, nil
}
