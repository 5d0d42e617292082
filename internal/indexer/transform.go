package indexer

import (
	"math/big"
	"time"

	"poolScope/internal/model"
)

func buildSnapshotRecord(pool model.PoolIdentity, snap model.PoolSnapshot, sampledAt time.Time) model.SnapshotRecord {
	record := model.SnapshotRecord{
		PoolKey:     pool.Key,
		PoolID:      pool.PoolID,
		Height:      snap.Height,
		Reserve0:    amountString(snap.Reserve0),
		Reserve1:    amountString(snap.Reserve1),
		TotalSupply: amountString(snap.TotalSupply),
		SampledAt:   sampledAt.UTC().Format(time.RFC3339Nano),
	}
	if snap.HasTimestamp() {
		ts := *snap.Timestamp
		record.Timestamp = &ts
	}
	return record
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
