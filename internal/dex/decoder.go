package dex

import (
	"fmt"

	"poolScope/internal/model"
)

// BuildSnapshot decodes a simulate payload taken at height into a snapshot.
func BuildSnapshot(height uint64, payload string, timestamp *uint64) (model.PoolSnapshot, error) {
	reserves, err := DecodeReserves(payload)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("height %d: %w", height, err)
	}
	return model.PoolSnapshot{
		Height:      height,
		Timestamp:   timestamp,
		Reserve0:    reserves.Reserve0,
		Reserve1:    reserves.Reserve1,
		TotalSupply: reserves.TotalSupply,
	}, nil
}
