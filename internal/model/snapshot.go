package model

import "math/big"

// PoolSnapshot is one observation of pool reserves at a block height.
// Timestamp is nil when the block time could not be resolved.
type PoolSnapshot struct {
	Height      uint64
	Timestamp   *uint64
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
}

// HasTimestamp reports whether the block time is known.
func (s PoolSnapshot) HasTimestamp() bool {
	return s.Timestamp != nil
}
