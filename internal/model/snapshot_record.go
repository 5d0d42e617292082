package model

// SnapshotRecord is the storage representation of an archived snapshot.
// Integer amounts are kept as decimal strings.
type SnapshotRecord struct {
	PoolKey     string  `json:"pool_key"`
	PoolID      string  `json:"pool_id"`
	Height      uint64  `json:"height"`
	Timestamp   *uint64 `json:"timestamp,omitempty"`
	Reserve0    string  `json:"reserve0"`
	Reserve1    string  `json:"reserve1"`
	TotalSupply string  `json:"total_supply"`
	SampledAt   string  `json:"sampled_at"`
}
