package model

// PoolDetail is the single-height price view of a pool.
type PoolDetail struct {
	PoolID       string  `json:"poolId"`
	PoolName     string  `json:"poolName"`
	Price        float64 `json:"price"`
	PriceInverse float64 `json:"priceInverse"`
	Reserve0     string  `json:"reserve0"`
	Reserve1     string  `json:"reserve1"`
	BlockHeight  uint64  `json:"blockHeight"`
}
