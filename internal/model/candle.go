package model

// Candle is an OHLC summary of one interval bucket. Timestamp is the bucket
// start in unix seconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// CandleSeries is the candle payload returned for one pool.
type CandleSeries struct {
	Pool          string   `json:"pool"`
	PoolID        string   `json:"poolId"`
	Interval      string   `json:"interval"`
	CurrentHeight uint64   `json:"currentHeight"`
	Candles       []Candle `json:"candles"`
}
