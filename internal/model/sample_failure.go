package model

// Sampling stages reported in SampleFailure.
const (
	StageSimulate = "simulate"
	StageDecode   = "decode"
)

// SampleFailure records a height that was dropped during sampling.
type SampleFailure struct {
	PoolKey string `json:"pool_key"`
	Height  uint64 `json:"height"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}
