package model

// PoolIdentity is the static description of a configured pool.
type PoolIdentity struct {
	Key       string `yaml:"key" json:"key"`
	Name      string `yaml:"name" json:"name"`
	PoolID    string `yaml:"pool_id" json:"pool_id"`
	Token0    string `yaml:"token0" json:"token0"`
	Token1    string `yaml:"token1" json:"token1"`
	Decimals0 uint8  `yaml:"decimals0" json:"decimals0"`
	Decimals1 uint8  `yaml:"decimals1" json:"decimals1"`
	CallData  string `yaml:"call_data" json:"call_data"`
}
