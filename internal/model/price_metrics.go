package model

// PriceMetrics compares a USD valuation routed through pool A and a fiat rate
// against the rate observed directly on pool B.
type PriceMetrics struct {
	PoolA         string  `json:"poolA"`
	PoolB         string  `json:"poolB"`
	RateA         float64 `json:"rateA"`
	RateB         float64 `json:"rateB"`
	FiatRate      float64 `json:"fiatRate"`
	USDViaRouteA  float64 `json:"usdViaRouteA"`
	USDDirect     float64 `json:"usdDirect"`
	DivergencePct float64 `json:"divergencePct"`
	ComputedAt    int64   `json:"computedAt"`
}
