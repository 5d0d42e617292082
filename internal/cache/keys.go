package cache

import (
	"strconv"
	"strings"
)

// Namespace is the key prefix for the poolscope application.
const Namespace = "poolscope"

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

func heightPart(height *uint64) string {
	if height == nil {
		return ""
	}
	return "h" + strconv.FormatUint(*height, 10)
}

// CandlesKey returns the key for a candle series of one pool, or of every
// pool when selector is "all".
func CandlesKey(selector, interval string, limit int, height *uint64) string {
	return formatKey("candles", selector, interval, strconv.Itoa(limit), heightPart(height))
}

// PoolDetailKey returns the key for a pool detail payload.
func PoolDetailKey(selector string, height *uint64) string {
	return formatKey("pool", selector, heightPart(height))
}

// PriceMetricsKey returns the key for the cross-asset price metrics.
func PriceMetricsKey() string {
	return formatKey("metrics", "price")
}
