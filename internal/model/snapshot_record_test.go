package model

import (
	"encoding/json"
	"testing"
)

func TestSnapshotRecordJSONStringFields(t *testing.T) {
	ts := uint64(1700000000)
	record := SnapshotRecord{
		PoolKey:     "WBTC_USDT",
		PoolID:      "pool-1",
		Height:      840000,
		Timestamp:   &ts,
		Reserve0:    "340282366920938463463374607431768211455",
		Reserve1:    "11708493",
		TotalSupply: "500000000",
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"reserve0", "reserve1", "total_supply"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
	if decoded["reserve0"] != record.Reserve0 {
		t.Fatalf("reserve0 mismatch: %v", decoded["reserve0"])
	}
}

func TestSnapshotRecordOmitsMissingTimestamp(t *testing.T) {
	data, err := json.Marshal(SnapshotRecord{PoolKey: "A", Height: 1})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["timestamp"]; ok {
		t.Fatalf("timestamp should be omitted when unknown")
	}
}
