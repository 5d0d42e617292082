package aggregate

import (
	"errors"
	"math/big"
	"testing"

	"poolScope/internal/model"
)

func ts(v uint64) *uint64 { return &v }

func TestParseInterval(t *testing.T) {
	cases := map[string]Interval{"hourly": Hourly, "Daily": Daily, " weekly ": Weekly}
	for input, want := range cases {
		got, err := ParseInterval(input)
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: got %s want %s", input, got, want)
		}
	}
	for _, input := range []string{"", "monthly", "1h"} {
		if _, err := ParseInterval(input); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", input, err)
		}
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-5: 30, 0: 30, 1: 1, 50: 50, 100: 100, 101: 100, 1000: 100}
	for input, want := range cases {
		if got := ClampLimit(input); got != want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", input, got, want)
		}
	}
}

func TestWindowStartAlignment(t *testing.T) {
	// 2024-01-04 was a Thursday; weekly buckets start there.
	thursday := uint64(1704326400)
	if got := windowStart(thursday+3*86400+123, Weekly.Seconds()); got != thursday {
		t.Fatalf("weekly start: got %d want %d", got, thursday)
	}
	if got := windowStart(thursday+3725, Hourly.Seconds()); got != thursday+3600 {
		t.Fatalf("hourly start: got %d", got)
	}
}

func TestBuildCandlesKeepsMostRecent(t *testing.T) {
	base := uint64(1704326400)
	var points []PricePoint
	for day := uint64(0); day < 10; day++ {
		points = append(points, PricePoint{Timestamp: base + day*86400 + 60, Price: float64(day + 1)})
	}

	candles := BuildCandles(points, Daily, 5)
	if len(candles) != 5 {
		t.Fatalf("expected 5 candles, got %d", len(candles))
	}
	for i, c := range candles {
		wantTS := int64(base + uint64(5+i)*86400)
		if c.Timestamp != wantTS {
			t.Fatalf("candle %d: timestamp %d want %d", i, c.Timestamp, wantTS)
		}
		if c.Open != float64(6+i) || c.Close != c.Open {
			t.Fatalf("candle %d: unexpected prices %+v", i, c)
		}
	}
}

func TestBuildCandlesOHLC(t *testing.T) {
	base := uint64(1704326400)
	points := []PricePoint{
		{Timestamp: base + 1800, Price: 4},
		{Timestamp: base + 10, Price: 2},
		{Timestamp: base + 900, Price: 7},
		{Timestamp: base + 2700, Price: 1},
		{Timestamp: base + 3600 + 5, Price: 3},
	}

	candles := BuildCandles(points, Hourly, 10)
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	first := candles[0]
	if first.Open != 2 || first.Close != 1 || first.High != 7 || first.Low != 1 {
		t.Fatalf("unexpected first candle %+v", first)
	}
	second := candles[1]
	if second.Timestamp != int64(base+3600) || second.Open != 3 || second.Close != 3 {
		t.Fatalf("unexpected second candle %+v", second)
	}

	for i, c := range candles {
		if c.Low > min(c.Open, c.Close) || c.High < max(c.Open, c.Close) {
			t.Fatalf("candle %d violates OHLC bounds: %+v", i, c)
		}
		if c.Timestamp%3600 != 0 {
			t.Fatalf("candle %d not aligned: %d", i, c.Timestamp)
		}
		if i > 0 && c.Timestamp <= candles[i-1].Timestamp {
			t.Fatalf("candle timestamps not increasing at %d", i)
		}
	}
}

func TestBuildCandlesEmpty(t *testing.T) {
	candles := BuildCandles(nil, Weekly, 30)
	if candles == nil || len(candles) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", candles)
	}
}

func TestPricePointsSkipsUnpriceable(t *testing.T) {
	pool := model.PoolIdentity{Key: "ABC-XYZ", Decimals0: 2, Decimals1: 2}
	snapshots := []model.PoolSnapshot{
		{Height: 1, Timestamp: ts(100), Reserve0: big.NewInt(100), Reserve1: big.NewInt(250)},
		{Height: 2, Timestamp: nil, Reserve0: big.NewInt(100), Reserve1: big.NewInt(300)},
		{Height: 3, Timestamp: ts(300), Reserve0: big.NewInt(0), Reserve1: big.NewInt(300)},
		{Height: 4, Timestamp: ts(400), Reserve0: big.NewInt(200), Reserve1: big.NewInt(100)},
	}

	points := PricePoints(snapshots, pool, nil)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Timestamp != 100 || points[0].Price != 2.5 {
		t.Fatalf("unexpected first point %+v", points[0])
	}
	if points[1].Timestamp != 400 || points[1].Price != 0.5 {
		t.Fatalf("unexpected second point %+v", points[1])
	}
}

func TestDailyCandlesFromSnapshotsOneDayApart(t *testing.T) {
	// 144 heights at 600s per block is one day.
	genesis := uint64(1704326400 + 300)
	pool := model.PoolIdentity{Key: "ABC-XYZ", Decimals0: 8, Decimals1: 6}

	var snapshots []model.PoolSnapshot
	for i := uint64(0); i < 10; i++ {
		height := 144 * i
		snapshots = append(snapshots, model.PoolSnapshot{
			Height:      height,
			Timestamp:   ts(genesis + height*600),
			Reserve0:    big.NewInt(int64(1_000_000 + 1000*i)),
			Reserve1:    big.NewInt(5_000_000),
			TotalSupply: big.NewInt(1),
		})
	}

	candles := BuildCandles(PricePoints(snapshots, pool, nil), Daily, 5)
	if len(candles) != 5 {
		t.Fatalf("expected 5 candles, got %d", len(candles))
	}
	for i, c := range candles {
		wantTS := int64(1704326400 + uint64(5+i)*86400)
		if c.Timestamp != wantTS {
			t.Fatalf("candle %d: timestamp %d want %d", i, c.Timestamp, wantTS)
		}
		if i > 0 && c.Timestamp <= candles[i-1].Timestamp {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
		if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
			t.Fatalf("candle %d violates OHLC bounds: %+v", i, c)
		}
	}
}
