package indexer

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []HeightRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []HeightRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero span")
	}
}

func TestSplitRangeMaxHeight(t *testing.T) {
	max := ^uint64(0)
	got, err := SplitRange(max-3, max, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []HeightRange{{From: max - 3, To: max - 1}, {From: max, To: max}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestBatchSpan(t *testing.T) {
	if got := batchSpan(500, 6); got != 3000 {
		t.Fatalf("span = %d, want 3000", got)
	}
	if got := batchSpan(^uint64(0), 2); got != ^uint64(0) {
		t.Fatalf("overflowing span should cap, got %d", got)
	}
	if got := batchSpan(0, 2); got != 0 {
		t.Fatalf("zero batch size should give zero span, got %d", got)
	}
}

func TestNextAligned(t *testing.T) {
	cases := []struct {
		from, last, stride, want uint64
	}{
		{from: 100, last: 99, stride: 10, want: 100},
		{from: 100, last: 100, stride: 10, want: 110},
		{from: 100, last: 125, stride: 10, want: 130},
		{from: 100, last: 130, stride: 10, want: 140},
		{from: 0, last: 0, stride: 1, want: 1},
	}
	for _, tc := range cases {
		got, ok := nextAligned(tc.from, tc.last, tc.stride)
		if !ok || got != tc.want {
			t.Fatalf("nextAligned(%d, %d, %d) = %d, %v, want %d", tc.from, tc.last, tc.stride, got, ok, tc.want)
		}
	}

	if _, ok := nextAligned(0, ^uint64(0)-1, 2); ok {
		t.Fatalf("expected overflow to be reported")
	}
}

func TestLastAligned(t *testing.T) {
	if got := lastAligned(HeightRange{From: 100, To: 129}, 10); got != 120 {
		t.Fatalf("lastAligned = %d, want 120", got)
	}
	if got := lastAligned(HeightRange{From: 100, To: 100}, 10); got != 100 {
		t.Fatalf("lastAligned = %d, want 100", got)
	}
}
