package sampler

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"poolScope/internal/chain"
	"poolScope/internal/chain/chaintest"
	"poolScope/internal/dex"
	"poolScope/internal/model"
)

var testPool = model.PoolIdentity{Key: "ABC-XYZ", PoolID: "7:1", CallData: "0xfeed", Decimals0: 8, Decimals1: 6}

func TestRangeHeights(t *testing.T) {
	cases := []struct {
		r    Range
		want []uint64
	}{
		{Range{Start: 0, End: 10, Stride: 5}, []uint64{0, 5, 10}},
		{Range{Start: 3, End: 10, Stride: 4}, []uint64{3, 7}},
		{Range{Start: 5, End: 5, Stride: 1}, []uint64{5}},
		{Range{Start: 10, End: 5, Stride: 1}, nil},
		{Range{Start: 0, End: 5, Stride: 0}, nil},
		{Range{Start: ^uint64(0) - 1, End: ^uint64(0), Stride: 3}, []uint64{^uint64(0) - 1}},
	}
	for _, tc := range cases {
		got := tc.r.Heights()
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%+v: got %v want %v", tc.r, got, tc.want)
		}
	}
}

func TestSamplerRunOrdersSnapshots(t *testing.T) {
	backend := chaintest.New(1000)
	client := backend.Dial(t)
	s := New(client, 4, nil, nil)

	res, err := s.Run(context.Background(), testPool, Range{Start: 100, End: 190, Stride: 10})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Snapshots) != 10 {
		t.Fatalf("expected 10 snapshots, got %d", len(res.Snapshots))
	}
	for i, snap := range res.Snapshots {
		want := uint64(100 + 10*i)
		if snap.Height != want {
			t.Fatalf("snapshot %d: height %d want %d", i, snap.Height, want)
		}
		if snap.Timestamp == nil || *snap.Timestamp != backend.Timestamp(want) {
			t.Fatalf("snapshot %d: unexpected timestamp %v", i, snap.Timestamp)
		}
		if snap.Reserve0.Int64() != int64(1_000_000+want) {
			t.Fatalf("snapshot %d: unexpected reserve0 %s", i, snap.Reserve0)
		}
	}
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", res.Failures)
	}
}

func TestSamplerDropsFailedHeights(t *testing.T) {
	backend := chaintest.New(1000)
	backend.SimulateErrors[20] = true
	backend.BadPayloads[30] = true
	backend.MissingHeaders[40] = true
	client := backend.Dial(t)
	s := New(client, 2, nil, nil)

	res, err := s.Run(context.Background(), testPool, Range{Start: 10, End: 50, Stride: 10})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var heights []uint64
	for _, snap := range res.Snapshots {
		heights = append(heights, snap.Height)
	}
	if !reflect.DeepEqual(heights, []uint64{10, 40, 50}) {
		t.Fatalf("unexpected heights %v", heights)
	}
	if res.Snapshots[1].Timestamp != nil {
		t.Fatalf("expected nil timestamp at height 40")
	}

	if len(res.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", res.Failures)
	}
	if res.Failures[0].Height != 20 || res.Failures[0].Stage != model.StageSimulate {
		t.Fatalf("unexpected failure %+v", res.Failures[0])
	}
	if res.Failures[1].Height != 30 || res.Failures[1].Stage != model.StageDecode {
		t.Fatalf("unexpected failure %+v", res.Failures[1])
	}
}

func TestSamplerAllFailuresIsEmptyResult(t *testing.T) {
	backend := chaintest.New(5)
	client := backend.Dial(t)
	s := New(client, 0, nil, nil)

	res, err := s.Run(context.Background(), testPool, Range{Start: 10, End: 20, Stride: 5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Snapshots) != 0 {
		t.Fatalf("expected no snapshots, got %d", len(res.Snapshots))
	}
	if len(res.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(res.Failures))
	}
}

func TestSamplerRejectsBadRangeBeforeRemoteCalls(t *testing.T) {
	backend := chaintest.New(100)
	client := backend.Dial(t)
	s := New(client, 2, nil, nil)

	for _, r := range []Range{{Start: 0, End: 10, Stride: 0}, {Start: 10, End: 0, Stride: 1}} {
		if _, err := s.Run(context.Background(), testPool, r); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", r, err)
		}
	}
	if backend.TotalCalls() != 0 {
		t.Fatalf("expected no remote calls, got %d", backend.TotalCalls())
	}
}

type slowRemote struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *slowRemote) SimulateAt(ctx context.Context, height uint64, _ string) (chain.SimulateResult, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return chain.SimulateResult{}, ctx.Err()
	}
	return chain.SimulateResult{Err: &chain.RemoteError{Message: "unused"}}, nil
}

func (r *slowRemote) BlockTimestamp(context.Context, uint64) (uint64, error) {
	return 0, errors.New("unused")
}

func TestSamplerBoundsConcurrency(t *testing.T) {
	remote := &slowRemote{}
	s := New(remote, 3, nil, nil)

	if _, err := s.Run(context.Background(), testPool, Range{Start: 1, End: 30, Stride: 1}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if peak := remote.peak.Load(); peak > 3 || peak == 0 {
		t.Fatalf("expected at most 3 concurrent calls, saw %d", peak)
	}
}

// pairedRemote only answers SimulateAt once BlockTimestamp for the same
// height has started.
type pairedRemote struct {
	started chan struct{}
}

func (r *pairedRemote) SimulateAt(ctx context.Context, _ uint64, _ string) (chain.SimulateResult, error) {
	select {
	case <-r.started:
	case <-time.After(time.Second):
		return chain.SimulateResult{}, errors.New("timestamp lookup not started")
	case <-ctx.Done():
		return chain.SimulateResult{}, ctx.Err()
	}
	payload, err := dex.EncodeReserves(big.NewInt(10), big.NewInt(20), big.NewInt(1))
	if err != nil {
		return chain.SimulateResult{}, err
	}
	return chain.SimulateResult{Hex: payload}, nil
}

func (r *pairedRemote) BlockTimestamp(context.Context, uint64) (uint64, error) {
	close(r.started)
	return 77, nil
}

func TestSamplerResolvesTimestampAlongsideSimulate(t *testing.T) {
	remote := &pairedRemote{started: make(chan struct{})}
	s := New(remote, 1, nil, nil)

	res, err := s.Run(context.Background(), testPool, Range{Start: 5, End: 5, Stride: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Snapshots) != 1 || len(res.Failures) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if ts := res.Snapshots[0].Timestamp; ts == nil || *ts != 77 {
		t.Fatalf("unexpected timestamp %v", ts)
	}
}

func TestSamplerHonoursCancellation(t *testing.T) {
	remote := &slowRemote{}
	s := New(remote, 1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Run(ctx, testPool, Range{Start: 1, End: 30, Stride: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestScriptSamplerDecodesRows(t *testing.T) {
	backend := chaintest.New(1000)
	backend.SimulateErrors[30] = true
	client := backend.Dial(t)
	s := NewScript(client, "sample-reserves", nil, nil)

	res, err := s.Run(context.Background(), testPool, Range{Start: 10, End: 50, Stride: 10})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Snapshots) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(res.Snapshots))
	}
	if len(res.Failures) != 1 || res.Failures[0].Height != 30 {
		t.Fatalf("unexpected failures %+v", res.Failures)
	}
	if backend.Calls(chain.MethodScriptEval) != 1 || backend.Calls(chain.MethodSimulateAt) != 0 {
		t.Fatalf("expected a single scripting call")
	}
	last := res.Snapshots[len(res.Snapshots)-1]
	if last.Height != 50 || last.Timestamp == nil || *last.Timestamp != backend.Timestamp(50) {
		t.Fatalf("unexpected last snapshot %+v", last)
	}
}

func TestScriptSamplerRequiresProgram(t *testing.T) {
	backend := chaintest.New(10)
	s := NewScript(backend.Dial(t), "", nil, nil)
	if _, err := s.Run(context.Background(), testPool, Range{Start: 0, End: 5, Stride: 1}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
