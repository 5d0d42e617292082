// Package chaintest provides an in-process remote query service for tests.
package chaintest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
)

// ReservesFunc returns the pool state served for callData at height.
type ReservesFunc func(callData string, height uint64) (reserve0, reserve1, totalSupply *big.Int)

// Backend is a configurable fake of the remote query service. Configure the
// exported fields before calling Dial.
type Backend struct {
	// Height is the current height.
	Height uint64
	// Genesis is the timestamp of height 0; each height adds BlockTime seconds.
	Genesis   uint64
	BlockTime uint64

	Reserves ReservesFunc

	// SimulateErrors makes simulate calls at these heights return a remote error.
	SimulateErrors map[uint64]bool
	// BadPayloads makes simulate calls at these heights return undecodable hex.
	BadPayloads map[uint64]bool
	// MissingHeaders makes header lookups for these heights fail.
	MissingHeaders map[uint64]bool
	// FailHeight makes chain_getHeight fail.
	FailHeight bool
	// FailSimulations makes every simulate call return a remote error.
	FailSimulations bool

	mu    sync.Mutex
	calls map[string]int
}

// New returns a backend at height with one block every 600 seconds and
// reserves that grow with height.
func New(height uint64) *Backend {
	return &Backend{
		Height:    height,
		Genesis:   1_700_000_000,
		BlockTime: 600,
		Reserves: func(_ string, h uint64) (*big.Int, *big.Int, *big.Int) {
			return big.NewInt(int64(1_000_000 + h)), big.NewInt(int64(2_000_000 + 2*h)), big.NewInt(1_000)
		},
		SimulateErrors: make(map[uint64]bool),
		BadPayloads:    make(map[uint64]bool),
		MissingHeaders: make(map[uint64]bool),
		calls:          make(map[string]int),
	}
}

// Dial starts an in-process server for the backend and returns a client
// connected to it. Both are closed when the test ends.
func (b *Backend) Dial(t testing.TB, opts ...chain.Option) *chain.Client {
	t.Helper()

	server := rpc.NewServer()
	for name, svc := range map[string]any{
		"chain":    &chainService{b},
		"contract": &contractService{b},
		"script":   &scriptService{b},
	} {
		if err := server.RegisterName(name, svc); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	client := chain.NewClientFromRPC(rpc.DialInProc(server), opts...)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

// SetFailHeight toggles chain_getHeight failures while the backend is serving.
func (b *Backend) SetFailHeight(fail bool) {
	b.mu.Lock()
	b.FailHeight = fail
	b.mu.Unlock()
}

// SetFailSimulations toggles simulate failures for every height while the backend is serving.
func (b *Backend) SetFailSimulations(fail bool) {
	b.mu.Lock()
	b.FailSimulations = fail
	b.mu.Unlock()
}

// Calls returns how many times method was served.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// TotalCalls returns the number of calls served across all methods.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// Timestamp returns the header timestamp served for height.
func (b *Backend) Timestamp(height uint64) uint64 {
	return b.Genesis + height*b.BlockTime
}

func (b *Backend) record(method string) {
	b.mu.Lock()
	b.calls[method]++
	b.mu.Unlock()
}

func (b *Backend) simulate(height uint64, callData string) chain.SimulateResponse {
	b.mu.Lock()
	current := b.Height
	failing := b.SimulateErrors[height] || b.FailSimulations
	bad := b.BadPayloads[height]
	b.mu.Unlock()

	switch {
	case height > current:
		return chain.SimulateResponse{Error: &chain.RemoteError{Code: -32001, Message: fmt.Sprintf("height %d not found", height)}}
	case failing:
		return chain.SimulateResponse{Error: &chain.RemoteError{Code: -32000, Message: "simulation reverted"}}
	case bad:
		return chain.SimulateResponse{Result: "0x0102"}
	}

	r0, r1, supply := b.Reserves(callData, height)
	payload, err := dex.EncodeReserves(r0, r1, supply)
	if err != nil {
		return chain.SimulateResponse{Error: &chain.RemoteError{Code: -32603, Message: err.Error()}}
	}
	return chain.SimulateResponse{Result: "0x" + payload}
}

func (b *Backend) header(height uint64) (*chain.Header, error) {
	b.mu.Lock()
	missing := b.MissingHeaders[height]
	b.mu.Unlock()
	if missing {
		return nil, fmt.Errorf("header for height %d unavailable", height)
	}
	return &chain.Header{Hash: blockHash(height), Height: height, Timestamp: b.Timestamp(height)}, nil
}

func blockHash(height uint64) string {
	return fmt.Sprintf("0x%064x", height)
}

func heightFromHash(hash string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(hash, "0x"), 16, 64)
}

type chainService struct{ b *Backend }

func (s *chainService) GetHeight() (uint64, error) {
	s.b.record(chain.MethodHeight)
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.FailHeight {
		return 0, errors.New("height unavailable")
	}
	return s.b.Height, nil
}

func (s *chainService) GetBlockHash(height uint64) (string, error) {
	s.b.record(chain.MethodBlockHash)
	return blockHash(height), nil
}

func (s *chainService) GetHeader(hash string) (*chain.Header, error) {
	s.b.record(chain.MethodHeader)
	height, err := heightFromHash(hash)
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q", hash)
	}
	return s.b.header(height)
}

type contractService struct{ b *Backend }

func (s *contractService) SimulateAt(height uint64, callData string) (chain.SimulateResponse, error) {
	s.b.record(chain.MethodSimulateAt)
	return s.b.simulate(height, callData), nil
}

type scriptService struct{ b *Backend }

// Eval ignores the program text and runs the sampling loop natively.
// Arguments are callData, start, end and stride.
func (s *scriptService) Eval(program string, args []json.RawMessage) (json.RawMessage, error) {
	s.b.record(chain.MethodScriptEval)
	if len(args) != 4 {
		return nil, fmt.Errorf("expected 4 arguments, got %d", len(args))
	}

	var callData string
	if err := json.Unmarshal(args[0], &callData); err != nil {
		return nil, fmt.Errorf("call data: %w", err)
	}
	var bounds [3]uint64
	for i := range bounds {
		if err := json.Unmarshal(args[i+1], &bounds[i]); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
	}
	start, end, stride := bounds[0], bounds[1], bounds[2]
	if stride == 0 {
		return nil, errors.New("stride must be positive")
	}

	rows := make([]chain.SampleRow, 0)
	for h := start; h <= end; h += stride {
		resp := s.b.simulate(h, callData)
		row := chain.SampleRow{Height: h, Result: resp.Result, Error: resp.Error}
		if header, err := s.b.header(h); err == nil {
			ts := header.Timestamp
			row.Timestamp = &ts
		}
		rows = append(rows, row)
	}
	return json.Marshal(rows)
}
