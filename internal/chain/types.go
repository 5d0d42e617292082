package chain

import (
	"fmt"

	"poolScope/internal/model"
)

// Header is the subset of a block header the service reads.
type Header struct {
	Hash      string `json:"hash"`
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"`
}

// RemoteError is a failure reported inside a simulate response.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is match model.ErrRemote.
func (e *RemoteError) Unwrap() error {
	return model.ErrRemote
}

// SimulateResponse is the wire form of a simulate call result.
type SimulateResponse struct {
	Result string       `json:"result,omitempty"`
	Error  *RemoteError `json:"error,omitempty"`
}

// SimulateResult holds either a hex payload or a remote error.
type SimulateResult struct {
	Hex string
	Err *RemoteError
}

// OK reports whether the simulation produced a payload.
func (r SimulateResult) OK() bool {
	return r.Err == nil
}

// SampleRow is one element of the array returned by a sampling script.
type SampleRow struct {
	Height    uint64       `json:"height"`
	Result    string       `json:"result,omitempty"`
	Timestamp *uint64      `json:"timestamp,omitempty"`
	Error     *RemoteError `json:"error,omitempty"`
}
