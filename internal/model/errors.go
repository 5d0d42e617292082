package model

import "errors"

var (
	// ErrValidation marks bad caller input. Raised before any remote call.
	ErrValidation = errors.New("validation error")
	// ErrDecode marks a malformed or truncated remote payload.
	ErrDecode = errors.New("decode error")
	// ErrRemote marks a failure reported by the remote query service.
	ErrRemote = errors.New("remote error")
	// ErrZeroReserve is returned when a price is undefined.
	ErrZeroReserve = errors.New("zero reserve")
)
