package dex

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"poolScope/internal/model"
)

// SegmentMarker opens the length-prefixed segment holding the pool state.
const SegmentMarker byte = 0x05

const (
	extendedLengthFlag = 0x80

	reserve0Offset    = 64
	reserve1Offset    = 80
	totalSupplyOffset = 96
	fieldSize         = 16

	// MinPayloadSize is the smallest inner payload holding all three fields.
	MinPayloadSize = totalSupplyOffset + fieldSize
)

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Reserves holds the three integers read from a simulate payload.
type Reserves struct {
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
}

// DecodeReserves parses a hex simulate result into reserves.
// The "0x" prefix is optional.
func DecodeReserves(payload string) (Reserves, error) {
	data, err := decodeHex(payload)
	if err != nil {
		return Reserves{}, fmt.Errorf("%w: invalid hex: %v", model.ErrDecode, err)
	}

	marker := bytes.IndexByte(data, SegmentMarker)
	if marker < 0 {
		return Reserves{}, fmt.Errorf("%w: segment marker 0x%02x not found", model.ErrDecode, SegmentMarker)
	}
	if marker+1 >= len(data) {
		return Reserves{}, fmt.Errorf("%w: missing segment length", model.ErrDecode)
	}

	length := int(data[marker+1])
	start := marker + 2
	if length >= extendedLengthFlag {
		if marker+2 >= len(data) {
			return Reserves{}, fmt.Errorf("%w: missing extended segment length", model.ErrDecode)
		}
		length = (length & 0x7f) | int(data[marker+2])<<7
		start = marker + 3
	}

	remaining := len(data) - start
	if length > remaining {
		return Reserves{}, fmt.Errorf("%w: segment length %d exceeds remaining %d bytes", model.ErrDecode, length, remaining)
	}
	if remaining < MinPayloadSize {
		return Reserves{}, fmt.Errorf("%w: payload has %d bytes, need %d", model.ErrDecode, remaining, MinPayloadSize)
	}

	inner := data[start:]
	return Reserves{
		Reserve0:    readUint128LE(inner[reserve0Offset : reserve0Offset+fieldSize]),
		Reserve1:    readUint128LE(inner[reserve1Offset : reserve1Offset+fieldSize]),
		TotalSupply: readUint128LE(inner[totalSupplyOffset : totalSupplyOffset+fieldSize]),
	}, nil
}

// EncodeReserves builds a payload in the format read by DecodeReserves.
// The result carries no "0x" prefix.
func EncodeReserves(reserve0, reserve1, totalSupply *big.Int) (string, error) {
	return encodeSegment(reserve0, reserve1, totalSupply, MinPayloadSize)
}

func encodeSegment(reserve0, reserve1, totalSupply *big.Int, size int) (string, error) {
	if size < MinPayloadSize || size >= 1<<14 {
		return "", fmt.Errorf("payload size %d out of range", size)
	}

	inner := make([]byte, size)
	fields := []struct {
		offset int
		value  *big.Int
	}{
		{reserve0Offset, reserve0},
		{reserve1Offset, reserve1},
		{totalSupplyOffset, totalSupply},
	}
	for _, field := range fields {
		if err := writeUint128LE(inner[field.offset:field.offset+fieldSize], field.value); err != nil {
			return "", err
		}
	}

	out := []byte{0x01, 0x00, SegmentMarker}
	if size < extendedLengthFlag {
		out = append(out, byte(size))
	} else {
		out = append(out, byte(size&0x7f)|extendedLengthFlag, byte(size>>7))
	}
	out = append(out, inner...)
	return strings.TrimPrefix(hexutil.Encode(out), "0x"), nil
}

func decodeHex(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "0x") && !strings.HasPrefix(payload, "0X") {
		payload = "0x" + payload
	}
	return hexutil.Decode(payload)
}

func readUint128LE(field []byte) *big.Int {
	reversed := make([]byte, len(field))
	for i, b := range field {
		reversed[len(field)-1-i] = b
	}
	return new(big.Int).SetBytes(reversed)
}

func writeUint128LE(dst []byte, value *big.Int) error {
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 || value.Cmp(maxUint128) > 0 {
		return fmt.Errorf("value %s does not fit in uint128", value)
	}
	be := value.FillBytes(make([]byte, fieldSize))
	for i, b := range be {
		dst[fieldSize-1-i] = b
	}
	return nil
}
