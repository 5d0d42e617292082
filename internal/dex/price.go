package dex

import (
	"fmt"
	"math/big"

	"poolScope/internal/model"
)

// Price returns reserve1 per reserve0 in human units.
func Price(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) (float64, error) {
	return normalizedRatio(reserve1, decimals1, reserve0, decimals0)
}

// PriceInverse returns reserve0 per reserve1 in human units.
func PriceInverse(reserve0, reserve1 *big.Int, decimals0, decimals1 uint8) (float64, error) {
	return normalizedRatio(reserve0, decimals0, reserve1, decimals1)
}

// normalizedRatio divides in big.Rat so 128-bit reserves keep full precision
// until the final float conversion.
func normalizedRatio(num *big.Int, numDecimals uint8, den *big.Int, denDecimals uint8) (float64, error) {
	if den == nil || den.Sign() == 0 {
		return 0, fmt.Errorf("price undefined: %w", model.ErrZeroReserve)
	}
	if num == nil {
		num = new(big.Int)
	}
	if num.Sign() < 0 || den.Sign() < 0 {
		return 0, fmt.Errorf("%w: negative reserve", model.ErrDecode)
	}

	n := new(big.Rat).SetFrac(num, pow10(numDecimals))
	d := new(big.Rat).SetFrac(den, pow10(denDecimals))
	value, _ := new(big.Rat).Quo(n, d).Float64()
	return value, nil
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// FormatAmount renders a raw integer amount in human units.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	abs := new(big.Int).Abs(value)
	text := new(big.Rat).SetFrac(abs, pow10(decimals)).FloatString(int(decimals))
	if value.Sign() < 0 {
		return "-" + text
	}
	return text
}
