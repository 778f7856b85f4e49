package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ValidateAmount checks if an amount string is a valid non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateBigInt checks if a string is a valid non-negative base-10 integer
func ValidateBigInt(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("value cannot be empty")
	}

	bigInt := new(big.Int)
	_, success := bigInt.SetString(value, 10)
	if !success {
		return nil, fmt.Errorf("invalid big integer format")
	}
	if bigInt.Sign() < 0 {
		return nil, fmt.Errorf("value cannot be negative")
	}

	return bigInt, nil
}

// ConvertDecimals rescales an amount from one decimal precision to another.
// Scaling down truncates toward zero.
func ConvertDecimals(amount *big.Int, fromDecimals, toDecimals int) *big.Int {
	if fromDecimals == toDecimals {
		return new(big.Int).Set(amount)
	}

	result := new(big.Int).Set(amount)

	if fromDecimals > toDecimals {
		result.Quo(result, Pow10(fromDecimals-toDecimals))
	} else {
		result.Mul(result, Pow10(toDecimals-fromDecimals))
	}

	return result
}

// Pow10 returns 10^n as a big.Int.
func Pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ParseAmountWithDecimals parses a decimal amount string into base units.
// Amounts with more fractional digits than decimals are rejected rather than
// rounded.
func ParseAmountWithDecimals(amount string, decimals int) (*big.Int, error) {
	dec, err := ValidateAmount(amount)
	if err != nil {
		return nil, err
	}

	scaled := dec.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}

	return scaled.BigInt(), nil
}

// FormatAmountFromBigInt formats base units as a decimal string with the given decimals
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	dec := decimal.NewFromBigInt(amount, -int32(decimals))
	return dec.String()
}
