package model

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for empty, non-numeric, non-positive, over-precise
// or out-of-range amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// maxAmountLen bounds the input before it is parsed. A uint256 has 78 digits.
const maxAmountLen = 128

// ParseAmount converts a human-readable decimal string into the token's smallest unit.
func ParseAmount(raw string, decimals uint8) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if len(raw) > maxAmountLen {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxAmountLen)
	}
	if strings.ContainsAny(raw, "eE") {
		return nil, fmt.Errorf("%w: %q uses exponent notation", ErrInvalidAmount, raw)
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidAmount, raw)
	}

	scaled := value.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, raw, decimals)
	}
	out := scaled.BigInt()
	if out.Cmp(math.MaxBig256) > 0 {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, raw)
	}
	return out, nil
}

// FormatAmount renders a smallest-unit amount as a decimal string.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}
