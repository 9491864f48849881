package dex

import (
	"errors"
	"fmt"
	"math/big"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10_000

var ErrInvalidTolerance = errors.New("slippage tolerance must be below 10000 bps")

var bpsDenominator = big.NewInt(BpsDenominator)

// MinAcceptable returns floor(quotedOut * (10000 - toleranceBps) / 10000).
func MinAcceptable(quotedOut *big.Int, toleranceBps uint32) (*big.Int, error) {
	if toleranceBps >= BpsDenominator {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTolerance, toleranceBps)
	}
	if quotedOut == nil || quotedOut.Sign() <= 0 {
		return new(big.Int), nil
	}
	keep := big.NewInt(int64(BpsDenominator - toleranceBps))
	out := new(big.Int).Mul(quotedOut, keep)
	return out.Quo(out, bpsDenominator), nil
}

// proRata returns reserve * part / total, or zero when total is zero.
func proRata(reserve, part, total *big.Int) *big.Int {
	if reserve == nil || part == nil || total == nil || total.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(reserve, part)
	return out.Quo(out, total)
}
