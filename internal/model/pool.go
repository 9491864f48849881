package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is a read-only copy of an exchange hub pool. Token order is whatever
// the hub stored and carries no meaning for callers.
type Pool struct {
	ID              *big.Int
	TokenA          common.Address
	TokenB          common.Address
	ReserveA        *big.Int
	ReserveB        *big.Int
	TotalLiquidity  *big.Int
	LockedLiquidity *big.Int
	Active          bool
	CreatedAt       uint64
	TotalVolume     *big.Int
	TotalFees       *big.Int
}

// Has reports whether token is one side of the pool.
func (p Pool) Has(token common.Address) bool {
	return p.TokenA == token || p.TokenB == token
}

// Reserves returns (reserveIn, reserveOut) for a trade entering with tokenIn.
func (p Pool) Reserves(tokenIn common.Address) (*big.Int, *big.Int, bool) {
	switch tokenIn {
	case p.TokenA:
		return p.ReserveA, p.ReserveB, true
	case p.TokenB:
		return p.ReserveB, p.ReserveA, true
	default:
		return nil, nil, false
	}
}

// Orient maps amounts given for (first, second) onto the pool's (A, B) order.
func (p Pool) Orient(first common.Address, amountFirst, amountSecond *big.Int) (*big.Int, *big.Int) {
	if first == p.TokenB {
		return amountSecond, amountFirst
	}
	return amountFirst, amountSecond
}

// HubStats are the exchange-wide counters.
type HubStats struct {
	TotalPools uint64 `json:"total_pools"`
	TotalSwaps uint64 `json:"total_swaps"`
	SwapFeeBps uint64 `json:"swap_fee_bps"`
}

// Position is an owner's liquidity share in one pool.
type Position struct {
	PoolID         *big.Int
	TokenA         common.Address
	TokenB         common.Address
	Liquidity      *big.Int
	ReserveA       *big.Int
	ReserveB       *big.Int
	TotalLiquidity *big.Int
}
