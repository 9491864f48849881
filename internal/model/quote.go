package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Quote is an advisory execution estimate. It is never used as the bound for
// a mutating call; swaps re-quote right before submission.
type Quote struct {
	PoolID         *big.Int
	TokenIn        common.Address
	AmountIn       *big.Int
	AmountOut      *big.Int
	PriceImpactBps uint64
	QuotedAt       time.Time
}
