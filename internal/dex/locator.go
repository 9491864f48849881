package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Locator finds the pool for an unordered token pair.
type Locator struct {
	exchange Exchange
}

func NewLocator(exchange Exchange) *Locator {
	return &Locator{exchange: exchange}
}

// Locate tries (x, y) then (y, x). A missing pool is reported as found=false,
// not as an error.
func (l *Locator) Locate(ctx context.Context, x, y common.Address) (*big.Int, bool, error) {
	if x == y {
		return nil, false, ErrIdenticalTokens
	}
	for _, pair := range [2][2]common.Address{{x, y}, {y, x}} {
		id, err := l.exchange.PoolIDByPair(ctx, pair[0], pair[1])
		if err != nil {
			return nil, false, fmt.Errorf("locate pool %s/%s: %w", pair[0].Hex(), pair[1].Hex(), err)
		}
		if id != nil && id.Sign() > 0 {
			return id, true, nil
		}
	}
	return nil, false, nil
}
