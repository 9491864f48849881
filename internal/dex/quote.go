package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"swapdesk/internal/model"
)

// Quoter reads output and price impact estimates from the hub.
type Quoter struct {
	exchange Exchange
	now      func() time.Time
}

func NewQuoter(exchange Exchange) *Quoter {
	return &Quoter{exchange: exchange, now: time.Now}
}

// Quote returns nil without touching the network when amountIn is not positive.
func (q *Quoter) Quote(ctx context.Context, poolID *big.Int, tokenIn common.Address, amountIn *big.Int) (*model.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 || poolID == nil || poolID.Sign() <= 0 {
		return nil, nil
	}

	var amountOut, impact *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := q.exchange.AmountOut(gctx, poolID, tokenIn, amountIn)
		if err != nil {
			return fmt.Errorf("amount out: %w", err)
		}
		amountOut = out
		return nil
	})
	g.Go(func() error {
		bps, err := q.exchange.PriceImpact(gctx, poolID, tokenIn, amountIn)
		if err != nil {
			return fmt.Errorf("price impact: %w", err)
		}
		impact = bps
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	impactBps := uint64(0)
	if impact != nil {
		if impact.IsUint64() {
			impactBps = impact.Uint64()
		} else if impact.Sign() > 0 {
			impactBps = ^uint64(0)
		}
	}

	return &model.Quote{
		PoolID:         new(big.Int).Set(poolID),
		TokenIn:        tokenIn,
		AmountIn:       new(big.Int).Set(amountIn),
		AmountOut:      amountOut,
		PriceImpactBps: impactBps,
		QuotedAt:       q.now(),
	}, nil
}

// QuoteAmount parses a human amount first; unparsable input yields a nil quote.
func (q *Quoter) QuoteAmount(ctx context.Context, poolID *big.Int, tokenIn model.Token, raw string) (*model.Quote, error) {
	amountIn, err := model.ParseAmount(raw, tokenIn.Decimals)
	if err != nil {
		return nil, nil
	}
	return q.Quote(ctx, poolID, tokenIn.Address, amountIn)
}
