package dex

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapdesk/internal/model"
)

// Positions holds the last-known liquidity positions of one account.
type Positions struct {
	exchange Exchange
	limit    int
	logger   *zap.Logger

	mu        sync.RWMutex
	account   common.Address
	list      []model.Position
	refreshes uint64
}

func NewPositions(exchange Exchange, concurrency int, logger *zap.Logger) *Positions {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Positions{exchange: exchange, limit: concurrency, logger: logger}
}

// Refresh reads the account's liquidity in each pool and keeps non-zero ones.
// A failed read for one pool keeps that pool's previous position.
func (p *Positions) Refresh(ctx context.Context, account common.Address, pools []model.Pool) []model.Position {
	previous := make(map[string]model.Position)
	p.mu.RLock()
	if p.account == account {
		for _, pos := range p.list {
			previous[pos.PoolID.String()] = pos
		}
	}
	p.mu.RUnlock()

	found := make([]*model.Position, len(pools))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, pool := range pools {
		i, pool := i, pool
		g.Go(func() error {
			liquidity, err := p.exchange.UserLiquidity(gctx, pool.ID, account)
			if err != nil {
				p.logger.Debug("position read failed", zap.String("pool", pool.ID.String()), zap.Error(err))
				if prev, ok := previous[pool.ID.String()]; ok {
					found[i] = &prev
				}
				return nil
			}
			if liquidity == nil || liquidity.Sign() == 0 {
				return nil
			}
			found[i] = &model.Position{
				PoolID:         pool.ID,
				TokenA:         pool.TokenA,
				TokenB:         pool.TokenB,
				Liquidity:      liquidity,
				ReserveA:       pool.ReserveA,
				ReserveB:       pool.ReserveB,
				TotalLiquidity: pool.TotalLiquidity,
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.Position, 0, len(found))
	for _, pos := range found {
		if pos != nil {
			out = append(out, *pos)
		}
	}

	p.mu.Lock()
	p.account = account
	p.list = out
	p.refreshes++
	p.mu.Unlock()

	return out
}

// Snapshot returns the cached positions of account.
func (p *Positions) Snapshot(account common.Address) []model.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.account != account {
		return nil
	}
	out := make([]model.Position, len(p.list))
	copy(out, p.list)
	return out
}

// Share returns the pro-rata token amounts a position would withdraw.
func Share(pos model.Position) (*big.Int, *big.Int) {
	return proRata(pos.ReserveA, pos.Liquidity, pos.TotalLiquidity),
		proRata(pos.ReserveB, pos.Liquidity, pos.TotalLiquidity)
}

// Refreshes counts completed refreshes.
func (p *Positions) Refreshes() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.refreshes
}
