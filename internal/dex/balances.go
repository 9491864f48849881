package dex

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapdesk/internal/metrics"
	"swapdesk/internal/model"
)

// BalanceCache holds the last-known token balances of one account.
type BalanceCache struct {
	tokens  Tokens
	limit   int
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu        sync.RWMutex
	account   common.Address
	balances  map[common.Address]*big.Int
	updatedAt time.Time
	refreshes uint64
}

func NewBalanceCache(tokens Tokens, concurrency int, m *metrics.Metrics, logger *zap.Logger) *BalanceCache {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceCache{
		tokens:   tokens,
		limit:    concurrency,
		metrics:  m,
		logger:   logger,
		balances: make(map[common.Address]*big.Int),
	}
}

// Refresh reads every token balance for account. A token whose read fails is
// reported as zero but its cached value is left as it was; the batch itself
// never fails.
func (c *BalanceCache) Refresh(ctx context.Context, account common.Address, tokens []model.Token) map[common.Address]*big.Int {
	results := make([]*big.Int, len(tokens))
	failed := make([]bool, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, token := range tokens {
		i, token := i, token
		g.Go(func() error {
			balance, err := c.tokens.BalanceOf(gctx, token.Address, account)
			if err != nil {
				c.metrics.BalanceFailure()
				c.logger.Debug("balance read failed",
					zap.String("token", token.Label()),
					zap.String("account", account.Hex()),
					zap.Error(err),
				)
				balance = new(big.Int)
				failed[i] = true
			}
			results[i] = balance
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[common.Address]*big.Int, len(tokens))
	for i, token := range tokens {
		out[token.Address] = results[i]
	}

	c.mu.Lock()
	if c.account != account {
		c.balances = make(map[common.Address]*big.Int, len(out))
		c.account = account
	}
	for i, token := range tokens {
		if !failed[i] {
			c.balances[token.Address] = new(big.Int).Set(results[i])
		}
	}
	c.updatedAt = time.Now()
	c.refreshes++
	c.mu.Unlock()

	return out
}

// Balance returns the cached balance, zero when unknown.
func (c *BalanceCache) Balance(account, token common.Address) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.account != account {
		return new(big.Int)
	}
	if balance, ok := c.balances[token]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// Snapshot copies the cache contents.
func (c *BalanceCache) Snapshot() (common.Address, map[common.Address]*big.Int, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[common.Address]*big.Int, len(c.balances))
	for addr, balance := range c.balances {
		out[addr] = new(big.Int).Set(balance)
	}
	return c.account, out, c.updatedAt
}

// Refreshes counts completed refreshes.
func (c *BalanceCache) Refreshes() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshes
}
