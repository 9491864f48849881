package dex

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapdesk/internal/chain"
	"swapdesk/internal/metrics"
	"swapdesk/internal/model"
	"swapdesk/internal/storage"
)

// DefaultMaxPools bounds how many pool ids one refresh scans.
const DefaultMaxPools = 1000

// PoolBookOptions tune PoolBook refreshes.
type PoolBookOptions struct {
	Concurrency int
	// MaxPools caps the ids scanned per refresh; the hub's counter is not trusted.
	MaxPools    int
	MaxRetries  int
	Backoff     time.Duration
	Sink        storage.PoolSink
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// PoolBook keeps the last-known-good hub stats and active pools.
type PoolBook struct {
	exchange Exchange
	opts     PoolBookOptions
	logger   *zap.Logger

	mu        sync.RWMutex
	stats     model.HubStats
	pools     []model.Pool
	updatedAt time.Time
	refreshes uint64
}

func NewPoolBook(exchange Exchange, opts PoolBookOptions) *PoolBook {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxPools <= 0 {
		opts.MaxPools = DefaultMaxPools
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolBook{exchange: exchange, opts: opts, logger: logger}
}

// Refresh reloads stats and every active pool. On a stats failure the previous
// snapshot is kept; individual pool failures are skipped.
func (b *PoolBook) Refresh(ctx context.Context) error {
	start := time.Now()

	var stats model.HubStats
	err := chain.WithRetry(ctx, b.opts.MaxRetries, b.opts.Backoff, func(ctx context.Context) error {
		var err error
		stats, err = b.exchange.Stats(ctx)
		return err
	})
	if err != nil {
		b.logger.Warn("pool stats refresh failed", zap.Error(err))
		return fmt.Errorf("load hub stats: %w", err)
	}

	scan := stats.TotalPools
	if limit := uint64(b.opts.MaxPools); scan > limit {
		b.logger.Warn("hub reports more pools than the scan limit",
			zap.Uint64("total", stats.TotalPools),
			zap.Uint64("limit", limit),
		)
		scan = limit
	}

	loaded := make([]*model.Pool, scan)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i := uint64(0); i < scan; i++ {
		i := i
		g.Go(func() error {
			id := new(big.Int).SetUint64(i + 1)
			pool, err := b.exchange.Pool(gctx, id)
			if err != nil {
				b.logger.Debug("pool load failed", zap.String("pool", id.String()), zap.Error(err))
				return nil
			}
			if pool.ID == nil || pool.ID.Sign() == 0 {
				pool.ID = id
			}
			loaded[i] = &pool
			return nil
		})
	}
	_ = g.Wait()

	pools := make([]model.Pool, 0, len(loaded))
	for _, pool := range loaded {
		if pool != nil && pool.Active {
			pools = append(pools, *pool)
		}
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID.Cmp(pools[j].ID) < 0 })

	b.mu.Lock()
	b.stats = stats
	b.pools = pools
	b.updatedAt = time.Now()
	b.refreshes++
	b.mu.Unlock()

	b.opts.Metrics.PoolRefresh(time.Since(start), len(pools))
	b.logger.Debug("pools refreshed",
		zap.Uint64("total", stats.TotalPools),
		zap.Int("active", len(pools)),
		zap.Duration("took", time.Since(start)),
	)

	if b.opts.Sink != nil && len(pools) > 0 {
		if err := b.opts.Sink.UpsertPools(ctx, pools); err != nil {
			b.logger.Warn("pool snapshot write failed", zap.Error(err))
		}
	}
	return nil
}

// Snapshot returns the last-known-good pools and stats.
func (b *PoolBook) Snapshot() ([]model.Pool, model.HubStats, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Pool, len(b.pools))
	copy(out, b.pools)
	return out, b.stats, b.updatedAt
}

// Pool returns a cached pool by id.
func (b *PoolBook) Pool(id *big.Int) (model.Pool, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, pool := range b.pools {
		if pool.ID.Cmp(id) == 0 {
			return pool, true
		}
	}
	return model.Pool{}, false
}

// Refreshes counts successful refreshes.
func (b *PoolBook) Refreshes() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.refreshes
}
