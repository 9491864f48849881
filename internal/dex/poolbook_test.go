package dex

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"swapdesk/internal/model"
)

type recordingSink struct {
	mu    sync.Mutex
	calls [][]model.Pool
}

func (s *recordingSink) UpsertPools(_ context.Context, pools []model.Pool) error {
	s.mu.Lock()
	s.calls = append(s.calls, pools)
	s.mu.Unlock()
	return nil
}

func TestPoolBookRefresh(t *testing.T) {
	chain := newFakeChain()
	chain.addPool(tokenX.Address, tokenY.Address, 10, 20)
	inactive := chain.addPool(tokenX.Address, tokenZ.Address, 10, 20)
	chain.pools[inactive].Active = false
	broken := chain.addPool(tokenY.Address, tokenZ.Address, 10, 20)
	chain.failPool[broken] = true
	chain.addPool(wethT.Address, tokenZ.Address, 30, 40)

	sink := &recordingSink{}
	book := NewPoolBook(chain, PoolBookOptions{Concurrency: 2, Sink: sink})
	require.NoError(t, book.Refresh(context.Background()))

	pools, stats, updated := book.Snapshot()
	require.Equal(t, uint64(4), stats.TotalPools)
	require.Equal(t, uint64(30), stats.SwapFeeBps)
	require.False(t, updated.IsZero())
	require.Len(t, pools, 2)
	require.Equal(t, "1", pools[0].ID.String())
	require.Equal(t, "4", pools[1].ID.String())

	got, ok := book.Pool(big.NewInt(4))
	require.True(t, ok)
	require.Equal(t, wethT.Address, got.TokenA)
	_, ok = book.Pool(big.NewInt(2))
	require.False(t, ok)

	require.Len(t, sink.calls, 1)
	require.Len(t, sink.calls[0], 2)
}

func TestPoolBookKeepsSnapshotWhenStatsFail(t *testing.T) {
	chain := newFakeChain()
	chain.addPool(tokenX.Address, tokenY.Address, 10, 20)
	book := NewPoolBook(chain, PoolBookOptions{MaxRetries: 1})
	require.NoError(t, book.Refresh(context.Background()))

	chain.readErr["stats"] = errors.New("rate limited")
	err := book.Refresh(context.Background())
	require.ErrorContains(t, err, "load hub stats")
	require.Equal(t, 3, chain.readCount("stats"))

	pools, stats, _ := book.Snapshot()
	require.Len(t, pools, 1)
	require.Equal(t, uint64(1), stats.TotalPools)
	require.Equal(t, uint64(1), book.Refreshes())
}

func TestPoolBookCapsScannedPools(t *testing.T) {
	chain := newFakeChain()
	chain.addPool(tokenX.Address, tokenY.Address, 10, 20)
	chain.addPool(tokenX.Address, tokenZ.Address, 10, 20)
	chain.addPool(tokenY.Address, tokenZ.Address, 10, 20)

	book := NewPoolBook(chain, PoolBookOptions{Concurrency: 1, MaxPools: 2})
	require.NoError(t, book.Refresh(context.Background()))

	pools, stats, _ := book.Snapshot()
	require.Equal(t, uint64(3), stats.TotalPools)
	require.Len(t, pools, 2)
	require.Equal(t, 2, chain.readCount("getPool"))
}

func TestPoolBookBogusPoolCountIsBounded(t *testing.T) {
	chain := newFakeChain()
	chain.addPool(tokenX.Address, tokenY.Address, 10, 20)
	chain.mu.Lock()
	chain.nextPool = 1 << 62
	chain.mu.Unlock()

	book := NewPoolBook(chain, PoolBookOptions{Concurrency: 8})
	require.NoError(t, book.Refresh(context.Background()))

	pools, _, _ := book.Snapshot()
	require.Len(t, pools, 1)
	require.Equal(t, DefaultMaxPools, chain.readCount("getPool"))
}
