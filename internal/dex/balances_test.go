package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"swapdesk/internal/metrics"
	"swapdesk/internal/model"
)

func TestBalanceRefreshReportsFailuresAsZero(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance(tokenX.Address, alice, big.NewInt(100))
	chain.setBalance(tokenY.Address, alice, big.NewInt(200))
	chain.balanceErr[tokenY.Address] = errors.New("timeout")

	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
	cache := NewBalanceCache(chain, 2, m, nil)
	got := cache.Refresh(context.Background(), alice, []model.Token{tokenX, tokenY, tokenZ})

	require.Len(t, got, 3)
	require.Equal(t, "100", got[tokenX.Address].String())
	require.Zero(t, got[tokenY.Address].Sign())
	require.Zero(t, got[tokenZ.Address].Sign())
	require.Equal(t, 1.0, testutil.ToFloat64(m.BalanceFailures))
	require.Equal(t, uint64(1), cache.Refreshes())

	require.Equal(t, "100", cache.Balance(alice, tokenX.Address).String())
	require.Zero(t, cache.Balance(hubAddr, tokenX.Address).Sign())
}

func TestBalanceCacheSwitchesAccount(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance(tokenX.Address, alice, big.NewInt(1))
	chain.setBalance(tokenY.Address, hubAddr, big.NewInt(2))
	cache := NewBalanceCache(chain, 0, nil, nil)

	cache.Refresh(context.Background(), alice, []model.Token{tokenX})
	cache.Refresh(context.Background(), hubAddr, []model.Token{tokenY})

	account, balances, updated := cache.Snapshot()
	require.Equal(t, hubAddr, account)
	require.Len(t, balances, 1)
	require.Equal(t, "2", balances[tokenY.Address].String())
	require.False(t, updated.IsZero())
}

func TestBalanceCacheKeepsLastGoodValueOnFailure(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance(tokenX.Address, alice, big.NewInt(100))
	chain.setBalance(tokenY.Address, alice, big.NewInt(7))
	cache := NewBalanceCache(chain, 2, nil, nil)

	cache.Refresh(context.Background(), alice, []model.Token{tokenX, tokenY})
	require.Equal(t, "100", cache.Balance(alice, tokenX.Address).String())

	chain.setBalance(tokenY.Address, alice, big.NewInt(8))
	chain.balanceErr[tokenX.Address] = errors.New("balanceOf: timeout")
	got := cache.Refresh(context.Background(), alice, []model.Token{tokenX, tokenY})

	require.Zero(t, got[tokenX.Address].Sign())
	require.Equal(t, "100", cache.Balance(alice, tokenX.Address).String())
	require.Equal(t, "8", cache.Balance(alice, tokenY.Address).String())
}

func TestBalanceCacheCancelledRefreshKeepsValues(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance(tokenX.Address, alice, big.NewInt(100))
	cache := NewBalanceCache(chain, 1, nil, nil)
	cache.Refresh(context.Background(), alice, []model.Token{tokenX})

	chain.balanceErr[tokenX.Address] = context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cache.Refresh(ctx, alice, []model.Token{tokenX})

	require.Equal(t, "100", cache.Balance(alice, tokenX.Address).String())
}
