package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Well-known development key (hardhat account #0).
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestKeyedSessionLifecycle(t *testing.T) {
	session, err := NewKeyedSession(devKey, big.NewInt(42161))
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(devKey[2:])
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)
	require.Equal(t, want, session.Account())

	ctx := context.WithValue(context.Background(), struct{}{}, "marker")
	opts, err := session.TransactOpts(ctx)
	require.NoError(t, err)
	require.Equal(t, want, opts.From)
	require.Equal(t, ctx, opts.Context)

	session.Close()
	require.Equal(t, common.Address{}, session.Account())
	_, err = session.TransactOpts(context.Background())
	require.True(t, errors.Is(err, ErrSessionClosed))
}

func TestKeyedSessionRejectsBadKey(t *testing.T) {
	_, err := NewKeyedSession("", big.NewInt(1))
	require.Error(t, err)

	_, err = NewKeyedSession("0xnothex", big.NewInt(1))
	require.Error(t, err)
}
