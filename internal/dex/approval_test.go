package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapdesk/internal/model"
)

func TestEnsureAllowanceApprovesMaxOnce(t *testing.T) {
	chain := newFakeChain()
	approver := NewApprover(chain, chain, "", nil, nil)
	require.Equal(t, ApproveMax, approver.Policy())
	signer := fakeSigner{account: alice}

	res, err := approver.EnsureAllowance(context.Background(), signer, tokenX, hubAddr, big.NewInt(500))
	require.NoError(t, err)
	require.False(t, res.Skipped())
	require.Zero(t, res.Approved.Cmp(math.MaxBig256))
	require.NotZero(t, res.TxHash)

	res, err = approver.EnsureAllowance(context.Background(), signer, tokenX, hubAddr, big.NewInt(1_000_000))
	require.NoError(t, err)
	require.True(t, res.Skipped())
	require.Equal(t, []string{"approve"}, chain.sentMethods())
	require.Equal(t, 2, chain.readCount("allowance"))
}

func TestEnsureAllowanceSkipsWhenSufficient(t *testing.T) {
	chain := newFakeChain()
	chain.setAllowance(tokenZ.Address, alice, hubAddr, big.NewInt(1_000_000))
	approver := NewApprover(chain, chain, ApproveMax, nil, nil)

	required, err := model.ParseAmount("0.5", tokenZ.Decimals)
	require.NoError(t, err)
	res, err := approver.EnsureAllowance(context.Background(), fakeSigner{account: alice}, tokenZ, hubAddr, required)
	require.NoError(t, err)
	require.True(t, res.Skipped())
	require.Empty(t, chain.sentMethods())
}

func TestEnsureAllowanceExactPolicy(t *testing.T) {
	chain := newFakeChain()
	chain.setAllowance(tokenX.Address, alice, hubAddr, big.NewInt(10))
	approver := NewApprover(chain, chain, ApproveExact, nil, nil)

	res, err := approver.EnsureAllowance(context.Background(), fakeSigner{account: alice}, tokenX, hubAddr, big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, "42", res.Approved.String())

	sent, ok := chain.lastSent("approve")
	require.True(t, ok)
	require.Equal(t, "42", sent.args[0].String())
}

func TestEnsureAllowanceRejectsBadInputWithoutReads(t *testing.T) {
	chain := newFakeChain()
	approver := NewApprover(chain, chain, ApproveMax, nil, nil)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		_, err := approver.EnsureAllowance(context.Background(), fakeSigner{account: alice}, tokenX, hubAddr, amount)
		var actionErr *ActionError
		require.True(t, errors.As(err, &actionErr))
		assert.Equal(t, KindValidation, actionErr.Kind)
	}
	_, err := approver.EnsureAllowance(context.Background(), fakeSigner{}, tokenX, hubAddr, big.NewInt(1))
	require.Error(t, err)
	require.Zero(t, chain.readCount("allowance"))
}

func TestEnsureAllowanceFailures(t *testing.T) {
	t.Run("read error", func(t *testing.T) {
		chain := newFakeChain()
		chain.readErr["allowance"] = errors.New("dial tcp: connection refused")
		approver := NewApprover(chain, chain, ApproveMax, nil, nil)

		_, err := approver.EnsureAllowance(context.Background(), fakeSigner{account: alice}, tokenX, hubAddr, big.NewInt(1))
		var actionErr *ActionError
		require.ErrorAs(t, err, &actionErr)
		assert.Equal(t, KindApproval, actionErr.Kind)
		assert.Equal(t, "TKX", actionErr.Token)
		assert.Empty(t, chain.sentMethods())
	})

	t.Run("rejected", func(t *testing.T) {
		chain := newFakeChain()
		chain.rejectOn["approve"] = true
		approver := NewApprover(chain, chain, ApproveMax, nil, nil)

		res, err := approver.EnsureAllowance(context.Background(), fakeSigner{account: alice}, tokenX, hubAddr, big.NewInt(1))
		var actionErr *ActionError
		require.ErrorAs(t, err, &actionErr)
		assert.Equal(t, KindUserRejection, actionErr.Kind)
		assert.Equal(t, MsgCancelled, actionErr.UserMessage())
		assert.True(t, res.Skipped())
	})

	t.Run("reverted", func(t *testing.T) {
		chain := newFakeChain()
		chain.revertOn["approve"] = "paused"
		approver := NewApprover(chain, chain, ApproveMax, nil, nil)

		res, err := approver.EnsureAllowance(context.Background(), fakeSigner{account: alice}, tokenX, hubAddr, big.NewInt(1))
		require.ErrorIs(t, err, ErrReverted)
		assert.NotZero(t, res.TxHash)
		assert.Contains(t, err.(*ActionError).UserMessage(), "approval failed: TKX")
	})
}

func TestParseApprovalPolicy(t *testing.T) {
	policy, err := ParseApprovalPolicy("")
	require.NoError(t, err)
	require.Equal(t, ApproveMax, policy)

	policy, err = ParseApprovalPolicy("exact")
	require.NoError(t, err)
	require.Equal(t, ApproveExact, policy)

	_, err = ParseApprovalPolicy("infinite")
	require.Error(t, err)
}
