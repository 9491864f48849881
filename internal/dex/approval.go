package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapdesk/internal/metrics"
	"swapdesk/internal/model"
)

// ApprovalPolicy selects how much allowance an approval grants.
type ApprovalPolicy string

const (
	// ApproveMax grants the maximum uint256 so later actions with the same
	// spender skip the approval prompt. It leaves a standing allowance on the
	// token for the spender.
	ApproveMax ApprovalPolicy = "max"
	// ApproveExact grants exactly the amount the action needs.
	ApproveExact ApprovalPolicy = "exact"
)

// ParseApprovalPolicy accepts "max" or "exact"; empty means max.
func ParseApprovalPolicy(raw string) (ApprovalPolicy, error) {
	switch ApprovalPolicy(raw) {
	case "", ApproveMax:
		return ApproveMax, nil
	case ApproveExact:
		return ApproveExact, nil
	default:
		return "", fmt.Errorf("unknown approval policy %q", raw)
	}
}

// ApprovalResult reports what EnsureAllowance did. Approved is zero when the
// existing allowance already covered the requirement.
type ApprovalResult struct {
	Approved *big.Int
	TxHash   common.Hash
}

// Skipped reports whether no transaction was sent.
func (r ApprovalResult) Skipped() bool {
	return r.Approved == nil || r.Approved.Sign() == 0
}

// Approver ensures allowances before value-moving calls. Allowances are read
// fresh on every call and never cached.
type Approver struct {
	tokens    Tokens
	confirmer Confirmer
	policy    ApprovalPolicy
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewApprover(tokens Tokens, confirmer Confirmer, policy ApprovalPolicy, m *metrics.Metrics, logger *zap.Logger) *Approver {
	if policy == "" {
		policy = ApproveMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Approver{tokens: tokens, confirmer: confirmer, policy: policy, metrics: m, logger: logger}
}

// Policy returns the configured approval policy.
func (a *Approver) Policy() ApprovalPolicy {
	return a.policy
}

// EnsureAllowance approves spender for token when the owner's allowance is
// below required, waiting for the approval to be mined.
func (a *Approver) EnsureAllowance(ctx context.Context, signer Signer, token model.Token, spender common.Address, required *big.Int) (ApprovalResult, error) {
	if required == nil || required.Sign() <= 0 {
		return ApprovalResult{}, validationError(model.ErrInvalidAmount.Error())
	}
	if signer == nil || signer.Account() == (common.Address{}) {
		return ApprovalResult{}, validationError(MsgNoWallet)
	}
	owner := signer.Account()

	current, err := a.tokens.Allowance(ctx, token.Address, owner, spender)
	if err != nil {
		a.metrics.ApprovalResult("error")
		return ApprovalResult{}, a.fail(token, fmt.Errorf("read allowance: %w", err))
	}
	if current.Cmp(required) >= 0 {
		a.metrics.ApprovalResult("skipped")
		a.logger.Debug("allowance sufficient",
			zap.String("token", token.Label()),
			zap.String("allowance", current.String()),
			zap.String("required", required.String()),
		)
		return ApprovalResult{Approved: new(big.Int)}, nil
	}

	amount := new(big.Int).Set(required)
	if a.policy == ApproveMax {
		amount = new(big.Int).Set(math.MaxBig256)
	}

	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		a.metrics.ApprovalResult("error")
		return ApprovalResult{}, a.fail(token, err)
	}
	tx, err := a.tokens.Approve(opts, token.Address, spender, amount)
	if err != nil {
		a.metrics.ApprovalResult("error")
		return ApprovalResult{}, a.fail(token, err)
	}
	a.logger.Info("approval submitted",
		zap.String("token", token.Label()),
		zap.String("spender", spender.Hex()),
		zap.String("tx", tx.Hash().Hex()),
		zap.String("policy", string(a.policy)),
	)

	receipt, err := a.confirmer.WaitMined(ctx, tx)
	if err == nil && receipt.Status != types.ReceiptStatusSuccessful {
		err = ErrReverted
	}
	if err != nil {
		a.metrics.ApprovalResult("error")
		failure := a.fail(token, err)
		failure.Reason = fmt.Sprintf("%s (tx %s)", failure.Reason, tx.Hash().Hex())
		return ApprovalResult{TxHash: tx.Hash()}, failure
	}

	a.metrics.ApprovalResult("approved")
	return ApprovalResult{Approved: amount, TxHash: tx.Hash()}, nil
}

func (a *Approver) fail(token model.Token, err error) *ActionError {
	kind := KindApproval
	if isUserRejection(err) {
		kind = KindUserRejection
	}
	return &ActionError{
		Kind:   kind,
		Step:   model.StateApproving,
		Token:  token.Label(),
		Reason: revertReason(err),
		Err:    err,
	}
}
