package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapdesk/internal/model"
)

// SwapRequest is a confirmed swap form. SlippageBps overrides the default tolerance.
type SwapRequest struct {
	TokenIn     model.Token
	TokenOut    model.Token
	Amount      string
	SlippageBps *uint32
}

// Swap locates the pool, approves the input token, re-quotes from the hub and
// submits with the slippage-bounded minimum output. The debounced UI quote is
// never used as the bound.
func (o *Orchestrator) Swap(ctx context.Context, signer Signer, req SwapRequest) (model.ActionSnapshot, error) {
	kind := model.ActionSwap
	if !signerReady(signer) {
		return o.rejectLocal(kind, signer, MsgNoWallet)
	}
	if req.TokenIn.Address == req.TokenOut.Address {
		return o.rejectLocal(kind, signer, MsgIdenticalTokens)
	}
	amountIn, err := model.ParseAmount(req.Amount, req.TokenIn.Decimals)
	if err != nil {
		return o.rejectLocal(kind, signer, err.Error())
	}
	bps, err := o.tolerance(req.SlippageBps)
	if err != nil {
		return o.rejectLocal(kind, signer, err.Error())
	}

	return o.run(ctx, kind, signer, refreshScope{}, func(ctx context.Context, a *PendingAction) error {
		o.step(ctx, a, model.StateValidating, "locating pool")
		poolID, found, err := o.locator.Locate(ctx, req.TokenIn.Address, req.TokenOut.Address)
		if err != nil {
			return err
		}
		if !found {
			return &ActionError{Kind: KindValidation, Step: model.StateValidating, Reason: MsgNoPool}
		}
		a.setPool(poolID.String())

		if err := o.approve(ctx, a, signer, req.TokenIn, amountIn); err != nil {
			return err
		}

		o.step(ctx, a, model.StateQuoting, "fetching fresh quote")
		amountOut, err := o.deps.Exchange.AmountOut(ctx, poolID, req.TokenIn.Address, amountIn)
		if err != nil {
			return noLiquidity(err)
		}
		if amountOut == nil || amountOut.Sign() <= 0 {
			return noLiquidity(nil)
		}
		minOut, err := MinAcceptable(amountOut, bps)
		if err != nil {
			return err
		}
		o.logger.Debug("swap bound",
			zap.String("pool", poolID.String()),
			zap.String("amount_in", amountIn.String()),
			zap.String("quoted_out", amountOut.String()),
			zap.String("min_out", minOut.String()),
			zap.Uint32("slippage_bps", bps),
		)

		_, err = o.submit(ctx, a, signer, "swap", func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return o.deps.Exchange.Swap(opts, poolID, req.TokenIn.Address, amountIn, minOut)
		})
		return err
	})
}

func noLiquidity(err error) *ActionError {
	failure := &ActionError{Kind: KindNoLiquidity, Step: model.StateQuoting, Err: err}
	if err != nil {
		failure.Reason = revertReason(err)
	}
	return failure
}

// zeroIfNil keeps optional amounts out of ABI encoding as nil pointers.
func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
