package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"swapdesk/internal/model"
)

const etherDecimals = 18

// Wrap converts native ether into WETH.
func (o *Orchestrator) Wrap(ctx context.Context, signer Signer, amount string) (model.ActionSnapshot, error) {
	return o.wrapOrUnwrap(ctx, signer, model.ActionWrap, amount)
}

// Unwrap converts WETH back into native ether.
func (o *Orchestrator) Unwrap(ctx context.Context, signer Signer, amount string) (model.ActionSnapshot, error) {
	return o.wrapOrUnwrap(ctx, signer, model.ActionUnwrap, amount)
}

func (o *Orchestrator) wrapOrUnwrap(ctx context.Context, signer Signer, kind model.ActionKind, raw string) (model.ActionSnapshot, error) {
	if o.deps.Wrapper == nil {
		return o.rejectLocal(kind, signer, "wrapped ether is not configured")
	}
	if !signerReady(signer) {
		return o.rejectLocal(kind, signer, MsgNoWallet)
	}
	amount, err := model.ParseAmount(raw, etherDecimals)
	if err != nil {
		return o.rejectLocal(kind, signer, err.Error())
	}

	return o.run(ctx, kind, signer, refreshScope{}, func(ctx context.Context, a *PendingAction) error {
		o.step(ctx, a, model.StateValidating, "checking balance")
		if kind == model.ActionUnwrap {
			balance, err := o.deps.Tokens.BalanceOf(ctx, o.deps.WrappedETH, signer.Account())
			if err != nil {
				return err
			}
			if balance.Cmp(amount) < 0 {
				return &ActionError{Kind: KindValidation, Step: model.StateValidating, Reason: "insufficient WETH balance"}
			}
		}

		label := "wrap"
		send := func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return o.deps.Wrapper.Deposit(opts, new(big.Int).Set(amount))
		}
		if kind == model.ActionUnwrap {
			label = "unwrap"
			send = func(opts *bind.TransactOpts) (*types.Transaction, error) {
				return o.deps.Wrapper.Withdraw(opts, new(big.Int).Set(amount))
			}
		}
		_, err := o.submit(ctx, a, signer, label, send)
		return err
	})
}
