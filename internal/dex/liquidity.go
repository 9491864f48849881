package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapdesk/internal/model"
)

// LiquidityRequest adds to an existing pool or seeds a new one.
type LiquidityRequest struct {
	TokenA       model.Token
	TokenB       model.Token
	AmountA      string
	AmountB      string
	MinLiquidity *big.Int
}

// RemoveLiquidityRequest burns Liquidity units of PoolID.
type RemoveLiquidityRequest struct {
	PoolID      *big.Int
	Liquidity   *big.Int
	SlippageBps *uint32
}

func (o *Orchestrator) parsePair(signer Signer, req LiquidityRequest) (*big.Int, *big.Int, *ActionError) {
	if !signerReady(signer) {
		return nil, nil, validationError(MsgNoWallet)
	}
	if req.TokenA.Address == req.TokenB.Address {
		return nil, nil, validationError(MsgIdenticalTokens)
	}
	amountA, err := model.ParseAmount(req.AmountA, req.TokenA.Decimals)
	if err != nil {
		return nil, nil, validationError(fmt.Sprintf("%s: %s", req.TokenA.Label(), err))
	}
	amountB, err := model.ParseAmount(req.AmountB, req.TokenB.Decimals)
	if err != nil {
		return nil, nil, validationError(fmt.Sprintf("%s: %s", req.TokenB.Label(), err))
	}
	if req.MinLiquidity != nil && req.MinLiquidity.Sign() < 0 {
		return nil, nil, validationError("minimum liquidity must not be negative")
	}
	return amountA, amountB, nil
}

// AddLiquidity approves both tokens one after the other, re-reads the pool and
// deposits amounts in the pool's own token order.
func (o *Orchestrator) AddLiquidity(ctx context.Context, signer Signer, req LiquidityRequest) (model.ActionSnapshot, error) {
	kind := model.ActionAddLiquidity
	amountA, amountB, verr := o.parsePair(signer, req)
	if verr != nil {
		return o.rejectLocal(kind, signer, verr.Reason)
	}

	return o.run(ctx, kind, signer, refreshScope{positions: true}, func(ctx context.Context, a *PendingAction) error {
		o.step(ctx, a, model.StateValidating, "locating pool")
		poolID, found, err := o.locator.Locate(ctx, req.TokenA.Address, req.TokenB.Address)
		if err != nil {
			return err
		}
		if !found {
			return &ActionError{Kind: KindValidation, Step: model.StateValidating, Reason: MsgNoPool}
		}
		a.setPool(poolID.String())

		if err := o.approve(ctx, a, signer, req.TokenA, amountA); err != nil {
			return err
		}
		if err := o.approve(ctx, a, signer, req.TokenB, amountB); err != nil {
			return err
		}

		o.step(ctx, a, model.StateQuoting, "reading pool state")
		pool, err := o.deps.Exchange.Pool(ctx, poolID)
		if err != nil {
			return err
		}
		if !pool.Active {
			return &ActionError{Kind: KindValidation, Step: model.StateQuoting, Reason: "pool is not active"}
		}
		if !pool.Has(req.TokenA.Address) || !pool.Has(req.TokenB.Address) {
			return &ActionError{Kind: KindValidation, Step: model.StateQuoting, Reason: "pool does not hold this pair"}
		}
		depositA, depositB := pool.Orient(req.TokenA.Address, amountA, amountB)
		minLiquidity := zeroIfNil(req.MinLiquidity)

		_, err = o.submit(ctx, a, signer, "add liquidity", func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return o.deps.Exchange.AddLiquidity(opts, poolID, depositA, depositB, minLiquidity)
		})
		return err
	})
}

// CreatePool refuses pairs that already have a pool, approves both tokens and
// creates the pool. The new pool id is looked up after confirmation.
func (o *Orchestrator) CreatePool(ctx context.Context, signer Signer, req LiquidityRequest) (model.ActionSnapshot, error) {
	kind := model.ActionCreatePool
	amountA, amountB, verr := o.parsePair(signer, req)
	if verr != nil {
		return o.rejectLocal(kind, signer, verr.Reason)
	}

	return o.run(ctx, kind, signer, refreshScope{positions: true}, func(ctx context.Context, a *PendingAction) error {
		o.step(ctx, a, model.StateValidating, "checking for an existing pool")
		existing, found, err := o.locator.Locate(ctx, req.TokenA.Address, req.TokenB.Address)
		if err != nil {
			return err
		}
		if found {
			a.setPool(existing.String())
			return &ActionError{Kind: KindValidation, Step: model.StateValidating, Reason: MsgPoolExists}
		}

		if err := o.approve(ctx, a, signer, req.TokenA, amountA); err != nil {
			return err
		}
		if err := o.approve(ctx, a, signer, req.TokenB, amountB); err != nil {
			return err
		}

		_, err = o.submit(ctx, a, signer, "create pool", func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return o.deps.Exchange.CreatePool(opts, req.TokenA.Address, req.TokenB.Address, amountA, amountB)
		})
		if err != nil {
			return err
		}

		if id, found, err := o.locator.Locate(ctx, req.TokenA.Address, req.TokenB.Address); err == nil && found {
			a.setPool(id.String())
		} else if err != nil {
			o.logger.Warn("new pool lookup failed", zap.Error(err))
		}
		return nil
	})
}

// RemoveLiquidity checks the position, bounds both outputs by the pro-rata
// share minus slippage and submits. No approval is needed.
func (o *Orchestrator) RemoveLiquidity(ctx context.Context, signer Signer, req RemoveLiquidityRequest) (model.ActionSnapshot, error) {
	kind := model.ActionRemoveLiquidity
	if !signerReady(signer) {
		return o.rejectLocal(kind, signer, MsgNoWallet)
	}
	if req.PoolID == nil || req.PoolID.Sign() <= 0 {
		return o.rejectLocal(kind, signer, "pool id is required")
	}
	if req.Liquidity == nil || req.Liquidity.Sign() <= 0 {
		return o.rejectLocal(kind, signer, model.ErrInvalidAmount.Error()+": liquidity must be greater than zero")
	}
	bps, err := o.tolerance(req.SlippageBps)
	if err != nil {
		return o.rejectLocal(kind, signer, err.Error())
	}

	return o.run(ctx, kind, signer, refreshScope{positions: true}, func(ctx context.Context, a *PendingAction) error {
		a.setPool(req.PoolID.String())
		o.step(ctx, a, model.StateValidating, "reading position")
		owned, err := o.deps.Exchange.UserLiquidity(ctx, req.PoolID, signer.Account())
		if err != nil {
			return err
		}
		if owned == nil || owned.Cmp(req.Liquidity) < 0 {
			return &ActionError{
				Kind:   KindValidation,
				Step:   model.StateValidating,
				Reason: fmt.Sprintf("liquidity %s exceeds position %s", req.Liquidity, zeroIfNil(owned)),
			}
		}

		pool, err := o.deps.Exchange.Pool(ctx, req.PoolID)
		if err != nil {
			return err
		}
		if pool.TotalLiquidity == nil || pool.TotalLiquidity.Sign() == 0 {
			return &ActionError{Kind: KindNoLiquidity, Step: model.StateValidating}
		}
		minA, err := MinAcceptable(proRata(pool.ReserveA, req.Liquidity, pool.TotalLiquidity), bps)
		if err != nil {
			return err
		}
		minB, err := MinAcceptable(proRata(pool.ReserveB, req.Liquidity, pool.TotalLiquidity), bps)
		if err != nil {
			return err
		}

		_, err = o.submit(ctx, a, signer, "remove liquidity", func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return o.deps.Exchange.RemoveLiquidity(opts, req.PoolID, req.Liquidity, minA, minB)
		})
		return err
	})
}
