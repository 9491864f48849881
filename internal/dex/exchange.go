package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapdesk/internal/model"
)

// Exchange is the hub contract surface the core reads from and writes to.
type Exchange interface {
	PoolIDByPair(ctx context.Context, tokenA, tokenB common.Address) (*big.Int, error)
	Pool(ctx context.Context, poolID *big.Int) (model.Pool, error)
	AmountOut(ctx context.Context, poolID *big.Int, tokenIn common.Address, amountIn *big.Int) (*big.Int, error)
	PriceImpact(ctx context.Context, poolID *big.Int, tokenIn common.Address, amountIn *big.Int) (*big.Int, error)
	UserLiquidity(ctx context.Context, poolID *big.Int, provider common.Address) (*big.Int, error)
	Stats(ctx context.Context) (model.HubStats, error)

	Swap(opts *bind.TransactOpts, poolID *big.Int, tokenIn common.Address, amountIn, minOut *big.Int) (*types.Transaction, error)
	AddLiquidity(opts *bind.TransactOpts, poolID, amountA, amountB, minLiquidity *big.Int) (*types.Transaction, error)
	CreatePool(opts *bind.TransactOpts, tokenA, tokenB common.Address, amountA, amountB *big.Int) (*types.Transaction, error)
	RemoveLiquidity(opts *bind.TransactOpts, poolID, liquidity, minA, minB *big.Int) (*types.Transaction, error)
}

// Tokens is the per-token ERC20 surface.
type Tokens interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*types.Transaction, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
}

// Wrapper converts between native ether and its wrapped token.
type Wrapper interface {
	Deposit(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)
	Withdraw(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error)
}

// Confirmer waits for a submitted transaction to be mined.
type Confirmer interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Signer is the connected wallet session an action runs under.
type Signer interface {
	Account() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}
