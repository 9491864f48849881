package amm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapdesk/internal/model"
)

// Hub binds the exchange hub contract that owns every pool.
type Hub struct {
	address  common.Address
	contract *bind.BoundContract
}

// poolTuple mirrors the getPool return struct; field names and order must
// match the ABI components for abi.ConvertType.
type poolTuple struct {
	PoolId          *big.Int
	TokenA          common.Address
	TokenB          common.Address
	ReserveA        *big.Int
	ReserveB        *big.Int
	TotalLiquidity  *big.Int
	LockedLiquidity *big.Int
	IsActive        bool
	CreatedAt       *big.Int
	TotalVolume     *big.Int
	TotalFees       *big.Int
}

// NewHub binds the hub at address.
func NewHub(address common.Address, backend bind.ContractBackend) (*Hub, error) {
	parsed, err := HubABI()
	if err != nil {
		return nil, fmt.Errorf("parse hub abi: %w", err)
	}
	return &Hub{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the hub address, which is also the approval spender.
func (h *Hub) Address() common.Address {
	return h.address
}

func (h *Hub) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := h.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return out, nil
}

func (h *Hub) callBigInt(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	out, err := h.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	value, err := asBigInt(out[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return value, nil
}

// PoolIDByPair returns the pool id stored for the ordered pair; zero means none.
func (h *Hub) PoolIDByPair(ctx context.Context, tokenA, tokenB common.Address) (*big.Int, error) {
	return h.callBigInt(ctx, "pairToPoolId", tokenA, tokenB)
}

// Pool reads a pool by id.
func (h *Hub) Pool(ctx context.Context, poolID *big.Int) (model.Pool, error) {
	out, err := h.call(ctx, "getPool", poolID)
	if err != nil {
		return model.Pool{}, err
	}
	tuple, ok := abi.ConvertType(out[0], new(poolTuple)).(*poolTuple)
	if !ok {
		return model.Pool{}, fmt.Errorf("getPool: unexpected result type %T", out[0])
	}

	createdAt := uint64(0)
	if tuple.CreatedAt != nil && tuple.CreatedAt.IsUint64() {
		createdAt = tuple.CreatedAt.Uint64()
	}
	return model.Pool{
		ID:              tuple.PoolId,
		TokenA:          tuple.TokenA,
		TokenB:          tuple.TokenB,
		ReserveA:        tuple.ReserveA,
		ReserveB:        tuple.ReserveB,
		TotalLiquidity:  tuple.TotalLiquidity,
		LockedLiquidity: tuple.LockedLiquidity,
		Active:          tuple.IsActive,
		CreatedAt:       createdAt,
		TotalVolume:     tuple.TotalVolume,
		TotalFees:       tuple.TotalFees,
	}, nil
}

// AmountOut returns the hub's output estimate for amountIn of tokenIn.
func (h *Hub) AmountOut(ctx context.Context, poolID *big.Int, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	return h.callBigInt(ctx, "getAmountOut", poolID, tokenIn, amountIn)
}

// PriceImpact returns the hub's price impact estimate in basis points.
func (h *Hub) PriceImpact(ctx context.Context, poolID *big.Int, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	return h.callBigInt(ctx, "getPriceImpact", poolID, tokenIn, amountIn)
}

// UserLiquidity returns the liquidity units provider holds in a pool.
func (h *Hub) UserLiquidity(ctx context.Context, poolID *big.Int, provider common.Address) (*big.Int, error) {
	return h.callBigInt(ctx, "getUserLiquidity", poolID, provider)
}

// Stats reads the hub-wide counters.
func (h *Hub) Stats(ctx context.Context) (model.HubStats, error) {
	var stats model.HubStats
	for _, field := range []struct {
		method string
		dst    *uint64
	}{
		{"totalPools", &stats.TotalPools},
		{"totalSwaps", &stats.TotalSwaps},
		{"swapFee", &stats.SwapFeeBps},
	} {
		out, err := h.call(ctx, field.method)
		if err != nil {
			return model.HubStats{}, err
		}
		value, err := asUint64(out[0])
		if err != nil {
			return model.HubStats{}, fmt.Errorf("%s: %w", field.method, err)
		}
		*field.dst = value
	}
	return stats, nil
}

// Swap submits a swap bounded by minOut.
func (h *Hub) Swap(opts *bind.TransactOpts, poolID *big.Int, tokenIn common.Address, amountIn, minOut *big.Int) (*types.Transaction, error) {
	return h.contract.Transact(opts, "swap", poolID, tokenIn, amountIn, minOut)
}

// AddLiquidity deposits amounts in the pool's own token order.
func (h *Hub) AddLiquidity(opts *bind.TransactOpts, poolID, amountA, amountB, minLiquidity *big.Int) (*types.Transaction, error) {
	return h.contract.Transact(opts, "addLiquidity", poolID, amountA, amountB, minLiquidity)
}

// CreatePool creates a pool seeded with the given amounts.
func (h *Hub) CreatePool(opts *bind.TransactOpts, tokenA, tokenB common.Address, amountA, amountB *big.Int) (*types.Transaction, error) {
	return h.contract.Transact(opts, "createPool", tokenA, tokenB, amountA, amountB)
}

// RemoveLiquidity burns liquidity units for at least minA/minB back.
func (h *Hub) RemoveLiquidity(opts *bind.TransactOpts, poolID, liquidity, minA, minB *big.Int) (*types.Transaction, error) {
	return h.contract.Transact(opts, "removeLiquidity", poolID, liquidity, minA, minB)
}
