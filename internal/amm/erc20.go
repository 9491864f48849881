package amm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapdesk/internal/model"
)

// ERC20 talks to any ERC20 token through one backend.
type ERC20 struct {
	backend bind.ContractBackend
	parsed  abi.ABI
	logger  *zap.Logger
}

// NewERC20 returns an ERC20 helper bound to backend.
func NewERC20(backend bind.ContractBackend, logger *zap.Logger) (*ERC20, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ERC20{backend: backend, parsed: parsed, logger: logger}, nil
}

func (e *ERC20) bound(token common.Address, parsed abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(token, parsed, e.backend, e.backend, e.backend)
}

func (e *ERC20) call(ctx context.Context, token common.Address, parsed abi.ABI, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := e.bound(token, parsed).Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return out, nil
}

// Allowance returns what spender may pull from owner.
func (e *ERC20) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := e.call(ctx, token, e.parsed, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(out[0])
}

// BalanceOf returns the token balance of account.
func (e *ERC20) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := e.call(ctx, token, e.parsed, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return asBigInt(out[0])
}

// Approve sets spender's allowance to amount.
func (e *ERC20) Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return e.bound(token, e.parsed).Transact(opts, "approve", spender, amount)
}

// Metadata loads symbol, name and decimals, falling back to bytes32 strings.
func (e *ERC20) Metadata(ctx context.Context, token common.Address) (model.Token, error) {
	meta := model.Token{Address: token}

	values, err := e.call(ctx, token, e.parsed, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	if values, err := e.call(ctx, token, e.parsed, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := e.call(ctx, token, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		e.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := e.call(ctx, token, e.parsed, "name"); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := e.call(ctx, token, bytes32ABI, "name"); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		e.logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}
