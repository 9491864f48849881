package amm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WETH binds the wrapped-ether contract.
type WETH struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewWETH binds the WETH contract at address.
func NewWETH(address common.Address, backend bind.ContractBackend) (*WETH, error) {
	parsed, err := WETHABI()
	if err != nil {
		return nil, fmt.Errorf("parse weth abi: %w", err)
	}
	return &WETH{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the WETH token address.
func (w *WETH) Address() common.Address {
	return w.address
}

// Deposit wraps amount of native ether.
func (w *WETH) Deposit(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	payable := *opts
	payable.Value = new(big.Int).Set(amount)
	return w.contract.Transact(&payable, "deposit")
}

// Withdraw unwraps amount back to native ether.
func (w *WETH) Withdraw(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return w.contract.Transact(opts, "withdraw", amount)
}
