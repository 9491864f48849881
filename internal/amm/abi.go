package amm

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const hubABIJSON = `[
  {"inputs": [], "name": "totalPools", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSwaps", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "swapFee", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [{"name": "poolId", "type": "uint256"}],
    "name": "getPool",
    "outputs": [{
      "components": [
        {"name": "poolId", "type": "uint256"},
        {"name": "tokenA", "type": "address"},
        {"name": "tokenB", "type": "address"},
        {"name": "reserveA", "type": "uint256"},
        {"name": "reserveB", "type": "uint256"},
        {"name": "totalLiquidity", "type": "uint256"},
        {"name": "lockedLiquidity", "type": "uint256"},
        {"name": "isActive", "type": "bool"},
        {"name": "createdAt", "type": "uint256"},
        {"name": "totalVolume", "type": "uint256"},
        {"name": "totalFees", "type": "uint256"}
      ],
      "name": "",
      "type": "tuple"
    }],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "tokenA", "type": "address"}, {"name": "tokenB", "type": "address"}],
    "name": "pairToPoolId",
    "outputs": [{"type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "poolId", "type": "uint256"}, {"name": "provider", "type": "address"}],
    "name": "getUserLiquidity",
    "outputs": [{"type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "poolId", "type": "uint256"}, {"name": "tokenIn", "type": "address"}, {"name": "amountIn", "type": "uint256"}],
    "name": "getAmountOut",
    "outputs": [{"type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "poolId", "type": "uint256"}, {"name": "tokenIn", "type": "address"}, {"name": "amountIn", "type": "uint256"}],
    "name": "getPriceImpact",
    "outputs": [{"type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"name": "tokenA", "type": "address"}, {"name": "tokenB", "type": "address"}, {"name": "amountA", "type": "uint256"}, {"name": "amountB", "type": "uint256"}],
    "name": "createPool",
    "outputs": [{"type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"name": "poolId", "type": "uint256"}, {"name": "amountA", "type": "uint256"}, {"name": "amountB", "type": "uint256"}, {"name": "minLiquidity", "type": "uint256"}],
    "name": "addLiquidity",
    "outputs": [{"type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"name": "poolId", "type": "uint256"}, {"name": "liquidity", "type": "uint256"}, {"name": "minAmountA", "type": "uint256"}, {"name": "minAmountB", "type": "uint256"}],
    "name": "removeLiquidity",
    "outputs": [{"type": "uint256"}, {"type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"name": "poolId", "type": "uint256"}, {"name": "tokenIn", "type": "address"}, {"name": "amountIn", "type": "uint256"}, {"name": "minAmountOut", "type": "uint256"}],
    "name": "swap",
    "outputs": [{"type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const wethABIJSON = `[
  {"inputs": [], "name": "deposit", "outputs": [], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "wad", "type": "uint256"}], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	hubABI     abi.ABI
	hubABIOnce sync.Once
	hubABIErr  error

	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error

	erc20ABIBytes32     abi.ABI
	erc20ABIBytes32Once sync.Once
	erc20ABIBytes32Err  error

	wethABI     abi.ABI
	wethABIOnce sync.Once
	wethABIErr  error
)

// HubABI returns the parsed exchange hub ABI.
func HubABI() (abi.ABI, error) {
	hubABIOnce.Do(func() {
		hubABI, hubABIErr = abi.JSON(strings.NewReader(hubABIJSON))
	})
	return hubABI, hubABIErr
}

// ERC20ABI returns the parsed ERC20 ABI.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func erc20ABIBytes32Instance() (abi.ABI, error) {
	erc20ABIBytes32Once.Do(func() {
		erc20ABIBytes32, erc20ABIBytes32Err = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
	})
	return erc20ABIBytes32, erc20ABIBytes32Err
}

// WETHABI returns the parsed wrapped-ether ABI.
func WETHABI() (abi.ABI, error) {
	wethABIOnce.Do(func() {
		wethABI, wethABIErr = abi.JSON(strings.NewReader(wethABIJSON))
	})
	return wethABI, wethABIErr
}
