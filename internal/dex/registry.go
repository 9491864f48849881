package dex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"swapdesk/internal/model"
)

// Registry is the static token list. Lookups by address ignore hex case and
// lookups by symbol ignore letter case.
type Registry struct {
	order    []model.Token
	byAddr   map[common.Address]model.Token
	bySymbol map[string]model.Token
}

// DefaultTokens is the Arbitrum One token list.
var DefaultTokens = []model.Token{
	{Symbol: "AXM", Name: "Axiom", Address: common.HexToAddress("0x864F9c6f50dC5Bd244F5002F1B0873Cd80e2539D"), Decimals: 18},
	{Symbol: "WETH", Name: "Wrapped Ether", Address: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), Decimals: 18},
	{Symbol: "WBNB", Name: "Wrapped BNB", Address: common.HexToAddress("0xa9004A5421372E1D83fB1f85b0fc986c912f91f3"), Decimals: 18},
	{Symbol: "USDC", Name: "USD Coin", Address: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), Decimals: 6},
	{Symbol: "USDT", Name: "Tether USD", Address: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"), Decimals: 6},
	{Symbol: "DAI", Name: "Dai Stablecoin", Address: common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"), Decimals: 18},
	{Symbol: "WBTC", Name: "Wrapped BTC", Address: common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"), Decimals: 8},
	{Symbol: "ARB", Name: "Arbitrum", Address: common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548"), Decimals: 18},
	{Symbol: "LINK", Name: "ChainLink Token", Address: common.HexToAddress("0xf97f4df75117a78c1A5a0DBb814Af92458539FB4"), Decimals: 18},
	{Symbol: "wstETH", Name: "Wrapped liquid staked Ether", Address: common.HexToAddress("0x5979D7b546E38E414F7E9822514be443A4800529"), Decimals: 18},
	{Symbol: "FRAX", Name: "Frax", Address: common.HexToAddress("0x17FC002b466eEc40DaE837Fc4bE5c67993ddBd6F"), Decimals: 18},
	{Symbol: "PENDLE", Name: "Pendle", Address: common.HexToAddress("0x0c880f6761F1af8d9Aa9C466984b80Dab9a8c9e8"), Decimals: 18},
	{Symbol: "GNS", Name: "Gains Network", Address: common.HexToAddress("0x18c11FD286C5EC11c3b683Caa813B77f5163A122"), Decimals: 18},
	{Symbol: "MAGIC", Name: "Magic", Address: common.HexToAddress("0x539bDE0d7Dbd336b79148AA742883198BBF60342"), Decimals: 18},
	{Symbol: "GMX", Name: "GMX", Address: common.HexToAddress("0xfc5A1A6EB076a2C7aD06eD22C90d7E710E35ad0a"), Decimals: 18},
}

// NewRegistry builds a registry; duplicate addresses or symbols are rejected.
func NewRegistry(tokens []model.Token) (*Registry, error) {
	r := &Registry{
		byAddr:   make(map[common.Address]model.Token, len(tokens)),
		bySymbol: make(map[string]model.Token, len(tokens)),
	}
	for _, token := range tokens {
		if err := r.add(token); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns the built-in list plus extra entries.
func DefaultRegistry(extra ...model.Token) (*Registry, error) {
	tokens := make([]model.Token, 0, len(DefaultTokens)+len(extra))
	tokens = append(tokens, DefaultTokens...)
	tokens = append(tokens, extra...)
	return NewRegistry(tokens)
}

func (r *Registry) add(token model.Token) error {
	if token.Address == (common.Address{}) {
		return fmt.Errorf("token %q: zero address", token.Symbol)
	}
	if _, ok := r.byAddr[token.Address]; ok {
		return fmt.Errorf("duplicate token address %s", token.Address.Hex())
	}
	key := strings.ToUpper(token.Symbol)
	if key != "" {
		if _, ok := r.bySymbol[key]; ok {
			return fmt.Errorf("duplicate token symbol %s", token.Symbol)
		}
		r.bySymbol[key] = token
	}
	r.byAddr[token.Address] = token
	r.order = append(r.order, token)
	return nil
}

// All returns tokens in registration order.
func (r *Registry) All() []model.Token {
	out := make([]model.Token, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) ByAddress(addr common.Address) (model.Token, bool) {
	token, ok := r.byAddr[addr]
	return token, ok
}

// Lookup resolves a symbol or a hex address.
func (r *Registry) Lookup(ref string) (model.Token, bool) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		return r.ByAddress(common.HexToAddress(ref))
	}
	token, ok := r.bySymbol[strings.ToUpper(ref)]
	return token, ok
}

// Resolve is Lookup with an error for unknown references.
func (r *Registry) Resolve(ref string) (model.Token, error) {
	token, ok := r.Lookup(ref)
	if !ok {
		return model.Token{}, fmt.Errorf("unknown token %q", ref)
	}
	return token, nil
}

// ParseTokenSpec parses "SYMBOL:0xaddress:decimals".
func ParseTokenSpec(spec string) (model.Token, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) != 3 {
		return model.Token{}, fmt.Errorf("token spec %q: want SYMBOL:address:decimals", spec)
	}
	symbol := strings.TrimSpace(parts[0])
	if symbol == "" {
		return model.Token{}, fmt.Errorf("token spec %q: empty symbol", spec)
	}
	addr := strings.TrimSpace(parts[1])
	if !common.IsHexAddress(addr) {
		return model.Token{}, fmt.Errorf("token spec %q: invalid address", spec)
	}
	decimals, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 8)
	if err != nil {
		return model.Token{}, fmt.Errorf("token spec %q: decimals: %w", spec, err)
	}
	return model.Token{Symbol: symbol, Address: common.HexToAddress(addr), Decimals: uint8(decimals)}, nil
}
