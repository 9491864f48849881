package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is an ERC20 entry from the static registry.
type Token struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// Is reports whether the token lives at addr. Addresses compare as bytes, so
// the check is case-insensitive with respect to the hex form.
func (t Token) Is(addr common.Address) bool {
	return t.Address == addr
}

// Label returns the symbol, or the checksummed address when the symbol is unknown.
func (t Token) Label() string {
	if strings.TrimSpace(t.Symbol) != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}
