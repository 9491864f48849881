package main

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"swapdesk/internal/dex"
	"swapdesk/internal/model"
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type amountOut struct {
	Token  string `json:"token"`
	Raw    string `json:"raw"`
	Amount string `json:"amount"`
}

func formatAmount(registry *dex.Registry, addr common.Address, raw *big.Int) amountOut {
	token, ok := registry.ByAddress(addr)
	if !ok {
		token = model.Token{Address: addr}
	}
	if raw == nil {
		raw = new(big.Int)
	}
	return amountOut{Token: token.Label(), Raw: raw.String(), Amount: model.FormatAmount(raw, token.Decimals)}
}

func resolvePair(registry *dex.Registry, a, b string) (model.Token, model.Token, error) {
	first, err := registry.Resolve(a)
	if err != nil {
		return model.Token{}, model.Token{}, err
	}
	second, err := registry.Resolve(b)
	if err != nil {
		return model.Token{}, model.Token{}, err
	}
	return first, second, nil
}

func parsePoolID(raw string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid pool id %q", raw)
	}
	return id, nil
}
