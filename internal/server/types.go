package server

import (
	"math/big"
	"time"

	"swapdesk/internal/dex"
	"swapdesk/internal/model"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

type HealthResponse struct {
	OK          bool      `json:"ok"`
	PoolsLoaded bool      `json:"pools_loaded"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type StatsResponse struct {
	model.HubStats
	ActivePools int       `json:"active_pools"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TokenAmount carries both the raw integer and its decimal rendering.
type TokenAmount struct {
	Token  string `json:"token"`
	Symbol string `json:"symbol,omitempty"`
	Raw    string `json:"raw"`
	Amount string `json:"amount"`
}

type PoolView struct {
	ID             string      `json:"id"`
	TokenA         TokenAmount `json:"token_a"`
	TokenB         TokenAmount `json:"token_b"`
	TotalLiquidity string      `json:"total_liquidity"`
	TotalVolume    string      `json:"total_volume"`
	TotalFees      string      `json:"total_fees"`
	CreatedAt      uint64      `json:"created_at"`
}

type LocateResponse struct {
	Found  bool   `json:"found"`
	PoolID string `json:"pool_id,omitempty"`
}

type QuoteResponse struct {
	PoolID         string      `json:"pool_id"`
	In             TokenAmount `json:"in"`
	Out            TokenAmount `json:"out"`
	MinOut         TokenAmount `json:"min_out"`
	SlippageBps    uint32      `json:"slippage_bps"`
	PriceImpactBps uint64      `json:"price_impact_bps"`
	QuotedAt       time.Time   `json:"quoted_at"`
}

type PositionView struct {
	PoolID    string      `json:"pool_id"`
	Liquidity string      `json:"liquidity"`
	ShareA    TokenAmount `json:"share_a"`
	ShareB    TokenAmount `json:"share_b"`
}

func amountView(registry *dex.Registry, token model.Token, raw *big.Int) TokenAmount {
	if known, ok := registry.ByAddress(token.Address); ok {
		token = known
	}
	if raw == nil {
		raw = new(big.Int)
	}
	return TokenAmount{
		Token:  token.Address.Hex(),
		Symbol: token.Symbol,
		Raw:    raw.String(),
		Amount: model.FormatAmount(raw, token.Decimals),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
