package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"swapdesk/internal/dex"
	"swapdesk/internal/model"
	"swapdesk/internal/storage"
)

// Handlers serves read-only views over the exchange state.
type Handlers struct {
	Registry    *dex.Registry
	Book        *dex.PoolBook
	Locator     *dex.Locator
	Quoter      *dex.Quoter
	Cache       *dex.BalanceCache
	Holdings    *dex.Positions
	Journal     storage.ActionLister // optional
	Gatherer    prometheus.Gatherer
	SlippageBps uint32
	ReadTimeout time.Duration
	Logger      *zap.Logger
}

func (h *Handlers) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	return c.JSON(code, ErrorResponse{Error: msg, Code: code, Details: details})
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := h.ReadTimeout
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) token(c echo.Context, param string) (model.Token, error) {
	ref := strings.TrimSpace(c.QueryParam(param))
	if ref == "" {
		return model.Token{}, h.err(c, http.StatusBadRequest, "invalid "+param, map[string]any{param: "required"})
	}
	token, ok := h.Registry.Lookup(ref)
	if !ok {
		return model.Token{}, h.err(c, http.StatusBadRequest, "unknown token", map[string]any{param: ref})
	}
	return token, nil
}

func accountParam(c echo.Context) (common.Address, bool) {
	raw := strings.TrimSpace(c.Param("account"))
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (h *Handlers) Health(c echo.Context) error {
	_, _, updated := h.Book.Snapshot()
	return c.JSON(http.StatusOK, HealthResponse{OK: true, PoolsLoaded: !updated.IsZero(), UpdatedAt: updated})
}

func (h *Handlers) Stats(c echo.Context) error {
	pools, stats, updated := h.Book.Snapshot()
	return c.JSON(http.StatusOK, StatsResponse{HubStats: stats, ActivePools: len(pools), UpdatedAt: updated})
}

func (h *Handlers) Tokens(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"items": h.Registry.All()})
}

// Pools lists the last-known active pools.
func (h *Handlers) Pools(c echo.Context) error {
	pools, _, _ := h.Book.Snapshot()
	items := make([]PoolView, 0, len(pools))
	for _, pool := range pools {
		items = append(items, PoolView{
			ID:             bigString(pool.ID),
			TokenA:         amountView(h.Registry, model.Token{Address: pool.TokenA}, pool.ReserveA),
			TokenB:         amountView(h.Registry, model.Token{Address: pool.TokenB}, pool.ReserveB),
			TotalLiquidity: bigString(pool.TotalLiquidity),
			TotalVolume:    bigString(pool.TotalVolume),
			TotalFees:      bigString(pool.TotalFees),
			CreatedAt:      pool.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) Locate(c echo.Context) error {
	a, err := h.token(c, "tokenA")
	if err != nil {
		return err
	}
	b, err := h.token(c, "tokenB")
	if err != nil {
		return err
	}
	if a.Address == b.Address {
		return h.err(c, http.StatusBadRequest, dex.MsgIdenticalTokens, nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	id, found, err := h.Locator.Locate(ctx, a.Address, b.Address)
	if err != nil {
		h.logger().Warn("locate failed", zap.Error(err))
		return h.err(c, http.StatusBadGateway, "failed to locate pool", nil)
	}
	if !found {
		return c.JSON(http.StatusOK, LocateResponse{Found: false})
	}
	return c.JSON(http.StatusOK, LocateResponse{Found: true, PoolID: id.String()})
}

// Quote prices a swap of a human-readable amount and shows the bound a swap
// at the given tolerance would submit with.
func (h *Handlers) Quote(c echo.Context) error {
	tokenIn, err := h.token(c, "tokenIn")
	if err != nil {
		return err
	}
	tokenOut, err := h.token(c, "tokenOut")
	if err != nil {
		return err
	}
	if tokenIn.Address == tokenOut.Address {
		return h.err(c, http.StatusBadRequest, dex.MsgIdenticalTokens, nil)
	}
	amountIn, err := model.ParseAmount(c.QueryParam("amount"), tokenIn.Decimals)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": err.Error()})
	}
	bps := h.SlippageBps
	if raw := strings.TrimSpace(c.QueryParam("slippageBps")); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n >= dex.BpsDenominator {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be below 10000"})
		}
		bps = uint32(n)
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	poolID, found, err := h.Locator.Locate(ctx, tokenIn.Address, tokenOut.Address)
	if err != nil {
		h.logger().Warn("locate failed", zap.Error(err))
		return h.err(c, http.StatusBadGateway, "failed to locate pool", nil)
	}
	if !found {
		return h.err(c, http.StatusNotFound, dex.MsgNoPool, nil)
	}
	quote, err := h.Quoter.Quote(ctx, poolID, tokenIn.Address, amountIn)
	if err != nil {
		h.logger().Warn("quote failed", zap.String("pool", poolID.String()), zap.Error(err))
		return h.err(c, http.StatusBadGateway, "failed to quote", nil)
	}
	if quote == nil || quote.AmountOut == nil || quote.AmountOut.Sign() == 0 {
		return h.err(c, http.StatusUnprocessableEntity, dex.MsgNoLiquidity, nil)
	}
	minOut, err := dex.MinAcceptable(quote.AmountOut, bps)
	if err != nil {
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		PoolID:         poolID.String(),
		In:             amountView(h.Registry, tokenIn, amountIn),
		Out:            amountView(h.Registry, tokenOut, quote.AmountOut),
		MinOut:         amountView(h.Registry, tokenOut, minOut),
		SlippageBps:    bps,
		PriceImpactBps: quote.PriceImpactBps,
		QuotedAt:       quote.QuotedAt,
	})
}

// Balances refreshes and returns every registry token balance of account.
func (h *Handlers) Balances(c echo.Context) error {
	account, ok := accountParam(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid account", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	tokens := h.Registry.All()
	balances := h.Cache.Refresh(ctx, account, tokens)
	items := make([]TokenAmount, 0, len(tokens))
	for _, token := range tokens {
		items = append(items, amountView(h.Registry, token, balances[token.Address]))
	}
	return c.JSON(http.StatusOK, map[string]any{"account": account.Hex(), "items": items})
}

func (h *Handlers) Positions(c echo.Context) error {
	account, ok := accountParam(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid account", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	pools, _, _ := h.Book.Snapshot()
	positions := h.Holdings.Refresh(ctx, account, pools)
	items := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		shareA, shareB := dex.Share(pos)
		items = append(items, PositionView{
			PoolID:    bigString(pos.PoolID),
			Liquidity: bigString(pos.Liquidity),
			ShareA:    amountView(h.Registry, model.Token{Address: pos.TokenA}, shareA),
			ShareB:    amountView(h.Registry, model.Token{Address: pos.TokenB}, shareB),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"account": account.Hex(), "items": items})
}

// Actions lists journaled actions, newest first.
func (h *Handlers) Actions(c echo.Context) error {
	if h.Journal == nil {
		return h.err(c, http.StatusNotImplemented, "action journal is not configured", nil)
	}
	filter := storage.ActionFilter{Kind: model.ActionKind(strings.TrimSpace(c.QueryParam("kind")))}
	if raw := strings.TrimSpace(c.QueryParam("account")); raw != "" {
		if !common.IsHexAddress(raw) {
			return h.err(c, http.StatusBadRequest, "invalid account", nil)
		}
		filter.Account = common.HexToAddress(raw).Hex()
	}
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 500"})
		}
		filter.Limit = n
	}
	if raw := strings.TrimSpace(c.QueryParam("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid since", map[string]any{"since": "RFC3339"})
		}
		filter.Since = since
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	items, err := h.Journal.ListActions(ctx, filter)
	if err != nil {
		h.logger().Warn("list actions failed", zap.Error(err))
		return h.err(c, http.StatusInternalServerError, "failed to list actions", nil)
	}
	if items == nil {
		items = []model.ActionSnapshot{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
