package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"swapdesk/internal/config"
	"swapdesk/internal/dex"
	"swapdesk/internal/model"
	"swapdesk/internal/storage"
)

// withApp builds the app for one command run and tears it down afterwards.
func withApp(cmd *cobra.Command, opts appOptions, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signalContext()
	defer stop()
	a, err := newApp(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show chain head and hub counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				ctx, cancel := a.readContext(ctx)
				defer cancel()
				chainID, err := a.client.GetChainID(ctx)
				if err != nil {
					return fmt.Errorf("get chain id: %w", err)
				}
				head, err := a.client.HeaderByNumber(ctx, nil)
				if err != nil {
					return fmt.Errorf("get head: %w", err)
				}
				stats, err := a.hub.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{
					"chain_id":   chainID.String(),
					"block":      head.Number.String(),
					"block_time": time.Unix(int64(head.Time), 0).UTC(),
					"hub":        a.hub.Address().Hex(),
					"stats":      stats,
				})
			})
		},
	}
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List the token registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cfg.Tokens)
			if err != nil {
				return err
			}
			return printJSON(cmd, registry.All())
		},
	}
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <address>",
		Short: "Read ERC20 metadata from chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				ctx, cancel := a.readContext(ctx)
				defer cancel()
				token, err := a.erc20.Metadata(ctx, common.HexToAddress(args[0]))
				if err != nil {
					return err
				}
				return printJSON(cmd, token)
			})
		},
	}
}

func newPoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pools",
		Short: "List active pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				if err := a.pools.Refresh(ctx); err != nil {
					return err
				}
				pools, stats, _ := a.pools.Snapshot()
				items := make([]map[string]any, 0, len(pools))
				for _, pool := range pools {
					items = append(items, map[string]any{
						"id":              pool.ID.String(),
						"a":               formatAmount(a.registry, pool.TokenA, pool.ReserveA),
						"b":               formatAmount(a.registry, pool.TokenB, pool.ReserveB),
						"total_liquidity": pool.TotalLiquidity.String(),
					})
				}
				return printJSON(cmd, map[string]any{"stats": stats, "pools": items})
			})
		},
	}
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <tokenA> <tokenB>",
		Short: "Find the pool for a token pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				x, y, err := resolvePair(a.registry, args[0], args[1])
				if err != nil {
					return err
				}
				ctx, cancel := a.readContext(ctx)
				defer cancel()
				id, found, err := a.orch.Locator().Locate(ctx, x.Address, y.Address)
				if err != nil {
					return err
				}
				if !found {
					return printJSON(cmd, map[string]any{"found": false, "message": dex.MsgNoPool})
				}
				return printJSON(cmd, map[string]any{"found": true, "pool_id": id.String()})
			})
		},
	}
}

func newBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances [account]",
		Short: "Show registry token balances and native ether",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				account, err := a.accountArg(ctx, args)
				if err != nil {
					return err
				}
				ctx, cancel := a.readContext(ctx)
				defer cancel()
				native, err := a.client.BalanceAt(ctx, account)
				if err != nil {
					return fmt.Errorf("native balance: %w", err)
				}
				tokens := a.registry.All()
				balances := a.balances.Refresh(ctx, account, tokens)
				items := make([]amountOut, 0, len(tokens)+1)
				items = append(items, amountOut{Token: "ETH", Raw: native.String(), Amount: model.FormatAmount(native, 18)})
				for _, token := range tokens {
					items = append(items, formatAmount(a.registry, token.Address, balances[token.Address]))
				}
				return printJSON(cmd, map[string]any{"account": account.Hex(), "balances": items})
			})
		},
	}
}

func newPositionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions [account]",
		Short: "Show liquidity positions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				account, err := a.accountArg(ctx, args)
				if err != nil {
					return err
				}
				if err := a.pools.Refresh(ctx); err != nil {
					return err
				}
				pools, _, _ := a.pools.Snapshot()
				positions := a.positions.Refresh(ctx, account, pools)
				items := make([]map[string]any, 0, len(positions))
				for _, pos := range positions {
					shareA, shareB := dex.Share(pos)
					items = append(items, map[string]any{
						"pool_id":   pos.PoolID.String(),
						"liquidity": pos.Liquidity.String(),
						"share_a":   formatAmount(a.registry, pos.TokenA, shareA),
						"share_b":   formatAmount(a.registry, pos.TokenB, shareB),
					})
				}
				return printJSON(cmd, map[string]any{"account": account.Hex(), "positions": items})
			})
		},
	}
}

func newActionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List journaled actions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			account, _ := cmd.Flags().GetString("account")
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				if a.lister == nil {
					return fmt.Errorf("no journal configured (set --journal or --pg-dsn)")
				}
				filter := storage.ActionFilter{Kind: model.ActionKind(strings.TrimSpace(kind)), Limit: limit}
				if account != "" {
					if !common.IsHexAddress(account) {
						return fmt.Errorf("invalid account %q", account)
					}
					filter.Account = common.HexToAddress(account).Hex()
				}
				items, err := a.lister.ListActions(ctx, filter)
				if err != nil {
					return err
				}
				return printJSON(cmd, items)
			})
		},
	}
	cmd.Flags().String("kind", "", "filter by action kind")
	cmd.Flags().String("account", "", "filter by account")
	cmd.Flags().Int("limit", 50, "maximum actions to list")
	return cmd
}

// accountArg returns the explicit account argument or the configured wallet's account.
func (a *app) accountArg(ctx context.Context, args []string) (common.Address, error) {
	if len(args) == 1 {
		if !common.IsHexAddress(args[0]) {
			return common.Address{}, fmt.Errorf("invalid account %q", args[0])
		}
		return common.HexToAddress(args[0]), nil
	}
	s, err := a.session(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("no account given and no wallet: %w", err)
	}
	defer s.Close()
	return s.Account(), nil
}
