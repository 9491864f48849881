package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"swapdesk/internal/dex"
	"swapdesk/internal/model"
	"swapdesk/internal/wallet"
)

type actionFunc func(ctx context.Context, a *app, s *wallet.Session) (model.ActionSnapshot, error)

// runAction connects the wallet, runs one orchestrated action and prints its
// final snapshot, failed or not.
func runAction(cmd *cobra.Command, fn actionFunc) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
		s, err := a.session(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := fn(ctx, a, s)
		if printErr := printJSON(cmd, snap); printErr != nil {
			return printErr
		}
		return err
	})
}

func newSwapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "swap <tokenIn> <tokenOut> <amount>",
		Short: "Swap an exact input amount",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, a *app, s *wallet.Session) (model.ActionSnapshot, error) {
				tokenIn, tokenOut, err := resolvePair(a.registry, args[0], args[1])
				if err != nil {
					return model.ActionSnapshot{}, err
				}
				return a.orch.Swap(ctx, s, dex.SwapRequest{TokenIn: tokenIn, TokenOut: tokenOut, Amount: args[2]})
			})
		},
	}
}

func newAddLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-liquidity <tokenA> <tokenB> <amountA> <amountB>",
		Short: "Add liquidity to an existing pool",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			minLiquidity, err := bigFlag(cmd, "min-liquidity")
			if err != nil {
				return err
			}
			return runAction(cmd, func(ctx context.Context, a *app, s *wallet.Session) (model.ActionSnapshot, error) {
				req, err := liquidityRequest(a, args)
				if err != nil {
					return model.ActionSnapshot{}, err
				}
				req.MinLiquidity = minLiquidity
				return a.orch.AddLiquidity(ctx, s, req)
			})
		},
	}
	cmd.Flags().String("min-liquidity", "0", "minimum liquidity units to mint (raw)")
	return cmd
}

func newCreatePoolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-pool <tokenA> <tokenB> <amountA> <amountB>",
		Short: "Create a pool seeded with both tokens",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, a *app, s *wallet.Session) (model.ActionSnapshot, error) {
				req, err := liquidityRequest(a, args)
				if err != nil {
					return model.ActionSnapshot{}, err
				}
				return a.orch.CreatePool(ctx, s, req)
			})
		},
	}
}

func newRemoveLiquidityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-liquidity <poolId> <liquidity>",
		Short: "Burn raw liquidity units from a pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			liquidity, ok := new(big.Int).SetString(args[1], 10)
			if !ok {
				return fmt.Errorf("invalid liquidity %q", args[1])
			}
			return runAction(cmd, func(ctx context.Context, a *app, s *wallet.Session) (model.ActionSnapshot, error) {
				return a.orch.RemoveLiquidity(ctx, s, dex.RemoveLiquidityRequest{PoolID: poolID, Liquidity: liquidity})
			})
		},
	}
}

func newWrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wrap <amount>",
		Short: "Convert ether to WETH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, a *app, s *wallet.Session) (model.ActionSnapshot, error) {
				return a.orch.Wrap(ctx, s, args[0])
			})
		},
	}
}

func newUnwrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unwrap <amount>",
		Short: "Convert WETH to ether",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, a *app, s *wallet.Session) (model.ActionSnapshot, error) {
				return a.orch.Unwrap(ctx, s, args[0])
			})
		},
	}
}

func liquidityRequest(a *app, args []string) (dex.LiquidityRequest, error) {
	tokenA, tokenB, err := resolvePair(a.registry, args[0], args[1])
	if err != nil {
		return dex.LiquidityRequest{}, err
	}
	return dex.LiquidityRequest{TokenA: tokenA, TokenB: tokenB, AmountA: args[2], AmountB: args[3]}, nil
}

func bigFlag(cmd *cobra.Command, name string) (*big.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return value, nil
}
