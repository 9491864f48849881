package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "dexctl",
		Short:        "Swap and liquidity client for the exchange hub",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "JSON-RPC URL")
	flags.String("hub", "", "exchange hub contract address")
	flags.String("weth", "", "wrapped ether address (defaults to the registry WETH)")
	flags.String("private-key", "", "hex private key for signing (prefer DEX_PRIVATE_KEY)")
	flags.Uint32("slippage-bps", 50, "slippage tolerance in basis points")
	flags.String("approval-policy", "max", "approval amount: max or exact")
	flags.Duration("read-timeout", 10*time.Second, "timeout for read calls")
	flags.Float64("rpc-rate", 20, "read calls per second (0 disables limiting)")
	flags.Int("rpc-burst", 10, "read call burst")
	flags.Int("read-concurrency", 4, "parallel reads during refreshes")
	flags.Int("max-retries", 2, "retries for hub stats reads")
	flags.Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	flags.String("journal", "", "JSONL action journal path")
	flags.String("pg-dsn", "", "Postgres DSN for the action journal and pool snapshots")
	flags.String("redis-addr", "", "Redis address for action notifications")
	flags.StringSlice("tokens", nil, "extra tokens as SYMBOL:address:decimals")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newStatusCmd(),
		newTokensCmd(),
		newTokenCmd(),
		newPoolsCmd(),
		newLocateCmd(),
		newQuoteCmd(),
		newBalancesCmd(),
		newPositionsCmd(),
		newActionsCmd(),
		newSwapCmd(),
		newAddLiquidityCmd(),
		newCreatePoolCmd(),
		newRemoveLiquidityCmd(),
		newWrapCmd(),
		newUnwrapCmd(),
		newServeCmd(),
		newWatchCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
