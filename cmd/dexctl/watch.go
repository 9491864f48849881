package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"swapdesk/internal/config"
	"swapdesk/internal/model"
	"swapdesk/internal/notify"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream action transitions published to Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" {
				return fmt.Errorf("redis address is required")
			}
			channel := notify.ChannelAll
			if account, _ := cmd.Flags().GetString("account"); account != "" {
				if !common.IsHexAddress(account) {
					return fmt.Errorf("invalid account %q", account)
				}
				channel = notify.AccountChannel(common.HexToAddress(account).Hex())
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signalContext()
			defer stop()

			sub := notify.NewRedisPublisher(cfg.RedisAddr, logger)
			defer sub.Close()
			return sub.Subscribe(ctx, channel, func(action model.ActionSnapshot) {
				fmt.Fprintln(cmd.OutOrStdout(), watchLine(action))
			})
		},
	}
	cmd.Flags().String("account", "", "only show actions for this account")
	return cmd
}

func watchLine(action model.ActionSnapshot) string {
	line := fmt.Sprintf("%s %-16s %-10s %s %s", action.UpdatedAt.Format(time.RFC3339), action.Kind, action.State, action.Account, action.Message)
	if action.Failure != "" {
		line += fmt.Sprintf(" [%s at %s]", action.Failure, action.FailedStep)
	}
	if n := len(action.TxHashes); n > 0 {
		line += " tx=" + action.TxHashes[n-1]
	}
	return line
}
