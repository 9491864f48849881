package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapdesk/internal/dex"
	"swapdesk/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only HTTP API and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
				stop := dex.NewPoller("pools", a.cfg.StatsInterval, a.pools.Refresh, a.logger).Start(ctx)
				defer stop()

				srv := server.New(server.Config{Addr: a.cfg.Listen}, &server.Handlers{
					Registry:    a.registry,
					Book:        a.pools,
					Locator:     a.orch.Locator(),
					Quoter:      a.orch.Quoter(),
					Cache:       a.balances,
					Holdings:    a.positions,
					Journal:     a.lister,
					Gatherer:    a.promReg,
					SlippageBps: a.cfg.SlippageBps,
					ReadTimeout: a.cfg.ReadTimeout,
					Logger:      a.logger,
				})

				errCh := make(chan error, 1)
				go func() {
					errCh <- srv.Start()
				}()

				select {
				case err := <-errCh:
					if err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				case <-ctx.Done():
				}

				a.logger.Info("shutting down")
				if err := srv.Shutdown(context.Background()); err != nil {
					a.logger.Warn("http shutdown", zap.Error(err))
				}
				return nil
			})
		},
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Duration("stats-interval", 0, "pool refresh interval (default 30s)")
	return cmd
}
