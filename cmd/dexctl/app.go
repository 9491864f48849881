package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapdesk/internal/amm"
	"swapdesk/internal/chain"
	"swapdesk/internal/config"
	"swapdesk/internal/dex"
	"swapdesk/internal/metrics"
	"swapdesk/internal/model"
	"swapdesk/internal/notify"
	"swapdesk/internal/storage"
	"swapdesk/internal/storage/postgres"
	"swapdesk/internal/wallet"
)

// app holds everything a subcommand needs. Optional sinks are nil when not configured.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	hub      *amm.Hub
	erc20    *amm.ERC20
	registry *dex.Registry
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics

	journal   storage.Journal
	lister    storage.ActionLister
	sink      storage.PoolSink
	publisher *notify.RedisPublisher

	balances  *dex.BalanceCache
	pools     *dex.PoolBook
	positions *dex.Positions
	live      *dex.LiveQuoter
	orch      *dex.Orchestrator

	closers []func()
}

type appOptions struct {
	live *dex.LiveQuoterOptions
}

func newApp(ctx context.Context, cmd *cobra.Command, opts appOptions) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := cfg.RequireChain(); err != nil {
		a.Close()
		return nil, err
	}
	if !common.IsHexAddress(cfg.Hub) {
		a.Close()
		return nil, fmt.Errorf("invalid hub address %q", cfg.Hub)
	}

	if err := a.wire(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, opts appOptions) error {
	cfg := a.cfg

	registry, err := buildRegistry(cfg.Tokens)
	if err != nil {
		return err
	}
	a.registry = registry

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{ReadRate: cfg.RPCRate, ReadBurst: cfg.RPCBurst})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	a.client = client
	a.closers = append(a.closers, client.Close)

	backend := client.Backend()
	hubAddr := common.HexToAddress(cfg.Hub)
	if a.hub, err = amm.NewHub(hubAddr, backend); err != nil {
		return err
	}
	if a.erc20, err = amm.NewERC20(backend, a.logger); err != nil {
		return err
	}

	var wrapper dex.Wrapper
	wethAddr, ok := a.wethAddress()
	if ok {
		weth, err := amm.NewWETH(wethAddr, backend)
		if err != nil {
			return err
		}
		wrapper = weth
	}

	a.promReg = prometheus.NewRegistry()
	a.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(a.promReg, "dexctl")

	if err := a.wireStorage(ctx); err != nil {
		return err
	}
	a.wirePublisher(ctx)

	policy, err := dex.ParseApprovalPolicy(cfg.ApprovalPolicy)
	if err != nil {
		return err
	}

	a.balances = dex.NewBalanceCache(a.erc20, cfg.ReadConcurrency, a.metrics, a.logger)
	a.pools = dex.NewPoolBook(a.hub, dex.PoolBookOptions{
		Concurrency: cfg.ReadConcurrency,
		MaxRetries:  cfg.MaxRetries,
		Backoff:     cfg.RetryBackoff,
		Sink:        a.sink,
		Metrics:     a.metrics,
		Logger:      a.logger,
	})
	a.positions = dex.NewPositions(a.hub, cfg.ReadConcurrency, a.logger)

	deps := dex.Deps{
		Exchange:    a.hub,
		Tokens:      a.erc20,
		Wrapper:     wrapper,
		Confirmer:   client,
		Registry:    registry,
		Spender:     hubAddr,
		WrappedETH:  wethAddr,
		Policy:      policy,
		SlippageBps: cfg.SlippageBps,
		Balances:    a.balances,
		Pools:       a.pools,
		Positions:   a.positions,
		Journal:     a.journal,
		Metrics:     a.metrics,
		Logger:      a.logger,
		Concurrency: cfg.ReadConcurrency,
	}
	if a.publisher != nil {
		deps.Publisher = a.publisher
	}
	if opts.live != nil {
		live := *opts.live
		live.Metrics = a.metrics
		live.Logger = a.logger
		live.ReadTimeout = cfg.ReadTimeout
		if live.Debounce <= 0 {
			live.Debounce = cfg.QuoteDebounce
		}
		a.live = dex.NewLiveQuoter(dex.NewLocator(a.hub), dex.NewQuoter(a.hub), live)
		a.closers = append(a.closers, a.live.Close)
		deps.Live = a.live
	}

	a.orch, err = dex.NewOrchestrator(deps)
	return err
}

// buildRegistry extends the built-in registry with SYMBOL:address:decimals specs.
func buildRegistry(specs []string) (*dex.Registry, error) {
	extra := make([]model.Token, 0, len(specs))
	for _, spec := range specs {
		token, err := dex.ParseTokenSpec(spec)
		if err != nil {
			return nil, err
		}
		extra = append(extra, token)
	}
	return dex.DefaultRegistry(extra...)
}

func (a *app) wethAddress() (common.Address, bool) {
	if common.IsHexAddress(a.cfg.WETH) {
		return common.HexToAddress(a.cfg.WETH), true
	}
	if token, ok := a.registry.Lookup("WETH"); ok {
		return token.Address, true
	}
	return common.Address{}, false
}

func (a *app) wireStorage(ctx context.Context) error {
	switch {
	case a.cfg.PostgresDSN != "":
		store, err := postgres.NewStore(ctx, a.cfg.PostgresDSN, a.cfg.Hub)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		a.journal, a.lister, a.sink = store, store, store
	case a.cfg.Journal != "":
		journal := storage.NewJsonlJournal(a.cfg.Journal)
		a.journal, a.lister = journal, journal
	}
	return nil
}

// wirePublisher enables Redis notifications when reachable; an unreachable
// Redis only disables them.
func (a *app) wirePublisher(ctx context.Context) {
	if a.cfg.RedisAddr == "" {
		return
	}
	publisher := notify.NewRedisPublisher(a.cfg.RedisAddr, a.logger)
	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.ReadTimeout)
	defer cancel()
	if err := publisher.Ping(pingCtx); err != nil {
		a.logger.Warn("redis unavailable, notifications disabled", zap.String("addr", a.cfg.RedisAddr), zap.Error(err))
		_ = publisher.Close()
		return
	}
	a.publisher = publisher
	a.closers = append(a.closers, func() { _ = publisher.Close() })
}

// session connects the configured key as the acting wallet.
func (a *app) session(ctx context.Context) (*wallet.Session, error) {
	readCtx, cancel := a.readContext(ctx)
	defer cancel()
	chainID, err := a.client.GetChainID(readCtx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	s, err := wallet.NewKeyedSession(a.cfg.PrivateKey, chainID)
	if err != nil {
		return nil, err
	}
	a.logger.Info("wallet connected", zap.String("account", s.Account().Hex()), zap.String("chain_id", chainID.String()))
	return s, nil
}

func (a *app) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.ReadTimeout)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
