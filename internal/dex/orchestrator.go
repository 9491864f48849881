package dex

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapdesk/internal/metrics"
	"swapdesk/internal/model"
	"swapdesk/internal/notify"
	"swapdesk/internal/storage"
)

// Deps wires an Orchestrator. Exchange, Tokens, Confirmer and Registry are
// required; the rest are optional.
type Deps struct {
	Exchange  Exchange
	Tokens    Tokens
	Wrapper   Wrapper
	Confirmer Confirmer
	Registry  *Registry

	// Spender is the hub address approvals are granted to.
	Spender     common.Address
	WrappedETH  common.Address
	Policy      ApprovalPolicy
	SlippageBps uint32

	Balances  *BalanceCache
	Pools     *PoolBook
	Positions *Positions
	Live      *LiveQuoter

	Journal   storage.Journal
	Publisher notify.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// RefreshTimeout bounds the post-action refresh.
	RefreshTimeout time.Duration
	Concurrency    int
}

// Orchestrator runs user actions through the approve-quote-submit-confirm
// state machine. At most one action per kind is in flight.
type Orchestrator struct {
	deps     Deps
	locator  *Locator
	quoter   *Quoter
	approver *Approver
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	current map[model.ActionKind]*PendingAction
}

func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Exchange == nil:
		return nil, errors.New("orchestrator: exchange is required")
	case deps.Tokens == nil:
		return nil, errors.New("orchestrator: tokens is required")
	case deps.Confirmer == nil:
		return nil, errors.New("orchestrator: confirmer is required")
	case deps.Registry == nil:
		return nil, errors.New("orchestrator: registry is required")
	}
	if deps.SlippageBps >= BpsDenominator {
		return nil, ErrInvalidTolerance
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RefreshTimeout <= 0 {
		deps.RefreshTimeout = 15 * time.Second
	}
	if deps.Balances == nil {
		deps.Balances = NewBalanceCache(deps.Tokens, deps.Concurrency, deps.Metrics, deps.Logger)
	}
	if deps.Pools == nil {
		deps.Pools = NewPoolBook(deps.Exchange, PoolBookOptions{Concurrency: deps.Concurrency, Metrics: deps.Metrics, Logger: deps.Logger})
	}
	if deps.Positions == nil {
		deps.Positions = NewPositions(deps.Exchange, deps.Concurrency, deps.Logger)
	}

	return &Orchestrator{
		deps:     deps,
		locator:  NewLocator(deps.Exchange),
		quoter:   NewQuoter(deps.Exchange),
		approver: NewApprover(deps.Tokens, deps.Confirmer, deps.Policy, deps.Metrics, deps.Logger),
		logger:   deps.Logger,
		now:      time.Now,
		current:  make(map[model.ActionKind]*PendingAction),
	}, nil
}

func (o *Orchestrator) Locator() *Locator       { return o.locator }
func (o *Orchestrator) Quoter() *Quoter         { return o.quoter }
func (o *Orchestrator) Approver() *Approver     { return o.approver }
func (o *Orchestrator) Balances() *BalanceCache { return o.deps.Balances }
func (o *Orchestrator) Pools() *PoolBook        { return o.deps.Pools }
func (o *Orchestrator) Positions() *Positions   { return o.deps.Positions }

// Current returns the latest action of kind, if any.
func (o *Orchestrator) Current(kind model.ActionKind) (model.ActionSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.current[kind]
	if !ok {
		return model.ActionSnapshot{}, false
	}
	return a.Snapshot(), true
}

// stepFunc is the body of one action after local validation.
type stepFunc func(ctx context.Context, a *PendingAction) error

type refreshScope struct {
	positions bool
}

func (o *Orchestrator) begin(kind model.ActionKind, account common.Address) (*PendingAction, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cur, ok := o.current[kind]; ok && !cur.done() {
		return cur, ErrActionInFlight
	}
	a := newPendingAction(kind, account, o.now())
	o.current[kind] = a
	return a, nil
}

// run drives one action to a terminal state and always refreshes afterwards.
func (o *Orchestrator) run(ctx context.Context, kind model.ActionKind, signer Signer, scope refreshScope, steps stepFunc) (model.ActionSnapshot, error) {
	account := signer.Account()
	a, err := o.begin(kind, account)
	if err != nil {
		return a.Snapshot(), &ActionError{Kind: KindValidation, Action: kind, Step: model.StateIdle, Reason: err.Error(), Err: err}
	}

	start := o.now()
	o.deps.Metrics.ActionStarted(string(kind))
	log := o.logger.With(
		zap.String("action", a.Snapshot().ID),
		zap.String("kind", string(kind)),
		zap.String("account", account.Hex()),
	)

	var failure *ActionError
	if err := steps(ctx, a); err != nil {
		failure = classify(a.state(), err)
		failure.Action = kind
		if failure.Step == model.StateIdle {
			failure.Step = a.state()
		}
		o.publish(ctx, a.fail(failure, o.now()))
		if failure.Kind == KindUserRejection {
			log.Info("action cancelled by user", zap.String("step", string(failure.Step)))
		} else {
			log.Warn("action failed",
				zap.String("step", string(failure.Step)),
				zap.String("failure", string(failure.Kind)),
				zap.String("reason", failure.Reason),
				zap.Error(failure.Err),
			)
		}
	} else {
		o.publish(ctx, a.set(model.StateSettled, settledMessage(kind), o.now()))
		log.Info("action settled", zap.Strings("txs", a.Snapshot().TxHashes))
		if kind == model.ActionSwap && o.deps.Live != nil {
			o.deps.Live.Clear()
		}
	}

	o.refresh(ctx, account, scope)

	snap := a.Snapshot()
	outcome := "settled"
	if failure != nil {
		outcome = string(failure.Kind)
	}
	o.deps.Metrics.ActionFinished(string(kind), outcome, o.now().Sub(start))
	o.record(ctx, snap)

	if failure != nil {
		return snap, failure
	}
	return snap, nil
}

// rejectLocal reports a validation failure that never reached the network.
// No action is started, so the kind stays Idle.
func (o *Orchestrator) rejectLocal(kind model.ActionKind, signer Signer, reason string) (model.ActionSnapshot, error) {
	failure := validationError(reason)
	failure.Action = kind
	account := common.Address{}
	if signer != nil {
		account = signer.Account()
	}
	now := o.now()
	o.logger.Debug("action rejected locally", zap.String("kind", string(kind)), zap.String("reason", reason))
	return model.ActionSnapshot{
		Kind:       kind,
		Account:    account.Hex(),
		State:      model.StateIdle,
		Message:    failure.UserMessage(),
		Failure:    failure.Kind,
		FailedStep: model.StateIdle,
		StartedAt:  now,
		UpdatedAt:  now,
	}, failure
}

func (o *Orchestrator) step(ctx context.Context, a *PendingAction, state model.ActionState, message string) {
	o.publish(ctx, a.set(state, message, o.now()))
}

// submit sends a mutating call, records its hash and waits for it to be mined.
func (o *Orchestrator) submit(ctx context.Context, a *PendingAction, signer Signer, label string, send func(opts *bind.TransactOpts) (*types.Transaction, error)) (*types.Receipt, error) {
	o.step(ctx, a, model.StateSubmitting, "waiting for signature: "+label)
	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := send(opts)
	if err != nil {
		return nil, err
	}
	a.addTx(tx.Hash())

	o.step(ctx, a, model.StateConfirming, "confirming "+label+": "+tx.Hash().Hex())
	receipt, err := o.deps.Confirmer.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, ErrReverted
	}
	return receipt, nil
}

func (o *Orchestrator) approve(ctx context.Context, a *PendingAction, signer Signer, token model.Token, amount *big.Int) error {
	o.step(ctx, a, model.StateApproving, "checking allowance: "+token.Label())
	res, err := o.approver.EnsureAllowance(ctx, signer, token, o.deps.Spender, amount)
	if res.TxHash != (common.Hash{}) {
		a.addTx(res.TxHash)
	}
	return err
}

// refresh runs after every terminal state, detached from the caller's
// cancellation so a cancelled action still reconciles.
func (o *Orchestrator) refresh(ctx context.Context, account common.Address, scope refreshScope) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deps.RefreshTimeout)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.deps.Balances.Refresh(ctx, account, o.deps.Registry.All())
	}()

	if err := o.deps.Pools.Refresh(ctx); err != nil {
		o.logger.Warn("post-action pool refresh failed", zap.Error(err))
	}
	if scope.positions {
		pools, _, _ := o.deps.Pools.Snapshot()
		o.deps.Positions.Refresh(ctx, account, pools)
	}
	wg.Wait()
}

func (o *Orchestrator) publish(ctx context.Context, snap model.ActionSnapshot) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.PublishAction(context.WithoutCancel(ctx), snap); err != nil {
		o.logger.Warn("publish transition failed", zap.String("action", snap.ID), zap.Error(err))
	}
}

func (o *Orchestrator) record(ctx context.Context, snap model.ActionSnapshot) {
	if o.deps.Journal == nil {
		return
	}
	if err := o.deps.Journal.RecordAction(context.WithoutCancel(ctx), snap); err != nil {
		o.logger.Warn("journal write failed", zap.String("action", snap.ID), zap.Error(err))
	}
}

func (o *Orchestrator) tolerance(override *uint32) (uint32, error) {
	bps := o.deps.SlippageBps
	if override != nil {
		bps = *override
	}
	if bps >= BpsDenominator {
		return 0, ErrInvalidTolerance
	}
	return bps, nil
}

func settledMessage(kind model.ActionKind) string {
	switch kind {
	case model.ActionSwap:
		return "swap confirmed"
	case model.ActionAddLiquidity:
		return "liquidity added"
	case model.ActionCreatePool:
		return "pool created"
	case model.ActionRemoveLiquidity:
		return "liquidity removed"
	case model.ActionWrap:
		return "ETH wrapped"
	case model.ActionUnwrap:
		return "WETH unwrapped"
	default:
		return "done"
	}
}

func signerReady(signer Signer) bool {
	return signer != nil && signer.Account() != (common.Address{})
}
