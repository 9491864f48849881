package dex

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"swapdesk/internal/metrics"
	"swapdesk/internal/model"
)

// DefaultQuoteDebounce is the quiet period after the last input change.
const DefaultQuoteDebounce = 500 * time.Millisecond

// Timer is the subset of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// QuoteInput is the live swap form.
type QuoteInput struct {
	TokenIn  model.Token
	TokenOut model.Token
	Amount   string
}

// QuoteView is what the presentation layer renders for the live form.
type QuoteView struct {
	Seq         uint64
	Input       QuoteInput
	Pending     bool
	PoolID      *big.Int
	PoolFound   bool
	Quote       *model.Quote
	SwapEnabled bool
	Message     string
	Err         error
}

// LiveQuoterOptions tune a LiveQuoter.
type LiveQuoterOptions struct {
	Debounce    time.Duration
	ReadTimeout time.Duration
	Scheduler   Scheduler
	OnChange    func(QuoteView)
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// LiveQuoter debounces form input and commits only the result of the most
// recent input: every Update bumps a sequence number and a request may
// publish its result only while it still holds the current number.
type LiveQuoter struct {
	locator *Locator
	quoter  *Quoter
	opts    LiveQuoterOptions
	logger  *zap.Logger

	mu     sync.Mutex
	seq    uint64
	timer  Timer
	cancel context.CancelFunc
	view   QuoteView
}

func NewLiveQuoter(locator *Locator, quoter *Quoter, opts LiveQuoterOptions) *LiveQuoter {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultQuoteDebounce
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.Scheduler == nil {
		opts.Scheduler = wallClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveQuoter{locator: locator, quoter: quoter, opts: opts, logger: logger}
}

// Update records new input and schedules a quote after the debounce delay.
// Invalid input clears the quote immediately without a network call.
func (l *LiveQuoter) Update(in QuoteInput) uint64 {
	l.mu.Lock()
	seq := l.supersedeLocked()

	amountIn, err := model.ParseAmount(in.Amount, in.TokenIn.Decimals)
	if err != nil || in.TokenIn.Address == in.TokenOut.Address {
		view := QuoteView{Seq: seq, Input: in}
		if err == nil {
			view.Message = MsgIdenticalTokens
		}
		l.view = view
		l.mu.Unlock()
		l.notify(view)
		return seq
	}

	if !samePair(l.view.Input, in) {
		l.view.PoolID = nil
		l.view.PoolFound = false
		l.view.Quote = nil
		l.view.Message = ""
		l.view.Err = nil
	}
	l.view.Seq = seq
	l.view.Input = in
	l.view.Pending = true
	l.view.SwapEnabled = false
	view := l.view
	l.timer = l.opts.Scheduler.AfterFunc(l.opts.Debounce, func() {
		l.fire(seq, in, amountIn)
	})
	l.mu.Unlock()

	l.notify(view)
	return seq
}

// Clear resets the form and discards any scheduled or in-flight request.
func (l *LiveQuoter) Clear() {
	l.mu.Lock()
	seq := l.supersedeLocked()
	l.view = QuoteView{Seq: seq}
	view := l.view
	l.mu.Unlock()
	l.notify(view)
}

// View returns the latest committed view.
func (l *LiveQuoter) View() QuoteView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view
}

// Close stops any pending work.
func (l *LiveQuoter) Close() {
	l.mu.Lock()
	l.supersedeLocked()
	l.mu.Unlock()
}

func (l *LiveQuoter) supersedeLocked() uint64 {
	l.seq++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return l.seq
}

func (l *LiveQuoter) fire(seq uint64, in QuoteInput, amountIn *big.Int) {
	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		return
	}
	l.timer = nil
	ctx, cancel := context.WithTimeout(context.Background(), l.opts.ReadTimeout)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	view := QuoteView{Seq: seq, Input: in}
	result := "ok"

	poolID, found, err := l.locator.Locate(ctx, in.TokenIn.Address, in.TokenOut.Address)
	switch {
	case err != nil:
		view.Err = err
		result = "error"
	case !found:
		view.Message = MsgNoPool
		result = "no_pool"
	default:
		view.PoolID = poolID
		view.PoolFound = true
		quote, err := l.quoter.Quote(ctx, poolID, in.TokenIn.Address, amountIn)
		switch {
		case err != nil:
			view.Err = err
			result = "error"
		case quote == nil || quote.AmountOut == nil || quote.AmountOut.Sign() == 0:
			view.Message = MsgNoLiquidity
			result = "no_liquidity"
		default:
			view.Quote = quote
			view.SwapEnabled = true
		}
	}

	if !l.commit(seq, view) {
		l.opts.Metrics.QuoteResult("stale")
		return
	}
	l.opts.Metrics.QuoteResult(result)
}

// commit publishes view if seq is still current. A failed read keeps the
// previous quote on display alongside the error, but only for the same pair.
func (l *LiveQuoter) commit(seq uint64, view QuoteView) bool {
	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		return false
	}
	if view.Err != nil && l.view.Quote != nil && samePair(l.view.Input, view.Input) {
		view.Quote = l.view.Quote
		view.PoolID = l.view.PoolID
		view.PoolFound = l.view.PoolFound
	}
	if view.Err != nil {
		l.logger.Debug("quote read failed", zap.Uint64("seq", seq), zap.Error(view.Err))
	}
	l.cancel = nil
	l.view = view
	l.mu.Unlock()

	l.notify(view)
	return true
}

func (l *LiveQuoter) notify(view QuoteView) {
	if l.opts.OnChange != nil {
		l.opts.OnChange(view)
	}
}

func samePair(a, b QuoteInput) bool {
	return a.TokenIn.Address == b.TokenIn.Address && a.TokenOut.Address == b.TokenOut.Address
}
