package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"

	"swapdesk/internal/model"
)

var (
	tokenX = model.Token{Symbol: "TKX", Address: common.HexToAddress("0x00000000000000000000000000000000000000a1"), Decimals: 18}
	tokenY = model.Token{Symbol: "TKY", Address: common.HexToAddress("0x00000000000000000000000000000000000000b2"), Decimals: 18}
	tokenZ = model.Token{Symbol: "TKZ", Address: common.HexToAddress("0x00000000000000000000000000000000000000c3"), Decimals: 6}
	wethT  = model.Token{Symbol: "WETH", Address: common.HexToAddress("0x00000000000000000000000000000000000000d4"), Decimals: 18}

	hubAddr = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	alice   = common.HexToAddress("0x000000000000000000000000000000000000a11c")
)

// rejection mimics a wallet declining to sign (EIP-1193 code 4001).
type rejection struct{}

func (rejection) Error() string  { return "user rejected transaction" }
func (rejection) ErrorCode() int { return 4001 }

type allowKey struct{ token, owner, spender common.Address }
type balKey struct{ token, account common.Address }
type liqKey struct {
	pool    uint64
	account common.Address
}

type sentCall struct {
	method string
	args   []*big.Int
	tx     common.Hash
}

type pendingTx struct {
	method string
	effect func() error
}

// fakeChain is an in-memory hub, token set and miner. Writes take effect when
// WaitMined is called; a failing effect yields a reverted receipt.
type fakeChain struct {
	mu sync.Mutex

	nonce      uint64
	pools      map[uint64]*model.Pool
	pairs      map[[2]common.Address]uint64
	nextPool   uint64
	swapCount  uint64
	allowances map[allowKey]*big.Int
	balances   map[balKey]*big.Int
	liquidity  map[liqKey]*big.Int
	pending    map[common.Hash]pendingTx

	rejectOn   map[string]bool
	revertOn   map[string]string
	readErr    map[string]error
	balanceErr map[common.Address]error
	failPool   map[uint64]bool
	// swapOutOverride replaces the amountOut returned by reads.
	swapOutOverride *big.Int

	sent         []sentCall
	reads        map[string]int
	balanceReads int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		pools:      make(map[uint64]*model.Pool),
		pairs:      make(map[[2]common.Address]uint64),
		allowances: make(map[allowKey]*big.Int),
		balances:   make(map[balKey]*big.Int),
		liquidity:  make(map[liqKey]*big.Int),
		pending:    make(map[common.Hash]pendingTx),
		rejectOn:   make(map[string]bool),
		revertOn:   make(map[string]string),
		readErr:    make(map[string]error),
		balanceErr: make(map[common.Address]error),
		failPool:   make(map[uint64]bool),
		reads:      make(map[string]int),
	}
}

// addPool registers a pool stored under the (a, b) ordering only.
func (f *fakeChain) addPool(a, b common.Address, reserveA, reserveB int64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addPoolLocked(a, b, big.NewInt(reserveA), big.NewInt(reserveB))
}

func (f *fakeChain) addPoolLocked(a, b common.Address, reserveA, reserveB *big.Int) uint64 {
	f.nextPool++
	id := f.nextPool
	total := new(big.Int).Sqrt(new(big.Int).Mul(reserveA, reserveB))
	f.pools[id] = &model.Pool{
		ID:              new(big.Int).SetUint64(id),
		TokenA:          a,
		TokenB:          b,
		ReserveA:        new(big.Int).Set(reserveA),
		ReserveB:        new(big.Int).Set(reserveB),
		TotalLiquidity:  total,
		LockedLiquidity: new(big.Int),
		Active:          true,
		TotalVolume:     new(big.Int),
		TotalFees:       new(big.Int),
	}
	f.pairs[[2]common.Address{a, b}] = id
	return id
}

func (f *fakeChain) setBalance(token, account common.Address, amount *big.Int) {
	f.mu.Lock()
	f.balances[balKey{token, account}] = new(big.Int).Set(amount)
	f.mu.Unlock()
}

func (f *fakeChain) setAllowance(token, owner, spender common.Address, amount *big.Int) {
	f.mu.Lock()
	f.allowances[allowKey{token, owner, spender}] = new(big.Int).Set(amount)
	f.mu.Unlock()
}

func (f *fakeChain) setLiquidity(pool uint64, account common.Address, amount *big.Int) {
	f.mu.Lock()
	f.liquidity[liqKey{pool, account}] = new(big.Int).Set(amount)
	f.mu.Unlock()
}

func (f *fakeChain) sentMethods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, call := range f.sent {
		out = append(out, call.method)
	}
	return out
}

func (f *fakeChain) lastSent(method string) (sentCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].method == method {
			return f.sent[i], true
		}
	}
	return sentCall{}, false
}

func (f *fakeChain) readCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[method]
}

func (f *fakeChain) read(method string) error {
	f.reads[method]++
	return f.readErr[method]
}

func (f *fakeChain) balanceLocked(token, account common.Address) *big.Int {
	if b, ok := f.balances[balKey{token, account}]; ok {
		return b
	}
	b := new(big.Int)
	f.balances[balKey{token, account}] = b
	return b
}

// send records a write and queues its effect for WaitMined.
func (f *fakeChain) send(method string, opts *bind.TransactOpts, effect func() error, args ...*big.Int) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectOn[method] {
		return nil, fmt.Errorf("sign %s: %w", method, rejection{})
	}
	f.nonce++
	tx := types.NewTx(&types.LegacyTx{Nonce: f.nonce, GasPrice: big.NewInt(1), Gas: 21000, Value: new(big.Int)})
	f.sent = append(f.sent, sentCall{method: method, args: args, tx: tx.Hash()})
	f.pending[tx.Hash()] = pendingTx{method: method, effect: effect}
	return tx, nil
}

func constantProductOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return new(big.Int)
	}
	withFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	num := new(big.Int).Mul(withFee, reserveOut)
	den := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(1000)), withFee)
	return num.Quo(num, den)
}

// Exchange

func (f *fakeChain) PoolIDByPair(_ context.Context, a, b common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.read("pairToPoolId"); err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(f.pairs[[2]common.Address{a, b}]), nil
}

func (f *fakeChain) Pool(_ context.Context, id *big.Int) (model.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.read("getPool"); err != nil {
		return model.Pool{}, err
	}
	pool, ok := f.pools[id.Uint64()]
	if !ok || f.failPool[id.Uint64()] {
		return model.Pool{}, errors.New("execution reverted: pool not found")
	}
	cp := *pool
	cp.ReserveA = new(big.Int).Set(pool.ReserveA)
	cp.ReserveB = new(big.Int).Set(pool.ReserveB)
	cp.TotalLiquidity = new(big.Int).Set(pool.TotalLiquidity)
	return cp, nil
}

func (f *fakeChain) AmountOut(_ context.Context, id *big.Int, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.read("getAmountOut"); err != nil {
		return nil, err
	}
	if f.swapOutOverride != nil {
		return new(big.Int).Set(f.swapOutOverride), nil
	}
	pool, ok := f.pools[id.Uint64()]
	if !ok {
		return nil, errors.New("execution reverted: pool not found")
	}
	rIn, rOut, ok := pool.Reserves(tokenIn)
	if !ok {
		return nil, errors.New("execution reverted: invalid token")
	}
	return constantProductOut(amountIn, rIn, rOut), nil
}

func (f *fakeChain) PriceImpact(_ context.Context, id *big.Int, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.read("getPriceImpact"); err != nil {
		return nil, err
	}
	pool, ok := f.pools[id.Uint64()]
	if !ok {
		return nil, errors.New("execution reverted: pool not found")
	}
	rIn, _, ok := pool.Reserves(tokenIn)
	if !ok {
		return nil, errors.New("execution reverted: invalid token")
	}
	num := new(big.Int).Mul(amountIn, big.NewInt(BpsDenominator))
	return num.Quo(num, new(big.Int).Add(rIn, amountIn)), nil
}

func (f *fakeChain) UserLiquidity(_ context.Context, id *big.Int, account common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.read("getUserLiquidity"); err != nil {
		return nil, err
	}
	if l, ok := f.liquidity[liqKey{id.Uint64(), account}]; ok {
		return new(big.Int).Set(l), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) Stats(context.Context) (model.HubStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.read("stats"); err != nil {
		return model.HubStats{}, err
	}
	return model.HubStats{TotalPools: f.nextPool, TotalSwaps: f.swapCount, SwapFeeBps: 30}, nil
}

func (f *fakeChain) pull(token, owner common.Address, amount *big.Int) error {
	allowance := f.allowances[allowKey{token, owner, hubAddr}]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return errors.New("insufficient allowance")
	}
	balance := f.balanceLocked(token, owner)
	if balance.Cmp(amount) < 0 {
		return errors.New("insufficient balance")
	}
	if allowance.Cmp(math.MaxBig256) != 0 {
		allowance.Sub(allowance, amount)
	}
	balance.Sub(balance, amount)
	return nil
}

func (f *fakeChain) Swap(opts *bind.TransactOpts, id *big.Int, tokenIn common.Address, amountIn, minOut *big.Int) (*types.Transaction, error) {
	from := opts.From
	return f.send("swap", opts, func() error {
		pool, ok := f.pools[id.Uint64()]
		if !ok {
			return errors.New("pool not found")
		}
		rIn, rOut, ok := pool.Reserves(tokenIn)
		if !ok {
			return errors.New("invalid token")
		}
		out := constantProductOut(amountIn, rIn, rOut)
		if out.Cmp(minOut) < 0 {
			return errors.New("slippage exceeded")
		}
		if err := f.pull(tokenIn, from, amountIn); err != nil {
			return err
		}
		rIn.Add(rIn, amountIn)
		rOut.Sub(rOut, out)
		tokenOut := pool.TokenA
		if tokenIn == pool.TokenA {
			tokenOut = pool.TokenB
		}
		f.balanceLocked(tokenOut, from).Add(f.balanceLocked(tokenOut, from), out)
		f.swapCount++
		return nil
	}, id, amountIn, minOut)
}

func (f *fakeChain) AddLiquidity(opts *bind.TransactOpts, id, amountA, amountB, minLiquidity *big.Int) (*types.Transaction, error) {
	from := opts.From
	return f.send("addLiquidity", opts, func() error {
		pool, ok := f.pools[id.Uint64()]
		if !ok {
			return errors.New("pool not found")
		}
		if err := f.pull(pool.TokenA, from, amountA); err != nil {
			return err
		}
		if err := f.pull(pool.TokenB, from, amountB); err != nil {
			return err
		}
		minted := new(big.Int).Quo(new(big.Int).Mul(amountA, pool.TotalLiquidity), pool.ReserveA)
		if minted.Cmp(minLiquidity) < 0 {
			return errors.New("insufficient liquidity minted")
		}
		pool.ReserveA.Add(pool.ReserveA, amountA)
		pool.ReserveB.Add(pool.ReserveB, amountB)
		pool.TotalLiquidity.Add(pool.TotalLiquidity, minted)
		key := liqKey{id.Uint64(), from}
		if f.liquidity[key] == nil {
			f.liquidity[key] = new(big.Int)
		}
		f.liquidity[key].Add(f.liquidity[key], minted)
		return nil
	}, id, amountA, amountB, minLiquidity)
}

func (f *fakeChain) CreatePool(opts *bind.TransactOpts, a, b common.Address, amountA, amountB *big.Int) (*types.Transaction, error) {
	from := opts.From
	return f.send("createPool", opts, func() error {
		if f.pairs[[2]common.Address{a, b}] != 0 || f.pairs[[2]common.Address{b, a}] != 0 {
			return errors.New("pool exists")
		}
		if err := f.pull(a, from, amountA); err != nil {
			return err
		}
		if err := f.pull(b, from, amountB); err != nil {
			return err
		}
		id := f.addPoolLocked(a, b, amountA, amountB)
		f.liquidity[liqKey{id, from}] = new(big.Int).Set(f.pools[id].TotalLiquidity)
		return nil
	}, amountA, amountB)
}

func (f *fakeChain) RemoveLiquidity(opts *bind.TransactOpts, id, liquidity, minA, minB *big.Int) (*types.Transaction, error) {
	from := opts.From
	return f.send("removeLiquidity", opts, func() error {
		pool, ok := f.pools[id.Uint64()]
		if !ok {
			return errors.New("pool not found")
		}
		key := liqKey{id.Uint64(), from}
		owned := f.liquidity[key]
		if owned == nil || owned.Cmp(liquidity) < 0 {
			return errors.New("insufficient liquidity owned")
		}
		outA := proRata(pool.ReserveA, liquidity, pool.TotalLiquidity)
		outB := proRata(pool.ReserveB, liquidity, pool.TotalLiquidity)
		if outA.Cmp(minA) < 0 || outB.Cmp(minB) < 0 {
			return errors.New("slippage exceeded")
		}
		owned.Sub(owned, liquidity)
		pool.TotalLiquidity.Sub(pool.TotalLiquidity, liquidity)
		pool.ReserveA.Sub(pool.ReserveA, outA)
		pool.ReserveB.Sub(pool.ReserveB, outB)
		f.balanceLocked(pool.TokenA, from).Add(f.balanceLocked(pool.TokenA, from), outA)
		f.balanceLocked(pool.TokenB, from).Add(f.balanceLocked(pool.TokenB, from), outB)
		return nil
	}, id, liquidity, minA, minB)
}

// Tokens

func (f *fakeChain) Allowance(_ context.Context, token, owner, spender common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.read("allowance"); err != nil {
		return nil, err
	}
	if a, ok := f.allowances[allowKey{token, owner, spender}]; ok {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	owner := opts.From
	return f.send("approve", opts, func() error {
		f.allowances[allowKey{token, owner, spender}] = new(big.Int).Set(amount)
		return nil
	}, amount)
}

func (f *fakeChain) BalanceOf(_ context.Context, token, account common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceReads++
	if err := f.balanceErr[token]; err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.balanceLocked(token, account)), nil
}

// Wrapper

func (f *fakeChain) Deposit(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	from := opts.From
	return f.send("deposit", opts, func() error {
		f.balanceLocked(wethT.Address, from).Add(f.balanceLocked(wethT.Address, from), amount)
		return nil
	}, amount)
}

func (f *fakeChain) Withdraw(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	from := opts.From
	return f.send("withdraw", opts, func() error {
		balance := f.balanceLocked(wethT.Address, from)
		if balance.Cmp(amount) < 0 {
			return errors.New("insufficient balance")
		}
		balance.Sub(balance, amount)
		return nil
	}, amount)
}

// Confirmer

func (f *fakeChain) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[tx.Hash()]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	delete(f.pending, tx.Hash())
	receipt := &types.Receipt{TxHash: tx.Hash(), Status: types.ReceiptStatusSuccessful}
	if _, forced := f.revertOn[p.method]; forced {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, nil
	}
	if err := p.effect(); err != nil {
		receipt.Status = types.ReceiptStatusFailed
	}
	return receipt, nil
}

type fakeSigner struct {
	account common.Address
}

func (s fakeSigner) Account() common.Address { return s.account }

func (s fakeSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: s.account, Context: ctx}, nil
}

// recordingJournal and recordingPublisher capture orchestrator side effects.
type recordingJournal struct {
	mu      sync.Mutex
	actions []model.ActionSnapshot
}

func (j *recordingJournal) RecordAction(_ context.Context, a model.ActionSnapshot) error {
	j.mu.Lock()
	j.actions = append(j.actions, a)
	j.mu.Unlock()
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	states []model.ActionState
}

func (p *recordingPublisher) PublishAction(_ context.Context, a model.ActionSnapshot) error {
	p.mu.Lock()
	p.states = append(p.states, a.State)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) seen() []model.ActionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ActionState(nil), p.states...)
}
