package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSessionClosed is returned once a session has been torn down.
var ErrSessionClosed = errors.New("wallet session closed")

// Session is an explicit connected-wallet context. It is created on connect,
// passed to every mutating call, and never re-created behind the caller's back.
type Session struct {
	mu      sync.RWMutex
	account common.Address
	opts    *bind.TransactOpts
	closed  bool
}

// NewKeyedSession signs with a hex-encoded private key for chainID.
func NewKeyedSession(hexKey string, chainID *big.Int) (*Session, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("private key is required")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	return NewSession(opts), nil
}

// NewSession wraps transact options produced by an external signer.
func NewSession(opts *bind.TransactOpts) *Session {
	return &Session{account: opts.From, opts: opts}
}

// Account returns the connected account, or the zero address once closed.
func (s *Session) Account() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return common.Address{}
	}
	return s.account
}

// TransactOpts returns a fresh copy of the signing options bound to ctx.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	opts := *s.opts
	opts.Context = ctx
	return &opts, nil
}

// Close disconnects the session.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.opts = nil
	s.mu.Unlock()
}
