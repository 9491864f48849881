package dex

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"swapdesk/internal/model"
)

// PendingAction is one user-initiated operation moving through the state
// machine. It is owned by the Orchestrator; callers read it via Snapshot.
type PendingAction struct {
	mu   sync.Mutex
	snap model.ActionSnapshot
	err  *ActionError
}

func newPendingAction(kind model.ActionKind, account common.Address, now time.Time) *PendingAction {
	return &PendingAction{snap: model.ActionSnapshot{
		ID:        uuid.NewString(),
		Kind:      kind,
		Account:   account.Hex(),
		State:     model.StateIdle,
		StartedAt: now,
		UpdatedAt: now,
	}}
}

// Snapshot returns a copy safe to hand to other goroutines.
func (a *PendingAction) Snapshot() model.ActionSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := a.snap
	if a.snap.TxHashes != nil {
		snap.TxHashes = append([]string(nil), a.snap.TxHashes...)
	}
	return snap
}

// Err returns the failure once the action has failed.
func (a *PendingAction) Err() *ActionError {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *PendingAction) state() model.ActionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.State
}

func (a *PendingAction) done() bool {
	return a.state().Terminal()
}

func (a *PendingAction) set(state model.ActionState, message string, now time.Time) model.ActionSnapshot {
	a.mu.Lock()
	a.snap.State = state
	a.snap.Message = message
	a.snap.UpdatedAt = now
	a.mu.Unlock()
	return a.Snapshot()
}

func (a *PendingAction) fail(err *ActionError, now time.Time) model.ActionSnapshot {
	a.mu.Lock()
	a.err = err
	a.snap.State = model.StateFailed
	a.snap.Failure = err.Kind
	a.snap.FailedStep = err.Step
	a.snap.Message = err.UserMessage()
	a.snap.UpdatedAt = now
	a.mu.Unlock()
	return a.Snapshot()
}

func (a *PendingAction) addTx(hash common.Hash) {
	a.mu.Lock()
	a.snap.TxHashes = append(a.snap.TxHashes, hash.Hex())
	a.mu.Unlock()
}

func (a *PendingAction) setPool(id string) {
	a.mu.Lock()
	a.snap.PoolID = id
	a.mu.Unlock()
}
