package model

import "time"

// ActionKind names a user-initiated operation.
type ActionKind string

const (
	ActionSwap            ActionKind = "swap"
	ActionAddLiquidity    ActionKind = "add_liquidity"
	ActionCreatePool      ActionKind = "create_pool"
	ActionRemoveLiquidity ActionKind = "remove_liquidity"
	ActionWrap            ActionKind = "wrap"
	ActionUnwrap          ActionKind = "unwrap"
)

// ActionState is a step of the per-action state machine.
type ActionState string

const (
	StateIdle       ActionState = "idle"
	StateValidating ActionState = "validating"
	StateApproving  ActionState = "approving"
	StateQuoting    ActionState = "quoting"
	StateSubmitting ActionState = "submitting"
	StateConfirming ActionState = "confirming"
	StateSettled    ActionState = "settled"
	StateFailed     ActionState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s ActionState) Terminal() bool {
	return s == StateSettled || s == StateFailed
}

// FailureKind is the closed set of failure categories.
type FailureKind string

const (
	FailureValidation     FailureKind = "validation"
	FailureNoLiquidity    FailureKind = "no_liquidity"
	FailureApproval       FailureKind = "approval"
	FailureUserRejection  FailureKind = "user_rejection"
	FailureContractRevert FailureKind = "contract_revert"
)

// ActionSnapshot is the presentation-facing view of one pending action.
type ActionSnapshot struct {
	ID         string      `json:"id"`
	Kind       ActionKind  `json:"kind"`
	Account    string      `json:"account"`
	State      ActionState `json:"state"`
	Message    string      `json:"message"`
	Failure    FailureKind `json:"failure,omitempty"`
	FailedStep ActionState `json:"failed_step,omitempty"`
	PoolID     string      `json:"pool_id,omitempty"`
	TxHashes   []string    `json:"tx_hashes,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
