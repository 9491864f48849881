package dex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"swapdesk/internal/model"
)

// ErrorKind is the closed failure taxonomy.
type ErrorKind = model.FailureKind

const (
	KindValidation     = model.FailureValidation
	KindNoLiquidity    = model.FailureNoLiquidity
	KindApproval       = model.FailureApproval
	KindUserRejection  = model.FailureUserRejection
	KindContractRevert = model.FailureContractRevert
)

const (
	MsgNoPool          = "no liquidity pool exists for this pair"
	MsgPoolExists      = "pool already exists for this pair"
	MsgIdenticalTokens = "tokens must be different"
	MsgNoLiquidity     = "insufficient liquidity"
	MsgCancelled       = "Transaction cancelled"
	MsgNoWallet        = "wallet not connected"
)

// userRejectedCode is the EIP-1193 "user rejected request" code.
const userRejectedCode = 4001

var (
	// ErrActionInFlight is returned when an action of the same kind has not finished.
	ErrActionInFlight = errors.New("action already in progress")
	// ErrReverted marks a mined transaction with a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrIdenticalTokens is returned when both sides of a pair are the same token.
	ErrIdenticalTokens = errors.New(MsgIdenticalTokens)
)

// ActionError is the normalised failure of one action.
type ActionError struct {
	Kind   ErrorKind
	Action model.ActionKind
	Step   model.ActionState
	Token  string
	Reason string
	Err    error
}

func (e *ActionError) Error() string {
	msg := fmt.Sprintf("%s at %s", e.Kind, e.Step)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil && (e.Reason == "" || !strings.Contains(e.Err.Error(), e.Reason)) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// UserMessage is the human-readable line the presentation layer shows.
func (e *ActionError) UserMessage() string {
	switch e.Kind {
	case KindUserRejection:
		return MsgCancelled
	case KindApproval:
		token := e.Token
		if token == "" {
			token = "token"
		}
		if e.Reason == "" {
			return fmt.Sprintf("approval failed: %s", token)
		}
		return fmt.Sprintf("approval failed: %s: %s", token, e.Reason)
	case KindNoLiquidity:
		if e.Reason == "" || strings.EqualFold(e.Reason, MsgNoLiquidity) {
			return MsgNoLiquidity
		}
		return MsgNoLiquidity + ": " + e.Reason
	case KindValidation:
		return e.Reason
	default:
		if e.Reason == "" {
			return "transaction failed"
		}
		return fmt.Sprintf("%s failed: %s", actionLabel(e.Action), e.Reason)
	}
}

func actionLabel(kind model.ActionKind) string {
	switch kind {
	case "":
		return "transaction"
	default:
		return strings.ReplaceAll(string(kind), "_", " ")
	}
}

func validationError(reason string) *ActionError {
	return &ActionError{Kind: KindValidation, Step: model.StateIdle, Reason: reason}
}

// classify turns any error caught during step into an ActionError.
func classify(step model.ActionState, err error) *ActionError {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr
	}
	reason := revertReason(err)
	switch {
	case isUserRejection(err):
		return &ActionError{Kind: KindUserRejection, Step: step, Reason: reason, Err: err}
	case isInsufficientLiquidity(reason):
		return &ActionError{Kind: KindNoLiquidity, Step: step, Reason: reason, Err: err}
	default:
		return &ActionError{Kind: KindContractRevert, Step: step, Reason: reason, Err: err}
	}
}

func isUserRejection(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") ||
		strings.Contains(msg, "user denied") ||
		strings.Contains(msg, "rejected by user")
}

func isInsufficientLiquidity(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "insufficient liquidity")
}

// revertReason prefers the ABI-encoded revert string carried by the RPC
// error and falls back to the error text.
func revertReason(err error) string {
	if err == nil {
		return ""
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := unpackRevertData(dataErr.ErrorData()); ok {
			return reason
		}
	}
	var root error = err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	msg := root.Error()
	if idx := strings.Index(msg, "execution reverted: "); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("execution reverted: "):])
	}
	return msg
}

func unpackRevertData(data interface{}) (string, bool) {
	var raw []byte
	switch v := data.(type) {
	case string:
		decoded, err := hexutil.Decode(v)
		if err != nil {
			return "", false
		}
		raw = decoded
	case []byte:
		raw = v
	default:
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil || reason == "" {
		return "", false
	}
	return reason, true
}
