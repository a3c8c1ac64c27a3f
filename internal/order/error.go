package order

import (
	"errors"
	"fmt"
)

var (
	// -- Transition rejections --
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrRoleMismatch      = errors.New("action not permitted for role")
	ErrConflict          = errors.New("action not permitted from current status")
	ErrAlreadyTerminal   = errors.New("order item is in a terminal status")

	// -- Validation --
	ErrReasonRequired  = errors.New("claim reason is required")
	ErrOutcomeRequired = errors.New("resolve action requires an outcome")
	ErrUnknownAction   = errors.New("unknown action")
	ErrUnknownStatus   = errors.New("unknown status")

	// -- Claim state --
	ErrClaimOpen   = errors.New("an open claim already exists for this order item")
	ErrNoOpenClaim = errors.New("no open claim for this order item")

	// -- Tracker state --
	ErrItemNotFound     = errors.New("order item not found")
	ErrUnexpectedStatus = errors.New("reported status is not reachable from current status")
	ErrNoGateway        = errors.New("order service is not configured")
)

// Reason explains why a transition was refused.
type Reason string

const (
	ReasonRoleMismatch Reason = "ROLE_MISMATCH"
	ReasonConflict     Reason = "CONFLICT"
	ReasonTerminal     Reason = "TERMINAL"
)

// TransitionError is returned when a transition is refused. It matches
// ErrIllegalTransition and the sentinel for its reason under errors.Is.
type TransitionError struct {
	From   Status
	Action Action
	Role   Role
	Reason Reason
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s cannot %s from %s (%s)", e.Role, e.Action, e.From, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrIllegalTransition:
		return true
	case ErrRoleMismatch:
		return e.Reason == ReasonRoleMismatch
	case ErrConflict:
		return e.Reason == ReasonConflict || e.Reason == ReasonTerminal
	case ErrAlreadyTerminal:
		return e.Reason == ReasonTerminal
	}
	return false
}
