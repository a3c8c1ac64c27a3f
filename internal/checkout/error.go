package checkout

import "errors"

var (
	// -- Validation --
	ErrEmptySelection   = errors.New("nothing selected for checkout")
	ErrInvalidSelection = errors.New("invalid checkout selection")
	ErrAddressRequired  = errors.New("delivery address is required")

	// -- Stage --
	ErrInvalidStage        = errors.New("operation not allowed in the current checkout stage")
	ErrVerificationRunning = errors.New("payment verification is in progress")
	ErrAbandoned           = errors.New("checkout was abandoned")

	// -- Remote --
	ErrPrecheckFailed    = errors.New("failed to pre-check order")
	ErrCreateOrderFailed = errors.New("failed to create order")

	// ErrSessionLost means the order placed before the payment redirect can
	// no longer be matched to a checkout. It is not retried.
	ErrSessionLost = errors.New("checkout session lost; return to cart and start again")

	// -- Ledger --
	ErrHandoffNotFound = errors.New("payment handoff not found")
	ErrHandoffExists   = errors.New("payment handoff already exists")
)
