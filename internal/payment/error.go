package payment

import "errors"

var (
	ErrMissingOrderID   = errors.New("payment callback has no order id")
	ErrInvalidAmount    = errors.New("invalid payment amount")
	ErrMissingReference = errors.New("payment callback has no provider reference")
	ErrInvalidRedirect  = errors.New("invalid payment redirect url")
)
