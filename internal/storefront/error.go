package storefront

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnavailable wraps network failures and calls refused by the
	// circuit breaker.
	ErrUnavailable = errors.New("storefront unavailable")

	ErrUnsupportedAction = errors.New("action has no storefront endpoint")
	ErrEmptyResponse     = errors.New("storefront returned an empty response")
	ErrResponseTooLarge  = errors.New("storefront response exceeds size limit")
)

// APIError is a non-2xx answer from the storefront backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront: status %d", e.StatusCode)
	}
	return fmt.Sprintf("storefront: status %d: %s", e.StatusCode, e.Message)
}

// IsTransient reports whether retrying the same call later may succeed.
// Caller cancellation is not transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}
		return apiErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// StatusOf returns the storefront status code carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
