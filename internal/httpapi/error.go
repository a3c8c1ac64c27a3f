package httpapi

import (
	"errors"
	"net/http"

	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/logger"
	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/payment"
	"warimas-orderflow/internal/storefront"
	"warimas-orderflow/internal/utils"

	"go.uber.org/zap"
)

var ErrBadRequest = errors.New("malformed request")

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

var (
	badRequest = []error{
		ErrBadRequest,
		cart.ErrInvalidQuantity,
		cart.ErrInvalidRemoveCartInput,
		cart.ErrInvalidProduct,
		checkout.ErrEmptySelection,
		checkout.ErrInvalidSelection,
		checkout.ErrAddressRequired,
		order.ErrReasonRequired,
		order.ErrOutcomeRequired,
		order.ErrUnknownAction,
		order.ErrUnknownStatus,
		payment.ErrInvalidAmount,
		payment.ErrMissingReference,
	}
	notFound = []error{
		cart.ErrCartItemNotFound,
		order.ErrItemNotFound,
	}
	conflict = []error{
		cart.ErrCartItemAlreadyExist,
		checkout.ErrInvalidStage,
		checkout.ErrVerificationRunning,
		checkout.ErrAbandoned,
		order.ErrConflict,
		order.ErrItemBusy,
		order.ErrClaimOpen,
		order.ErrNoOpenClaim,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// StatusFor maps a domain error onto an HTTP status. The GraphQL surface
// classifies its errors with it too.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrSessionLost):
		return http.StatusGone
	case errors.Is(err, order.ErrRoleMismatch):
		return http.StatusForbidden
	case isAny(err, conflict):
		return http.StatusConflict
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case storefront.IsTransient(err), errors.Is(err, order.ErrUnexpectedStatus),
		errors.Is(err, storefront.ErrResponseTooLarge):
		return http.StatusBadGateway
	case errors.Is(err, order.ErrNoGateway):
		return http.StatusServiceUnavailable
	}
	if code := storefront.StatusOf(err); code >= 400 && code < 500 {
		return code
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	resp := errorResponse{Error: err.Error()}

	var te *order.TransitionError
	if errors.As(err, &te) {
		resp.Reason = string(te.Reason)
	}
	if code == http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		resp.Error = http.StatusText(code)
	}
	utils.WriteJSON(w, code, resp)
}
