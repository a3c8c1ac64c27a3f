package payment

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseCallback reads the query string of a payment redirect. Portone sends
// the order id as merchant_uid.
func ParseCallback(q url.Values) (Callback, error) {
	c := Callback{
		OrderID:    strings.TrimSpace(q.Get("orderId")),
		PaymentKey: strings.TrimSpace(q.Get("paymentKey")),
		ImpUID:     strings.TrimSpace(q.Get("imp_uid")),
		Code:       strings.TrimSpace(q.Get("code")),
		Message:    q.Get("message"),
	}
	if c.OrderID == "" {
		c.OrderID = strings.TrimSpace(q.Get("merchant_uid"))
	}

	if raw := strings.TrimSpace(q.Get("amount")); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
		c.Amount = amount
	}
	return c, nil
}

// Validate checks that a successful callback carries what verification needs.
func (c Callback) Validate() error {
	if c.OrderID == "" {
		return ErrMissingOrderID
	}
	if c.Amount <= 0 {
		return ErrInvalidAmount
	}
	if c.Reference() == "" {
		return ErrMissingReference
	}
	return nil
}

// NewVerifyRequest builds the verification call for a callback.
func NewVerifyRequest(c Callback, cartLineIDs []string) VerifyRequest {
	return VerifyRequest{
		OrderID:     c.OrderID,
		Amount:      c.Amount,
		Method:      c.Method(),
		PaymentKey:  c.PaymentKey,
		ImpUID:      c.ImpUID,
		CartLineIDs: cartLineIDs,
	}
}

// Redirector builds the URL that hands the purchaser over to the payment
// surface. The surface returns to successURL or failURL with a Callback in
// the query string.
type Redirector struct {
	base       *url.URL
	successURL string
	failURL    string
}

func NewRedirector(base, successURL, failURL string) (*Redirector, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRedirect, base)
	}
	return &Redirector{base: u, successURL: successURL, failURL: failURL}, nil
}

func (r *Redirector) URL(orderID string, amount int64) string {
	u := *r.base
	q := u.Query()
	q.Set("orderId", orderID)
	q.Set("amount", strconv.FormatInt(amount, 10))
	if r.successURL != "" {
		q.Set("successUrl", r.successURL)
	}
	if r.failURL != "" {
		q.Set("failUrl", r.failURL)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
