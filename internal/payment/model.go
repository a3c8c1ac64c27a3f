package payment

import "strings"

// Method identifies the payment provider that handled a payment.
type Method string

const (
	MethodToss    Method = "TOSS"
	MethodPortone Method = "PORTONE"
)

func (m Method) Valid() bool {
	return m == MethodToss || m == MethodPortone
}

// Callback is what the payment surface appends to the redirect that returns
// the purchaser to checkout.
type Callback struct {
	OrderID    string
	Amount     int64
	PaymentKey string // TOSS
	ImpUID     string // PORTONE
	Code       string
	Message    string
}

// Failed reports whether the provider signalled a failed or cancelled payment.
func (c Callback) Failed() bool { return strings.TrimSpace(c.Code) != "" }

// Method infers the provider from the reference it returned.
func (c Callback) Method() Method {
	if c.PaymentKey != "" {
		return MethodToss
	}
	return MethodPortone
}

// Reference is the provider-side payment reference.
func (c Callback) Reference() string {
	if c.PaymentKey != "" {
		return c.PaymentKey
	}
	return c.ImpUID
}

// VerifyRequest is the body of a payment verification call. CartLineIDs are
// the cart lines the order was created from; the server deletes them once
// the payment is confirmed.
type VerifyRequest struct {
	OrderID     string
	Amount      int64
	Method      Method
	PaymentKey  string
	ImpUID      string
	CartLineIDs []string
}

// ItemStatus is an order item status reported by payment verification.
type ItemStatus struct {
	OrderItemID string
	Status      string
}

// Verification is the outcome of a successful payment verification.
type Verification struct {
	OrderID string
	Items   []ItemStatus
}
