package checkout

import (
	"time"

	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/payment"
)

type Stage string

const (
	StageIdle            Stage = "IDLE"
	StagePrechecking     Stage = "PRECHECKING"
	StageOutOfStock      Stage = "OUT_OF_STOCK"
	StageReady           Stage = "READY"
	StageCreatingOrder   Stage = "CREATING_ORDER"
	StageAwaitingPayment Stage = "AWAITING_PAYMENT"
	StageVerifying       Stage = "VERIFYING"
	StageComplete        Stage = "COMPLETE"
	StageFailed          Stage = "FAILED"
)

func (s Stage) String() string { return string(s) }

// DirectItem is a product bought without going through the cart.
type DirectItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Selection is what the purchaser wants to check out: chosen cart lines, the
// whole cart, or a single direct-purchase item.
type Selection struct {
	LineIDs    []string    `json:"lineIds"`
	IncludeAll bool        `json:"includeAll"`
	Direct     *DirectItem `json:"direct,omitempty"`
}

type Address struct {
	ID        string `json:"addressId"`
	Name      string `json:"name"`
	Recipient string `json:"recipient"`
	Phone     string `json:"phone"`
	Detail    string `json:"detail"`
}

// PricedLine is a line as re-priced by the pre-check service.
type PricedLine struct {
	LineID     string `json:"lineId"`
	ProductID  string `json:"productId"`
	MerchantID string `json:"merchantId"`
	UnitPrice  int64  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
}

// StockIssue names a line that cannot be ordered as selected.
type StockIssue struct {
	LineID    string `json:"lineId"`
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// PrecheckResult is the pre-check service's answer. A result with stock
// issues is a normal outcome, not an error.
type PrecheckResult struct {
	OutOfStock       bool
	Lines            []PricedLine
	StockIssues      []StockIssue
	TotalAmount      int64
	Addresses        []Address
	DefaultAddressID string
}

// Session is the checkout in progress. It lives from pre-check until the
// order is created, abandoned, or the flow fails.
type Session struct {
	ID               string       `json:"sessionId"`
	LineIDs          []string     `json:"lineIds"`
	Direct           *DirectItem  `json:"direct,omitempty"`
	Lines            []PricedLine `json:"lines"`
	TotalAmount      int64        `json:"totalAmount"`
	StockIssues      []StockIssue `json:"stockIssues"`
	Addresses        []Address    `json:"addresses"`
	DefaultAddressID string       `json:"defaultAddressId,omitempty"`
	AddressID        string       `json:"addressId,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// OrderRequest is the order-creation call.
type OrderRequest struct {
	AddressID string
	LineIDs   []string
	Direct    *DirectItem
}

// CreatedOrder is the order-creation service's answer.
type CreatedOrder struct {
	Order       order.Order
	TotalAmount int64
}

// Placement is returned once the order exists and the purchaser must pay.
type Placement struct {
	OrderID     string       `json:"orderId"`
	Amount      int64        `json:"amount"`
	Items       []order.Item `json:"-"`
	RedirectURL string       `json:"redirectUrl"`
}

type Outcome string

const (
	OutcomePending   Outcome = ""
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

// Handoff is the durable record left behind when control passes to the
// payment surface. It is everything Resume needs besides the callback.
type Handoff struct {
	OrderID      string
	OwnerID      string
	LineIDs      []string
	Amount       int64
	CreatedAt    time.Time
	DispatchedAt *time.Time
	CompletedAt  *time.Time
	Outcome      Outcome
	Message      string
}

func (h Handoff) Completed() bool { return h.CompletedAt != nil }

// Result is the outcome of resuming after payment.
type Result struct {
	OrderID   string               `json:"orderId"`
	Stage     Stage                `json:"stage"`
	Outcome   Outcome              `json:"outcome"`
	Message   string               `json:"message,omitempty"`
	Items     []payment.ItemStatus `json:"-"`
	Duplicate bool                 `json:"duplicate"`
}

// State is a read-only projection of the orchestrator.
type State struct {
	Stage   Stage    `json:"stage"`
	Session *Session `json:"session,omitempty"`
	OrderID string   `json:"orderId,omitempty"`
	Message string   `json:"message,omitempty"`
}
