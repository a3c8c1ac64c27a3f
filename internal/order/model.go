package order

import "time"

// Status is the workflow state of a single order item.
type Status string

const (
	StatusOrdered        Status = "ORDERED"
	StatusPaid           Status = "PAID"
	StatusRejected       Status = "REJECTED"
	StatusAccepted       Status = "ACCEPTED"
	StatusShipped        Status = "SHIPPED"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCancelPending  Status = "CANCEL_PENDING"
	StatusCanceled       Status = "CANCELED"
	StatusCancelRejected Status = "CANCEL_REJECTED"
	StatusReturnPending  Status = "RETURN_PENDING"
	StatusReturned       Status = "RETURNED"
	StatusReturnRejected Status = "RETURN_REJECTED"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusOrdered,
	StatusPaid,
	StatusRejected,
	StatusAccepted,
	StatusShipped,
	StatusConfirmed,
	StatusCancelPending,
	StatusCanceled,
	StatusCancelRejected,
	StatusReturnPending,
	StatusReturned,
	StatusReturnRejected,
}

func (s Status) String() string { return string(s) }

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusConfirmed, StatusCanceled, StatusCancelRejected,
		StatusReturned, StatusReturnRejected:
		return true
	}
	return false
}

// Role identifies the actor performing a transition.
type Role string

const (
	RolePurchaser Role = "PURCHASER"
	RoleMerchant  Role = "MERCHANT"
	RoleOperator  Role = "OPERATOR"

	// RoleSystem records changes reported by other services. It is never
	// derived from a caller's credentials.
	RoleSystem Role = "SYSTEM"
)

// Action is a role-gated request to move an order item along the graph.
type Action string

const (
	ActionCapturePayment Action = "CAPTURE_PAYMENT"
	ActionAccept         Action = "ACCEPT"
	ActionReject         Action = "REJECT"
	ActionShip           Action = "SHIP"
	ActionConfirm        Action = "CONFIRM"
	ActionRequestCancel  Action = "REQUEST_CANCEL"
	ActionRequestReturn  Action = "REQUEST_RETURN"
	ActionResolveCancel  Action = "RESOLVE_CANCEL"
	ActionResolveReturn  Action = "RESOLVE_RETURN"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCapturePayment, ActionAccept, ActionReject, ActionShip, ActionConfirm,
		ActionRequestCancel, ActionRequestReturn, ActionResolveCancel, ActionResolveReturn:
		return true
	}
	return false
}

// Resolves reports whether the action settles an open claim.
func (a Action) Resolves() bool {
	return a == ActionResolveCancel || a == ActionResolveReturn
}

// Outcome is the decision carried by a resolve action.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	ID   string
	Role Role
}

type Order struct {
	ID        string
	AddressID string
	Items     []Item
	CreatedAt time.Time
}

// Item is one order line. PriceAtOrder is the price contract and is never
// rewritten after creation.
type Item struct {
	ID           string
	OrderID      string
	ProductID    string
	PriceAtOrder int64
	Quantity     int
	Status       Status
}

// ClaimKind distinguishes cancellation from return requests.
type ClaimKind string

const (
	ClaimCancel ClaimKind = "CANCEL"
	ClaimReturn ClaimKind = "RETURN"
)

// Resolution is the merchant or operator decision on a claim.
type Resolution struct {
	Outcome    Outcome
	ResolvedBy Actor
	ResolvedAt time.Time
	Note       string
}

// ClaimRequest is a cancellation or return request for one order item.
type ClaimRequest struct {
	OrderItemID string
	Kind        ClaimKind
	Reason      string
	RequestedBy Actor
	RequestedAt time.Time
	Resolution  *Resolution
}

// Open reports whether the claim still awaits a resolution.
func (c ClaimRequest) Open() bool { return c.Resolution == nil }

// ReceivedQuery filters the merchant's received-order list. Page starts at 1.
type ReceivedQuery struct {
	Status Status
	Page   int
	Size   int
}

// ReceivedPage is one page of order items received by a merchant.
type ReceivedPage struct {
	Items []Item
	Total int
}

// StatusUpdate is what the order-status service reports back after a
// mutation.
type StatusUpdate struct {
	OrderItemID string
	Status      Status
	ResolvedAt  *time.Time
}
