package model

import "time"

type Role string

const (
	RolePurchaser Role = "PURCHASER"
	RoleMerchant  Role = "MERCHANT"
	RoleOperator  Role = "OPERATOR"
)

type CartLine struct {
	LineID     string `json:"lineId"`
	MerchantID string `json:"merchantId"`
	ProductID  string `json:"productId"`
	UnitPrice  int64  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
}

type CartGroup struct {
	MerchantID string      `json:"merchantId"`
	Subtotal   int64       `json:"subtotal"`
	Lines      []*CartLine `json:"lines"`
}

type Cart struct {
	Groups []*CartGroup `json:"groups"`
	Count  int          `json:"count"`
}

type Placement struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	RedirectURL string `json:"redirectUrl"`
}

type ClaimView struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

type StatusView struct {
	Status   string     `json:"status"`
	Label    string     `json:"label"`
	Badge    string     `json:"badge"`
	Terminal bool       `json:"terminal"`
	Actions  []string   `json:"actions"`
	Claim    *ClaimView `json:"claim"`
}

type OrderItem struct {
	ID           string      `json:"orderItemId"`
	OrderID      *string     `json:"orderId"`
	ProductID    string      `json:"productId"`
	PriceAtOrder int64       `json:"priceAtOrder"`
	Quantity     int         `json:"quantity"`
	View         *StatusView `json:"view"`
}

type Order struct {
	ID         string       `json:"orderId"`
	AddressID  *string      `json:"addressId"`
	CreatedAt  *string      `json:"createdAt"`
	TotalPrice int64        `json:"totalPrice"`
	Items      []*OrderItem `json:"orderItems"`
}

type ReceivedItems struct {
	Items []*OrderItem `json:"orderItems"`
	Total int          `json:"totalOrderCount"`
	Page  int          `json:"page"`
	Size  int          `json:"size"`
}

type Claim struct {
	Kind        string     `json:"kind"`
	Reason      string     `json:"reason"`
	RequestedBy string     `json:"requestedBy"`
	RequestedAt time.Time  `json:"requestedAt"`
	Outcome     *string    `json:"outcome"`
	ResolvedBy  *string    `json:"resolvedBy"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
	Note        *string    `json:"note"`
}

type DirectItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type SelectionInput struct {
	LineIDs    []string         `json:"lineIds"`
	IncludeAll *bool            `json:"includeAll"`
	Direct     *DirectItemInput `json:"direct"`
}

type OrderActionInput struct {
	Action  string  `json:"action"`
	Outcome *string `json:"outcome"`
	Reason  *string `json:"reason"`
	Note    *string `json:"note"`
}
