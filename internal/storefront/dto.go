package storefront

import "time"

// -- Cart --

type cartResponse struct {
	Sellers []sellerGroupDTO `json:"sellers"`
}

type sellerGroupDTO struct {
	SellerID string        `json:"sellerId"`
	Items    []cartItemDTO `json:"items"`
}

type cartItemDTO struct {
	CartItemID   string `json:"cartItemId"`
	SellerID     string `json:"sellerId,omitempty"`
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName,omitempty"`
	ProductPrice int64  `json:"productPrice"`
	Quantity     int    `json:"quantity"`
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type removeCartItemsRequest struct {
	ItemIDs []string `json:"itemIds"`
}

// -- Checkout --

type directItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type precheckRequest struct {
	CheckoutItemIDs []string       `json:"checkoutItemIds"`
	OrderAllItems   bool           `json:"orderAllItems"`
	DirectItem      *directItemDTO `json:"directItem,omitempty"`
}

type precheckResponse struct {
	Status           string           `json:"status"`
	Items            []precheckItem   `json:"items"`
	TotalPrice       int64            `json:"totalPrice"`
	Addresses        []addressDTO     `json:"addresses"`
	DefaultAddressID string           `json:"defaultAddressId"`
	OutOfStockItems  []outOfStockItem `json:"outOfStockItems"`
}

type precheckItem struct {
	CartItemID string `json:"cartItemId"`
	ProductID  string `json:"productId"`
	SellerID   string `json:"sellerId"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
}

type outOfStockItem struct {
	CartItemID string `json:"cartItemId"`
	ProductID  string `json:"productId"`
	Requested  int    `json:"requestedQuantity"`
	Available  int    `json:"availableStock"`
}

type addressDTO struct {
	AddressID      string `json:"addressId"`
	AddressName    string `json:"addressName"`
	RecipientName  string `json:"recipientName"`
	RecipientPhone string `json:"recipientPhone"`
	Address        string `json:"address"`
}

type createOrderRequest struct {
	AddressID    string         `json:"addressId"`
	OrderItemIDs []string       `json:"orderItemIds"`
	DirectItem   *directItemDTO `json:"directItem,omitempty"`
}

type createOrderResponse struct {
	OrderID    string         `json:"orderId"`
	TotalPrice int64          `json:"totalPrice"`
	Items      []orderItemDTO `json:"items"`
	CreatedAt  *time.Time     `json:"createdAt"`
}

type orderItemDTO struct {
	OrderItemID  string `json:"orderItemId"`
	OrderID      string `json:"orderId,omitempty"`
	ProductID    string `json:"productId"`
	PriceAtOrder int64  `json:"priceAtOrder"`
	Quantity     int    `json:"quantity"`
	Status       string `json:"status"`
}

type verifyPaymentRequest struct {
	OrderID             string   `json:"orderId"`
	Amount              int64    `json:"amount"`
	Method              string   `json:"method"`
	PaymentKey          string   `json:"paymentKey,omitempty"`
	ImpUID              string   `json:"imp_uid,omitempty"`
	CartItemIDsToDelete []string `json:"cartItemIdsToDelete"`
}

type verifyPaymentResponse struct {
	OrderID string          `json:"orderId"`
	Items   []itemStatusDTO `json:"items"`
}

type itemStatusDTO struct {
	OrderItemID string `json:"orderItemId"`
	Status      string `json:"status"`
}

// -- Order status --

type statusChangeRequest struct {
	Status string `json:"status"`
}

type claimRequest struct {
	Reason string `json:"reason"`
}

type claimResolution struct {
	Kind    string `json:"kind"`
	Outcome string `json:"outcome"`
	Note    string `json:"note,omitempty"`
}

type statusUpdateDTO struct {
	OrderItemID string     `json:"orderItemId"`
	Status      string     `json:"status"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
}

// -- Order reads --

type orderDTO struct {
	OrderID    string         `json:"orderId"`
	AddressID  string         `json:"addressId,omitempty"`
	TotalPrice int64          `json:"totalPrice"`
	CreatedAt  *time.Time     `json:"createdAt"`
	OrderItems []orderLineDTO `json:"orderItems"`
}

type orderLineDTO struct {
	OrderItemID     string `json:"orderItemId"`
	OrderID         string `json:"orderId,omitempty"`
	ProductID       string `json:"productId"`
	ProductPrice    int64  `json:"productPrice"`
	ProductQuantity int    `json:"productQuantity"`
	OrderItemStatus string `json:"orderItemStatus"`
}

type receivedOrdersResponse struct {
	OrderItems      []orderLineDTO `json:"orderItems"`
	TotalOrderCount int            `json:"totalOrderCount"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
