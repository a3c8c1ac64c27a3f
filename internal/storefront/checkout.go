package storefront

import (
	"context"
	"net/http"

	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/payment"
)

var _ checkout.Remote = (*Client)(nil)

func (c *Client) Precheck(ctx context.Context, sel checkout.Selection) (*checkout.PrecheckResult, error) {
	req := precheckRequest{
		CheckoutItemIDs: sel.LineIDs,
		OrderAllItems:   sel.IncludeAll,
		DirectItem:      toDirectItem(sel.Direct),
	}
	if req.CheckoutItemIDs == nil {
		req.CheckoutItemIDs = []string{}
	}

	var resp precheckResponse
	if err := c.do(ctx, "Precheck", http.MethodPost, "/v1/orders/pre-check", req, &resp); err != nil {
		return nil, err
	}
	return mapPrecheck(resp), nil
}

func (c *Client) CreateOrder(ctx context.Context, r checkout.OrderRequest) (*checkout.CreatedOrder, error) {
	req := createOrderRequest{
		AddressID:    r.AddressID,
		OrderItemIDs: r.LineIDs,
		DirectItem:   toDirectItem(r.Direct),
	}
	if req.OrderItemIDs == nil {
		req.OrderItemIDs = []string{}
	}

	var resp createOrderResponse
	if err := c.do(ctx, "CreateOrder", http.MethodPost, "/v1/orders", req, &resp); err != nil {
		return nil, err
	}
	return mapCreatedOrder(resp, r.AddressID), nil
}

func (c *Client) VerifyPayment(ctx context.Context, r payment.VerifyRequest) (*payment.Verification, error) {
	var resp verifyPaymentResponse
	if err := c.do(ctx, "VerifyPayment", http.MethodPost, "/v1/payments/verify", toVerifyRequest(r), &resp); err != nil {
		return nil, err
	}
	return mapVerification(resp, r.OrderID), nil
}
