package storefront

import (
	"context"
	"net/http"
	"net/url"

	"warimas-orderflow/internal/cart"
)

var _ cart.Remote = (*Client)(nil)

func (c *Client) GetCart(ctx context.Context) ([]cart.Line, error) {
	var resp cartResponse
	if err := c.do(ctx, "GetCart", http.MethodGet, "/v1/cart/me", nil, &resp); err != nil {
		return nil, err
	}
	return mapCartResponse(resp), nil
}

func (c *Client) AddLine(ctx context.Context, productID string, quantity int) (*cart.Line, error) {
	var resp cartItemDTO
	req := addCartItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, "AddLine", http.MethodPost, "/v1/cart/items", req, &resp); err != nil {
		return nil, err
	}
	line := mapCartItem(resp)
	return &line, nil
}

func (c *Client) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	path := "/v1/cart/items/" + url.PathEscape(lineID)
	return c.do(ctx, "UpdateQuantity", http.MethodPatch, path, updateQuantityRequest{Quantity: quantity}, nil)
}

func (c *Client) RemoveLines(ctx context.Context, lineIDs []string) error {
	return c.do(ctx, "RemoveLines", http.MethodDelete, "/v1/cart/items", removeCartItemsRequest{ItemIDs: lineIDs}, nil)
}
