package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"warimas-orderflow/internal/order"
)

var _ order.Gateway = (*Client)(nil)

func (c *Client) GetItem(ctx context.Context, itemID string) (*order.Item, error) {
	var resp orderItemDTO
	path := "/v1/orders/items/" + url.PathEscape(itemID)
	if err := c.do(ctx, "GetItem", http.MethodGet, path, nil, &resp); err != nil {
		if StatusOf(err) == http.StatusNotFound {
			return nil, order.ErrItemNotFound
		}
		return nil, err
	}
	it := mapOrderItem(resp)
	if it.ID == "" {
		it.ID = itemID
	}
	return &it, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	var resp orderDTO
	path := "/v1/users/me/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, "GetOrder", http.MethodGet, path, nil, &resp); err != nil {
		if StatusOf(err) == http.StatusNotFound {
			return nil, order.ErrItemNotFound
		}
		return nil, err
	}
	if resp.OrderID == "" {
		resp.OrderID = orderID
	}
	o := mapOrder(resp)
	return &o, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var resp []orderDTO
	if err := c.do(ctx, "ListOrders", http.MethodGet, "/v1/users/me/orders", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]order.Order, 0, len(resp))
	for _, o := range resp {
		out = append(out, mapOrder(o))
	}
	return out, nil
}

// ListReceived pages through the seller's order items. The backend counts
// pages from zero.
func (c *Client) ListReceived(ctx context.Context, q order.ReceivedQuery) (*order.ReceivedPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(q.Page-1, 0)))
	params.Set("size", strconv.Itoa(q.Size))
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}

	var resp receivedOrdersResponse
	if err := c.do(ctx, "ListReceived", http.MethodGet, "/v1/seller/orders?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	page := &order.ReceivedPage{Items: make([]order.Item, 0, len(resp.OrderItems)), Total: resp.TotalOrderCount}
	for _, line := range resp.OrderItems {
		page.Items = append(page.Items, mapOrderLine(line))
	}
	return page, nil
}

// Transition performs one status mutation. An empty answer means the
// backend accepted the change without echoing the new status.
func (c *Client) Transition(ctx context.Context, itemID string, cmd order.Command) (*order.StatusUpdate, error) {
	method, path, body, err := transitionRequest(itemID, cmd)
	if err != nil {
		return nil, err
	}

	var resp statusUpdateDTO
	err = c.do(ctx, "Transition", method, path, body, &resp)
	if errors.Is(err, ErrEmptyResponse) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return mapStatusUpdate(resp, itemID), nil
}

func transitionRequest(itemID string, cmd order.Command) (method, path string, body any, err error) {
	id := url.PathEscape(itemID)
	seller := "/v1/seller/orders/" + id
	purchaser := "/v1/users/me/orders/" + id

	switch cmd.Action {
	case order.ActionAccept:
		return http.MethodPatch, seller + "/status", statusChangeRequest{Status: string(order.StatusAccepted)}, nil
	case order.ActionReject:
		return http.MethodPatch, seller + "/status", statusChangeRequest{Status: string(order.StatusRejected)}, nil
	case order.ActionShip:
		return http.MethodPatch, seller + "/status", statusChangeRequest{Status: string(order.StatusShipped)}, nil
	case order.ActionConfirm:
		return http.MethodPost, purchaser + "/confirm", nil, nil
	case order.ActionRequestCancel:
		return http.MethodPost, purchaser + "/cancel-request", claimRequest{Reason: cmd.Reason}, nil
	case order.ActionRequestReturn:
		return http.MethodPost, purchaser + "/return-request", claimRequest{Reason: cmd.Reason}, nil
	case order.ActionResolveCancel, order.ActionResolveReturn:
		kind, _ := order.ClaimKindFor(cmd.Action)
		return http.MethodPatch, seller + "/claim", claimResolution{
			Kind:    string(kind),
			Outcome: string(cmd.Outcome),
			Note:    cmd.Note,
		}, nil
	}
	return "", "", nil, fmt.Errorf("%w: %s", ErrUnsupportedAction, cmd.Action)
}
