package order

import (
	"context"
	"fmt"
	"slices"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ItemView pairs an order item with its status as one actor sees it.
type ItemView struct {
	Item   Item
	Status StatusView
}

// OrderView is an order projected for one actor.
type OrderView struct {
	ID         string
	AddressID  string
	CreatedAt  time.Time
	TotalPrice int64
	Items      []ItemView
}

// ReceivedView is one page of a merchant's received order items.
type ReceivedView struct {
	Items []ItemView
	Total int
	Page  int
	Size  int
}

// MyOrders lists the purchaser's orders, newest first.
func (t *Tracker) MyOrders(ctx context.Context, actor Actor) ([]OrderView, error) {
	if actor.Role != RolePurchaser {
		return nil, ErrRoleMismatch
	}
	if t.gateway == nil {
		return nil, ErrNoGateway
	}

	orders, err := t.gateway.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v, err := t.projectOrder(ctx, actor, o)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b OrderView) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// OrderDetail reads one of the purchaser's orders.
func (t *Tracker) OrderDetail(ctx context.Context, actor Actor, orderID string) (OrderView, error) {
	if actor.Role != RolePurchaser {
		return OrderView{}, ErrRoleMismatch
	}
	if t.gateway == nil {
		return OrderView{}, ErrNoGateway
	}

	o, err := t.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if o == nil {
		return OrderView{}, ErrItemNotFound
	}
	if o.ID == "" {
		o.ID = orderID
	}
	return t.projectOrder(ctx, actor, *o)
}

// Received lists order items sold by the merchant. Operators see every
// merchant's items.
func (t *Tracker) Received(ctx context.Context, actor Actor, q ReceivedQuery) (ReceivedView, error) {
	if actor.Role != RoleMerchant && actor.Role != RoleOperator {
		return ReceivedView{}, ErrRoleMismatch
	}
	if q.Status != "" && !q.Status.Valid() {
		return ReceivedView{}, fmt.Errorf("%w: %q", ErrUnknownStatus, q.Status)
	}
	if t.gateway == nil {
		return ReceivedView{}, ErrNoGateway
	}
	q.Page = max(q.Page, 1)
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	q.Size = min(q.Size, MaxPageSize)

	page, err := t.gateway.ListReceived(ctx, q)
	if err != nil {
		return ReceivedView{}, err
	}

	out := ReceivedView{Page: q.Page, Size: q.Size}
	if page == nil {
		out.Items = []ItemView{}
		return out, nil
	}
	out.Total = page.Total
	out.Items, err = t.projectItems(ctx, actor, "", page.Items)
	if err != nil {
		return ReceivedView{}, err
	}
	return out, nil
}

func (t *Tracker) projectOrder(ctx context.Context, actor Actor, o Order) (OrderView, error) {
	items, err := t.projectItems(ctx, actor, o.ID, o.Items)
	if err != nil {
		return OrderView{}, err
	}
	v := OrderView{ID: o.ID, AddressID: o.AddressID, CreatedAt: o.CreatedAt, Items: items}
	for _, iv := range items {
		v.TotalPrice += iv.Item.PriceAtOrder * int64(iv.Item.Quantity)
	}
	return v, nil
}

func (t *Tracker) projectItems(ctx context.Context, actor Actor, orderID string, items []Item) ([]ItemView, error) {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		if it.OrderID == "" {
			it.OrderID = orderID
		}
		merged, err := t.merge(ctx, it)
		if err != nil {
			return nil, err
		}
		out = append(out, ItemView{Item: merged, Status: t.Project(actor, merged)})
	}
	return out, nil
}
