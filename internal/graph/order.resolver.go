package graph

import (
	"context"
	"strings"
	"time"

	"warimas-orderflow/internal/auth"
	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/graph/model"
	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/utils"
)

// --- MAPPER HELPERS ---

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toGraphQLStatusView(v order.StatusView) *model.StatusView {
	out := &model.StatusView{
		Status:   string(v.Status),
		Label:    v.Label,
		Badge:    v.Badge,
		Terminal: v.Terminal,
		Actions:  make([]string, 0, len(v.Actions)),
	}
	for _, a := range v.Actions {
		out.Actions = append(out.Actions, string(a))
	}
	if v.Claim != nil {
		out.Claim = &model.ClaimView{Kind: string(v.Claim.Kind), Reason: v.Claim.Reason}
	}
	return out
}

func toGraphQLOrderItem(it order.Item, v order.StatusView) *model.OrderItem {
	return &model.OrderItem{
		ID:           it.ID,
		OrderID:      strPtr(it.OrderID),
		ProductID:    it.ProductID,
		PriceAtOrder: it.PriceAtOrder,
		Quantity:     it.Quantity,
		View:         toGraphQLStatusView(v),
	}
}

func toGraphQLItems(views []order.ItemView) []*model.OrderItem {
	out := make([]*model.OrderItem, 0, len(views))
	for _, iv := range views {
		out = append(out, toGraphQLOrderItem(iv.Item, iv.Status))
	}
	return out
}

func toGraphQLOrder(o order.OrderView) *model.Order {
	out := &model.Order{
		ID:         o.ID,
		AddressID:  strPtr(o.AddressID),
		TotalPrice: o.TotalPrice,
		Items:      toGraphQLItems(o.Items),
	}
	if !o.CreatedAt.IsZero() {
		out.CreatedAt = strPtr(o.CreatedAt.Format(time.RFC3339))
	}
	return out
}

func toGraphQLClaim(c order.ClaimRequest) *model.Claim {
	out := &model.Claim{
		Kind:        string(c.Kind),
		Reason:      c.Reason,
		RequestedBy: c.RequestedBy.ID,
		RequestedAt: c.RequestedAt,
	}
	if res := c.Resolution; res != nil {
		at := res.ResolvedAt
		out.Outcome = strPtr(string(res.Outcome))
		out.ResolvedBy = strPtr(res.ResolvedBy.ID)
		out.ResolvedAt = &at
		out.Note = strPtr(res.Note)
	}
	return out
}

func actorFrom(ctx context.Context) order.Actor {
	actor, _ := auth.ActorFromContext(ctx)
	return actor
}

// --- QUERIES ---

func (r *queryResolver) OrderItem(ctx context.Context, id string) (*model.OrderItem, error) {
	it, view, err := r.Tracker.View(ctx, actorFrom(ctx), id)
	if err != nil {
		return nil, err
	}
	return toGraphQLOrderItem(it, view), nil
}

// Claims reads the item through the caller's session before answering.
func (r *queryResolver) Claims(ctx context.Context, itemID string) ([]*model.Claim, error) {
	if _, err := r.Tracker.Load(ctx, itemID); err != nil {
		return nil, err
	}
	claims := r.Tracker.Claims(actorFrom(ctx), itemID)
	out := make([]*model.Claim, 0, len(claims))
	for _, c := range claims {
		out = append(out, toGraphQLClaim(c))
	}
	return out, nil
}

func (r *queryResolver) Orders(ctx context.Context) ([]*model.Order, error) {
	orders, err := r.Tracker.MyOrders(ctx, actorFrom(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, toGraphQLOrder(o))
	}
	return out, nil
}

func (r *queryResolver) Order(ctx context.Context, id string) (*model.Order, error) {
	o, err := r.Tracker.OrderDetail(ctx, actorFrom(ctx), id)
	if err != nil {
		return nil, err
	}
	return toGraphQLOrder(o), nil
}

func (r *queryResolver) ReceivedItems(ctx context.Context, status *string, page, size *int) (*model.ReceivedItems, error) {
	q := order.ReceivedQuery{}
	if status != nil {
		q.Status = order.Status(strings.ToUpper(strings.TrimSpace(*status)))
	}
	if page != nil {
		q.Page = *page
	}
	if size != nil {
		q.Size = *size
	}

	res, err := r.Tracker.Received(ctx, actorFrom(ctx), q)
	if err != nil {
		return nil, err
	}
	return &model.ReceivedItems{
		Items: toGraphQLItems(res.Items),
		Total: res.Total,
		Page:  res.Page,
		Size:  res.Size,
	}, nil
}

func (r *queryResolver) Events(ctx context.Context) ([]events.Event, error) {
	if r.Feed == nil {
		return []events.Event{}, nil
	}
	owner, _ := utils.GetUserIDFromContext(ctx)
	return r.Feed.Recent(owner), nil
}

// --- MUTATIONS ---

func (r *mutationResolver) ApplyOrderAction(ctx context.Context, itemID string, in model.OrderActionInput) (*model.OrderItem, error) {
	cmd := order.Command{Action: order.Action(strings.ToUpper(strings.TrimSpace(in.Action)))}
	if in.Outcome != nil {
		cmd.Outcome = order.Outcome(strings.ToUpper(strings.TrimSpace(*in.Outcome)))
	}
	if in.Reason != nil {
		cmd.Reason = *in.Reason
	}
	if in.Note != nil {
		cmd.Note = *in.Note
	}

	actor := actorFrom(ctx)
	it, err := r.Tracker.Transition(ctx, actor, itemID, cmd)
	if err != nil {
		return nil, err
	}
	return toGraphQLOrderItem(it, r.Tracker.Project(actor, it)), nil
}
