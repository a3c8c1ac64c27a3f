package graph

import (
	"context"

	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/graph/model"
)

func toCheckoutSelection(in model.SelectionInput) checkout.Selection {
	sel := checkout.Selection{LineIDs: in.LineIDs}
	if in.IncludeAll != nil {
		sel.IncludeAll = *in.IncludeAll
	}
	if in.Direct != nil {
		sel.Direct = &checkout.DirectItem{ProductID: in.Direct.ProductID, Quantity: in.Direct.Quantity}
	}
	return sel
}

func (r *queryResolver) Checkout(ctx context.Context) (*checkout.State, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	st := ws.Checkout.State()
	return &st, nil
}

// Precheck answers with the checkout state; an out-of-stock selection is
// not an error and its session names the offending lines.
func (r *mutationResolver) Precheck(ctx context.Context, in model.SelectionInput) (*checkout.State, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	session, err := ws.Checkout.Precheck(ctx, toCheckoutSelection(in))
	if err != nil {
		return nil, err
	}
	st := ws.Checkout.State()
	st.Session = session
	return &st, nil
}

func (r *mutationResolver) PlaceOrder(ctx context.Context, addressID string) (*model.Placement, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	p, err := ws.Checkout.PlaceOrder(ctx, addressID)
	if err != nil {
		return nil, err
	}
	return &model.Placement{OrderID: p.OrderID, Amount: p.Amount, RedirectURL: p.RedirectURL}, nil
}

func (r *mutationResolver) AbandonCheckout(ctx context.Context) (bool, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return false, err
	}
	if err := ws.Checkout.Abandon(ctx); err != nil {
		return false, err
	}
	return true, nil
}
