package graph

import (
	"context"

	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/graph/model"
	"warimas-orderflow/internal/httpapi"
	"warimas-orderflow/internal/utils"
)

// --- MAPPER HELPERS ---

func toGraphQLCartLine(l cart.Line) *model.CartLine {
	return &model.CartLine{
		LineID:     l.ID,
		MerchantID: l.MerchantID,
		ProductID:  l.ProductID,
		UnitPrice:  l.UnitPrice,
		Quantity:   l.Quantity,
	}
}

func toGraphQLCart(groups []cart.Group, count int) *model.Cart {
	out := &model.Cart{Groups: make([]*model.CartGroup, 0, len(groups)), Count: count}
	for _, g := range groups {
		lines := make([]*model.CartLine, 0, len(g.Lines))
		for _, l := range g.Lines {
			lines = append(lines, toGraphQLCartLine(l))
		}
		out.Groups = append(out.Groups, &model.CartGroup{
			MerchantID: g.MerchantID,
			Subtotal:   g.Subtotal(),
			Lines:      lines,
		})
	}
	return out
}

func (r *Resolver) workspace(ctx context.Context) (*httpapi.Workspace, error) {
	owner, _ := utils.GetUserIDFromContext(ctx)
	return r.Registry.Workspace(ctx, owner)
}

// --- QUERIES ---

func (r *queryResolver) Cart(ctx context.Context) (*model.Cart, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return toGraphQLCart(ws.Cart.ListGroups(), ws.Cart.Count()), nil
}

// --- MUTATIONS ---

func (r *mutationResolver) AddCartLine(ctx context.Context, productID string, quantity int) (*model.CartLine, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	line, err := ws.Cart.AddLine(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	return toGraphQLCartLine(line), nil
}

func (r *mutationResolver) ChangeCartQuantity(ctx context.Context, lineID string, delta int) (*model.CartLine, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	line, err := ws.Cart.ChangeQuantity(ctx, lineID, delta)
	if err != nil {
		return nil, err
	}
	return toGraphQLCartLine(line), nil
}

func (r *mutationResolver) RemoveCartLines(ctx context.Context, lineIDs []string) (bool, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return false, err
	}
	if err := ws.Cart.RemoveLines(ctx, utils.TrimAll(lineIDs)); err != nil {
		return false, err
	}
	return true, nil
}
