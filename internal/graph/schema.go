package graph

import (
	"context"
	_ "embed"

	"warimas-orderflow/internal/graph/model"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphqls
var schemaSDL string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSDL})

type queryResolver struct{ *Resolver }

type mutationResolver struct{ *Resolver }

func (r *Resolver) Query() *queryResolver { return &queryResolver{r} }

func (r *Resolver) Mutation() *mutationResolver { return &mutationResolver{r} }

func newSchema(r *Resolver, directives DirectiveRoot) *Schema {
	q, m := r.Query(), r.Mutation()

	return &Schema{
		schema:     parsedSchema,
		directives: directives,
		query: map[string]fieldFunc{
			"cart": func(ctx context.Context, _ map[string]any) (any, error) {
				return q.Cart(ctx)
			},
			"checkout": func(ctx context.Context, _ map[string]any) (any, error) {
				return q.Checkout(ctx)
			},
			"orderItem": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					ID string `json:"id"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return q.OrderItem(ctx, in.ID)
			},
			"claims": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					ItemID string `json:"itemId"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return q.Claims(ctx, in.ItemID)
			},
			"orders": func(ctx context.Context, _ map[string]any) (any, error) {
				return q.Orders(ctx)
			},
			"order": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					ID string `json:"id"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return q.Order(ctx, in.ID)
			},
			"receivedItems": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					Status *string `json:"status"`
					Page   *int    `json:"page"`
					Size   *int    `json:"size"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return q.ReceivedItems(ctx, in.Status, in.Page, in.Size)
			},
			"events": func(ctx context.Context, _ map[string]any) (any, error) {
				return q.Events(ctx)
			},
		},
		mutation: map[string]fieldFunc{
			"addCartLine": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					ProductID string `json:"productId"`
					Quantity  int    `json:"quantity"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return m.AddCartLine(ctx, in.ProductID, in.Quantity)
			},
			"changeCartQuantity": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					LineID string `json:"lineId"`
					Delta  int    `json:"delta"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return m.ChangeCartQuantity(ctx, in.LineID, in.Delta)
			},
			"removeCartLines": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					LineIDs []string `json:"lineIds"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return m.RemoveCartLines(ctx, in.LineIDs)
			},
			"precheck": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					Selection model.SelectionInput `json:"selection"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return m.Precheck(ctx, in.Selection)
			},
			"placeOrder": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					AddressID string `json:"addressId"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return m.PlaceOrder(ctx, in.AddressID)
			},
			"abandonCheckout": func(ctx context.Context, _ map[string]any) (any, error) {
				return m.AbandonCheckout(ctx)
			},
			"applyOrderAction": func(ctx context.Context, args map[string]any) (any, error) {
				var in struct {
					ItemID string                 `json:"itemId"`
					Input  model.OrderActionInput `json:"input"`
				}
				if err := bindArgs(args, &in); err != nil {
					return nil, err
				}
				return m.ApplyOrderAction(ctx, in.ItemID, in.Input)
			},
		},
	}
}
