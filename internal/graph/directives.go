package graph

import (
	"context"
	"errors"

	"warimas-orderflow/internal/auth"
	"warimas-orderflow/internal/graph/model"
	"warimas-orderflow/internal/order"

	"github.com/99designs/gqlgen/graphql"
)

var ErrUnauthenticated = errors.New("unauthorized")

// DirectiveRoot holds the implementations of the schema's directives.
type DirectiveRoot struct {
	Auth func(ctx context.Context, obj any, next graphql.Resolver, role *model.Role) (any, error)
}

// AuthDirective admits any signed-in caller, or only callers holding role
// when one is given. Operators pass merchant-only fields.
func AuthDirective(ctx context.Context, obj any, next graphql.Resolver, role *model.Role) (any, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if role == nil {
		return next(ctx)
	}

	switch {
	case string(actor.Role) == string(*role):
	case *role == model.RoleMerchant && actor.Role == order.RoleOperator:
	default:
		return nil, order.ErrRoleMismatch
	}
	return next(ctx)
}
