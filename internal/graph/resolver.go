package graph

import (
	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/httpapi"
	"warimas-orderflow/internal/order"
)

// Resolver serves the GraphQL surface over the same workspaces and order
// tracker as the REST handlers.
type Resolver struct {
	Registry *httpapi.Registry
	Tracker  *order.Tracker
	Feed     *events.Feed
}

func NewSchema(r *Resolver) *Schema {
	return newSchema(r, DirectiveRoot{
		Auth: AuthDirective,
	})
}
