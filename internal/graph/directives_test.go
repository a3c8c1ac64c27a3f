package graph

import (
	"context"
	"testing"

	"warimas-orderflow/internal/graph/model"
	"warimas-orderflow/internal/order"

	"github.com/stretchr/testify/assert"
)

func TestAuthDirective(t *testing.T) {
	role := func(r model.Role) *model.Role { return &r }

	tests := []struct {
		name    string
		ctx     context.Context
		role    *model.Role
		wantErr error
	}{
		{name: "Anonymous", ctx: context.Background(), wantErr: ErrUnauthenticated},
		{name: "AnyUser", ctx: as("u-1", "USER")},
		{name: "Purchaser", ctx: as("u-1", "USER"), role: role(model.RolePurchaser)},
		{name: "MerchantOnPurchaserField", ctx: as("s-1", "SELLER"), role: role(model.RolePurchaser), wantErr: order.ErrRoleMismatch},
		{name: "Merchant", ctx: as("s-1", "SELLER"), role: role(model.RoleMerchant)},
		{name: "OperatorOnMerchantField", ctx: as("a-1", "ADMIN"), role: role(model.RoleMerchant)},
		{name: "PurchaserOnOperatorField", ctx: as("u-1", "USER"), role: role(model.RoleOperator), wantErr: order.ErrRoleMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			res, err := AuthDirective(tt.ctx, nil, func(ctx context.Context) (any, error) {
				called = true
				return "ok", nil
			}, tt.role)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, called)
				return
			}
			assert.NoError(t, err)
			assert.True(t, called)
			assert.Equal(t, "ok", res)
		})
	}
}
