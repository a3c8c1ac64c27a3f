package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSchema_Cart(t *testing.T) {
	h := newHarness(t)
	h.backend.On("GetCart", mock.Anything).Return(cartLines, nil).Once()

	w := h.post(t, as("u-1", "USER"), `
		query Cart($skipLines: Boolean!) {
			cart {
				total: count
				__typename
				groups { ...group lines @skip(if: $skipLines) { lineId } }
			}
		}
		fragment group on CartGroup { merchantId subtotal }
	`, map[string]any{"skipLines": true})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"cart":{
		"total":2,
		"__typename":"Cart",
		"groups":[{"merchantId":"s-1","subtotal":20000},{"merchantId":"s-2","subtotal":10000}]
	}}}`, w.Body.String())
	assert.Contains(t, w.Body.String(), `{"total":2,"__typename":"Cart","groups":`)
}

func TestSchema_MergesRepeatedFields(t *testing.T) {
	h := newHarness(t)
	h.backend.On("GetCart", mock.Anything).Return(cartLines, nil).Once()

	w := h.post(t, as("u-1", "USER"), `{
		cart { groups { merchantId } }
		cart { groups { lines { quantity } } }
	}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"cart":{"groups":[
		{"merchantId":"s-1","lines":[{"quantity":2}]},
		{"merchantId":"s-2","lines":[{"quantity":1}]}
	]}}}`, w.Body.String())
}

func TestSchema_Mutations(t *testing.T) {
	h := newHarness(t)
	ctx := as("u-1", "USER")
	h.backend.On("GetCart", mock.Anything).Return(cartLines, nil).Once()

	t.Run("AddCartLine", func(t *testing.T) {
		h.backend.On("AddLine", mock.Anything, "p-3", 2).
			Return(&cart.Line{ID: "l-3", MerchantID: "s-1", ProductID: "p-3", UnitPrice: 5000, Quantity: 2}, nil).Once()

		w := h.post(t, ctx, `mutation Add($p: ID!, $q: Int!) {
			addCartLine(productId: $p, quantity: $q) { lineId quantity }
		}`, map[string]any{"p": "p-3", "q": 2})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"addCartLine":{"lineId":"l-3","quantity":2}}}`, w.Body.String())
	})

	t.Run("EventsFollowTheCart", func(t *testing.T) {
		w := h.post(t, ctx, `{ events { kind cartCount } }`, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var data struct {
			Events []struct {
				Kind      string `json:"kind"`
				CartCount int    `json:"cartCount"`
			} `json:"events"`
		}
		res := decodeResult(t, w)
		require.NoError(t, json.Unmarshal(res.Data["events"], &data.Events))
		require.NotEmpty(t, data.Events)
		last := data.Events[len(data.Events)-1]
		assert.Equal(t, "cart.count_changed", last.Kind)
		assert.Equal(t, 3, last.CartCount)
	})

	t.Run("DuplicateProductIsConflict", func(t *testing.T) {
		w := h.post(t, ctx, `mutation { addCartLine(productId: "p-1", quantity: 1) { lineId } }`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		res := decodeResult(t, w)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "CONFLICT", res.Errors[0].Extensions["code"])
		assert.Equal(t, []any{"addCartLine"}, res.Errors[0].Path)
		assert.Nil(t, res.Data)
	})

	t.Run("NotOverGet", func(t *testing.T) {
		q := url.Values{"query": {`mutation { abandonCheckout }`}}
		req := httptest.NewRequest(http.MethodGet, "/query?"+q.Encode(), nil).WithContext(ctx)
		w := httptest.NewRecorder()
		h.schema.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "only accepted over POST")
	})

	h.backend.AssertExpectations(t)
}

func TestSchema_OrderItems(t *testing.T) {
	paid := &order.Item{ID: "oi-1", OrderID: "ord-1", ProductID: "p-1", PriceAtOrder: 10000, Quantity: 1, Status: order.StatusPaid}

	t.Run("ByVariable", func(t *testing.T) {
		h := newHarness(t)
		h.backend.On("GetItem", mock.Anything, "oi-1").Return(paid, nil).Once()

		w := h.post(t, as("u-1", "USER"), `query Item($id: ID!) {
			orderItem(id: $id) { orderItemId view { status label claim { kind } } }
		}`, map[string]any{"id": "oi-1"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"orderItem":{
			"orderItemId":"oi-1",
			"view":{"status":"PAID","label":"Paid","claim":null}
		}}}`, w.Body.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newHarness(t)
		h.backend.On("GetItem", mock.Anything, "oi-9").Return(nil, order.ErrItemNotFound).Once()

		w := h.post(t, as("u-1", "USER"), `{ orderItem(id: "oi-9") { orderItemId } }`, nil)

		res := decodeResult(t, w)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "NOT_FOUND", res.Errors[0].Extensions["code"])
		assert.Nil(t, res.Data)
	})

	t.Run("RefusedActionCarriesReason", func(t *testing.T) {
		h := newHarness(t)
		h.backend.On("GetItem", mock.Anything, "oi-1").Return(paid, nil)

		w := h.post(t, as("u-1", "USER"), `mutation {
			applyOrderAction(itemId: "oi-1", input: {action: "SHIP"}) { orderItemId }
		}`, nil)

		res := decodeResult(t, w)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "FORBIDDEN", res.Errors[0].Extensions["code"])
		assert.Equal(t, "ROLE_MISMATCH", res.Errors[0].Extensions["reason"])
		h.backend.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ReceivedIsForMerchants", func(t *testing.T) {
		h := newHarness(t)

		w := h.post(t, as("u-1", "USER"), `{ receivedItems(page: 2) { totalOrderCount } }`, nil)

		res := decodeResult(t, w)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "FORBIDDEN", res.Errors[0].Extensions["code"])
		h.backend.AssertNotCalled(t, "ListReceived", mock.Anything, mock.Anything)
	})

	t.Run("OperatorSeesReceived", func(t *testing.T) {
		h := newHarness(t)
		h.backend.On("ListReceived", mock.Anything, order.ReceivedQuery{Page: 1, Size: 5}).
			Return(&order.ReceivedPage{Total: 0}, nil).Once()

		w := h.post(t, as("a-1", "ADMIN"), `{ receivedItems(size: 5) { orderItems { orderItemId } totalOrderCount page size } }`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"receivedItems":{"orderItems":[],"totalOrderCount":0,"page":1,"size":5}}}`, w.Body.String())
		h.backend.AssertExpectations(t)
	})
}

func TestSchema_Errors(t *testing.T) {
	h := newHarness(t)

	t.Run("Anonymous", func(t *testing.T) {
		w := h.post(t, context.Background(), `{ checkout { stage } }`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		res := decodeResult(t, w)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "UNAUTHORIZED", res.Errors[0].Extensions["code"])
	})

	t.Run("UnknownField", func(t *testing.T) {
		w := h.post(t, as("u-1", "USER"), `{ cart { nope } }`, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), `Cannot query field \"nope\"`)
	})

	t.Run("MissingVariable", func(t *testing.T) {
		w := h.post(t, as("u-1", "USER"), `query Item($id: ID!) { orderItem(id: $id) { orderItemId } }`, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "must be defined")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":`))
		w := httptest.NewRecorder()
		h.schema.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Method", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.schema.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/query", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
	})

	t.Run("PanicIsMasked", func(t *testing.T) {
		h := newHarness(t)
		h.backend.On("ListOrders", mock.Anything).Run(func(mock.Arguments) {
			panic("boom")
		}).Return(nil, nil)

		w := h.post(t, as("u-1", "USER"), `{ orders { orderId } }`, nil)

		res := decodeResult(t, w)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "internal system error", res.Errors[0].Message)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", res.Errors[0].Extensions["code"])
	})
}

func TestSchema_Introspection(t *testing.T) {
	h := newHarness(t)

	w := h.post(t, context.Background(), `{
		__schema { queryType { name } mutationType { name } }
		__type(name: "OrderItem") { kind fields { name type { kind ofType { name } } } }
	}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"queryType":{"name":"Query"},"mutationType":{"name":"Mutation"}}`, string(res.Data["__schema"]))

	var typ struct {
		Kind   string `json:"kind"`
		Fields []struct {
			Name string `json:"name"`
			Type struct {
				Kind   string `json:"kind"`
				OfType struct {
					Name string `json:"name"`
				} `json:"ofType"`
			} `json:"type"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(res.Data["__type"], &typ))
	assert.Equal(t, "OBJECT", typ.Kind)
	require.NotEmpty(t, typ.Fields)
	assert.Equal(t, "orderItemId", typ.Fields[0].Name)
	assert.Equal(t, "NON_NULL", typ.Fields[0].Type.Kind)
	assert.Equal(t, "ID", typ.Fields[0].Type.OfType.Name)
}
