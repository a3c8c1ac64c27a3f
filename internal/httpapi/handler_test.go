package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/payment"
	"warimas-orderflow/internal/storefront"
	"warimas-orderflow/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// MockBackend is a mock of the storefront backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetCart(ctx context.Context) ([]cart.Line, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Line), args.Error(1)
}

func (m *MockBackend) AddLine(ctx context.Context, productID string, quantity int) (*cart.Line, error) {
	args := m.Called(ctx, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Line), args.Error(1)
}

func (m *MockBackend) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	return m.Called(ctx, lineID, quantity).Error(0)
}

func (m *MockBackend) RemoveLines(ctx context.Context, lineIDs []string) error {
	return m.Called(ctx, lineIDs).Error(0)
}

func (m *MockBackend) Precheck(ctx context.Context, sel checkout.Selection) (*checkout.PrecheckResult, error) {
	args := m.Called(ctx, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.PrecheckResult), args.Error(1)
}

func (m *MockBackend) CreateOrder(ctx context.Context, req checkout.OrderRequest) (*checkout.CreatedOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.CreatedOrder), args.Error(1)
}

func (m *MockBackend) VerifyPayment(ctx context.Context, req payment.VerifyRequest) (*payment.Verification, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Verification), args.Error(1)
}

func (m *MockBackend) GetItem(ctx context.Context, itemID string) (*order.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	it := *args.Get(0).(*order.Item)
	return &it, args.Error(1)
}

func (m *MockBackend) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockBackend) ListOrders(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockBackend) ListReceived(ctx context.Context, q order.ReceivedQuery) (*order.ReceivedPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.ReceivedPage), args.Error(1)
}

func (m *MockBackend) Transition(ctx context.Context, itemID string, cmd order.Command) (*order.StatusUpdate, error) {
	args := m.Called(ctx, itemID, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.StatusUpdate), args.Error(1)
}

type testServer struct {
	http.Handler
	backend *MockBackend
	tracker *order.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	be := new(MockBackend)
	tracker := order.NewTracker(be)
	bus := events.NewBus()
	feed := events.NewFeed(20)
	feed.Attach(bus)

	redirects, err := payment.NewRedirector("https://pay.example.com/start", "https://shop.example.com/ok", "https://shop.example.com/fail")
	require.NoError(t, err)

	reg := NewRegistry(RegistryDeps{Backend: be, Tracker: tracker, Redirects: redirects, Events: bus})
	h := NewHandler(reg, tracker, feed, func() any { return map[string]string{"breaker": "closed"} })
	return &testServer{
		Handler: NewRouter(h, RouterConfig{JWTSecret: []byte(testSecret)}),
		backend: be,
		tracker: tracker,
	}
}

func tokenFor(t *testing.T, userID, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (s *testServer) call(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

var cartLines = []cart.Line{
	{ID: "l-1", MerchantID: "s-1", ProductID: "p-1", UnitPrice: 10000, Quantity: 2},
	{ID: "l-2", MerchantID: "s-2", ProductID: "p-2", UnitPrice: 10000, Quantity: 1},
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	w := srv.call(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"breaker": "closed"}, body["storefront"])
}

func TestRoutesRequireUser(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/cart", "/checkout", "/orders", "/orders/received", "/orders/ord-1", "/orders/items/oi-1", "/events"} {
		w := srv.call(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	srv.backend.AssertNotCalled(t, "GetCart", mock.Anything)
}

func TestCart(t *testing.T) {
	srv := newTestServer(t)
	tok := tokenFor(t, "u-1", "USER")
	srv.backend.On("GetCart", mock.Anything).Return(cartLines, nil).Once()

	t.Run("List", func(t *testing.T) {
		w := srv.call(t, http.MethodGet, "/cart", tok, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp cartResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, 2, resp.Count)
		require.Len(t, resp.Groups, 2)
		assert.Equal(t, "s-1", resp.Groups[0].MerchantID)
	})

	t.Run("ChangeQuantity", func(t *testing.T) {
		srv.backend.On("UpdateQuantity", mock.Anything, "l-1", 3).Return(nil).Once()

		w := srv.call(t, http.MethodPatch, "/cart/lines/l-1", tok, changeQuantityRequest{Delta: 1})
		require.Equal(t, http.StatusOK, w.Code)

		var line cart.Line
		decodeBody(t, w, &line)
		assert.Equal(t, 3, line.Quantity)
	})

	t.Run("ChangeQuantityTransientFailure", func(t *testing.T) {
		srv.backend.On("UpdateQuantity", mock.Anything, "l-2", 2).Return(storefront.ErrUnavailable).Once()

		w := srv.call(t, http.MethodPatch, "/cart/lines/l-2", tok, changeQuantityRequest{Delta: 1})
		assert.Equal(t, http.StatusBadGateway, w.Code)

		w = srv.call(t, http.MethodGet, "/cart", tok, nil)
		var resp cartResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, 1, resp.Groups[1].Lines[0].Quantity, "rolled back")
	})

	t.Run("AddInvalidQuantity", func(t *testing.T) {
		w := srv.call(t, http.MethodPost, "/cart/lines", tok, addLineRequest{ProductID: "p-3", Quantity: 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cart/lines", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Remove", func(t *testing.T) {
		srv.backend.On("RemoveLines", mock.Anything, []string{"l-2"}).Return(nil).Once()

		w := srv.call(t, http.MethodDelete, "/cart/lines", tok, removeLinesRequest{LineIDs: []string{"l-2"}})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("RemoveUnknown", func(t *testing.T) {
		w := srv.call(t, http.MethodDelete, "/cart/lines", tok, removeLinesRequest{LineIDs: []string{"nope"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	srv.backend.AssertExpectations(t)
}

func TestCart_LoadFailureIsRetried(t *testing.T) {
	srv := newTestServer(t)
	tok := tokenFor(t, "u-1", "USER")

	srv.backend.On("GetCart", mock.Anything).Return(nil, storefront.ErrUnavailable).Once()
	w := srv.call(t, http.MethodGet, "/cart", tok, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	srv.backend.On("GetCart", mock.Anything).Return(cartLines, nil).Once()
	w = srv.call(t, http.MethodGet, "/cart", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutFlow(t *testing.T) {
	srv := newTestServer(t)
	tok := tokenFor(t, "u-1", "USER")
	be := srv.backend

	be.On("GetCart", mock.Anything).Return(cartLines, nil).Once()
	be.On("Precheck", mock.Anything, mock.Anything).Return(&checkout.PrecheckResult{
		TotalAmount:      30000,
		Addresses:        []checkout.Address{{ID: "a-1", Name: "Home"}},
		DefaultAddressID: "a-1",
	}, nil).Once()
	be.On("CreateOrder", mock.Anything, checkout.OrderRequest{AddressID: "a-1", LineIDs: []string{"l-1", "l-2"}}).
		Return(&checkout.CreatedOrder{
			TotalAmount: 30000,
			Order: order.Order{ID: "ord-1", Items: []order.Item{
				{ID: "oi-1", OrderID: "ord-1", ProductID: "p-1", PriceAtOrder: 10000, Quantity: 2},
				{ID: "oi-2", OrderID: "ord-1", ProductID: "p-2", PriceAtOrder: 10000, Quantity: 1},
			}},
		}, nil).Once()
	be.On("VerifyPayment", mock.Anything, payment.VerifyRequest{
		OrderID:     "ord-1",
		Amount:      30000,
		Method:      payment.MethodToss,
		PaymentKey:  "pk_1",
		CartLineIDs: []string{"l-1", "l-2"},
	}).Return(&payment.Verification{OrderID: "ord-1", Items: []payment.ItemStatus{
		{OrderItemID: "oi-1", Status: "PAID"},
		{OrderItemID: "oi-2", Status: "PAID"},
	}}, nil).Once()

	w := srv.call(t, http.MethodPost, "/checkout/precheck", tok, checkout.Selection{LineIDs: []string{"l-1", "l-2"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pre precheckResponse
	decodeBody(t, w, &pre)
	assert.Equal(t, checkout.StageReady, pre.Stage)
	assert.Equal(t, "a-1", pre.Session.AddressID)

	w = srv.call(t, http.MethodPost, "/checkout/orders", tok, placeOrderRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placement checkout.Placement
	decodeBody(t, w, &placement)
	assert.Equal(t, "ord-1", placement.OrderID)
	assert.Contains(t, placement.RedirectURL, "orderId=ord-1")

	callback := "/checkout/payment/callback?orderId=ord-1&amount=30000&paymentKey=pk_1"
	w = srv.call(t, http.MethodGet, callback, tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res checkout.Result
	decodeBody(t, w, &res)
	assert.Equal(t, checkout.StageComplete, res.Stage)
	assert.Equal(t, checkout.OutcomeSucceeded, res.Outcome)
	assert.False(t, res.Duplicate)

	// A reload of the redirect does not verify twice.
	w = srv.call(t, http.MethodGet, callback, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &res)
	assert.True(t, res.Duplicate)
	assert.Equal(t, checkout.OutcomeSucceeded, res.Outcome)

	// Paid lines left the cart.
	w = srv.call(t, http.MethodGet, "/cart", tok, nil)
	var c cartResponse
	decodeBody(t, w, &c)
	assert.Equal(t, 0, c.Count)

	// Verified items read as paid.
	be.On("GetItem", mock.Anything, "oi-1").
		Return(&order.Item{ID: "oi-1", OrderID: "ord-1", PriceAtOrder: 10000, Quantity: 2, Status: order.StatusPaid}, nil).Once()
	w = srv.call(t, http.MethodGet, "/orders/items/oi-1", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var item itemResponse
	decodeBody(t, w, &item)
	assert.Equal(t, order.StatusPaid, item.View.Status)
	assert.Equal(t, []order.Action{order.ActionRequestCancel}, item.View.Actions)

	w = srv.call(t, http.MethodGet, "/events", tok, nil)
	var evs []events.Event
	decodeBody(t, w, &evs)
	var stages []string
	for _, e := range evs {
		if e.Kind == events.KindCheckoutStageChanged {
			stages = append(stages, e.Stage)
		}
	}
	assert.Equal(t, []string{"PRECHECKING", "READY", "CREATING_ORDER", "AWAITING_PAYMENT", "VERIFYING", "COMPLETE"}, stages)

	be.AssertExpectations(t)
}

func TestCheckout_OutOfStock(t *testing.T) {
	srv := newTestServer(t)
	tok := tokenFor(t, "u-1", "USER")

	srv.backend.On("GetCart", mock.Anything).Return(cartLines, nil).Once()
	srv.backend.On("Precheck", mock.Anything, mock.Anything).Return(&checkout.PrecheckResult{
		OutOfStock:  true,
		StockIssues: []checkout.StockIssue{{ProductID: "p-2", Available: 0}},
	}, nil).Once()

	w := srv.call(t, http.MethodPost, "/checkout/precheck", tok, checkout.Selection{IncludeAll: true})
	require.Equal(t, http.StatusOK, w.Code)

	var pre precheckResponse
	decodeBody(t, w, &pre)
	assert.Equal(t, checkout.StageOutOfStock, pre.Stage)
	require.Len(t, pre.Session.StockIssues, 1)
	assert.Equal(t, "l-2", pre.Session.StockIssues[0].LineID)

	// Ordering is refused until the selection is fixed.
	w = srv.call(t, http.MethodPost, "/checkout/orders", tok, placeOrderRequest{AddressID: "a-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckout_CallbackWithoutSession(t *testing.T) {
	srv := newTestServer(t)
	tok := tokenFor(t, "u-1", "USER")

	w := srv.call(t, http.MethodGet, "/checkout/payment/callback", tok, nil)
	assert.Equal(t, http.StatusGone, w.Code)

	w = srv.call(t, http.MethodGet, "/checkout/payment/callback?orderId=ord-404&amount=1&paymentKey=k", tok, nil)
	assert.Equal(t, http.StatusGone, w.Code)

	w = srv.call(t, http.MethodGet, "/checkout/payment/callback?orderId=ord-1&amount=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	srv.backend.AssertNotCalled(t, "GetCart", mock.Anything)
}

// callerIs matches a context carrying the given user.
func callerIs(userID string) any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		id, _ := utils.GetUserIDFromContext(ctx)
		return id == userID
	})
}

func callerIsNot(userID string) any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		id, _ := utils.GetUserIDFromContext(ctx)
		return id != userID
	})
}

func TestOrderActions(t *testing.T) {
	srv := newTestServer(t)
	seller := tokenFor(t, "s-1", "SELLER")
	buyer := tokenFor(t, "u-1", "USER")
	stranger := tokenFor(t, "u-2", "USER")
	be := srv.backend

	// The backend answers for the buyer and the seller only.
	remote := &order.Item{ID: "oi-7", OrderID: "ord-7", PriceAtOrder: 500, Quantity: 1, Status: order.StatusPaid}
	be.On("GetItem", callerIsNot("u-2"), "oi-7").Return(remote, nil)
	be.On("GetItem", callerIs("u-2"), "oi-7").
		Return(nil, &storefront.APIError{StatusCode: http.StatusForbidden, Message: "not your order"})

	t.Run("PurchaserCannotAccept", func(t *testing.T) {
		w := srv.call(t, http.MethodPost, "/orders/items/oi-7/actions", buyer, actionRequest{Action: order.ActionAccept})
		assert.Equal(t, http.StatusForbidden, w.Code)

		var body errorResponse
		decodeBody(t, w, &body)
		assert.Equal(t, "ROLE_MISMATCH", body.Reason)
	})

	t.Run("MerchantAccepts", func(t *testing.T) {
		be.On("Transition", mock.Anything, "oi-7", order.Command{Action: order.ActionAccept}).
			Return(&order.StatusUpdate{OrderItemID: "oi-7", Status: order.StatusAccepted}, nil).Once()

		w := srv.call(t, http.MethodPost, "/orders/items/oi-7/actions", seller, actionRequest{Action: "accept"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var item itemResponse
		decodeBody(t, w, &item)
		assert.Equal(t, order.StatusAccepted, item.View.Status)
		assert.Equal(t, int64(500), item.PriceAtOrder)
		remote.Status = order.StatusAccepted
	})

	t.Run("ShippedElsewhere", func(t *testing.T) {
		remote.Status = order.StatusShipped

		w := srv.call(t, http.MethodGet, "/orders/items/oi-7", buyer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var item itemResponse
		decodeBody(t, w, &item)
		assert.Equal(t, order.StatusShipped, item.View.Status)
		assert.Equal(t, []order.Action{order.ActionRequestReturn, order.ActionConfirm}, item.View.Actions)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		w := srv.call(t, http.MethodPost, "/orders/items/oi-7/actions", seller, actionRequest{Action: "teleport"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ReturnRequestedOnce", func(t *testing.T) {
		cmd := order.Command{Action: order.ActionRequestReturn, Reason: "damaged"}
		be.On("Transition", mock.Anything, "oi-7", cmd).
			Return(&order.StatusUpdate{OrderItemID: "oi-7", Status: order.StatusReturnPending}, nil).Once()

		req := actionRequest{Action: order.ActionRequestReturn, Reason: "damaged"}
		w := srv.call(t, http.MethodPost, "/orders/items/oi-7/actions", buyer, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var item itemResponse
		decodeBody(t, w, &item)
		assert.Equal(t, order.StatusReturnPending, item.View.Status)
		require.NotNil(t, item.View.Claim)
		assert.Equal(t, "damaged", item.View.Claim.Reason)
		remote.Status = order.StatusReturnPending

		w = srv.call(t, http.MethodPost, "/orders/items/oi-7/actions", buyer, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("ReasonRequired", func(t *testing.T) {
		w := srv.call(t, http.MethodPost, "/orders/items/oi-7/actions", buyer, actionRequest{Action: order.ActionRequestReturn, Reason: "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Claims", func(t *testing.T) {
		w := srv.call(t, http.MethodGet, "/orders/items/oi-7/claims", seller, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var claims []claimResponse
		decodeBody(t, w, &claims)
		require.Len(t, claims, 1)
		assert.Equal(t, order.ClaimReturn, claims[0].Kind)
		assert.Equal(t, "u-1", claims[0].RequestedBy)
		assert.Nil(t, claims[0].ResolvedAt)
	})

	t.Run("StrangerSeesNothing", func(t *testing.T) {
		for _, path := range []string{"/orders/items/oi-7", "/orders/items/oi-7/claims"} {
			w := srv.call(t, http.MethodGet, path, stranger, nil)
			assert.Equal(t, http.StatusForbidden, w.Code, path)
			assert.NotContains(t, w.Body.String(), "damaged", path)
		}
	})

	t.Run("UnknownItem", func(t *testing.T) {
		be.On("GetItem", mock.Anything, "oi-x").Return(nil, order.ErrItemNotFound).Once()

		w := srv.call(t, http.MethodGet, "/orders/items/oi-x", buyer, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	be.AssertExpectations(t)
}

func TestOrders(t *testing.T) {
	srv := newTestServer(t)
	buyer := tokenFor(t, "u-1", "USER")
	seller := tokenFor(t, "s-1", "SELLER")
	be := srv.backend
	placed := time.Date(2025, 12, 2, 4, 11, 40, 0, time.UTC)

	t.Run("ListMine", func(t *testing.T) {
		be.On("ListOrders", mock.Anything).Return([]order.Order{
			{ID: "ord-1", CreatedAt: placed, Items: []order.Item{
				{ID: "oi-1", PriceAtOrder: 20000, Quantity: 1, Status: order.StatusShipped},
				{ID: "oi-2", PriceAtOrder: 5000, Quantity: 2, Status: order.StatusPaid},
			}},
		}, nil).Once()

		w := srv.call(t, http.MethodGet, "/orders", buyer, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var orders []orderResponse
		decodeBody(t, w, &orders)
		require.Len(t, orders, 1)
		assert.Equal(t, int64(30000), orders[0].TotalPrice)
		require.NotNil(t, orders[0].CreatedAt)
		assert.True(t, placed.Equal(*orders[0].CreatedAt))
		require.Len(t, orders[0].Items, 2)
		assert.Equal(t, "ord-1", orders[0].Items[0].OrderID)
		assert.Equal(t, "Shipping", orders[0].Items[0].View.Label)
		assert.Equal(t, []order.Action{order.ActionRequestCancel}, orders[0].Items[1].View.Actions)
	})

	t.Run("Detail", func(t *testing.T) {
		be.On("GetOrder", mock.Anything, "ord-1").Return(&order.Order{ID: "ord-1", Items: []order.Item{
			{ID: "oi-1", PriceAtOrder: 20000, Quantity: 1, Status: order.StatusConfirmed},
		}}, nil).Once()

		w := srv.call(t, http.MethodGet, "/orders/ord-1", buyer, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var o orderResponse
		decodeBody(t, w, &o)
		assert.Equal(t, "ord-1", o.ID)
		require.Len(t, o.Items, 1)
		assert.True(t, o.Items[0].View.Terminal)
	})

	t.Run("DetailNotFound", func(t *testing.T) {
		be.On("GetOrder", mock.Anything, "ord-9").Return(nil, order.ErrItemNotFound).Once()

		w := srv.call(t, http.MethodGet, "/orders/ord-9", buyer, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("MerchantCannotListPurchases", func(t *testing.T) {
		w := srv.call(t, http.MethodGet, "/orders", seller, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Received", func(t *testing.T) {
		be.On("ListReceived", mock.Anything, order.ReceivedQuery{Status: order.StatusPaid, Page: 2, Size: 5}).
			Return(&order.ReceivedPage{Total: 6, Items: []order.Item{
				{ID: "oi-9", OrderID: "ord-4", PriceAtOrder: 900, Quantity: 1, Status: order.StatusPaid},
			}}, nil).Once()

		w := srv.call(t, http.MethodGet, "/orders/received?status=paid&page=2&size=5", seller, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var page receivedResponse
		decodeBody(t, w, &page)
		assert.Equal(t, 6, page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 5, page.Size)
		require.Len(t, page.Items, 1)
		assert.Equal(t, []order.Action{order.ActionAccept, order.ActionReject}, page.Items[0].View.Actions)
	})

	t.Run("ReceivedDefaults", func(t *testing.T) {
		be.On("ListReceived", mock.Anything, order.ReceivedQuery{Page: 1, Size: order.DefaultPageSize}).
			Return(&order.ReceivedPage{}, nil).Once()

		w := srv.call(t, http.MethodGet, "/orders/received?page=abc", seller, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"orderItems": [], "totalOrderCount": 0, "page": 1, "size": 20}`, w.Body.String())
	})

	t.Run("ReceivedUnknownStatus", func(t *testing.T) {
		w := srv.call(t, http.MethodGet, "/orders/received?status=lost", seller, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("PurchaserCannotListReceived", func(t *testing.T) {
		w := srv.call(t, http.MethodGet, "/orders/received", buyer, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	be.AssertExpectations(t)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{checkout.ErrSessionLost, http.StatusGone},
		{&order.TransitionError{Reason: order.ReasonRoleMismatch}, http.StatusForbidden},
		{&order.TransitionError{Reason: order.ReasonTerminal}, http.StatusConflict},
		{fmt.Errorf("%w: %w", order.ErrConflict, order.ErrClaimOpen), http.StatusConflict},
		{checkout.ErrVerificationRunning, http.StatusConflict},
		{fmt.Errorf("%w: x", cart.ErrInvalidQuantity), http.StatusBadRequest},
		{checkout.ErrEmptySelection, http.StatusBadRequest},
		{fmt.Errorf("%w: l-9", cart.ErrCartItemNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %w", cart.ErrFailedUpdateCart, storefront.ErrUnavailable), http.StatusBadGateway},
		{&storefront.APIError{StatusCode: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{&storefront.APIError{StatusCode: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity},
		{order.ErrUnexpectedStatus, http.StatusBadGateway},
		{fmt.Errorf("%w: %q", order.ErrUnknownStatus, "LOST"), http.StatusBadRequest},
		{order.ErrNoGateway, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: over 1 bytes", storefront.ErrResponseTooLarge), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
