package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"warimas-orderflow/internal/auth"
	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/payment"
	"warimas-orderflow/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	reg     *Registry
	tracker *order.Tracker
	feed    *events.Feed
	health  func() any
}

// NewHandler builds the produced HTTP surface. health may be nil.
func NewHandler(reg *Registry, tracker *order.Tracker, feed *events.Feed, health func() any) *Handler {
	return &Handler{reg: reg, tracker: tracker, feed: feed, health: health}
}

// -- Request / response bodies --

type addLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

type removeLinesRequest struct {
	LineIDs []string `json:"lineIds"`
}

type placeOrderRequest struct {
	AddressID string `json:"addressId"`
}

type actionRequest struct {
	Action  order.Action  `json:"action"`
	Outcome order.Outcome `json:"outcome"`
	Reason  string        `json:"reason"`
	Note    string        `json:"note"`
}

type cartResponse struct {
	Groups []cart.Group `json:"groups"`
	Count  int          `json:"count"`
}

type precheckResponse struct {
	Stage   checkout.Stage    `json:"stage"`
	Session *checkout.Session `json:"session"`
}

type itemResponse struct {
	ID           string           `json:"orderItemId"`
	OrderID      string           `json:"orderId"`
	ProductID    string           `json:"productId"`
	PriceAtOrder int64            `json:"priceAtOrder"`
	Quantity     int              `json:"quantity"`
	View         order.StatusView `json:"view"`
}

type orderResponse struct {
	ID         string         `json:"orderId"`
	AddressID  string         `json:"addressId,omitempty"`
	CreatedAt  *time.Time     `json:"createdAt,omitempty"`
	TotalPrice int64          `json:"totalPrice"`
	Items      []itemResponse `json:"orderItems"`
}

type receivedResponse struct {
	Items []itemResponse `json:"orderItems"`
	Total int            `json:"totalOrderCount"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type claimResponse struct {
	Kind        order.ClaimKind `json:"kind"`
	Reason      string          `json:"reason"`
	RequestedBy string          `json:"requestedBy"`
	RequestedAt time.Time       `json:"requestedAt"`
	Outcome     order.Outcome   `json:"outcome,omitempty"`
	ResolvedBy  string          `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
	Note        string          `json:"note,omitempty"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	owner, _ := utils.GetUserIDFromContext(r.Context())
	ws, err := h.reg.Workspace(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return ws, true
}

// -- Cart --

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, cartResponse{Groups: ws.Cart.ListGroups(), Count: ws.Cart.Count()})
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	line, err := ws.Cart.AddLine(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, line)
}

func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req changeQuantityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	line, err := ws.Cart.ChangeQuantity(r.Context(), chi.URLParam(r, "lineID"), req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, line)
}

func (h *Handler) RemoveLines(w http.ResponseWriter, r *http.Request) {
	var req removeLinesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	if err := ws.Cart.RemoveLines(r.Context(), utils.TrimAll(req.LineIDs)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Checkout --

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, ws.Checkout.State())
}

// Precheck answers 200 for an out-of-stock selection; the session names the
// offending lines.
func (h *Handler) Precheck(w http.ResponseWriter, r *http.Request) {
	var sel checkout.Selection
	if err := decode(r, &sel); err != nil {
		writeError(w, r, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	session, err := ws.Checkout.Precheck(r.Context(), sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, precheckResponse{Stage: ws.Checkout.State().Stage, Session: session})
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	placement, err := ws.Checkout.PlaceOrder(r.Context(), req.AddressID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, placement)
}

// PaymentCallback is the payment surface's redirect target.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	cb, err := payment.ParseCallback(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	owner, _ := utils.GetUserIDFromContext(r.Context())
	res, err := h.reg.Unloaded(owner).Checkout.Resume(r.Context(), cb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Checkout.Abandon(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Orders --

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	it, view, err := h.tracker.View(r.Context(), actor, chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toItemResponse(it, view))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	orders, err := h.tracker.MyOrders(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	o, err := h.tracker.OrderDetail(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListReceived serves the merchant's order items. page counts from 1.
func (h *Handler) ListReceived(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	q := r.URL.Query()

	page, err := h.tracker.Received(r.Context(), actor, order.ReceivedQuery{
		Status: order.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Page:   queryInt(q.Get("page")),
		Size:   queryInt(q.Get("size")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := receivedResponse{
		Items: make([]itemResponse, 0, len(page.Items)),
		Total: page.Total,
		Page:  page.Page,
		Size:  page.Size,
	}
	for _, iv := range page.Items {
		out.Items = append(out.Items, toItemResponse(iv.Item, iv.Status))
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

// queryInt reads an optional integer parameter; junk reads as zero.
func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")

	it, err := h.tracker.Transition(r.Context(), actor, itemID, order.Command{
		Action:  order.Action(strings.ToUpper(string(req.Action))),
		Outcome: order.Outcome(strings.ToUpper(string(req.Outcome))),
		Reason:  req.Reason,
		Note:    req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, toItemResponse(it, h.tracker.Project(actor, it)))
}

// ListClaims reads the item through the caller's session first, so a
// caller the backend refuses never sees the history.
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")
	if _, err := h.tracker.Load(r.Context(), itemID); err != nil {
		writeError(w, r, err)
		return
	}

	claims := h.tracker.Claims(actor, itemID)
	out := make([]claimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimResponse(c))
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

// -- Misc --

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	owner, _ := utils.GetUserIDFromContext(r.Context())
	utils.WriteJSON(w, http.StatusOK, h.feed.Recent(owner))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.health != nil {
		body["storefront"] = h.health()
	}
	utils.WriteJSON(w, http.StatusOK, body)
}

func toItemResponse(it order.Item, view order.StatusView) itemResponse {
	return itemResponse{
		ID:           it.ID,
		OrderID:      it.OrderID,
		ProductID:    it.ProductID,
		PriceAtOrder: it.PriceAtOrder,
		Quantity:     it.Quantity,
		View:         view,
	}
}

func toOrderResponse(o order.OrderView) orderResponse {
	out := orderResponse{
		ID:         o.ID,
		AddressID:  o.AddressID,
		TotalPrice: o.TotalPrice,
		Items:      make([]itemResponse, 0, len(o.Items)),
	}
	if !o.CreatedAt.IsZero() {
		at := o.CreatedAt
		out.CreatedAt = &at
	}
	for _, iv := range o.Items {
		out.Items = append(out.Items, toItemResponse(iv.Item, iv.Status))
	}
	return out
}

func toClaimResponse(c order.ClaimRequest) claimResponse {
	out := claimResponse{
		Kind:        c.Kind,
		Reason:      c.Reason,
		RequestedBy: c.RequestedBy.ID,
		RequestedAt: c.RequestedAt,
	}
	if res := c.Resolution; res != nil {
		at := res.ResolvedAt
		out.Outcome = res.Outcome
		out.ResolvedBy = res.ResolvedBy.ID
		out.ResolvedAt = &at
		out.Note = res.Note
	}
	return out
}
