package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"warimas-orderflow/internal/logger"

	"go.uber.org/zap"
)

var ErrItemBusy = errors.New("a status change for this order item is already in flight")

// Command is one role-gated transition request.
type Command struct {
	Action  Action
	Outcome Outcome
	Reason  string
	Note    string
}

// Gateway is the remote order-status service. Reads are scoped to the
// caller carried by ctx. Each mutation is exactly one server-confirmed call,
// including claim resolution which updates the claim and the item status
// together.
type Gateway interface {
	GetItem(ctx context.Context, itemID string) (*Item, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListReceived(ctx context.Context, q ReceivedQuery) (*ReceivedPage, error)
	Transition(ctx context.Context, itemID string, cmd Command) (*StatusUpdate, error)
}

// Tracker owns the coordinator's view of order items and their claims. All
// mutations go through Transition or Observe.
type Tracker struct {
	mu       sync.Mutex
	machine  Machine
	gateway  Gateway
	items    map[string]*Item
	claims   map[string][]ClaimRequest
	inflight map[string]bool
	now      func() time.Time
}

func NewTracker(gateway Gateway) *Tracker {
	return &Tracker{
		gateway:  gateway,
		items:    make(map[string]*Item),
		claims:   make(map[string][]ClaimRequest),
		inflight: make(map[string]bool),
		now:      time.Now,
	}
}

// Track registers items created server-side. Items already known keep their
// current status.
func (t *Tracker) Track(items ...Item) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, it := range items {
		if _, ok := t.items[it.ID]; ok {
			continue
		}
		cp := it
		if cp.Status == "" {
			cp.Status = StatusOrdered
		}
		t.items[it.ID] = &cp
	}
}

// Item returns a copy of a tracked item.
func (t *Tracker) Item(itemID string) (Item, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	it, ok := t.items[itemID]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Load reads the item through the caller's session and merges it into the
// tracked record. Without a gateway only tracked items are served.
func (t *Tracker) Load(ctx context.Context, itemID string) (Item, error) {
	if t.gateway == nil {
		if it, ok := t.Item(itemID); ok {
			return it, nil
		}
		return Item{}, ErrItemNotFound
	}

	fetched, err := t.gateway.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if fetched == nil {
		return Item{}, ErrItemNotFound
	}
	if fetched.ID == "" {
		fetched.ID = itemID
	}
	return t.merge(ctx, *fetched)
}

// merge folds a server copy into the tracked record. A status the server
// has not caught up with yet is kept, and so is the status of an item with a
// change in flight.
func (t *Tracker) merge(ctx context.Context, remote Item) (Item, error) {
	if !remote.Status.Valid() {
		return Item{}, fmt.Errorf("%w: unknown status %q", ErrUnexpectedStatus, remote.Status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	local, ok := t.items[remote.ID]
	if !ok {
		cp := remote
		t.items[remote.ID] = &cp
		return cp, nil
	}

	status := local.Status
	switch {
	case t.inflight[remote.ID], remote.Status == local.Status:
	case t.machine.Reachable(local.Status, remote.Status):
		status = remote.Status
	case t.machine.Reachable(remote.Status, local.Status):
	default:
		logger.FromCtx(ctx).Warn("server status diverged from tracked status",
			zap.String("order_item_id", remote.ID),
			zap.String("tracked", string(local.Status)),
			zap.String("server", string(remote.Status)),
		)
		status = remote.Status
	}

	if remote.OrderID == "" {
		remote.OrderID = local.OrderID
	}
	*local = remote
	local.Status = status
	t.settleClaimLocked(remote.ID, status)
	return *local, nil
}

// settleClaimLocked closes a claim that was resolved in another session.
func (t *Tracker) settleClaimLocked(itemID string, status Status) {
	open := t.openClaimLocked(itemID)
	if open == nil || claimPendingLocked(status, open.Kind, nil) {
		return
	}
	outcome := OutcomeRejected
	if status == StatusCanceled || status == StatusReturned {
		outcome = OutcomeApproved
	}
	open.Resolution = &Resolution{
		Outcome:    outcome,
		ResolvedBy: Actor{Role: RoleSystem},
		ResolvedAt: t.now(),
	}
}

// Observe applies a status reported by another service (payment
// verification). The status must be reachable from the tracked one.
func (t *Tracker) Observe(itemID string, status Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	it, ok := t.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	if !t.machine.Reachable(it.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrUnexpectedStatus, it.Status, status)
	}
	it.Status = status
	return nil
}

// View reads an item for the actor and projects its status.
func (t *Tracker) View(ctx context.Context, actor Actor, itemID string) (Item, StatusView, error) {
	it, err := t.Load(ctx, itemID)
	if err != nil {
		return Item{}, StatusView{}, err
	}
	return it, t.Project(actor, it), nil
}

// Project builds the actor's view of an item. A purchaser only sees claims
// they opened.
func (t *Tracker) Project(actor Actor, it Item) StatusView {
	view := Present(it.Status, actor.Role)
	if c, ok := t.OpenClaim(it.ID); ok && visibleTo(actor, c) {
		view = PresentClaim(view, &c)
	}
	return view
}

func visibleTo(actor Actor, c ClaimRequest) bool {
	return actor.Role != RolePurchaser || c.RequestedBy.ID == actor.ID
}

// Claims returns the claim history of an item visible to the actor, oldest
// first.
func (t *Tracker) Claims(actor Actor, itemID string) []ClaimRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ClaimRequest, 0, len(t.claims[itemID]))
	for _, c := range t.claims[itemID] {
		if !visibleTo(actor, c) {
			continue
		}
		if c.Resolution != nil {
			r := *c.Resolution
			c.Resolution = &r
		}
		out = append(out, c)
	}
	return out
}

// OpenClaim returns the unresolved claim of an item, if any.
func (t *Tracker) OpenClaim(itemID string) (ClaimRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c := t.openClaimLocked(itemID); c != nil {
		return *c, true
	}
	return ClaimRequest{}, false
}

func (t *Tracker) openClaimLocked(itemID string) *ClaimRequest {
	list := t.claims[itemID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Open() {
			return &list[i]
		}
	}
	return nil
}

// Transition performs one role-gated action on an order item. The item is
// re-read through the caller's session first. Refusals leave the item
// untouched and never reach the mutation endpoint. A repeat of an action
// that already completed returns the current item without a mutation.
func (t *Tracker) Transition(ctx context.Context, actor Actor, itemID string, cmd Command) (Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "Transition"),
		zap.String("order_item_id", itemID),
		zap.String("action", string(cmd.Action)),
		zap.String("role", string(actor.Role)),
	)

	if !cmd.Action.Valid() {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	cmd.Reason = strings.TrimSpace(cmd.Reason)
	if (cmd.Action == ActionRequestCancel || cmd.Action == ActionRequestReturn) && cmd.Reason == "" {
		return Item{}, ErrReasonRequired
	}

	if _, err := t.Load(ctx, itemID); err != nil {
		return Item{}, err
	}

	current, expected, err := t.begin(actor, itemID, cmd)
	if err != nil {
		log.Debug("transition refused", zap.Error(err))
		return current, err
	}
	if expected == current.Status {
		log.Debug("transition already applied")
		return current, nil
	}

	update, err := t.gateway.Transition(ctx, itemID, cmd)
	if err != nil {
		t.abort(itemID)
		log.Warn("remote status change failed", zap.Error(err))
		return current, err
	}

	reported := expected
	if update != nil && update.Status != "" {
		reported = update.Status
	}

	item, err := t.commit(actor, itemID, cmd, reported)
	if err != nil {
		log.Error("remote reported unexpected status", zap.String("reported", string(reported)), zap.Error(err))
		return item, err
	}

	log.Info("order item status changed", zap.String("status", string(item.Status)))
	return item, nil
}

// begin validates the command against the tracked state and marks the item
// busy when a remote call is required.
func (t *Tracker) begin(actor Actor, itemID string, cmd Command) (Item, Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	it, ok := t.items[itemID]
	if !ok {
		return Item{}, "", ErrItemNotFound
	}
	current := *it

	if !t.machine.Allowed(actor.Role, cmd.Action) {
		return current, "", &TransitionError{From: it.Status, Action: cmd.Action, Role: actor.Role, Reason: ReasonRoleMismatch}
	}
	if t.inflight[itemID] {
		return current, "", ErrItemBusy
	}

	kind, isClaim := ClaimKindFor(cmd.Action)
	open := t.openClaimLocked(itemID)
	switch {
	case isClaim && !cmd.Action.Resolves() && open != nil:
		return current, "", fmt.Errorf("%w: %w", ErrConflict, ErrClaimOpen)
	case cmd.Action.Resolves() && !claimPendingLocked(it.Status, kind, open):
		// A repeat of a completed resolution stays a no-op.
		if next, err := t.machine.Apply(it.Status, actor.Role, cmd.Action, cmd.Outcome); err == nil && next == it.Status {
			return current, next, nil
		}
		return current, "", fmt.Errorf("%w: %w", ErrConflict, ErrNoOpenClaim)
	}

	next, err := t.machine.Apply(it.Status, actor.Role, cmd.Action, cmd.Outcome)
	if err != nil {
		return current, "", err
	}
	if next != it.Status {
		t.inflight[itemID] = true
	}
	return current, next, nil
}

// claimPendingLocked reports whether a claim of kind awaits resolution. Items
// loaded in a pending status may carry a claim opened in another session.
func claimPendingLocked(status Status, kind ClaimKind, open *ClaimRequest) bool {
	if open != nil {
		return open.Kind == kind
	}
	switch kind {
	case ClaimCancel:
		return status == StatusCancelPending
	case ClaimReturn:
		return status == StatusReturnPending
	}
	return false
}

func (t *Tracker) abort(itemID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, itemID)
}

// commit applies a server-confirmed status together with any claim record.
func (t *Tracker) commit(actor Actor, itemID string, cmd Command, reported Status) (Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, itemID)

	it := t.items[itemID]
	if !t.machine.Reachable(it.Status, reported) {
		return *it, fmt.Errorf("%w: %s -> %s", ErrUnexpectedStatus, it.Status, reported)
	}

	now := t.now()
	kind, isClaim := ClaimKindFor(cmd.Action)
	switch {
	case isClaim && !cmd.Action.Resolves():
		t.claims[itemID] = append(t.claims[itemID], ClaimRequest{
			OrderItemID: itemID,
			Kind:        kind,
			Reason:      cmd.Reason,
			RequestedBy: actor,
			RequestedAt: now,
		})
	case cmd.Action.Resolves():
		if open := t.openClaimLocked(itemID); open != nil {
			open.Resolution = &Resolution{
				Outcome:    cmd.Outcome,
				ResolvedBy: actor,
				ResolvedAt: now,
				Note:       cmd.Note,
			}
		}
	}

	it.Status = reported
	return *it, nil
}
