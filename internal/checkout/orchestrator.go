package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/events"
	"warimas-orderflow/internal/logger"
	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/payment"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("warimas-orderflow/internal/checkout")

// DefaultStaleAfter is how long a dispatched verification may stay
// incomplete before another caller may dispatch it again.
const DefaultStaleAfter = 2 * time.Minute

// StaleAfterFor sizes the re-dispatch window for a storefront call timeout.
// The window always outlives one verification call including its wait for a
// rate-limit slot.
func StaleAfterFor(callTimeout time.Duration) time.Duration {
	return max(DefaultStaleAfter, 2*callTimeout)
}

// Remote is the set of storefront services checkout talks to.
type Remote interface {
	Precheck(ctx context.Context, sel Selection) (*PrecheckResult, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*CreatedOrder, error)
	VerifyPayment(ctx context.Context, req payment.VerifyRequest) (*payment.Verification, error)
}

// Cart is the part of the cart store checkout reads and prunes.
type Cart interface {
	Lines() []cart.Line
	Snapshot(lineIDs []string) ([]cart.Line, error)
	Discard(ctx context.Context, lineIDs []string)
}

// Items receives the order items checkout creates and the statuses payment
// verification reports for them.
type Items interface {
	Track(items ...order.Item)
	Observe(itemID string, status order.Status) error
}

type Redirects interface {
	URL(orderID string, amount int64) string
}

type Deps struct {
	Remote    Remote
	Ledger    Ledger
	Cart      Cart
	Items     Items
	Redirects Redirects
	Events    events.Publisher
	// Flights collapses concurrent Resume calls. Share one group between
	// orchestrators of the same process.
	Flights *singleflight.Group
	// StaleAfter overrides DefaultStaleAfter when positive.
	StaleAfter time.Duration
}

// Orchestrator drives one purchaser's checkout from pre-check to payment
// verification. Safe for concurrent use; no lock is held across a remote
// call.
type Orchestrator struct {
	mu         sync.Mutex
	owner      string
	remote     Remote
	ledger     Ledger
	cart       Cart
	items      Items
	redirects  Redirects
	events     events.Publisher
	flights    *singleflight.Group
	staleAfter time.Duration
	now        func() time.Time

	stage   Stage
	session *Session
	orderID string
	message string
	// epoch changes whenever the flow is restarted or abandoned; completions
	// from an older epoch do not touch the stage.
	epoch uint64
}

func New(owner string, d Deps) *Orchestrator {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Ledger == nil {
		d.Ledger = NewMemoryLedger()
	}
	if d.Flights == nil {
		d.Flights = &singleflight.Group{}
	}
	if d.StaleAfter <= 0 {
		d.StaleAfter = DefaultStaleAfter
	}
	return &Orchestrator{
		owner:      owner,
		remote:     d.Remote,
		ledger:     d.Ledger,
		cart:       d.Cart,
		items:      d.Items,
		redirects:  d.Redirects,
		events:     d.Events,
		flights:    d.Flights,
		staleAfter: d.StaleAfter,
		now:        time.Now,
		stage:      StageIdle,
	}
}

// State returns the current stage and a copy of the session.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := State{Stage: o.stage, OrderID: o.orderID, Message: o.message}
	if o.session != nil {
		st.Session = o.session.clone()
	}
	return st
}

// Precheck snapshots the selection and has the storefront re-validate price
// and stock. Unavailable lines put the flow in OUT_OF_STOCK and are reported
// in the returned session; that is not an error.
func (o *Orchestrator) Precheck(ctx context.Context, sel Selection) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "checkout"),
		zap.String("method", "Precheck"),
		zap.String("owner", o.owner),
	)
	ctx, span := tracer.Start(ctx, "checkout.Precheck")
	defer span.End()

	sel, snapshot, err := o.normalize(sel)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	switch o.stage {
	case StagePrechecking, StageCreatingOrder, StageVerifying:
		stage := o.stage
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidStage, stage)
	}
	o.epoch++
	epoch := o.epoch
	o.session = nil
	o.orderID = ""
	ev := o.setStageLocked(StagePrechecking, "")
	o.mu.Unlock()
	o.publish(ctx, ev)

	res, err := o.remote.Precheck(ctx, sel)

	o.mu.Lock()
	if epoch != o.epoch {
		o.mu.Unlock()
		return nil, ErrAbandoned
	}
	if err != nil {
		ev = o.setStageLocked(StageIdle, err.Error())
		o.mu.Unlock()
		o.publish(ctx, ev)

		recordError(span, err)
		log.Warn("pre-check failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPrecheckFailed, err)
	}

	session := &Session{
		ID:               uuid.NewString(),
		LineIDs:          sel.LineIDs,
		Direct:           sel.Direct,
		Lines:            res.Lines,
		TotalAmount:      res.TotalAmount,
		StockIssues:      attachLineIDs(res.StockIssues, snapshot),
		Addresses:        res.Addresses,
		DefaultAddressID: res.DefaultAddressID,
		AddressID:        res.DefaultAddressID,
		CreatedAt:        o.now(),
	}
	next := StageReady
	if res.OutOfStock || len(res.StockIssues) > 0 {
		next = StageOutOfStock
	}
	o.session = session
	ev = o.setStageLocked(next, "")
	out := session.clone()
	o.mu.Unlock()
	o.publish(ctx, ev)

	span.SetAttributes(
		attribute.String("checkout.stage", next.String()),
		attribute.Int("checkout.lines", len(sel.LineIDs)),
	)
	log.Info("pre-check finished",
		zap.String("stage", next.String()),
		zap.Int("stock_issues", len(session.StockIssues)),
	)
	return out, nil
}

func (o *Orchestrator) normalize(sel Selection) (Selection, []cart.Line, error) {
	if d := sel.Direct; d != nil {
		if strings.TrimSpace(d.ProductID) == "" || d.Quantity < 1 {
			return sel, nil, ErrInvalidSelection
		}
		direct := *d
		return Selection{Direct: &direct}, nil, nil
	}

	if sel.IncludeAll {
		lines := o.cart.Lines()
		if len(lines) == 0 {
			return sel, nil, ErrEmptySelection
		}
		ids := make([]string, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ID)
		}
		return Selection{LineIDs: ids, IncludeAll: true}, lines, nil
	}

	ids := make([]string, 0, len(sel.LineIDs))
	seen := make(map[string]bool, len(sel.LineIDs))
	for _, id := range sel.LineIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return sel, nil, ErrEmptySelection
	}
	lines, err := o.cart.Snapshot(ids)
	if err != nil {
		return sel, nil, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	return Selection{LineIDs: ids}, lines, nil
}

// attachLineIDs fills in the cart line of issues reported by product only.
func attachLineIDs(issues []StockIssue, lines []cart.Line) []StockIssue {
	out := make([]StockIssue, 0, len(issues))
	for _, is := range issues {
		if is.LineID == "" {
			for _, l := range lines {
				if l.ProductID == is.ProductID {
					is.LineID = l.ID
					if is.Requested == 0 {
						is.Requested = l.Quantity
					}
					break
				}
			}
		}
		out = append(out, is)
	}
	return out
}

// PlaceOrder creates the order for a READY session and records the payment
// handoff. On failure the flow returns to READY; nothing was created.
func (o *Orchestrator) PlaceOrder(ctx context.Context, addressID string) (*Placement, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "checkout"),
		zap.String("method", "PlaceOrder"),
		zap.String("owner", o.owner),
	)
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	o.mu.Lock()
	if o.stage != StageReady || o.session == nil {
		stage := o.stage
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidStage, stage)
	}
	addr := strings.TrimSpace(addressID)
	if addr == "" {
		addr = o.session.AddressID
	}
	if addr == "" {
		o.mu.Unlock()
		return nil, ErrAddressRequired
	}
	o.session.AddressID = addr
	req := OrderRequest{
		AddressID: addr,
		LineIDs:   append([]string(nil), o.session.LineIDs...),
		Direct:    o.session.Direct,
	}
	quoted := o.session.TotalAmount
	o.epoch++
	epoch := o.epoch
	ev := o.setStageLocked(StageCreatingOrder, "")
	o.mu.Unlock()
	o.publish(ctx, ev)

	created, err := o.remote.CreateOrder(ctx, req)
	if err != nil {
		o.revert(ctx, epoch, StageReady, err.Error())
		recordError(span, err)
		log.Warn("order creation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCreateOrderFailed, err)
	}
	if created == nil || created.Order.ID == "" {
		o.revert(ctx, epoch, StageFailed, ErrSessionLost.Error())
		log.Error("order created without an id")
		return nil, ErrSessionLost
	}

	orderID := created.Order.ID
	amount := created.TotalAmount
	if amount == 0 {
		amount = orderTotal(created.Order.Items)
	}
	if amount == 0 {
		amount = quoted
	}
	span.SetAttributes(attribute.String("order.id", orderID), attribute.Int64("order.amount", amount))

	// The order exists server-side from here on; the handoff must be kept
	// even if the purchaser abandons meanwhile.
	h := Handoff{
		OrderID:   orderID,
		OwnerID:   o.owner,
		LineIDs:   req.LineIDs,
		Amount:    amount,
		CreatedAt: o.now(),
	}
	if err := o.ledger.SaveHandoff(context.WithoutCancel(ctx), h); err != nil {
		o.revert(ctx, epoch, StageFailed, ErrSessionLost.Error())
		recordError(span, err)
		log.Error("failed to record payment handoff", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSessionLost, err)
	}

	items := make([]order.Item, 0, len(created.Order.Items))
	for _, it := range created.Order.Items {
		if it.OrderID == "" {
			it.OrderID = orderID
		}
		items = append(items, it)
	}
	o.items.Track(items...)

	o.mu.Lock()
	if epoch != o.epoch {
		o.mu.Unlock()
		log.Info("order created after checkout was abandoned", zap.String("order_id", orderID))
		return nil, ErrAbandoned
	}
	o.orderID = orderID
	ev = o.setStageLocked(StageAwaitingPayment, "")
	o.mu.Unlock()
	o.publish(ctx, ev)

	log.Info("order created, awaiting payment", zap.String("order_id", orderID), zap.Int64("amount", amount))
	return &Placement{
		OrderID:     orderID,
		Amount:      amount,
		Items:       items,
		RedirectURL: o.redirects.URL(orderID, amount),
	}, nil
}

func orderTotal(items []order.Item) int64 {
	var total int64
	for _, it := range items {
		total += it.PriceAtOrder * int64(it.Quantity)
	}
	return total
}

// Resume continues checkout when the payment surface redirects back. It
// needs only the callback: everything else comes from the handoff recorded
// by PlaceOrder. Verification is dispatched at most once per order; repeated
// calls report the recorded outcome. Once dispatched, verification runs to
// completion even if ctx is cancelled.
func (o *Orchestrator) Resume(ctx context.Context, cb payment.Callback) (*Result, error) {
	if cb.OrderID == "" {
		if cb.Failed() {
			return o.finish(ctx, "", OutcomeFailed, failureMessage(cb), nil, false), nil
		}
		return nil, o.lose(ctx, "")
	}

	ctx = context.WithoutCancel(ctx)
	v, err, _ := o.flights.Do(o.owner+"/"+cb.OrderID, func() (any, error) {
		return o.resume(ctx, cb)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	return &res, nil
}

func (o *Orchestrator) resume(ctx context.Context, cb payment.Callback) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "checkout"),
		zap.String("method", "Resume"),
		zap.String("owner", o.owner),
		zap.String("order_id", cb.OrderID),
	)

	h, err := o.ledger.GetHandoff(ctx, cb.OrderID)
	if errors.Is(err, ErrHandoffNotFound) || (err == nil && h.OwnerID != o.owner) {
		log.Warn("no payment handoff for order")
		return nil, o.lose(ctx, cb.OrderID)
	}
	if err != nil {
		log.Error("failed to read payment handoff", zap.Error(err))
		return nil, err
	}
	if h.Completed() {
		log.Info("duplicate payment callback", zap.String("outcome", string(h.Outcome)))
		return o.settle(ctx, h), nil
	}

	if cb.Failed() {
		log.Info("payment failed at provider", zap.String("code", cb.Code))
		return o.finish(ctx, cb.OrderID, OutcomeFailed, failureMessage(cb), nil, false), nil
	}
	if err := cb.Validate(); err != nil {
		return o.finish(ctx, cb.OrderID, OutcomeFailed, err.Error(), nil, false), nil
	}
	if cb.Amount != h.Amount {
		log.Warn("callback amount does not match order",
			zap.Int64("callback_amount", cb.Amount),
			zap.Int64("order_amount", h.Amount),
		)
		msg := fmt.Sprintf("paid amount %d does not match order amount %d", cb.Amount, h.Amount)
		return o.finish(ctx, cb.OrderID, OutcomeFailed, msg, nil, false), nil
	}

	now := o.now()
	h, claimed, err := o.ledger.Claim(ctx, cb.OrderID, now, now.Add(-o.staleAfter))
	if err != nil {
		log.Error("failed to claim payment verification", zap.Error(err))
		return nil, err
	}
	if !claimed {
		if h.Completed() {
			return o.settle(ctx, h), nil
		}
		return nil, ErrVerificationRunning
	}

	// A callback for an older order verifies without touching a newer flow.
	o.mu.Lock()
	var ev events.Event
	if o.ownsStageLocked(h.OrderID) {
		o.epoch++
		o.orderID = h.OrderID
		o.session = nil
		ev = o.setStageLocked(StageVerifying, "")
	} else {
		log.Info("verifying payment for an earlier order", zap.String("current_stage", o.stage.String()))
	}
	o.mu.Unlock()
	o.publish(ctx, ev)

	ctx, span := tracer.Start(ctx, "checkout.VerifyPayment", trace.WithAttributes(
		attribute.String("order.id", h.OrderID),
		attribute.String("payment.method", string(cb.Method())),
	))
	defer span.End()

	ver, err := o.remote.VerifyPayment(ctx, payment.NewVerifyRequest(cb, h.LineIDs))
	if err != nil {
		recordError(span, err)
		log.Warn("payment verification failed", zap.Error(err))
		msg := "payment verification failed: " + err.Error()
		o.complete(ctx, h.OrderID, OutcomeFailed, msg)
		return o.finish(ctx, h.OrderID, OutcomeFailed, msg, nil, false), nil
	}

	o.observe(ctx, h.OrderID, ver.Items)
	o.cart.Discard(ctx, h.LineIDs)
	o.complete(ctx, h.OrderID, OutcomeSucceeded, "")

	log.Info("payment verified", zap.Int("items", len(ver.Items)))
	return o.finish(ctx, h.OrderID, OutcomeSucceeded, "", ver.Items, false), nil
}

func failureMessage(cb payment.Callback) string {
	return fmt.Sprintf("payment failed: %s (code: %s)", cb.Message, cb.Code)
}

// observe applies the statuses reported by verification. Items this process
// has not seen yet, for example after a restart, are registered as reported.
func (o *Orchestrator) observe(ctx context.Context, orderID string, reported []payment.ItemStatus) {
	log := logger.FromCtx(ctx)
	for _, r := range reported {
		status := order.Status(r.Status)
		if !status.Valid() {
			log.Warn("verification reported unknown status",
				zap.String("order_item_id", r.OrderItemID),
				zap.String("status", r.Status),
			)
			continue
		}
		err := o.items.Observe(r.OrderItemID, status)
		if errors.Is(err, order.ErrItemNotFound) {
			o.items.Track(order.Item{ID: r.OrderItemID, OrderID: orderID, Status: status})
			continue
		}
		if err != nil {
			log.Warn("ignoring reported status", zap.String("order_item_id", r.OrderItemID), zap.Error(err))
		}
	}
}

func (o *Orchestrator) complete(ctx context.Context, orderID string, outcome Outcome, msg string) {
	if err := o.ledger.Complete(ctx, orderID, outcome, msg, o.now()); err != nil {
		logger.FromCtx(ctx).Error("failed to record verification outcome",
			zap.String("order_id", orderID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}

// settle reports an outcome recorded by an earlier Resume.
func (o *Orchestrator) settle(ctx context.Context, h *Handoff) *Result {
	return o.finish(ctx, h.OrderID, h.Outcome, h.Message, nil, true)
}

func (o *Orchestrator) finish(ctx context.Context, orderID string, outcome Outcome, msg string, items []payment.ItemStatus, duplicate bool) *Result {
	stage := StageFailed
	if outcome == OutcomeSucceeded {
		stage = StageComplete
	}

	o.mu.Lock()
	var ev events.Event
	if o.ownsStageLocked(orderID) {
		o.session = nil
		o.orderID = orderID
		ev = o.setStageLocked(stage, msg)
	}
	o.mu.Unlock()
	o.publish(ctx, ev)

	return &Result{
		OrderID:   orderID,
		Stage:     stage,
		Outcome:   outcome,
		Message:   msg,
		Items:     items,
		Duplicate: duplicate,
	}
}

// ownsStageLocked reports whether an outcome for orderID may move the stage.
// A late callback for an old order must not disturb a checkout in progress.
func (o *Orchestrator) ownsStageLocked(orderID string) bool {
	if orderID != "" && o.orderID == orderID {
		return true
	}
	switch o.stage {
	case StagePrechecking, StageOutOfStock, StageReady, StageCreatingOrder, StageVerifying:
		return false
	case StageAwaitingPayment:
		// Another order awaits payment. An unidentified callback still
		// belongs to it.
		return orderID == "" || o.orderID == ""
	}
	return true
}

// lose fails the flow with ErrSessionLost.
func (o *Orchestrator) lose(ctx context.Context, orderID string) error {
	o.mu.Lock()
	var ev events.Event
	if o.ownsStageLocked(orderID) {
		o.session = nil
		ev = o.setStageLocked(StageFailed, ErrSessionLost.Error())
	}
	o.mu.Unlock()
	o.publish(ctx, ev)
	return ErrSessionLost
}

// revert moves back to a stable stage unless the flow moved on meanwhile.
func (o *Orchestrator) revert(ctx context.Context, epoch uint64, to Stage, msg string) {
	o.mu.Lock()
	var ev events.Event
	if epoch == o.epoch {
		if to == StageFailed {
			o.session = nil
		}
		ev = o.setStageLocked(to, msg)
	}
	o.mu.Unlock()
	o.publish(ctx, ev)
}

// Abandon drops the checkout without contacting the storefront. It is
// refused while payment verification runs.
func (o *Orchestrator) Abandon(ctx context.Context) error {
	o.mu.Lock()
	if o.stage == StageVerifying {
		o.mu.Unlock()
		return ErrVerificationRunning
	}
	o.epoch++
	o.session = nil
	o.orderID = ""
	ev := o.setStageLocked(StageIdle, "")
	o.mu.Unlock()
	o.publish(ctx, ev)

	logger.FromCtx(ctx).Info("checkout abandoned", zap.String("owner", o.owner))
	return nil
}

// setStageLocked returns the event to publish once the lock is released. It
// is empty when nothing changed.
func (o *Orchestrator) setStageLocked(to Stage, msg string) events.Event {
	prev := o.stage
	if prev == to && o.message == msg {
		return events.Event{}
	}
	o.stage = to
	o.message = msg
	return events.Event{
		Kind:      events.KindCheckoutStageChanged,
		OwnerID:   o.owner,
		Stage:     to.String(),
		PrevStage: prev.String(),
		OrderID:   o.orderID,
		Message:   msg,
	}
}

func (o *Orchestrator) publish(ctx context.Context, ev events.Event) {
	if ev.Kind == "" {
		return
	}
	o.events.Publish(ctx, ev)
}

func (s *Session) clone() *Session {
	cp := *s
	cp.LineIDs = append([]string(nil), s.LineIDs...)
	cp.Lines = append([]PricedLine(nil), s.Lines...)
	cp.StockIssues = append([]StockIssue(nil), s.StockIssues...)
	cp.Addresses = append([]Address(nil), s.Addresses...)
	if s.Direct != nil {
		d := *s.Direct
		cp.Direct = &d
	}
	return &cp
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
