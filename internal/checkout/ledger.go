package checkout

import (
	"context"
	"sync"
	"time"
)

// Ledger records payment handoffs and whether verification has been
// dispatched for them. Claim is the exactly-once guard: for any order id at
// most one caller gets claimed == true until the claim goes stale.
type Ledger interface {
	SaveHandoff(ctx context.Context, h Handoff) error
	GetHandoff(ctx context.Context, orderID string) (*Handoff, error)
	// Claim marks verification as dispatched at now. A dispatch older than
	// staleBefore that never completed may be claimed again.
	Claim(ctx context.Context, orderID string, now, staleBefore time.Time) (h *Handoff, claimed bool, err error)
	Complete(ctx context.Context, orderID string, outcome Outcome, message string, at time.Time) error
}

// MemoryLedger keeps handoffs in process memory. Handoffs do not survive a
// restart, so it suits single-instance and test setups.
type MemoryLedger struct {
	mu       sync.Mutex
	handoffs map[string]*Handoff
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{handoffs: make(map[string]*Handoff)}
}

func (l *MemoryLedger) SaveHandoff(_ context.Context, h Handoff) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.handoffs[h.OrderID]; ok {
		return ErrHandoffExists
	}
	cp := h
	cp.LineIDs = append([]string(nil), h.LineIDs...)
	l.handoffs[h.OrderID] = &cp
	return nil
}

func (l *MemoryLedger) GetHandoff(_ context.Context, orderID string) (*Handoff, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.handoffs[orderID]
	if !ok {
		return nil, ErrHandoffNotFound
	}
	return copyHandoff(h), nil
}

func (l *MemoryLedger) Claim(_ context.Context, orderID string, now, staleBefore time.Time) (*Handoff, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.handoffs[orderID]
	if !ok {
		return nil, false, ErrHandoffNotFound
	}
	if h.Completed() || (h.DispatchedAt != nil && !h.DispatchedAt.Before(staleBefore)) {
		return copyHandoff(h), false, nil
	}
	at := now
	h.DispatchedAt = &at
	return copyHandoff(h), true, nil
}

func (l *MemoryLedger) Complete(_ context.Context, orderID string, outcome Outcome, message string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.handoffs[orderID]
	if !ok {
		return ErrHandoffNotFound
	}
	if h.Completed() {
		return nil
	}
	done := at
	h.CompletedAt = &done
	h.Outcome = outcome
	h.Message = message
	return nil
}

func copyHandoff(h *Handoff) *Handoff {
	cp := *h
	cp.LineIDs = append([]string(nil), h.LineIDs...)
	if h.DispatchedAt != nil {
		t := *h.DispatchedAt
		cp.DispatchedAt = &t
	}
	if h.CompletedAt != nil {
		t := *h.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
